package domain

import (
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
)

// JoinMetadata attaches the formation date and grade of each stockpile to its
// rows and derives the age in days. The grade is the first non-empty grade in
// file order.
func JoinMetadata(cal *Calendar, supplies []SupplyRecord) {
	starts := FormationDates(supplies)
	grades := make(map[string]string)
	for _, s := range supplies {
		if s.Stockpile == "" || s.Grade == "" {
			continue
		}
		if _, ok := grades[s.Stockpile]; !ok {
			grades[s.Stockpile] = s.Grade
		}
	}

	for i := range cal.Rows {
		r := &cal.Rows[i]
		r.FormationDate = starts[r.Stockpile]
		r.Grade = grades[r.Stockpile]
		r.AgeDays = DaysBetween(r.FormationDate, r.Date)
	}
}

type stockpileDay struct {
	stockpile string
	day       time.Time
}

// AccumulateMass sums signed daily tonnage per stockpile (inbound positive,
// outbound negative) and writes the running total to Mass. Negative totals are
// kept. A side with a date but no tonnage, or tonnage but no date, is counted
// as incomplete and dropped, as are movements outside every calendar. Rows
// without a stockpile are already counted by BuildCalendar.
func AccumulateMass(cal *Calendar, supplies []SupplyRecord, anomalies Anomalies) {
	deltas := make(map[stockpileDay]float64)
	add := func(stockpile string, day time.Time, tons *float64, sign float64, side string) {
		switch {
		case day.IsZero() && tons == nil:
			return
		case day.IsZero() || tons == nil:
			anomalies.Add("supplies", side+"_incomplete", 1)
			return
		}
		if _, ok := cal.Index(stockpile, day); !ok {
			anomalies.Add("supplies", side+"_outside_calendar", 1)
			return
		}
		deltas[stockpileDay{stockpile, day}] += sign * *tons
	}

	for _, s := range supplies {
		if s.Stockpile == "" {
			continue
		}
		add(s.Stockpile, s.InboundDate, s.InboundTons, 1, "inbound")
		add(s.Stockpile, s.OutboundDate, s.OutboundTons, -1, "outbound")
	}

	for _, id := range cal.Stockpiles() {
		rows := cal.StockpileRows(id)
		mass := 0.0
		for i := range rows {
			rows[i].DeltaMass = deltas[stockpileDay{id, rows[i].Date}]
			mass += rows[i].DeltaMass
			rows[i].Mass = mass
		}
	}
}

// PropagateTemperature joins the daily maximum reading, carries the last known
// value forward, and computes the day-over-day change. Days before the first
// reading of a stockpile are 0, and so is the first day's change.
func PropagateTemperature(cal *Calendar, readings []TemperatureReading, anomalies Anomalies) {
	daily := make(map[stockpileDay]float64)
	for _, r := range readings {
		if r.Stockpile == "" || r.Date.IsZero() || r.MaxTemp == nil {
			anomalies.Add("temperature", "unresolvable", 1)
			continue
		}
		if !cal.Has(r.Stockpile) {
			anomalies.Add("temperature", "unknown_stockpile", 1)
			continue
		}
		k := stockpileDay{r.Stockpile, r.Date}
		if cur, ok := daily[k]; !ok || *r.MaxTemp > cur {
			daily[k] = *r.MaxTemp
		}
	}

	for _, id := range cal.Stockpiles() {
		rows := cal.StockpileRows(id)
		last := 0.0
		for i := range rows {
			if v, ok := daily[stockpileDay{id, rows[i].Date}]; ok {
				last = v
			}
			rows[i].MaxTemp = last
			if i == 0 {
				rows[i].TempDelta = 0
				continue
			}
			rows[i].TempDelta = rows[i].MaxTemp - rows[i-1].MaxTemp
		}
	}
}

// weatherSeries is a dense daily axis; NaN marks a missing value.
type weatherSeries struct {
	start  time.Time
	fields [3][]float64
}

func (s *weatherSeries) at(day time.Time, field int) float64 {
	i := DaysBetween(s.start, day)
	if i < 0 || i >= len(s.fields[field]) {
		return math.NaN()
	}
	return s.fields[field][i]
}

// DedupeWeather collapses records sharing a date into one record holding the
// mean of each present field. Output is ordered by date.
func DedupeWeather(records []WeatherRecord, anomalies Anomalies) []WeatherRecord {
	type acc struct {
		sum [3]float64
		n   [3]int
	}
	byDay := make(map[time.Time]*acc)
	var days []time.Time
	for _, w := range records {
		if w.Date.IsZero() {
			anomalies.Add("weather", "unresolvable_date", 1)
			continue
		}
		a, ok := byDay[w.Date]
		if !ok {
			a = &acc{}
			byDay[w.Date] = a
			days = append(days, w.Date)
		} else {
			anomalies.Add("weather", "duplicate_date", 1)
		}
		for f, v := range [3]*float64{w.Temp, w.Pressure, w.Humidity} {
			if v != nil {
				a.sum[f] += *v
				a.n[f]++
			}
		}
	}
	sortDays(days)

	out := make([]WeatherRecord, 0, len(days))
	for _, d := range days {
		a := byDay[d]
		var vals [3]*float64
		for f := range vals {
			if a.n[f] > 0 {
				vals[f] = floatPtr(a.sum[f] / float64(a.n[f]))
			}
		}
		out = append(out, WeatherRecord{Date: d, Temp: vals[0], Pressure: vals[1], Humidity: vals[2]})
	}
	return out
}

// JoinWeather attaches site-wide weather to every row by date. Each field is
// forward-filled along the daily axis, then rows still missing a value take
// the mean of that field over all joined rows. A field with no value at all is
// 0.
func JoinWeather(cal *Calendar, records []WeatherRecord, anomalies Anomalies) {
	if len(cal.Rows) == 0 {
		return
	}
	deduped := DedupeWeather(records, anomalies)

	start := cal.End
	for _, id := range cal.Stockpiles() {
		if first := cal.StockpileRows(id)[0].Date; first.Before(start) {
			start = first
		}
	}
	if len(deduped) > 0 && deduped[0].Date.Before(start) {
		start = deduped[0].Date
	}

	n := DaysBetween(start, cal.End) + 1
	series := &weatherSeries{start: start}
	for f := range series.fields {
		series.fields[f] = make([]float64, n)
		for i := range series.fields[f] {
			series.fields[f][i] = math.NaN()
		}
	}
	for _, w := range deduped {
		i := DaysBetween(start, w.Date)
		if i < 0 || i >= n {
			continue
		}
		for f, v := range [3]*float64{w.Temp, w.Pressure, w.Humidity} {
			if v != nil {
				series.fields[f][i] = *v
			}
		}
	}
	for f := range series.fields {
		forwardFill(series.fields[f])
	}

	var joined [3][]float64
	for f := range joined {
		joined[f] = make([]float64, len(cal.Rows))
	}
	for i := range cal.Rows {
		for f := range joined {
			joined[f][i] = series.at(cal.Rows[i].Date, f)
		}
	}
	for f := range joined {
		fillWithMean(joined[f])
	}
	for i := range cal.Rows {
		cal.Rows[i].WeatherT = joined[0][i]
		cal.Rows[i].WeatherP = joined[1][i]
		cal.Rows[i].Humidity = joined[2][i]
	}
}

// AddCalendarFeatures derives weekday (Monday = 0) and month from the row date.
func AddCalendarFeatures(cal *Calendar) {
	for i := range cal.Rows {
		cal.Rows[i].Weekday = Weekday(cal.Rows[i].Date)
		cal.Rows[i].Month = int(cal.Rows[i].Date.Month())
	}
}

func forwardFill(vals []float64) {
	last := math.NaN()
	for i, v := range vals {
		if math.IsNaN(v) {
			vals[i] = last
			continue
		}
		last = v
	}
}

// fillWithMean replaces NaN entries with the mean of the others, or 0 if every
// entry is NaN.
func fillWithMean(vals []float64) {
	present := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}
	if len(present) == len(vals) {
		return
	}
	mean := 0.0
	if len(present) > 0 {
		mean = stat.Mean(present, nil)
	}
	for i, v := range vals {
		if math.IsNaN(v) {
			vals[i] = mean
		}
	}
}
