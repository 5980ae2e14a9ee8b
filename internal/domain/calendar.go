package domain

import (
	"fmt"
	"sort"
	"time"
)

// FeatureRow is one (stockpile, day) of the feature table. Columns are filled
// in by the enrichment steps in order.
type FeatureRow struct {
	Stockpile string
	Date      time.Time
	Label     int

	FormationDate time.Time
	Grade         string
	AgeDays       int

	DeltaMass float64
	Mass      float64

	MaxTemp   float64
	TempDelta float64

	Weekday int
	Month   int

	WeatherT float64
	WeatherP float64
	Humidity float64
}

type span struct {
	start  time.Time
	offset int
	length int
}

// Calendar holds the feature rows grouped by stockpile. Rows of one stockpile
// are contiguous and ordered by date, stockpiles are ordered by id.
type Calendar struct {
	Rows []FeatureRow
	End  time.Time

	spans map[string]span
	order []string
}

// Stockpiles returns the stockpile ids in row order.
func (c *Calendar) Stockpiles() []string {
	return c.order
}

// Index returns the row position of (stockpile, day).
func (c *Calendar) Index(stockpile string, day time.Time) (int, bool) {
	s, ok := c.spans[stockpile]
	if !ok {
		return 0, false
	}
	d := DaysBetween(s.start, day)
	if d < 0 || d >= s.length {
		return 0, false
	}
	return s.offset + d, true
}

// StockpileRows returns the rows of one stockpile in date order. The slice
// aliases c.Rows.
func (c *Calendar) StockpileRows(stockpile string) []FeatureRow {
	s, ok := c.spans[stockpile]
	if !ok {
		return nil
	}
	return c.Rows[s.offset : s.offset+s.length]
}

// Has reports whether the stockpile has a calendar.
func (c *Calendar) Has(stockpile string) bool {
	_, ok := c.spans[stockpile]
	return ok
}

// ObservedEnd returns the latest valid date found in any of the four sources.
// This is the shared last day of every stockpile calendar.
func ObservedEnd(in Inputs) (time.Time, error) {
	var end time.Time
	see := func(t time.Time) {
		if !t.IsZero() && t.After(end) {
			end = t
		}
	}
	for _, f := range in.Fires {
		see(f.Start)
		see(f.End)
	}
	for _, r := range in.Temperatures {
		see(r.Date)
	}
	for _, s := range in.Supplies {
		see(s.InboundDate)
		see(s.OutboundDate)
	}
	for _, w := range in.Weather {
		see(w.Date)
	}
	if end.IsZero() {
		return time.Time{}, fmt.Errorf("%w: unable to infer a time range, no valid date in any input", ErrConfiguration)
	}
	return end, nil
}

// FormationDates returns the earliest inbound date per stockpile. Stockpiles
// that appear only with missing inbound dates are absent from the result.
func FormationDates(supplies []SupplyRecord) map[string]time.Time {
	starts := make(map[string]time.Time)
	for _, s := range supplies {
		if s.Stockpile == "" || s.InboundDate.IsZero() {
			continue
		}
		if cur, ok := starts[s.Stockpile]; !ok || s.InboundDate.Before(cur) {
			starts[s.Stockpile] = s.InboundDate
		}
	}
	return starts
}

// BuildCalendar produces one row per day for each stockpile from its first
// inbound date to end inclusive. Stockpiles without a resolvable start are
// skipped and counted. Returns ErrConfiguration when nothing is left.
func BuildCalendar(supplies []SupplyRecord, end time.Time, anomalies Anomalies) (*Calendar, error) {
	end = Day(end)
	starts := FormationDates(supplies)

	seen := make(map[string]struct{})
	for _, s := range supplies {
		if s.Stockpile == "" {
			anomalies.Add("supplies", "missing_stockpile", 1)
			continue
		}
		seen[s.Stockpile] = struct{}{}
	}
	for id := range seen {
		if _, ok := starts[id]; !ok {
			anomalies.Add("calendar", "no_start_date", 1)
		}
	}

	ids := make([]string, 0, len(starts))
	for id, start := range starts {
		if start.After(end) {
			anomalies.Add("calendar", "start_after_end", 1)
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no valid stockpiles found for processing", ErrConfiguration)
	}
	sort.Strings(ids)

	total := 0
	for _, id := range ids {
		total += DaysBetween(starts[id], end) + 1
	}

	cal := &Calendar{
		Rows:  make([]FeatureRow, 0, total),
		End:   end,
		spans: make(map[string]span, len(ids)),
		order: ids,
	}
	for _, id := range ids {
		start := starts[id]
		n := DaysBetween(start, end) + 1
		cal.spans[id] = span{start: start, offset: len(cal.Rows), length: n}
		for d := 0; d < n; d++ {
			cal.Rows = append(cal.Rows, FeatureRow{
				Stockpile: id,
				Date:      start.AddDate(0, 0, d),
			})
		}
	}
	return cal, nil
}
