package domain

import "time"

// Dataset is the training input: one feature vector and label per row, with
// the encoder used for the grade column.
type Dataset struct {
	X       [][]float64
	Y       []int
	Encoder *CategoryEncoder
}

// Positives counts the positive labels.
func (d *Dataset) Positives() int {
	n := 0
	for _, y := range d.Y {
		n += y
	}
	return n
}

// Finalize fits the grade encoder on rows and emits vectors in FeatureColumns
// order.
func Finalize(rows []FeatureRow) *Dataset {
	grades := make([]string, len(rows))
	for i := range rows {
		grades[i] = rows[i].Grade
	}
	enc := FitCategories(grades)

	ds := &Dataset{
		X:       make([][]float64, len(rows)),
		Y:       make([]int, len(rows)),
		Encoder: enc,
	}
	for i := range rows {
		ds.X[i] = rows[i].Vector(enc)
		ds.Y[i] = rows[i].Label
	}
	return ds
}

// Vector returns the row's features in FeatureColumns order.
func (r *FeatureRow) Vector(enc *CategoryEncoder) []float64 {
	return []float64{
		float64(enc.Encode(r.Grade)),
		float64(r.AgeDays),
		r.Mass,
		r.MaxTemp,
		r.TempDelta,
		float64(r.Weekday),
		float64(r.Month),
		r.WeatherT,
		r.WeatherP,
		r.Humidity,
	}
}

// BuildStats summarises one dataset construction.
type BuildStats struct {
	Stockpiles int
	Rows       int
	Positives  int
	LabelMarks int
	End        time.Time
}

// BuildFeatureTable runs every construction step on in, in order, and returns
// the enriched calendar. Skipped rows are added to anomalies, which must be
// non-nil.
func BuildFeatureTable(in Inputs, anomalies Anomalies) (*Calendar, BuildStats, error) {
	end, err := ObservedEnd(in)
	if err != nil {
		return nil, BuildStats{}, err
	}
	cal, err := BuildCalendar(in.Supplies, end, anomalies)
	if err != nil {
		return nil, BuildStats{}, err
	}
	marks := AssignLabels(cal, in.Fires, anomalies)
	JoinMetadata(cal, in.Supplies)
	AccumulateMass(cal, in.Supplies, anomalies)
	PropagateTemperature(cal, in.Temperatures, anomalies)
	JoinWeather(cal, in.Weather, anomalies)
	AddCalendarFeatures(cal)

	return cal, BuildStats{
		Stockpiles: len(cal.Stockpiles()),
		Rows:       len(cal.Rows),
		Positives:  Positives(cal.Rows),
		LabelMarks: marks,
		End:        cal.End,
	}, nil
}
