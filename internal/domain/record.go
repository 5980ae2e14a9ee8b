package domain

import (
	"sort"
	"time"
)

// SupplyRecord is one movement row. A row may carry the inbound side, the
// outbound side, or both; absent dates are zero and absent tonnage is nil.
type SupplyRecord struct {
	Stockpile    string
	InboundDate  time.Time
	InboundTons  *float64
	OutboundDate time.Time
	OutboundTons *float64
	Grade        string
}

// FireEvent is a recorded self-ignition. Start is zero when unparseable.
type FireEvent struct {
	Stockpile string
	Start     time.Time
	End       time.Time
}

// TemperatureReading is a single inspection act. MaxTemp is nil when the cell
// was empty or unparseable.
type TemperatureReading struct {
	Stockpile string
	Date      time.Time
	MaxTemp   *float64
}

// WeatherRecord is one day of site weather. Missing fields are nil.
type WeatherRecord struct {
	Date     time.Time
	Temp     *float64
	Pressure *float64
	Humidity *float64
}

// Inputs bundles the four source tables of a training run.
type Inputs struct {
	Fires        []FireEvent
	Supplies     []SupplyRecord
	Temperatures []TemperatureReading
	Weather      []WeatherRecord
}

// Table is a header plus string cells, the shape of an inference CSV.
type Table struct {
	Header []string
	Rows   [][]string
}

// Index returns the position of column name in the header, or -1.
func (t Table) Index(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Cell returns row[col] or "" when the row is short.
func (t Table) Cell(row, col int) string {
	if col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// Anomalies counts rows skipped during loading and dataset construction,
// keyed by "<source>/<reason>".
type Anomalies map[string]int

// Add increments the counter for source/reason by n.
func (a Anomalies) Add(source, reason string, n int) {
	if n == 0 {
		return
	}
	a[source+"/"+reason] += n
}

// Merge folds other into a.
func (a Anomalies) Merge(other Anomalies) {
	for k, v := range other {
		a[k] += v
	}
}

// Total returns the number of skipped rows across all keys.
func (a Anomalies) Total() int {
	n := 0
	for _, v := range a {
		n += v
	}
	return n
}

// Keys returns the counter keys in sorted order.
func (a Anomalies) Keys() []string {
	keys := make([]string, 0, len(a))
	for k := range a {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
