package domain

// RiskWindowDays is how many days before a fire start are labelled high-risk.
const RiskWindowDays = 3

// AssignLabels sets Label = 1 on the RiskWindowDays days before each fire
// start for that stockpile. Overlapping windows stay at 1. Fires without a
// stockpile or start date, or for a stockpile with no calendar, are skipped
// and counted. Returns the number of row marks made, overlaps included.
func AssignLabels(cal *Calendar, fires []FireEvent, anomalies Anomalies) int {
	marked := 0
	for _, f := range fires {
		if f.Stockpile == "" || f.Start.IsZero() {
			anomalies.Add("fires", "unresolvable", 1)
			continue
		}
		if !cal.Has(f.Stockpile) {
			anomalies.Add("fires", "unknown_stockpile", 1)
			continue
		}
		for d := RiskWindowDays; d >= 1; d-- {
			i, ok := cal.Index(f.Stockpile, f.Start.AddDate(0, 0, -d))
			if !ok {
				continue
			}
			cal.Rows[i].Label = 1
			marked++
		}
	}
	return marked
}

// Positives counts rows with Label = 1.
func Positives(rows []FeatureRow) int {
	n := 0
	for i := range rows {
		n += rows[i].Label
	}
	return n
}
