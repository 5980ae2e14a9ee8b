// Package domain turns coal-stockpile operating logs into a day-by-stockpile
// feature table for fire-risk classification.
//
// # Data Sources
//
// Four tables are exported from the terminal's record keeping as CSV:
//
//	fires        one row per self-ignition incident (stockpile, start date, end date)
//	supplies     one row per movement: unloading onto the yard (inbound tonnage)
//	             and/or loading onto a vessel (outbound tonnage), plus the coal grade
//	temperature  inspection acts with the maximum temperature measured in a stockpile
//	weather      one file per year, one row per day (t, p, humidity and auxiliary fields)
//
// Column headers are the Russian spreadsheet headers used at the terminal; they are
// declared once in schema.go and never translated.
//
// # Conventions
//
// Stockpile ids:
//
//	Spreadsheets export ids either as integers ("23") or as floats ("23.0").
//	[CanonicalStockpile] trims whitespace and rewrites integral numbers without a
//	fractional part so both spellings refer to the same stockpile.
//
// Dates:
//
//	Every date is truncated to midnight UTC. ISO (2006-01-02), ISO with time,
//	and the Russian dotted form (02.01.2006) are accepted. See [ParseDay].
//
// Numbers:
//
//	Tonnage and temperatures may use a comma as decimal separator and a space
//	or non-breaking space as thousands separator. See [ParseNumber].
//
// Weekday:
//
//	Monday is 0 and Sunday is 6, matching existing feature tables and trained
//	models. Go's time.Weekday starts at Sunday and is shifted.
//
// # Dataset Construction
//
// The steps run in a fixed order because each one reads columns written by the
// previous one:
//
//	BuildCalendar      one row per stockpile per day, first inbound day .. global max date
//	AssignLabels       label = 1 on the three days before each fire start
//	JoinMetadata       formation date, grade, age in days
//	AccumulateMass     running sum of signed daily tonnage
//	PropagateTemperature  forward-filled daily max temperature and its delta
//	JoinWeather        site-wide weather by date, forward-filled, mean-filled
//	AddCalendarFeatures   weekday and month
//	Finalize           ordered feature matrix, encoded grade, label vector
//
// Rows that cannot be interpreted (unparseable date, unknown stockpile) are
// skipped and counted in [Anomalies]; they never abort a run.
package domain
