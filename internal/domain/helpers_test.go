package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mustDay(t *testing.T, s string) time.Time {
	t.Helper()
	d, ok := ParseDay(s)
	require.True(t, ok, "parse %q", s)
	return d
}

func tons(v float64) *float64 { return &v }

func inbound(t *testing.T, stockpile, date string, v float64, grade string) SupplyRecord {
	t.Helper()
	return SupplyRecord{Stockpile: stockpile, InboundDate: mustDay(t, date), InboundTons: tons(v), Grade: grade}
}

func outbound(t *testing.T, stockpile, date string, v float64) SupplyRecord {
	t.Helper()
	return SupplyRecord{Stockpile: stockpile, OutboundDate: mustDay(t, date), OutboundTons: tons(v)}
}

func labelledDays(cal *Calendar, stockpile string) []string {
	var days []string
	for _, r := range cal.StockpileRows(stockpile) {
		if r.Label == 1 {
			days = append(days, r.Date.Format("2006-01-02"))
		}
	}
	return days
}
