package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseDay(t *testing.T) {
	want := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{
		"2024-03-10",
		" 2024-03-10 ",
		"2024-03-10 14:22:05",
		"2024-03-10 14:22",
		"2024-03-10T14:22:05",
		"2024-03-10T14:22:05Z",
		"10.03.2024",
		"10.03.2024 08:00",
		"2024/03/10",
	} {
		got, ok := ParseDay(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"", "   ", "yesterday", "2024-13-01"} {
		_, ok := ParseDay(in)
		assert.False(t, ok, in)
	}
}

func TestWeekday(t *testing.T) {
	monday := time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 0, Weekday(monday))
	assert.Equal(t, 6, Weekday(monday.AddDate(0, 0, 6)))
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"12.5", 12.5, true},
		{"12,5", 12.5, true},
		{"1 234,5", 1234.5, true},
		{"1 234", 1234, true},
		{"-3", -3, true},
		{"", 0, false},
		{"n/a", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseNumber(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestCanonicalStockpile(t *testing.T) {
	assert.Equal(t, "23", CanonicalStockpile("23"))
	assert.Equal(t, "23", CanonicalStockpile(" 23.0 "))
	assert.Equal(t, "4.5", CanonicalStockpile("4.5"))
	assert.Equal(t, "A-1", CanonicalStockpile("A-1"))
	assert.Equal(t, "", CanonicalStockpile("  "))
}
