package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enrichCalendar(t *testing.T, supplies []SupplyRecord, end string) *Calendar {
	t.Helper()
	cal, err := BuildCalendar(supplies, mustDay(t, end), Anomalies{})
	require.NoError(t, err)
	return cal
}

func TestJoinMetadata(t *testing.T) {
	supplies := []SupplyRecord{
		inbound(t, "A", "2024-01-03", 5, ""),
		inbound(t, "A", "2024-01-01", 5, "ДР"),
		inbound(t, "A", "2024-01-02", 5, "Б2"),
		inbound(t, "B", "2024-01-04", 5, "ДГ"),
	}
	cal := enrichCalendar(t, supplies, "2024-01-10")
	JoinMetadata(cal, supplies)

	for _, id := range cal.Stockpiles() {
		rows := cal.StockpileRows(id)
		assert.Zero(t, rows[0].AgeDays, id)
		for i := 1; i < len(rows); i++ {
			assert.Greater(t, rows[i].AgeDays, rows[i-1].AgeDays, id)
		}
	}
	a := cal.StockpileRows("A")
	assert.Equal(t, "ДР", a[0].Grade)
	assert.Equal(t, mustDay(t, "2024-01-01"), a[5].FormationDate)
	assert.Equal(t, 9, a[9].AgeDays)
	assert.Equal(t, "ДГ", cal.StockpileRows("B")[0].Grade)
}

func TestAccumulateMass(t *testing.T) {
	supplies := []SupplyRecord{
		inbound(t, "A", "2024-01-01", 100, ""),
		inbound(t, "A", "2024-01-03", 20, ""),
		outbound(t, "A", "2024-01-03", 50),
		outbound(t, "A", "2024-01-04", 100),
		inbound(t, "A", "2024-01-05", 1, ""),
		{Stockpile: "A", InboundDate: mustDay(t, "2024-01-02")},
		{Stockpile: "A", OutboundTons: tons(3)},
		outbound(t, "Z", "2024-01-02", 7),
	}
	cal := enrichCalendar(t, supplies, "2024-01-06")
	anomalies := Anomalies{}
	AccumulateMass(cal, supplies, anomalies)

	var mass, deltas []float64
	for _, r := range cal.StockpileRows("A") {
		mass = append(mass, r.Mass)
		deltas = append(deltas, r.DeltaMass)
	}
	assert.Equal(t, []float64{100, 0, -30, -100, 1, 0}, deltas)
	assert.Equal(t, []float64{100, 100, 70, -30, -29, -29}, mass)
	assert.Equal(t, 1, anomalies["supplies/outbound_outside_calendar"])
	assert.Equal(t, 1, anomalies["supplies/inbound_incomplete"])
	assert.Equal(t, 1, anomalies["supplies/outbound_incomplete"])
	assert.Len(t, anomalies, 3)

	running := 0.0
	for _, r := range cal.StockpileRows("A") {
		running += r.DeltaMass
		assert.InDelta(t, running, r.Mass, 1e-9)
	}
}

func TestPropagateTemperature(t *testing.T) {
	cal := enrichCalendar(t, []SupplyRecord{
		inbound(t, "A", "2024-01-01", 1, ""),
		inbound(t, "B", "2024-01-01", 1, ""),
	}, "2024-01-05")
	anomalies := Anomalies{}
	PropagateTemperature(cal, []TemperatureReading{
		{Stockpile: "A", Date: mustDay(t, "2024-01-02"), MaxTemp: tons(30)},
		{Stockpile: "A", Date: mustDay(t, "2024-01-02"), MaxTemp: tons(35)},
		{Stockpile: "A", Date: mustDay(t, "2024-01-04"), MaxTemp: tons(20)},
		{Stockpile: "A", Date: mustDay(t, "2024-01-05")},
		{Stockpile: "Q", Date: mustDay(t, "2024-01-05"), MaxTemp: tons(99)},
	}, anomalies)

	var temps, deltas []float64
	for _, r := range cal.StockpileRows("A") {
		temps = append(temps, r.MaxTemp)
		deltas = append(deltas, r.TempDelta)
	}
	assert.Equal(t, []float64{0, 35, 35, 20, 20}, temps)
	assert.Equal(t, []float64{0, 35, 0, -15, 0}, deltas)

	for _, r := range cal.StockpileRows("B") {
		assert.Zero(t, r.MaxTemp)
		assert.Zero(t, r.TempDelta)
	}
	assert.Equal(t, 1, anomalies["temperature/unresolvable"])
	assert.Equal(t, 1, anomalies["temperature/unknown_stockpile"])
}

func TestJoinWeather(t *testing.T) {
	cal := enrichCalendar(t, []SupplyRecord{
		inbound(t, "A", "2024-01-01", 1, ""),
		inbound(t, "B", "2024-01-03", 1, ""),
	}, "2024-01-05")
	anomalies := Anomalies{}
	JoinWeather(cal, []WeatherRecord{
		{Date: mustDay(t, "2024-01-02"), Temp: tons(5), Humidity: tons(80)},
		{Date: mustDay(t, "2024-01-04"), Temp: tons(7)},
		{Date: mustDay(t, "2024-01-04"), Temp: tons(9)},
	}, anomalies)

	var a []float64
	for _, r := range cal.StockpileRows("A") {
		a = append(a, r.WeatherT)
	}
	// Joined rows after ffill: A 02..05 = 5 5 8 8, B 03..05 = 5 8 8.
	mean := (5 + 5 + 8 + 8 + 5 + 8 + 8) / 7.0
	assert.InDeltaSlice(t, []float64{mean, 5, 5, 8, 8}, a, 1e-9)

	b := cal.StockpileRows("B")
	assert.Equal(t, 5.0, b[0].WeatherT)
	assert.Equal(t, 80.0, b[0].Humidity)

	for _, r := range cal.Rows {
		assert.Zero(t, r.WeatherP, "pressure never observed")
	}
	assert.Equal(t, 1, anomalies["weather/duplicate_date"])
}

func TestJoinWeatherLeadingHistory(t *testing.T) {
	cal := enrichCalendar(t, []SupplyRecord{inbound(t, "A", "2024-01-10", 1, "")}, "2024-01-12")
	JoinWeather(cal, []WeatherRecord{
		{Date: mustDay(t, "2023-12-31"), Pressure: tons(1010)},
		{Date: mustDay(t, "2024-01-11"), Pressure: tons(1000)},
	}, Anomalies{})

	var p []float64
	for _, r := range cal.Rows {
		p = append(p, r.WeatherP)
	}
	assert.Equal(t, []float64{1010, 1000, 1000}, p)
}

func TestDedupeWeatherIsOrderIndependent(t *testing.T) {
	recs := []WeatherRecord{
		{Date: mustDay(t, "2024-01-02"), Temp: tons(1)},
		{Date: mustDay(t, "2024-01-01"), Temp: tons(4)},
		{Date: mustDay(t, "2024-01-02"), Temp: tons(3)},
	}
	reversed := []WeatherRecord{recs[2], recs[1], recs[0]}

	a := DedupeWeather(recs, Anomalies{})
	b := DedupeWeather(reversed, Anomalies{})
	require.Len(t, a, 2)
	assert.Equal(t, a, b)
	assert.Equal(t, 2.0, *a[1].Temp)
}

func TestAddCalendarFeatures(t *testing.T) {
	cal := enrichCalendar(t, []SupplyRecord{inbound(t, "A", "2024-02-28", 1, "")}, "2024-03-04")
	AddCalendarFeatures(cal)

	var weekdays, months []int
	for _, r := range cal.Rows {
		weekdays = append(weekdays, r.Weekday)
		months = append(months, r.Month)
	}
	assert.Equal(t, []int{2, 3, 4, 5, 6, 0}, weekdays)
	assert.Equal(t, []int{2, 2, 3, 3, 3, 3}, months)
}
