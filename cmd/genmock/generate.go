package main

import (
	"math"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/stockpile-fire-risk/internal/domain"
)

var grades = []string{"ДР", "Б2", "ДГ", "Д", "СС"}

// Stockpiles self-heat roughly this many degrees per day since formation or
// since the last fire.
const heatPerDay = 0.35

// ignitionTemp is the reading above which a fire may follow within days.
const ignitionTemp = 65.0

// mockData is one synthetic data directory.
type mockData struct {
	Fires       domain.Table
	Supplies    domain.Table
	Temperature domain.Table
	Weather     map[int]domain.Table // by year
}

type generator struct {
	rng        *rand.Rand
	start      time.Time
	end        time.Time // exclusive
	stockpiles int
}

// newGenerator covers the years before the clock's current day.
func newGenerator(seed uint64, clock clockwork.Clock, years, stockpiles int) *generator {
	end := domain.Day(clock.Now())
	return &generator{
		rng:        rand.New(rand.NewPCG(seed, seed)),
		start:      end.AddDate(-years, 0, 0),
		end:        end,
		stockpiles: stockpiles,
	}
}

func (g *generator) generate() mockData {
	data := mockData{
		Fires:       domain.Table{Header: domain.FireColumns},
		Supplies:    domain.Table{Header: domain.SupplyColumns},
		Temperature: domain.Table{Header: domain.TemperatureColumns},
		Weather:     map[int]domain.Table{},
	}
	for id := 1; id <= g.stockpiles; id++ {
		g.stockpile(id, &data)
	}
	if len(data.Fires.Rows) == 0 && len(data.Temperature.Rows) > 0 {
		// Guarantee one positive window so the data trains.
		last := data.Temperature.Rows[len(data.Temperature.Rows)-1]
		day, _ := domain.ParseDay(last[1])
		data.Fires.Rows = append(data.Fires.Rows, g.fire(last[0], day))
	}
	g.weather(&data)
	return data
}

func (g *generator) stockpile(id int, data *mockData) {
	sid := strconv.Itoa(id)
	grade := grades[g.rng.IntN(len(grades))]
	formed := g.start.AddDate(0, 0, g.rng.IntN(60))

	day := formed
	mass := 0.0
	for range 3 + g.rng.IntN(6) {
		if !day.Before(g.end) {
			break
		}
		tons := round1(500 + g.rng.Float64()*1500)
		mass += tons
		data.Supplies.Rows = append(data.Supplies.Rows, []string{
			sid, day.Format(time.DateOnly), formatTons(tons), "", "", grade,
		})
		day = day.AddDate(0, 0, 1+g.rng.IntN(5))
	}
	for mass > 0 {
		day = day.AddDate(0, 0, 5+g.rng.IntN(20))
		if !day.Before(g.end) {
			break
		}
		tons := round1(math.Min(mass, 300+g.rng.Float64()*1200))
		mass -= tons
		data.Supplies.Rows = append(data.Supplies.Rows, []string{
			sid, "", "", day.Format(time.DateOnly), formatTons(tons), grade,
		})
	}
	lifeEnd := day
	if lifeEnd.After(g.end) {
		lifeEnd = g.end
	}

	heatSince := formed
	for d := formed; d.Before(lifeEnd); d = d.AddDate(0, 0, 3+g.rng.IntN(5)) {
		age := d.Sub(heatSince).Hours() / 24
		temp := round1(15 + heatPerDay*age + g.rng.NormFloat64()*3)
		data.Temperature.Rows = append(data.Temperature.Rows, []string{
			sid, d.Format("02.01.2006"), strings.Replace(strconv.FormatFloat(temp, 'f', 1, 64), ".", ",", 1),
		})
		if temp < ignitionTemp || g.rng.Float64() > 0.5 {
			continue
		}
		start := d.AddDate(0, 0, 1+g.rng.IntN(3))
		if !start.Before(g.end) {
			continue
		}
		data.Fires.Rows = append(data.Fires.Rows, g.fire(sid, start))
		heatSince = start
	}
}

func (g *generator) fire(sid string, day time.Time) []string {
	start := day.Add(time.Duration(g.rng.IntN(24)) * time.Hour)
	end := start.Add(time.Duration(1+g.rng.IntN(48)) * time.Hour)
	return []string{sid, start.Format(time.DateTime), end.Format(time.DateTime)}
}

// weather writes one row per day with a seasonal temperature curve. About one
// day in fifty is left out.
func (g *generator) weather(data *mockData) {
	for d := g.start; d.Before(g.end); d = d.AddDate(0, 0, 1) {
		if g.rng.IntN(50) == 0 {
			continue
		}
		season := math.Sin(2 * math.Pi * float64(d.YearDay()-100) / 365)
		t := round1(5 + 20*season + g.rng.NormFloat64()*3)
		p := round1(1013 + g.rng.NormFloat64()*8)
		h := round1(math.Max(20, math.Min(100, 65-15*season+g.rng.NormFloat64()*10)))

		year := d.Year()
		tbl, ok := data.Weather[year]
		if !ok {
			tbl = domain.Table{Header: domain.WeatherUploadColumns}
		}
		tbl.Rows = append(tbl.Rows, []string{
			d.Format(time.DateOnly),
			fmtFloat(t),
			fmtFloat(p),
			fmtFloat(h),
			fmtFloat(round1(math.Max(0, g.rng.NormFloat64()*2))),
			strconv.Itoa(g.rng.IntN(360)),
			fmtFloat(round1(math.Abs(g.rng.NormFloat64() * 4))),
			fmtFloat(round1(math.Abs(g.rng.NormFloat64()*4) + 4)),
			strconv.Itoa(g.rng.IntN(101)),
			strconv.Itoa(1000 + g.rng.IntN(9000)),
			strconv.Itoa(g.rng.IntN(4)),
		})
		data.Weather[year] = tbl
	}
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

func fmtFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// formatTons uses a comma decimal separator like the source exports.
func formatTons(v float64) string {
	return strings.Replace(fmtFloat(v), ".", ",", 1)
}
