// Command genmock writes a synthetic data directory: supplies, fires and
// temperature logs for a set of stockpiles plus yearly weather files, and an
// inference schedule built with the real feature pipeline. Output is fully
// determined by the seed and the end date.
//
// Usage:
//
//	go run ./cmd/genmock -out data -seed 42 -stockpiles 12 -years 2 -end 2024-06-30
package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/stockpile-fire-risk/internal/adapter/csvfile"
	"github.com/couchcryptid/stockpile-fire-risk/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "data", "data directory to write")
	seed := flag.Uint64("seed", 42, "random seed")
	stockpiles := flag.Int("stockpiles", 12, "number of stockpiles")
	years := flag.Int("years", 2, "years of history before -end")
	endFlag := flag.String("end", "2024-06-30", "first day after the generated history (YYYY-MM-DD)")
	flag.Parse()

	end, err := time.Parse(time.DateOnly, *endFlag)
	if err != nil {
		return fmt.Errorf("invalid -end: %w", err)
	}
	if *stockpiles < 1 || *years < 1 {
		return fmt.Errorf("-stockpiles and -years must be positive")
	}

	// A fixed clock makes the output reproducible.
	clock := clockwork.NewFakeClockAt(end)
	data := newGenerator(*seed, clock, *years, *stockpiles).generate()

	paths := csvfile.DefaultPaths(*out)
	if err := writeData(paths, data); err != nil {
		return err
	}

	schedule, stats, err := buildSchedule(paths)
	if err != nil {
		return fmt.Errorf("build schedule: %w", err)
	}
	schedulePath := filepath.Join(*out, "schedule_for_prediction.csv")
	if err := csvfile.WriteTable(schedulePath, schedule); err != nil {
		return err
	}
	log.Printf("wrote inference schedule: %s (%d rows)", schedulePath, len(schedule.Rows))

	printStats(data, stats)
	return nil
}

func writeData(paths csvfile.Paths, data mockData) error {
	files := []struct {
		path  string
		table domain.Table
	}{
		{paths.Fires, data.Fires},
		{paths.Supplies, data.Supplies},
		{paths.Temperature, data.Temperature},
	}
	dir := filepath.Dir(paths.WeatherGlob)
	for _, year := range sortedYears(data.Weather) {
		name := "weather_data_" + strconv.Itoa(year) + ".csv"
		files = append(files, struct {
			path  string
			table domain.Table
		}{filepath.Join(dir, name), data.Weather[year]})
	}

	for _, f := range files {
		if err := csvfile.WriteTable(f.path, f.table); err != nil {
			return err
		}
		log.Printf("wrote %s: %d rows", f.path, len(f.table.Rows))
	}
	return nil
}

// buildSchedule runs the feature pipeline over the written files and keeps the
// last day of every stockpile.
func buildSchedule(paths csvfile.Paths) (domain.Table, domain.BuildStats, error) {
	anomalies := domain.Anomalies{}
	var in domain.Inputs

	fires, err := csvfile.ReadTable(paths.Fires)
	if err != nil {
		return domain.Table{}, domain.BuildStats{}, err
	}
	if in.Fires, err = csvfile.ParseFires(fires, paths.Fires, anomalies); err != nil {
		return domain.Table{}, domain.BuildStats{}, err
	}
	supplies, err := csvfile.ReadTable(paths.Supplies)
	if err != nil {
		return domain.Table{}, domain.BuildStats{}, err
	}
	if in.Supplies, err = csvfile.ParseSupplies(supplies, paths.Supplies, anomalies); err != nil {
		return domain.Table{}, domain.BuildStats{}, err
	}
	temps, err := csvfile.ReadTable(paths.Temperature)
	if err != nil {
		return domain.Table{}, domain.BuildStats{}, err
	}
	if in.Temperatures, err = csvfile.ParseTemperatures(temps, paths.Temperature, anomalies); err != nil {
		return domain.Table{}, domain.BuildStats{}, err
	}
	weatherFiles, err := paths.WeatherFiles()
	if err != nil {
		return domain.Table{}, domain.BuildStats{}, err
	}
	for _, path := range weatherFiles {
		t, err := csvfile.ReadTable(path)
		if err != nil {
			return domain.Table{}, domain.BuildStats{}, err
		}
		recs, err := csvfile.ParseWeather(t, path, anomalies)
		if err != nil {
			return domain.Table{}, domain.BuildStats{}, err
		}
		in.Weather = append(in.Weather, recs...)
	}

	cal, stats, err := domain.BuildFeatureTable(in, anomalies)
	if err != nil {
		return domain.Table{}, domain.BuildStats{}, err
	}
	ds := domain.Finalize(cal.Rows)

	last := make([]domain.FeatureRow, 0, len(cal.Stockpiles()))
	for _, id := range cal.Stockpiles() {
		rows := cal.StockpileRows(id)
		last = append(last, rows[len(rows)-1])
	}
	return csvfile.FeatureTable(last, ds.Encoder), stats, nil
}

func sortedYears(m map[int]domain.Table) []int {
	years := make([]int, 0, len(m))
	for y := range m {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

func printStats(data mockData, stats domain.BuildStats) {
	weatherRows := 0
	for _, t := range data.Weather {
		weatherRows += len(t.Rows)
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Supplies: %d, Fires: %d, Temperature: %d, Weather: %d (%d files)\n",
		len(data.Supplies.Rows), len(data.Fires.Rows), len(data.Temperature.Rows), weatherRows, len(data.Weather))
	fmt.Printf("Feature table: %d stockpiles, %d rows, %d positive (%d label marks), end %s\n",
		stats.Stockpiles, stats.Rows, stats.Positives, stats.LabelMarks, stats.End.Format(time.DateOnly))
}
