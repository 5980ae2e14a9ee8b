// Command validate checks a data directory before training: every source
// file is present, every table has its required columns, dates parse, and
// the feature table can be built from the whole set.
//
// Usage:
//
//	go run ./cmd/validate -data-dir data
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/couchcryptid/stockpile-fire-risk/internal/adapter/csvfile"
	"github.com/couchcryptid/stockpile-fire-risk/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

// sourceTable is one input file with the columns it must carry.
type sourceTable struct {
	kind     string
	path     string
	required []string
	table    domain.Table
	err      error
}

func main() {
	dataDir := flag.String("data-dir", "data", "directory holding fires/, supplies/, temperature/ and weather_data/")
	flag.Parse()

	os.Exit(run(*dataDir))
}

func run(dataDir string) int {
	fmt.Println("=== Stockpile Data Validation ===")
	fmt.Printf("Data directory: %s\n\n", dataDir)

	paths := csvfile.DefaultPaths(dataDir)

	presence := validatePresence(paths)
	sources := loadSources(paths)
	phases := []*phase{
		presence,
		validateColumns(sources),
		validateDates(sources),
	}
	// Building needs every file; skip it when anything is missing.
	build := &phase{name: "Feature table builds"}
	var stats domain.BuildStats
	if presence.passed() && phases[1].passed() {
		stats = validateBuild(sources, build)
	} else {
		build.errorf("skipped: earlier phases failed")
	}
	phases = append(phases, build)

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	for _, s := range sources {
		if s.err == nil {
			fmt.Printf("Records: %-12s %6d  %s\n", s.kind, len(s.table.Rows), filepath.Base(s.path))
		}
	}
	if build.passed() {
		fmt.Printf("Feature table: %d stockpiles, %d rows, %d positive, end %s\n",
			stats.Stockpiles, stats.Rows, stats.Positives, stats.End.Format("2006-01-02"))
		if stats.Positives == 0 {
			fmt.Println("WARNING: no fire falls inside any stockpile calendar; the model cannot learn a positive class.")
		}
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Data loading ──

func loadSources(paths csvfile.Paths) []*sourceTable {
	sources := []*sourceTable{
		{kind: "fires", path: paths.Fires, required: domain.FireColumns},
		{kind: "supplies", path: paths.Supplies, required: domain.SupplyColumns},
		{kind: "temperature", path: paths.Temperature, required: domain.TemperatureColumns},
	}
	weather, _ := paths.WeatherFiles()
	for _, path := range weather {
		sources = append(sources, &sourceTable{kind: "weather", path: path, required: domain.WeatherUploadColumns})
	}
	for _, s := range sources {
		s.table, s.err = csvfile.ReadTable(s.path)
	}
	return sources
}

// ── Validation phases ──

func validatePresence(paths csvfile.Paths) *phase {
	p := &phase{name: "Required files present"}
	err := paths.CheckPresent()
	if err == nil {
		return p
	}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		for _, e := range merr.Errors {
			p.errorf("%v", e)
		}
		return p
	}
	p.errorf("%v", err)
	return p
}

func validateColumns(sources []*sourceTable) *phase {
	p := &phase{name: "Required columns"}
	for _, s := range sources {
		switch {
		case errors.Is(s.err, domain.ErrMissingInputFile):
			// Reported by the presence phase.
		case s.err != nil:
			p.errorf("%v", s.err)
		default:
			if missing := domain.MissingColumns(s.table.Header, s.required); len(missing) > 0 {
				p.errorf("%s: missing columns [%s]", s.path, strings.Join(missing, ", "))
			}
		}
	}
	return p
}

// validateDates fails a table only when none of its dates parse; partial
// failures are listed as counts.
func validateDates(sources []*sourceTable) *phase {
	p := &phase{name: "Dates parseable"}
	for _, s := range sources {
		if s.err != nil {
			continue
		}
		anomalies := domain.Anomalies{}
		parsed, err := parseDates(s, anomalies)
		if err != nil {
			continue // column problems belong to the column phase
		}
		bad := anomalies[s.kind+"/unparseable_date"]
		if bad > 0 {
			fmt.Printf("  note: %s has %d unparseable dates\n", filepath.Base(s.path), bad)
		}
		if parsed == 0 {
			p.errorf("%s: no parseable date in %d rows", s.path, len(s.table.Rows))
		}
	}
	return p
}

// parseDates counts rows with at least one resolved date.
func parseDates(s *sourceTable, anomalies domain.Anomalies) (int, error) {
	n := 0
	switch s.kind {
	case "fires":
		recs, err := csvfile.ParseFires(s.table, s.path, anomalies)
		if err != nil {
			return 0, err
		}
		for _, r := range recs {
			if !r.Start.IsZero() {
				n++
			}
		}
	case "supplies":
		recs, err := csvfile.ParseSupplies(s.table, s.path, anomalies)
		if err != nil {
			return 0, err
		}
		for _, r := range recs {
			if !r.InboundDate.IsZero() || !r.OutboundDate.IsZero() {
				n++
			}
		}
	case "temperature":
		recs, err := csvfile.ParseTemperatures(s.table, s.path, anomalies)
		if err != nil {
			return 0, err
		}
		for _, r := range recs {
			if !r.Date.IsZero() {
				n++
			}
		}
	case "weather":
		recs, err := csvfile.ParseWeather(s.table, s.path, anomalies)
		if err != nil {
			return 0, err
		}
		for _, r := range recs {
			if !r.Date.IsZero() {
				n++
			}
		}
	}
	return n, nil
}

func validateBuild(sources []*sourceTable, p *phase) domain.BuildStats {
	anomalies := domain.Anomalies{}
	var in domain.Inputs
	var result error
	for _, s := range sources {
		var err error
		switch s.kind {
		case "fires":
			in.Fires, err = csvfile.ParseFires(s.table, s.path, anomalies)
		case "supplies":
			in.Supplies, err = csvfile.ParseSupplies(s.table, s.path, anomalies)
		case "temperature":
			in.Temperatures, err = csvfile.ParseTemperatures(s.table, s.path, anomalies)
		case "weather":
			var recs []domain.WeatherRecord
			recs, err = csvfile.ParseWeather(s.table, s.path, anomalies)
			in.Weather = append(in.Weather, recs...)
		}
		if err != nil {
			result = multierror.Append(result, err)
		}
	}
	if result != nil {
		p.errorf("%v", result)
		return domain.BuildStats{}
	}

	_, stats, err := domain.BuildFeatureTable(in, anomalies)
	if err != nil {
		p.errorf("%v", err)
		return domain.BuildStats{}
	}

	for _, k := range anomalies.Keys() {
		fmt.Printf("  note: skipped %s: %d\n", k, anomalies[k])
	}
	return stats
}
