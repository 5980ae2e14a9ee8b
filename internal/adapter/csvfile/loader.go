package csvfile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/couchcryptid/stockpile-fire-risk/internal/domain"
)

// Paths locates the source tables inside a data directory.
type Paths struct {
	Fires       string
	Supplies    string
	Temperature string
	WeatherGlob string
}

// DefaultPaths returns the standard layout under dataDir.
func DefaultPaths(dataDir string) Paths {
	return Paths{
		Fires:       filepath.Join(dataDir, "fires", "fires.csv"),
		Supplies:    filepath.Join(dataDir, "supplies", "supplies.csv"),
		Temperature: filepath.Join(dataDir, "temperature", "temperature.csv"),
		WeatherGlob: filepath.Join(dataDir, "weather_data", "weather_data_*.csv"),
	}
}

// WeatherFiles expands the weather glob in lexical order.
func (p Paths) WeatherFiles() ([]string, error) {
	files, err := filepath.Glob(p.WeatherGlob)
	if err != nil {
		return nil, fmt.Errorf("expand %s: %w", p.WeatherGlob, err)
	}
	sort.Strings(files)
	return files, nil
}

// CheckPresent reports every absent source at once.
func (p Paths) CheckPresent() error {
	var result error
	for _, path := range []string{p.Fires, p.Supplies, p.Temperature} {
		if _, err := os.Stat(path); err != nil {
			result = multierror.Append(result, fmt.Errorf("%w: %s", domain.ErrMissingInputFile, path))
		}
	}
	files, err := p.WeatherFiles()
	if err != nil {
		result = multierror.Append(result, err)
	} else if len(files) == 0 {
		result = multierror.Append(result, fmt.Errorf("%w: no weather files match %s", domain.ErrMissingInputFile, p.WeatherGlob))
	}
	return result
}

// Loader reads the four source tables of a training run.
type Loader struct {
	paths  Paths
	logger *slog.Logger
}

// NewLoader creates a Loader for the given layout.
func NewLoader(paths Paths, logger *slog.Logger) *Loader {
	return &Loader{paths: paths, logger: logger}
}

// Load reads and parses every source. Per-row problems are counted in the
// returned Anomalies; missing files, absent columns and empty files are errors.
func (l *Loader) Load(ctx context.Context) (domain.Inputs, domain.Anomalies, error) {
	if err := l.paths.CheckPresent(); err != nil {
		return domain.Inputs{}, nil, err
	}

	anomalies := domain.Anomalies{}
	var in domain.Inputs

	fires, err := ReadTable(l.paths.Fires)
	if err != nil {
		return domain.Inputs{}, nil, err
	}
	if in.Fires, err = ParseFires(fires, l.paths.Fires, anomalies); err != nil {
		return domain.Inputs{}, nil, err
	}

	supplies, err := ReadTable(l.paths.Supplies)
	if err != nil {
		return domain.Inputs{}, nil, err
	}
	if in.Supplies, err = ParseSupplies(supplies, l.paths.Supplies, anomalies); err != nil {
		return domain.Inputs{}, nil, err
	}

	temps, err := ReadTable(l.paths.Temperature)
	if err != nil {
		return domain.Inputs{}, nil, err
	}
	if in.Temperatures, err = ParseTemperatures(temps, l.paths.Temperature, anomalies); err != nil {
		return domain.Inputs{}, nil, err
	}

	l.logger.Info("loaded source tables",
		"fires", len(in.Fires),
		"supplies", len(in.Supplies),
		"temperature", len(in.Temperatures),
	)

	files, err := l.paths.WeatherFiles()
	if err != nil {
		return domain.Inputs{}, nil, err
	}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return domain.Inputs{}, nil, err
		}
		t, err := ReadTable(path)
		if err != nil {
			return domain.Inputs{}, nil, err
		}
		recs, err := ParseWeather(t, path, anomalies)
		if err != nil {
			return domain.Inputs{}, nil, err
		}
		l.logger.Debug("loaded weather file", "file", filepath.Base(path), "records", len(recs))
		in.Weather = append(in.Weather, recs...)
	}
	l.logger.Info("aggregated weather records", "files", len(files), "records", len(in.Weather))

	return in, anomalies, nil
}

// cells resolves the named columns of t once and reads them per row.
type cells struct {
	t   domain.Table
	idx map[string]int
}

func newCells(t domain.Table, source string, required []string) (*cells, error) {
	if err := domain.RequireColumns(source, t.Header, required); err != nil {
		return nil, err
	}
	idx := make(map[string]int, len(required))
	for _, c := range required {
		idx[c] = t.Index(c)
	}
	return &cells{t: t, idx: idx}, nil
}

func (c *cells) get(row int, col string) string {
	return c.t.Cell(row, c.idx[col])
}

// day parses a date cell. An empty cell is silently zero; a non-empty cell
// that fails to parse is counted.
func (c *cells) day(row int, col, source string, anomalies domain.Anomalies) time.Time {
	s := c.get(row, col)
	d, ok := domain.ParseDay(s)
	if !ok && s != "" {
		anomalies.Add(source, "unparseable_date", 1)
	}
	return d
}

// number parses a numeric cell the same way.
func (c *cells) number(row int, col, source string, anomalies domain.Anomalies) *float64 {
	s := c.get(row, col)
	v, ok := domain.ParseNumber(s)
	if !ok {
		if s != "" {
			anomalies.Add(source, "unparseable_number", 1)
		}
		return nil
	}
	return &v
}

// ParseFires converts the fires table.
func ParseFires(t domain.Table, source string, anomalies domain.Anomalies) ([]domain.FireEvent, error) {
	c, err := newCells(t, source, domain.FireColumns)
	if err != nil {
		return nil, err
	}
	out := make([]domain.FireEvent, 0, len(t.Rows))
	for i := range t.Rows {
		out = append(out, domain.FireEvent{
			Stockpile: domain.CanonicalStockpile(c.get(i, domain.ColStockpile)),
			Start:     c.day(i, domain.ColFireStart, "fires", anomalies),
			End:       c.day(i, domain.ColFireEnd, "fires", anomalies),
		})
	}
	return out, nil
}

// ParseSupplies converts the supplies table.
func ParseSupplies(t domain.Table, source string, anomalies domain.Anomalies) ([]domain.SupplyRecord, error) {
	c, err := newCells(t, source, domain.SupplyColumns)
	if err != nil {
		return nil, err
	}
	out := make([]domain.SupplyRecord, 0, len(t.Rows))
	for i := range t.Rows {
		out = append(out, domain.SupplyRecord{
			Stockpile:    domain.CanonicalStockpile(c.get(i, domain.ColStockpile)),
			InboundDate:  c.day(i, domain.ColInboundDate, "supplies", anomalies),
			InboundTons:  c.number(i, domain.ColInboundTons, "supplies", anomalies),
			OutboundDate: c.day(i, domain.ColOutboundDate, "supplies", anomalies),
			OutboundTons: c.number(i, domain.ColOutboundTons, "supplies", anomalies),
			Grade:        strings.TrimSpace(c.get(i, domain.ColGradeSource)),
		})
	}
	return out, nil
}

// ParseTemperatures converts the temperature table.
func ParseTemperatures(t domain.Table, source string, anomalies domain.Anomalies) ([]domain.TemperatureReading, error) {
	c, err := newCells(t, source, domain.TemperatureColumns)
	if err != nil {
		return nil, err
	}
	out := make([]domain.TemperatureReading, 0, len(t.Rows))
	for i := range t.Rows {
		out = append(out, domain.TemperatureReading{
			Stockpile: domain.CanonicalStockpile(c.get(i, domain.ColStockpile)),
			Date:      c.day(i, domain.ColReadingDate, "temperature", anomalies),
			MaxTemp:   c.number(i, domain.ColMaxTemp, "temperature", anomalies),
		})
	}
	return out, nil
}

// ParseWeather converts one yearly weather table. Auxiliary columns are
// ignored.
func ParseWeather(t domain.Table, source string, anomalies domain.Anomalies) ([]domain.WeatherRecord, error) {
	c, err := newCells(t, source, domain.WeatherColumns)
	if err != nil {
		return nil, err
	}
	out := make([]domain.WeatherRecord, 0, len(t.Rows))
	for i := range t.Rows {
		out = append(out, domain.WeatherRecord{
			Date:     c.day(i, domain.ColWeatherDate, "weather", anomalies),
			Temp:     c.number(i, domain.ColWeatherT, "weather", anomalies),
			Pressure: c.number(i, domain.ColWeatherP, "weather", anomalies),
			Humidity: c.number(i, domain.ColHumidity, "weather", anomalies),
		})
	}
	return out, nil
}
