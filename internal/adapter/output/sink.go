// Package output writes pipeline results into the output directory.
package output

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/couchcryptid/stockpile-fire-risk/internal/adapter/csvfile"
	"github.com/couchcryptid/stockpile-fire-risk/internal/adapter/parquetfile"
	"github.com/couchcryptid/stockpile-fire-risk/internal/domain"
	"github.com/couchcryptid/stockpile-fire-risk/internal/predict"
	"github.com/couchcryptid/stockpile-fire-risk/internal/report"
)

// Output file names.
const (
	FeatureTableCSV     = "feature_table.csv"
	FeatureTableParquet = "feature_table.parquet"
	ForecastResult      = "forecast_result.csv"
	ForecastReport      = "forecast_report.txt"
)

// FileSink writes results under one directory.
type FileSink struct {
	dir string
}

// NewFileSink creates a FileSink rooted at dir.
func NewFileSink(dir string) *FileSink {
	return &FileSink{dir: dir}
}

// Path returns the location of an output file.
func (s *FileSink) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// WriteFeatureTable writes the feature table as CSV and Parquet.
func (s *FileSink) WriteFeatureTable(rows []domain.FeatureRow, enc *domain.CategoryEncoder) error {
	if err := csvfile.WriteTable(s.Path(FeatureTableCSV), csvfile.FeatureTable(rows, enc)); err != nil {
		return err
	}
	return parquetfile.WriteFeatureTable(s.Path(FeatureTableParquet), rows, enc)
}

// WriteForecast writes the scored table and the text report.
func (s *FileSink) WriteForecast(f *predict.Forecast, summary report.Summary) error {
	if err := csvfile.WriteTable(s.Path(ForecastResult), f.Table); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := report.Render(&buf, summary); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	path := s.Path(ForecastReport)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
