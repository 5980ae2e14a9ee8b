// Package parquetfile exports the feature table in Parquet format.
package parquetfile

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/couchcryptid/stockpile-fire-risk/internal/domain"
)

// FeatureRecord is one feature table row as stored in Parquet. Column names
// are ASCII so the file reads cleanly in tools that mangle Cyrillic names.
type FeatureRecord struct {
	Stockpile string  `parquet:"name=stockpile, type=BYTE_ARRAY, convertedtype=UTF8"`
	Date      int32   `parquet:"name=date, type=INT32, convertedtype=DATE"`
	Grade     string  `parquet:"name=grade, type=BYTE_ARRAY, convertedtype=UTF8"`
	GradeCode int32   `parquet:"name=grade_code, type=INT32"`
	AgeDays   int32   `parquet:"name=age_days, type=INT32"`
	Mass      float64 `parquet:"name=mass, type=DOUBLE"`
	MaxTemp   float64 `parquet:"name=max_temp, type=DOUBLE"`
	TempDelta float64 `parquet:"name=temp_delta, type=DOUBLE"`
	Weekday   int32   `parquet:"name=weekday, type=INT32"`
	Month     int32   `parquet:"name=month, type=INT32"`
	WeatherT  float64 `parquet:"name=t, type=DOUBLE"`
	WeatherP  float64 `parquet:"name=p, type=DOUBLE"`
	Humidity  float64 `parquet:"name=humidity, type=DOUBLE"`
	Label     int32   `parquet:"name=y_3d, type=INT32"`
}

var epoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// NewFeatureRecord converts a calendar row.
func NewFeatureRecord(r *domain.FeatureRow, enc *domain.CategoryEncoder) FeatureRecord {
	return FeatureRecord{
		Stockpile: r.Stockpile,
		Date:      int32(domain.DaysBetween(epoch, r.Date)),
		Grade:     r.Grade,
		GradeCode: int32(enc.Encode(r.Grade)),
		AgeDays:   int32(r.AgeDays),
		Mass:      r.Mass,
		MaxTemp:   r.MaxTemp,
		TempDelta: r.TempDelta,
		Weekday:   int32(r.Weekday),
		Month:     int32(r.Month),
		WeatherT:  r.WeatherT,
		WeatherP:  r.WeatherP,
		Humidity:  r.Humidity,
		Label:     int32(r.Label),
	}
}

// marshalWorkers is the number of goroutines parquet-go uses to encode rows.
const marshalWorkers = 4

// Encode writes rows SNAPPY-compressed in 128 MiB row groups.
func Encode(w io.Writer, rows []domain.FeatureRow, enc *domain.CategoryEncoder) (err error) {
	pw, err := writer.NewParquetWriterFromWriter(w, new(FeatureRecord), marshalWorkers)
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}
	pw.RowGroupSize = 128 * 1024 * 1024
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for i := range rows {
		if err := pw.Write(NewFeatureRecord(&rows[i], enc)); err != nil {
			return fmt.Errorf("write parquet row %d: %w", i, err)
		}
	}

	// WriteStop panics on some schema mismatches instead of returning.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("finalize parquet: %v", r)
		}
	}()
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("finalize parquet: %w", err)
	}
	return nil
}

// WriteFeatureTable encodes rows into path, replacing any previous file.
func WriteFeatureTable(path string, rows []domain.FeatureRow, enc *domain.CategoryEncoder) error {
	buf := new(bytes.Buffer)
	if err := Encode(buf, rows, enc); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
