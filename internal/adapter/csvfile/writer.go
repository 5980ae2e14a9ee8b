package csvfile

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/stockpile-fire-risk/internal/domain"
)

// WriteTable writes t to path, creating parent directories. The file is
// written next to path and renamed into place.
func WriteTable(path string, t domain.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, t); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// Encode writes t as CSV to w.
func Encode(w io.Writer, t domain.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// FeatureTableHeader is the column layout of the exported feature table.
var FeatureTableHeader = append(append([]string{domain.ColStockpile, domain.ColDate}, domain.FeatureColumns...),
	domain.ColGradeCode, domain.ColLabel)

// FeatureTable lays out calendar rows for export. The grade column keeps the
// raw string and the encoded id follows the features.
func FeatureTable(rows []domain.FeatureRow, enc *domain.CategoryEncoder) domain.Table {
	out := domain.Table{Header: FeatureTableHeader, Rows: make([][]string, 0, len(rows))}
	for i := range rows {
		r := &rows[i]
		out.Rows = append(out.Rows, []string{
			r.Stockpile,
			r.Date.Format("2006-01-02"),
			r.Grade,
			strconv.Itoa(r.AgeDays),
			FormatFloat(r.Mass),
			FormatFloat(r.MaxTemp),
			FormatFloat(r.TempDelta),
			strconv.Itoa(r.Weekday),
			strconv.Itoa(r.Month),
			FormatFloat(r.WeatherT),
			FormatFloat(r.WeatherP),
			FormatFloat(r.Humidity),
			strconv.Itoa(enc.Encode(r.Grade)),
			strconv.Itoa(r.Label),
		})
	}
	return out
}

// FormatFloat renders v in the shortest exact form.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
