// Package csvfile reads the source tables and writes the tabular outputs of
// the pipeline as CSV.
package csvfile

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/couchcryptid/stockpile-fire-risk/internal/domain"
)

// ReadTable reads the CSV file at path. A missing file wraps
// domain.ErrMissingInputFile; malformed content or a header without data rows
// wraps domain.ErrEmptyOrUnparseable.
func ReadTable(path string) (domain.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return domain.Table{}, fmt.Errorf("%w: %s", domain.ErrMissingInputFile, path)
		}
		return domain.Table{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	return ParseTable(f, path)
}

// ParseTable reads a CSV document from r. source names the input in errors.
func ParseTable(r io.Reader, source string) (domain.Table, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return domain.Table{}, fmt.Errorf("%w: %s: %v", domain.ErrEmptyOrUnparseable, source, err)
	}
	if len(records) < 2 {
		return domain.Table{}, fmt.Errorf("%w: %s has no data rows", domain.ErrEmptyOrUnparseable, source)
	}

	header := records[0]
	// Spreadsheet exports often start with a BOM.
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	return domain.Table{Header: header, Rows: records[1:]}, nil
}
