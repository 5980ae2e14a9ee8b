package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Error categories. Match with errors.Is.
var (
	ErrMissingInputFile   = errors.New("missing input file")
	ErrSchema             = errors.New("schema error")
	ErrEmptyOrUnparseable = errors.New("empty or unparseable file")
	ErrConfiguration      = errors.New("configuration error")
	ErrModelUnavailable   = errors.New("model unavailable")
)

// SchemaError reports required columns absent from a table.
type SchemaError struct {
	Source  string
	Missing []string
}

// Error lists the source and its missing columns.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: missing required columns [%s] in %s", ErrSchema, strings.Join(e.Missing, ", "), e.Source)
}

// Is makes errors.Is(err, ErrSchema) match.
func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// RequireColumns returns a *SchemaError when header lacks any required column.
func RequireColumns(source string, header, required []string) error {
	if missing := MissingColumns(header, required); len(missing) > 0 {
		return &SchemaError{Source: source, Missing: missing}
	}
	return nil
}
