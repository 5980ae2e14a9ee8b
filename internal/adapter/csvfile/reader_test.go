package csvfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/stockpile-fire-risk/internal/domain"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestReadTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "t.csv")
	writeFile(t, path, "\ufeff a ,b\n1,2\n3\n")

	tbl, err := ReadTable(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tbl.Header)
	assert.Equal(t, [][]string{{"1", "2"}, {"3"}}, tbl.Rows)
	assert.Equal(t, "", tbl.Cell(1, 1))
}

func TestReadTableErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadTable(filepath.Join(dir, "absent.csv"))
	assert.ErrorIs(t, err, domain.ErrMissingInputFile)
	assert.Contains(t, err.Error(), "absent.csv")

	empty := filepath.Join(dir, "empty.csv")
	writeFile(t, empty, "")
	_, err = ReadTable(empty)
	assert.ErrorIs(t, err, domain.ErrEmptyOrUnparseable)

	headerOnly := filepath.Join(dir, "header.csv")
	writeFile(t, headerOnly, "a,b\n")
	_, err = ReadTable(headerOnly)
	assert.ErrorIs(t, err, domain.ErrEmptyOrUnparseable)

	_, err = ParseTable(strings.NewReader("a,b\n\"unterminated,1\n"), "bad")
	assert.ErrorIs(t, err, domain.ErrEmptyOrUnparseable)
}
