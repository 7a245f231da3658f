// Package store reads and writes the flat tables a harvest run produces: the
// seed checkpoint, the article table and the error table. The file format
// follows the extension, .csv or .xlsx.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for paths that are neither .csv nor .xlsx.
var ErrUnsupportedFormat = errors.New("unsupported table format")

// ErrMissingColumn is returned when a table lacks a required column.
var ErrMissingColumn = errors.New("missing column")

// Table is a header row plus data rows of equal width.
type Table struct {
	Header []string
	Rows   [][]string
}

// Column returns the values of the named column.
func (t Table) Column(name string) ([]string, error) {
	idx := -1
	for i, h := range t.Header {
		if strings.TrimSpace(h) == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingColumn, name)
	}

	values := make([]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		if idx < len(row) {
			values = append(values, row[idx])
		} else {
			values = append(values, "")
		}
	}
	return values, nil
}

type format int

const (
	formatCSV format = iota
	formatXLSX
)

func formatOf(path string) (format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return formatCSV, nil
	case ".xlsx":
		return formatXLSX, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

// WriteTable writes t to path, replacing any existing file.
func WriteTable(path string, t Table) error {
	f, err := formatOf(path)
	if err != nil {
		return err
	}
	if err := ensureDir(path); err != nil {
		return err
	}
	switch f {
	case formatXLSX:
		return writeXLSX(path, t)
	default:
		return writeCSV(path, t)
	}
}

// ReadTable reads the table at path. The first row is the header.
func ReadTable(path string) (Table, error) {
	f, err := formatOf(path)
	if err != nil {
		return Table{}, err
	}
	var rows [][]string
	switch f {
	case formatXLSX:
		rows, err = readXLSX(path)
	default:
		rows, err = readCSV(path)
	}
	if err != nil {
		return Table{}, err
	}
	if len(rows) == 0 {
		return Table{}, nil
	}
	return Table{Header: rows[0], Rows: rows[1:]}, nil
}

// Exists reports whether a regular file is present at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
