// Package loader reads spreadsheet-like export files from disk and exposes
// them as raw rows, or as a detected table once the header row is known.
// The concrete loader is picked by file extension at construction time.
package loader

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/FACorreiaa/portfolio-importer/internal/domain/ingest/table"
)

var (
	// ErrUnsupportedFormat is returned for extensions outside the supported set.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrFileUnreadable wraps filesystem failures (missing file, permissions).
	ErrFileUnreadable = errors.New("file is not readable")
)

// DefaultProbeRows is the bounded read used for header detection.
const DefaultProbeRows = 50

// Options configures loader behavior shared across formats.
type Options struct {
	// TolerateMalformedLines skips text lines that fail to parse instead of
	// surfacing the parse error.
	TolerateMalformedLines bool
}

// Loader reads a file as ordered raw rows, or materializes it into a table
// once the header row index is known.
type Loader interface {
	// ReadRows reads up to maxRows rows for header detection.
	ReadRows(path string, maxRows int) ([][]string, error)
	// Materialize performs a full read and builds the detected table using
	// the given header row index.
	Materialize(path string, headerRow int) (*table.Detected, error)
}

// ForPath returns the loader for the file's extension.
func ForPath(path string, opts Options) (Loader, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv", ".txt":
		return NewCSVLoader(opts), nil
	case ".xls", ".xlsx":
		return NewExcelLoader(opts), nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: .csv, .txt, .xls, .xlsx)", ErrUnsupportedFormat, ext)
	}
}
