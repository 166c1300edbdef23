package loader

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/portfolio-importer/internal/domain/ingest/detector"
	"github.com/FACorreiaa/portfolio-importer/internal/domain/ingest/table"
)

// ExcelLoader reads .xls and .xlsx workbooks. Only the first sheet is read.
type ExcelLoader struct {
	opts Options
}

// NewExcelLoader creates an Excel loader.
func NewExcelLoader(opts Options) *ExcelLoader {
	return &ExcelLoader{opts: opts}
}

// ReadRows reads up to maxRows rows from the first sheet.
func (l *ExcelLoader) ReadRows(path string, maxRows int) ([][]string, error) {
	rows, err := l.readSheet(path)
	if err != nil {
		return nil, err
	}
	if maxRows >= 0 && len(rows) > maxRows {
		rows = rows[:maxRows]
	}
	return rows, nil
}

// Materialize reads the first sheet fully and builds the detected table from
// the given header row.
func (l *ExcelLoader) Materialize(path string, headerRow int) (*table.Detected, error) {
	rows, err := l.readSheet(path)
	if err != nil {
		return nil, err
	}
	return detector.BuildTable(rows, headerRow), nil
}

func (l *ExcelLoader) readSheet(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFileUnreadable, path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}
