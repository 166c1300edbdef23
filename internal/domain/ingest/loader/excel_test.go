package loader

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeWorkbook(t *testing.T, rows [][]any) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	path := filepath.Join(t.TempDir(), "export.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestExcelLoader_ReadRows(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"Asset", "Price", "Volume"},
		{"AAPL", "185.50", "10"},
		{"MSFT", "370.10", "5"},
	})

	ld := NewExcelLoader(Options{})

	rows, err := ld.ReadRows(path, 10)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Asset", "Price", "Volume"}, rows[0])

	t.Run("maxRows bounds the read", func(t *testing.T) {
		rows, err := ld.ReadRows(path, 1)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})
}

func TestExcelLoader_Materialize(t *testing.T) {
	path := writeWorkbook(t, [][]any{
		{"Portfolio export", ""},
		{"Asset Name", "Price"},
		{"AAPL", "185.50"},
	})

	tbl, err := NewExcelLoader(Options{}).Materialize(path, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"asset_name", "price"}, tbl.Columns)
	require.Len(t, tbl.Rows, 1)
	assert.Equal(t, "185.50", tbl.Rows[0]["price"])
}

func TestExcelLoader_Unreadable(t *testing.T) {
	_, err := NewExcelLoader(Options{}).ReadRows(filepath.Join(t.TempDir(), "nope.xlsx"), 10)
	assert.ErrorIs(t, err, ErrFileUnreadable)
}
