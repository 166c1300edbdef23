// Package e2etest runs whole-pipeline import flows over generated files.
package e2etest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/FACorreiaa/portfolio-importer/internal/domain/ingest/pipeline"
	"github.com/FACorreiaa/portfolio-importer/pkg/store"
)

func newPipeline(st store.Store) *pipeline.Pipeline {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return pipeline.New(st, nil, pipeline.Options{
		DefaultCurrency:        "USD",
		DefaultTransactionKind: "buy",
	}, logger)
}

// TestCSVImport_PortugueseBroker covers the awkward-export path end to end:
// preamble lines, semicolon delimiter, Portuguese headers, comma decimals.
func TestCSVImport_PortugueseBroker(t *testing.T) {
	content := strings.Join([]string{
		"Corretora XYZ - Extrato de Movimentos",
		"Conta: 0042",
		"",
		"Ativo;Data;Preço;Quantidade;Valor;Moeda;Tipo",
		"Petrobras PN;02/01/2024;38,50;100;3850,00;BRL;Compra",
		"Vale ON;03/01/2024;65,20;50;;BRL;Venda",
		"Tesouro Selic 2029;05/01/2024;14250,10;1;14250,10;BRL;Compra",
		"",
	}, "\n")
	path := filepath.Join(t.TempDir(), "extrato.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	st := store.NewMemory()
	result, err := newPipeline(st).Run(context.Background(), path, uuid.New(), "Corretora XYZ")
	require.NoError(t, err)

	assert.Equal(t, 3, result.RowsTotal)
	require.Len(t, result.Records, 3)
	assert.Empty(t, result.Errors)

	assert.Equal(t, "Petrobras PN", result.Records[0].AssetName)
	assert.Equal(t, "2024-01-02", result.Records[0].Date)
	assert.Equal(t, "3850", result.Records[0].Amount)
	assert.Equal(t, "3260", result.Records[1].Amount, "missing amount derived")
	assert.Equal(t, "buy", result.Records[0].TransactionType, "Compra resolves to buy")
	assert.Equal(t, "sell", result.Records[1].TransactionType, "Venda resolves to sell")

	t.Run("entities resolved once per name", func(t *testing.T) {
		assert.Equal(t, 1, st.Count("wallets"))
		assert.Equal(t, 3, st.Count("assets"))

		bond, err := st.FindOne(context.Background(), "assets", store.M{"asset_name": "Tesouro Selic 2029"})
		require.NoError(t, err)
		assert.Equal(t, "bond", bond["asset_type"])
	})
}

// TestExcelImport drives the same pipeline through the xlsx loader.
func TestExcelImport(t *testing.T) {
	f := excelize.NewFile()
	rows := [][]any{
		{"Portfolio statement"},
		{"Asset", "Date", "Price", "Shares", "Currency"},
		{"Apple stock", "2024-02-01", "185.50", "10", "USD"},
		{"iShares Core MSCI World", "2024-02-02", "90.10", "20", "EUR"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	path := filepath.Join(t.TempDir(), "statement.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	st := store.NewMemory()
	result, err := newPipeline(st).Run(context.Background(), path, uuid.New(), "Depot")
	require.NoError(t, err)

	require.Len(t, result.Records, 2)
	assert.Empty(t, result.Errors)

	ctx := context.Background()
	stock, err := st.FindOne(ctx, "assets", store.M{"asset_name": "Apple stock"})
	require.NoError(t, err)
	assert.Equal(t, "stock", stock["asset_type"])

	etf, err := st.FindOne(ctx, "assets", store.M{"asset_name": "iShares Core MSCI World"})
	require.NoError(t, err)
	assert.Equal(t, "etf", etf["asset_type"])
}

// TestBulkImport feeds a generated thousand-row export through the pipeline
// and persists the outcome.
func TestBulkImport(t *testing.T) {
	gofakeit.Seed(42)

	const rowCount = 1000
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var b strings.Builder
	b.WriteString("stock_name,trade_date,price,shares,currency\n")
	for i := 0; i < rowCount; i++ {
		name := strings.ReplaceAll(gofakeit.Company(), ",", " ")
		fmt.Fprintf(&b, "%s stock,%s,%0.2f,%d,USD\n",
			name,
			base.AddDate(0, 0, i%365).Format("2006-01-02"),
			gofakeit.Price(1, 2000),
			gofakeit.Number(1, 500),
		)
	}
	path := filepath.Join(t.TempDir(), "bulk.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))

	ctx := context.Background()
	st := store.NewMemory()
	p := newPipeline(st)
	owner := uuid.New()

	result, err := p.Run(ctx, path, owner, "Bulk")
	require.NoError(t, err)
	assert.Equal(t, rowCount, result.RowsTotal)
	assert.Empty(t, result.Errors)
	require.Len(t, result.Records, rowCount)

	require.NoError(t, p.SaveRecords(ctx, result.Records))
	assert.Equal(t, rowCount, st.Count("transactions"))

	t.Run("amounts were derived for every row", func(t *testing.T) {
		for _, rec := range result.Records {
			assert.NotEmpty(t, rec.Amount)
		}
	})
}
