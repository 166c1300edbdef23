package pipeline

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/portfolio-importer/internal/domain/ingest/loader"
	"github.com/FACorreiaa/portfolio-importer/pkg/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestPipeline(st store.Store) *Pipeline {
	return New(st, nil, Options{
		DefaultCurrency:        "USD",
		DefaultTransactionKind: "buy",
	}, discardLogger())
}

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRun_EndToEnd(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()

	content := strings.Join([]string{
		"Broker Export 2024",
		"stock_name,trade_date,price,shares,total_value,currency,side",
		"AAPL,2024-01-02,185.50,10,,USD,buy",
		"MSFT,not-a-date,370.10,5,,USD,buy",
		",2024-01-05,10,1,,USD,buy",
		"GOOG,2024-01-04,-5,2,,USD,sell",
		"NVDA,2024-01-06,500,2,,ZZZ,buy",
		"",
	}, "\n")
	path := writeTemp(t, "trades.csv", content)

	st := store.NewMemory()
	p := newTestPipeline(st)

	result, err := p.Run(ctx, path, owner, "Broker A")
	require.NoError(t, err)

	assert.Equal(t, 5, result.RowsTotal)
	require.Len(t, result.Records, 1)
	require.Len(t, result.Errors, 4)

	rec := result.Records[0]
	assert.Equal(t, "AAPL", rec.AssetName)
	assert.Equal(t, "2024-01-02", rec.Date)
	assert.Equal(t, "185.5", rec.AssetPrice)
	assert.Equal(t, "10", rec.Volume)
	assert.Equal(t, "1855", rec.Amount, "amount derived from price and volume")
	assert.Equal(t, "0", rec.Fee, "missing fee defaults to zero")
	assert.Equal(t, "USD", rec.Currency)
	assert.Equal(t, "buy", rec.TransactionType)
	assert.Equal(t, owner.String(), rec.OwnerID)
	assert.NotEmpty(t, rec.WalletID)
	assert.NotEmpty(t, rec.AssetID)

	kinds := make(map[string]int)
	for _, e := range result.Errors {
		kinds[e.ErrorKind]++
	}
	assert.Equal(t, 1, kinds[KindInvalidDate])
	assert.Equal(t, 1, kinds[KindMissingField])
	assert.Equal(t, 1, kinds[KindNegativeValue])
	assert.Equal(t, 1, kinds[KindInvalidCurrency])

	t.Run("entities were created", func(t *testing.T) {
		assert.Equal(t, 1, st.Count("wallets"))
		// only the valid row resolves its asset
		assert.Equal(t, 1, st.Count("assets"))
	})

	t.Run("error records carry the offending row", func(t *testing.T) {
		for _, e := range result.Errors {
			assert.NotEmpty(t, e.RawData)
			assert.NotEmpty(t, e.ErrorMessage)
		}
	})
}

func TestRun_SemicolonDecimalComma(t *testing.T) {
	ctx := context.Background()
	content := strings.Join([]string{
		"Ativo;Data;Preço;Quantidade;Moeda",
		"Petrobras;02/01/2024;38,50;100;BRL",
		"",
	}, "\n")
	path := writeTemp(t, "corretora.csv", content)

	st := store.NewMemory()
	result, err := newTestPipeline(st).Run(ctx, path, uuid.New(), "Corretora")
	require.NoError(t, err)

	require.Len(t, result.Records, 1)
	rec := result.Records[0]
	assert.Equal(t, "Petrobras", rec.AssetName)
	assert.Equal(t, "2024-01-02", rec.Date, "day-first date normalized to ISO")
	assert.Equal(t, "38.5", rec.AssetPrice)
	assert.Equal(t, "3850", rec.Amount)
	assert.Equal(t, "BRL", rec.Currency)
	assert.Equal(t, "buy", rec.TransactionType, "missing type takes the default kind")
}

func TestRun_StructuralFailures(t *testing.T) {
	ctx := context.Background()
	p := newTestPipeline(store.NewMemory())

	t.Run("unsupported format", func(t *testing.T) {
		_, err := p.Run(ctx, "export.pdf", uuid.New(), "w")
		assert.ErrorIs(t, err, loader.ErrUnsupportedFormat)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := p.Run(ctx, filepath.Join(t.TempDir(), "gone.csv"), uuid.New(), "w")
		assert.ErrorIs(t, err, loader.ErrFileUnreadable)
	})

	t.Run("header only", func(t *testing.T) {
		path := writeTemp(t, "empty.csv", "a,b,c\n")
		_, err := p.Run(ctx, path, uuid.New(), "w")
		assert.ErrorIs(t, err, ErrEmptyTable)
	})
}

func TestSaveRecordsAndErrors(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemory()
	p := newTestPipeline(st)
	owner := uuid.New().String()

	records := []ImportRecord{
		{OwnerID: owner, AssetName: "AAPL", Date: "2024-01-02", Amount: "100"},
		{OwnerID: owner, AssetName: "MSFT", Date: "2024-01-03", Amount: "200"},
	}
	require.NoError(t, p.SaveRecords(ctx, records))
	assert.Equal(t, 2, st.Count(transactionsCollection))

	errs := []ErrorRecord{{RowIndex: 3, ErrorKind: KindInvalidDate, ErrorMessage: "bad date", RawData: "{}"}}
	require.NoError(t, p.SaveErrors(ctx, owner, errs))

	doc, err := st.FindOne(ctx, errorsCollection, store.M{"owner_id": owner})
	require.NoError(t, err)
	assert.Equal(t, KindInvalidDate, doc["error_kind"])
}

func TestCSVExport(t *testing.T) {
	records := []ImportRecord{{
		AssetName: "AAPL", Date: "2024-01-02", AssetPrice: "185.5",
		Volume: "10", Amount: "1855", Fee: "0", Currency: "USD",
		TransactionType: "buy",
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteRecordsCSV(&buf, records))
	out := buf.String()
	assert.Contains(t, out, "asset_name")
	assert.Contains(t, out, "AAPL")

	var errBuf bytes.Buffer
	errs := []ErrorRecord{{RowIndex: 1, ErrorKind: KindMissingField, ErrorMessage: "m", RawData: `{"a":"b"}`}}
	require.NoError(t, WriteErrorsCSV(&errBuf, errs))
	assert.Contains(t, errBuf.String(), KindMissingField)
}
