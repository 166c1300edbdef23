package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/gocarina/gocsv"

	"github.com/FACorreiaa/portfolio-importer/pkg/store"
)

const (
	transactionsCollection = "transactions"
	errorsCollection       = "transaction_errors"
)

// ImportRecord is one fully validated, entity-resolved transaction ready for
// persistence or export.
type ImportRecord struct {
	OwnerID         string `csv:"owner_id" json:"owner_id"`
	WalletID        string `csv:"wallet_id" json:"wallet_id"`
	AssetID         string `csv:"asset_id" json:"asset_id"`
	AssetName       string `csv:"asset_name" json:"asset_name"`
	Date            string `csv:"date" json:"date"`
	AssetPrice      string `csv:"asset_price" json:"asset_price"`
	Volume          string `csv:"volume" json:"volume"`
	Amount          string `csv:"transaction_amount" json:"transaction_amount"`
	Fee             string `csv:"fee" json:"fee"`
	Currency        string `csv:"currency" json:"currency"`
	TransactionType string `csv:"transaction_type" json:"transaction_type"`
}

// ErrorRecord describes one rejected row. RawData holds the row as JSON so the
// record round-trips through both the store and CSV export.
type ErrorRecord struct {
	RowIndex     int    `csv:"row_index" json:"row_index"`
	ErrorKind    string `csv:"error_kind" json:"error_kind"`
	ErrorMessage string `csv:"error_message" json:"error_message"`
	RawData      string `csv:"raw_data" json:"raw_data"`
}

// Error kinds attached to rejected rows.
const (
	KindMissingField    = "missing_field"
	KindNegativeValue   = "negative_value"
	KindInvalidDate     = "invalid_date"
	KindInvalidCurrency = "invalid_currency"
)

// SaveRecords persists every record into the transactions collection.
func (p *Pipeline) SaveRecords(ctx context.Context, records []ImportRecord) error {
	for i, rec := range records {
		if _, err := p.store.InsertOne(ctx, transactionsCollection, toDoc(rec)); err != nil {
			return fmt.Errorf("saving record %d: %w", i, err)
		}
	}
	return nil
}

// SaveErrors persists every error record for later inspection.
func (p *Pipeline) SaveErrors(ctx context.Context, owner string, errs []ErrorRecord) error {
	for i, rec := range errs {
		doc := store.M{
			"owner_id":      owner,
			"row_index":     rec.RowIndex,
			"error_kind":    rec.ErrorKind,
			"error_message": rec.ErrorMessage,
			"raw_data":      rec.RawData,
		}
		if _, err := p.store.InsertOne(ctx, errorsCollection, doc); err != nil {
			return fmt.Errorf("saving error record %d: %w", i, err)
		}
	}
	return nil
}

// WriteRecordsCSV writes the records as CSV, header row included.
func WriteRecordsCSV(w io.Writer, records []ImportRecord) error {
	return gocsv.Marshal(&records, w)
}

// WriteErrorsCSV writes the error records as CSV, header row included.
func WriteErrorsCSV(w io.Writer, errs []ErrorRecord) error {
	return gocsv.Marshal(&errs, w)
}

func toDoc(rec ImportRecord) store.M {
	return store.M{
		"owner_id":           rec.OwnerID,
		"wallet_id":          rec.WalletID,
		"asset_id":           rec.AssetID,
		"asset_name":         rec.AssetName,
		"date":               rec.Date,
		"asset_price":        rec.AssetPrice,
		"volume":             rec.Volume,
		"transaction_amount": rec.Amount,
		"fee":                rec.Fee,
		"currency":           rec.Currency,
		"transaction_type":   rec.TransactionType,
	}
}

func rowJSON(row map[string]string) string {
	b, err := json.Marshal(row)
	if err != nil {
		return fmt.Sprintf("%v", row)
	}
	return string(b)
}
