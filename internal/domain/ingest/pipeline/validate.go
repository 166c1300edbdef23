package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/portfolio-importer/internal/domain/ingest/table"
	"github.com/FACorreiaa/portfolio-importer/pkg/money"
)

// dateFormats are tried in order; the first successful parse wins. Ambiguous
// day/month values therefore read as day-first, matching the European exports
// this pipeline mostly sees.
var dateFormats = []string{
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"01/02/2006",
	"02-01-2006",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// kindSynonyms maps normalized free-text transaction types to the canonical
// vocabulary. Canonical tags map to themselves; values outside the table
// collapse to "other". Data-driven like the asset keyword families: new source
// markets need new rows, not new code.
var kindSynonyms = map[string]string{
	"buy": "buy", "sell": "sell", "transfer_in": "transfer_in",
	"transfer_out": "transfer_out", "dividend": "dividend",
	"interest": "interest", "fee": "fee", "deposit": "deposit",
	"withdrawal": "withdrawal", "other": "other",

	// english variants
	"purchase": "buy", "bought": "buy", "sale": "sell", "sold": "sell",
	"div": "dividend", "commission": "fee", "charge": "fee",
	"cash_in": "deposit", "cash_out": "withdrawal",

	// portuguese
	"compra": "buy", "venda": "sell", "dividendo": "dividend",
	"juros": "interest", "taxa": "fee", "tarifa": "fee",
	"deposito": "deposit", "depósito": "deposit",
	"resgate": "withdrawal", "levantamento": "withdrawal",

	// spanish
	"venta": "sell", "dividendos": "dividend", "intereses": "interest",
	"comision": "fee", "comisión": "fee", "retiro": "withdrawal",

	// german
	"kauf": "buy", "verkauf": "sell", "dividende": "dividend",
	"zinsen": "interest", "gebuhr": "fee", "gebühr": "fee",
	"einzahlung": "deposit", "auszahlung": "withdrawal",

	// french
	"achat": "buy", "vente": "sell", "dividendes": "dividend",
	"interets": "interest", "intérêts": "interest", "frais": "fee",
	"depot": "deposit", "dépôt": "deposit", "retrait": "withdrawal",
}

// rowError is a row-scoped validation failure. Row errors are collected, not
// propagated; only structural failures abort a run.
type rowError struct {
	kind string
	msg  string
}

func (e *rowError) Error() string { return e.msg }

// validated holds the normalized values of a row that passed validation.
type validated struct {
	assetName       string
	date            string // ISO 8601
	assetPrice      string
	volume          string
	amount          string
	fee             string
	currency        string
	transactionType string
}

// validateRow checks one reconciled row and returns its normalized values:
// dates in ISO form, currency upper-cased, transaction type canonicalized.
func validateRow(row table.Row) (*validated, *rowError) {
	v := &validated{}

	v.assetName = strings.TrimSpace(row[table.FieldAssetName])
	if v.assetName == "" {
		return nil, &rowError{KindMissingField, "asset_name is empty"}
	}

	rawDate := strings.TrimSpace(row[table.FieldDate])
	if rawDate == "" {
		return nil, &rowError{KindMissingField, "date is empty"}
	}
	date, ok := parseDate(rawDate)
	if !ok {
		return nil, &rowError{KindInvalidDate, fmt.Sprintf("unparseable date %q", rawDate)}
	}
	v.date = date

	for _, f := range []struct {
		field string
		dst   *string
	}{
		{table.FieldAssetPrice, &v.assetPrice},
		{table.FieldVolume, &v.volume},
		{table.FieldAmount, &v.amount},
		{table.FieldFee, &v.fee},
	} {
		cell := row[f.field]
		if cell == "" {
			return nil, &rowError{KindMissingField, f.field + " is empty or not a number"}
		}
		d, err := decimal.NewFromString(cell)
		if err != nil {
			return nil, &rowError{KindMissingField, fmt.Sprintf("%s: %q is not a number", f.field, cell)}
		}
		if d.IsNegative() {
			return nil, &rowError{KindNegativeValue, fmt.Sprintf("%s is negative (%s)", f.field, cell)}
		}
		*f.dst = d.String()
	}

	currency := strings.ToUpper(strings.TrimSpace(row[table.FieldCurrency]))
	if !money.IsISOCurrency(currency) {
		return nil, &rowError{KindInvalidCurrency, fmt.Sprintf("unknown currency %q", currency)}
	}
	v.currency = currency

	v.transactionType = canonicalKind(row[table.FieldTransactionType])

	return v, nil
}

// parseDate tries every accepted format and returns the ISO form.
func parseDate(raw string) (string, bool) {
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// canonicalKind lower-cases and underscores a transaction type and resolves it
// through the synonym table; unrecognized values become "other" rather than
// failing the row.
func canonicalKind(raw string) string {
	kind := strings.ToLower(strings.TrimSpace(raw))
	kind = strings.ReplaceAll(kind, " ", "_")
	if canonical, ok := kindSynonyms[kind]; ok {
		return canonical
	}
	return "other"
}
