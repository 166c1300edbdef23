// Package reconciler fills in derivable numeric fields and normalizes
// locale-specific number formats on a mapped table, ahead of per-row
// validation. The pass is idempotent: running it on already-complete data
// changes nothing, and a genuinely supplied non-zero value is never
// overwritten.
package reconciler

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/portfolio-importer/internal/domain/ingest/table"
	"github.com/FACorreiaa/portfolio-importer/pkg/money"
)

// Defaults for optional fields when the source file has no such column.
type Defaults struct {
	Currency        string // ISO-4217 code, e.g. "USD"
	TransactionType string // canonical kind, e.g. "buy"
}

// Reconciler normalizes and derives numeric fields.
type Reconciler struct {
	defaults Defaults
}

// New creates a reconciler with the configured defaults.
func New(defaults Defaults) *Reconciler {
	return &Reconciler{defaults: defaults}
}

// numericFields are coerced to canonical decimal strings before derivation.
var numericFields = []string{
	table.FieldAssetPrice,
	table.FieldVolume,
	table.FieldAmount,
	table.FieldFee,
}

// Reconcile returns a copy of the table with numeric cells normalized,
// missing price/amount derived where possible, and defaults applied.
func (r *Reconciler) Reconcile(tbl *table.Detected) *table.Detected {
	out := tbl.Clone()

	for _, row := range out.Rows {
		for _, field := range numericFields {
			row[field] = normalizeNumber(row[field])
		}

		price, hasPrice := parseCell(row[table.FieldAssetPrice])
		volume, hasVolume := parseCell(row[table.FieldVolume])
		amount, hasAmount := parseCell(row[table.FieldAmount])

		// price = amount / volume, only when price is absent or a zero
		// placeholder and the division is well-defined.
		if (!hasPrice || price.IsZero()) && hasAmount && hasVolume && !volume.IsZero() {
			row[table.FieldAssetPrice] = amount.Div(volume).String()
		}

		// amount = price * volume under the same placeholder rule.
		if (!hasAmount || amount.IsZero()) && hasPrice && hasVolume && !volume.IsZero() {
			row[table.FieldAmount] = price.Mul(volume).String()
		}

		if row[table.FieldFee] == "" {
			row[table.FieldFee] = "0"
		}
		if row[table.FieldCurrency] == "" {
			row[table.FieldCurrency] = r.defaults.Currency
		}
		if row[table.FieldTransactionType] == "" {
			row[table.FieldTransactionType] = r.defaults.TransactionType
		}
	}
	return out
}

// normalizeNumber rewrites a numeric cell to canonical dot-decimal form.
// Unparseable cells become empty and are caught later at row validation.
func normalizeNumber(cell string) string {
	if strings.TrimSpace(cell) == "" {
		return ""
	}
	d, err := money.Parse(cell)
	if err != nil {
		return ""
	}
	return d.String()
}

// parseCell parses an already-normalized cell. ok is false for empty or
// unparseable cells.
func parseCell(cell string) (decimal.Decimal, bool) {
	if cell == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(cell)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
