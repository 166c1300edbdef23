// Package table defines the in-memory tabular representation shared by the
// ingestion pipeline: raw rows as read from disk, and a detected table with
// named columns once the header row is known.
package table

// Target schema field names. Every import, whatever its source layout,
// is eventually expressed in these columns.
const (
	FieldAssetName       = "asset_name"
	FieldDate            = "date"
	FieldAssetPrice      = "asset_price"
	FieldVolume          = "volume"
	FieldAmount          = "transaction_amount"
	FieldFee             = "fee"
	FieldCurrency        = "currency"
	FieldTransactionType = "transaction_type"
)

// TargetFields lists the canonical schema in its fixed order.
func TargetFields() []string {
	return []string{
		FieldAssetName,
		FieldDate,
		FieldAssetPrice,
		FieldVolume,
		FieldAmount,
		FieldFee,
		FieldCurrency,
		FieldTransactionType,
	}
}

// Row maps a column name to the cell value for one data row.
type Row map[string]string

// Detected is a table whose header row has been located: an ordered set of
// unique column names plus the data rows below the header.
type Detected struct {
	Columns []string
	Rows    []Row
}

// HasColumn reports whether the table contains the named column.
func (t *Detected) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Column returns all values of the named column in row order.
// Missing cells yield empty strings.
func (t *Detected) Column(name string) []string {
	values := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		values[i] = row[name]
	}
	return values
}

// Clone returns a deep copy. Pipeline stages that rewrite cells operate on a
// copy so the caller's table is never mutated in place.
func (t *Detected) Clone() *Detected {
	out := &Detected{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([]Row, len(t.Rows)),
	}
	for i, row := range t.Rows {
		cp := make(Row, len(row))
		for k, v := range row {
			cp[k] = v
		}
		out.Rows[i] = cp
	}
	return out
}
