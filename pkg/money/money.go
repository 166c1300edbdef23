// Package money holds the monetary helpers shared by the ingestion stages:
// locale-tolerant amount parsing and ISO-4217 currency validation.
package money

import (
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is the fallback code for rows whose source carries none.
const DefaultCurrency = "USD"

// Parse reads a human-formatted amount into a decimal: currency symbols
// stripped, spaces (thousands separators) removed, comma treated as the
// decimal separator. "1,5" parses as 1.5; mixed separators like "1.234,56"
// do not parse.
func Parse(s string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '$', '€', '£', ' ', ' ':
			return -1
		}
		return r
	}, strings.TrimSpace(s))
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	return decimal.NewFromString(cleaned)
}

// IsISOCurrency reports whether code names a known ISO-4217 currency.
// Matching is exact: codes are expected upper-cased by the caller.
func IsISOCurrency(code string) bool {
	return len(code) == 3 && gomoney.GetCurrency(code) != nil
}
