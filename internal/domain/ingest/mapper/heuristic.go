package mapper

import (
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/FACorreiaa/portfolio-importer/internal/domain/ingest/table"
)

// fieldKeywords drives the heuristic matcher: per target field, substrings
// commonly seen in export headers (multi-language). Data-driven so new
// source systems only need new keywords, not new control flow.
var fieldKeywords = map[string][]string{
	table.FieldAssetName: {
		"asset", "stock_name", "stock", "instrument", "security", "ticker",
		"symbol", "name", "titel", "produkt", "ativo",
	},
	table.FieldDate: {
		"date", "data", "fecha", "datum", "time", "executed",
	},
	table.FieldAssetPrice: {
		"price", "preis", "preco", "precio", "rate", "kurs", "unit",
	},
	table.FieldVolume: {
		"volume", "shares", "quantity", "qty", "units", "amount_of", "anzahl",
		"cantidad", "quantidade",
	},
	table.FieldAmount: {
		"total", "amount", "value", "valor", "importe", "montant", "betrag",
	},
	table.FieldFee: {
		"fee", "commission", "charge", "gebuhr", "taxa", "comision",
	},
	table.FieldCurrency: {
		"currency", "curr", "ccy", "moeda", "moneda", "wahrung", "divisa",
	},
	table.FieldTransactionType: {
		"type", "kind", "side", "direction", "operation", "tipo", "art",
	},
}

// minFuzzyRank bounds the accepted Levenshtein distance for the fuzzy tier;
// anything worse is noise.
const minFuzzyRank = 3

// SuggestMapping proposes a mapping from column names alone: substring
// keyword match first, then a fuzzy pass for near-misses ("currncy",
// "shres"). Each source column is consumed at most once; fields with no
// plausible column stay unmapped.
func SuggestMapping(columns []string) Mapping {
	mapping := make(Mapping, len(fieldKeywords))
	used := make(map[string]bool, len(columns))

	// Substring tier. Target fields are visited in schema order so the more
	// specific fields claim their columns before generic keywords like "name".
	for _, field := range table.TargetFields() {
		mapping[field] = ""
		for _, col := range columns {
			if used[col] {
				continue
			}
			if matchesKeyword(col, fieldKeywords[field]) {
				mapping[field] = col
				used[col] = true
				break
			}
		}
	}

	// Fuzzy tier for fields the substring pass left unmapped.
	for _, field := range table.TargetFields() {
		if mapping[field] != "" {
			continue
		}
		bestRank := minFuzzyRank + 1
		bestCol := ""
		for _, col := range columns {
			if used[col] {
				continue
			}
			for _, kw := range fieldKeywords[field] {
				rank := fuzzyRank(kw, col)
				if rank >= 0 && rank < bestRank {
					bestRank = rank
					bestCol = col
				}
			}
		}
		if bestCol != "" {
			mapping[field] = bestCol
			used[bestCol] = true
		}
	}

	return mapping
}

// fuzzyRank matches keyword and column in both directions so that both
// dropped letters ("currncy") and decorated names ("curr_cy") rank. -1 means
// no match.
func fuzzyRank(kw, col string) int {
	a := fuzzy.RankMatchNormalizedFold(kw, col)
	b := fuzzy.RankMatchNormalizedFold(col, kw)
	switch {
	case a < 0:
		return b
	case b < 0:
		return a
	case a < b:
		return a
	default:
		return b
	}
}

func matchesKeyword(column string, keywords []string) bool {
	col := strings.ToLower(column)
	for _, kw := range keywords {
		if strings.Contains(col, kw) {
			return true
		}
	}
	return false
}
