package resolver

import (
	"strings"

	"github.com/cloudflare/ahocorasick"
)

// Canonical asset type tags. "other" is the terminal fallback and is always a
// valid answer.
const (
	TypeBond       = "bond"
	TypeStock      = "stock"
	TypeETF        = "etf"
	TypeMutualFund = "managed mutual fund"
	TypeRealEstate = "real_estate"
	TypeCrypto     = "cryptocurrency"
	TypeCommodity  = "commodity"
	TypeCash       = "cash"
	TypeOther      = "other"
)

// AssetTypes lists every canonical tag, in display order. This is also the
// validTypes vocabulary handed to the classifier.
func AssetTypes() []string {
	return []string{
		TypeBond, TypeStock, TypeETF, TypeMutualFund, TypeRealEstate,
		TypeCrypto, TypeCommodity, TypeCash, TypeOther,
	}
}

// typeKeywords maps each canonical tag to the multi-language keywords that
// indicate it inside a free-text asset name. Data-driven: new source markets
// need new keywords, not new code.
var typeKeywords = map[string][]string{
	TypeBond: {
		"bond", "treasury", "gilt", "anleihe", "obrigacao", "obrigação",
		"obligation", "debenture", "t-bill", "tesouro", "selic",
	},
	TypeStock: {
		"stock", "share", "equity", "aktie", "acao", "ação", "accion",
		"common", "preferred", "adr",
	},
	TypeETF: {
		"etf", "ishares", "vanguard", "spdr", "xtrackers", "lyxor", "index fund",
		"tracker",
	},
	TypeMutualFund: {
		"mutual fund", "managed fund", "fonds", "fundo", "fondo", "sicav",
		"oeic", "unit trust",
	},
	TypeRealEstate: {
		"reit", "real estate", "property", "immobilien", "imovel", "imobiliario",
	},
	TypeCrypto: {
		"crypto", "bitcoin", "btc", "ethereum", "eth", "solana", "token",
		"coin", "stablecoin",
	},
	TypeCommodity: {
		"gold", "silver", "platinum", "oil", "gas", "commodity", "ouro",
		"prata", "wheat", "copper",
	},
	TypeCash: {
		"cash", "deposit", "money market", "savings", "tagesgeld", "poupanca",
	},
}

// keywordMatcher matches asset names against every keyword family in a single
// pass. Keywords are compiled once; matching is linear in the name length
// regardless of vocabulary size.
type keywordMatcher struct {
	matcher  *ahocorasick.Matcher
	patterns []string
	tags     []string // tag for the pattern at the same index
}

func newKeywordMatcher() *keywordMatcher {
	var patterns []string
	var tags []string
	// AssetTypes order fixes the tiebreak for equally long keywords.
	for _, tag := range AssetTypes() {
		for _, kw := range typeKeywords[tag] {
			patterns = append(patterns, kw)
			tags = append(tags, tag)
		}
	}
	return &keywordMatcher{
		matcher:  ahocorasick.NewStringMatcher(patterns),
		patterns: patterns,
		tags:     tags,
	}
}

// classify returns the canonical tag for the matched keyword, or "" when no
// keyword occurs in the name. The longest hit wins, so "ishares" beats the
// "share" it contains; equal lengths go to the family listed earliest in
// AssetTypes.
func (k *keywordMatcher) classify(assetName string) string {
	hits := k.matcher.Match([]byte(strings.ToLower(assetName)))

	best := -1
	for _, idx := range hits {
		switch {
		case best < 0:
			best = idx
		case len(k.patterns[idx]) > len(k.patterns[best]):
			best = idx
		case len(k.patterns[idx]) == len(k.patterns[best]) && idx < best:
			best = idx
		}
	}
	if best < 0 {
		return ""
	}
	return k.tags[best]
}
