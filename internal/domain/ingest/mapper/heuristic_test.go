package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/FACorreiaa/portfolio-importer/internal/domain/ingest/table"
)

func TestSuggestMapping(t *testing.T) {
	t.Run("english broker export", func(t *testing.T) {
		got := SuggestMapping([]string{
			"stock_name", "trade_date", "price", "shares", "total_value",
			"commission", "currency", "side",
		})
		assert.Equal(t, "stock_name", got[table.FieldAssetName])
		assert.Equal(t, "trade_date", got[table.FieldDate])
		assert.Equal(t, "price", got[table.FieldAssetPrice])
		assert.Equal(t, "shares", got[table.FieldVolume])
		assert.Equal(t, "total_value", got[table.FieldAmount])
		assert.Equal(t, "commission", got[table.FieldFee])
		assert.Equal(t, "currency", got[table.FieldCurrency])
		assert.Equal(t, "side", got[table.FieldTransactionType])
	})

	t.Run("portuguese export", func(t *testing.T) {
		got := SuggestMapping([]string{"ativo", "data", "preco", "quantidade", "valor", "moeda"})
		assert.Equal(t, "ativo", got[table.FieldAssetName])
		assert.Equal(t, "data", got[table.FieldDate])
		assert.Equal(t, "preco", got[table.FieldAssetPrice])
		assert.Equal(t, "quantidade", got[table.FieldVolume])
		assert.Equal(t, "valor", got[table.FieldAmount])
		assert.Equal(t, "moeda", got[table.FieldCurrency])
	})

	t.Run("each column used at most once", func(t *testing.T) {
		got := SuggestMapping([]string{"amount"})
		used := 0
		for _, col := range got {
			if col == "amount" {
				used++
			}
		}
		assert.Equal(t, 1, used)
	})

	t.Run("fuzzy tier catches near misses", func(t *testing.T) {
		got := SuggestMapping([]string{"currncy", "shres"})
		assert.Equal(t, "currncy", got[table.FieldCurrency])
		assert.Equal(t, "shres", got[table.FieldVolume])
	})

	t.Run("unknown columns stay unmapped", func(t *testing.T) {
		got := SuggestMapping([]string{"zzz_1", "zzz_2"})
		for _, field := range table.TargetFields() {
			assert.Equal(t, "", got[field], "field %s", field)
		}
	})

	t.Run("all target fields present as keys", func(t *testing.T) {
		got := SuggestMapping([]string{"whatever"})
		for _, field := range table.TargetFields() {
			_, ok := got[field]
			assert.True(t, ok, "field %s", field)
		}
	})
}
