package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgres_FindOne(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	st := NewPostgres(mock)

	t.Run("hit", func(t *testing.T) {
		doc, err := json.Marshal(M{"asset_name": "AAPL", "asset_type": "stock"})
		require.NoError(t, err)

		mock.ExpectQuery("SELECT doc FROM documents").
			WithArgs("assets", pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{"doc"}).AddRow(doc))

		got, err := st.FindOne(ctx, "assets", M{"asset_name": "AAPL"})
		require.NoError(t, err)
		assert.Equal(t, "stock", got["asset_type"])
	})

	t.Run("miss maps to ErrNotFound", func(t *testing.T) {
		mock.ExpectQuery("SELECT doc FROM documents").
			WithArgs("assets", pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{"doc"}))

		_, err := st.FindOne(ctx, "assets", M{"asset_name": "MSFT"})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Find(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	st := NewPostgres(mock)

	first, _ := json.Marshal(M{"asset_name": "AAPL"})
	second, _ := json.Marshal(M{"asset_name": "MSFT"})

	mock.ExpectQuery("SELECT doc FROM documents").
		WithArgs("assets", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"doc"}).AddRow(first).AddRow(second))

	docs, err := st.Find(ctx, "assets", M{})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "AAPL", docs[0]["asset_name"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_InsertOne(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	st := NewPostgres(mock)

	mock.ExpectExec("INSERT INTO documents").
		WithArgs(pgxmock.AnyArg(), "assets", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := st.InsertOne(ctx, "assets", M{"asset_name": "AAPL"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_Upsert(t *testing.T) {
	ctx := context.Background()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	st := NewPostgres(mock)

	mock.ExpectExec("ON CONFLICT \\(collection, key_hash\\) DO UPDATE").
		WithArgs(pgxmock.AnyArg(), "cache", HashKey(M{"k": "v"}), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err = st.Upsert(ctx, "cache", M{"k": "v"}, M{"payload": 1})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
