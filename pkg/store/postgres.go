package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgxpool.Pool the store needs. pgxmock satisfies it
// too, which is how the store is unit-tested without a database.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres stores documents as JSONB rows in a single documents table.
// Filters are evaluated with the @> containment operator so lookups stay
// index-friendly (GIN on doc).
type Postgres struct {
	db Querier
}

// NewPostgres creates a Postgres-backed document store.
func NewPostgres(db Querier) *Postgres {
	return &Postgres{db: db}
}

// FindOne returns the first matching document.
func (s *Postgres) FindOne(ctx context.Context, collection string, filter M) (M, error) {
	filterJSON, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("marshaling filter: %w", err)
	}

	var raw []byte
	row := s.db.QueryRow(ctx,
		`SELECT doc FROM documents WHERE collection = $1 AND doc @> $2::jsonb LIMIT 1`,
		collection, filterJSON,
	)
	if err := row.Scan(&raw); err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying %s: %w", collection, err)
	}

	var doc M
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	return doc, nil
}

// Find returns every matching document in insertion order.
func (s *Postgres) Find(ctx context.Context, collection string, filter M) ([]M, error) {
	filterJSON, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("marshaling filter: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT doc FROM documents WHERE collection = $1 AND doc @> $2::jsonb ORDER BY created_at`,
		collection, filterJSON,
	)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []M
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		var doc M
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decoding document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// InsertOne stores a new document with a generated id exposed as "_id".
func (s *Postgres) InsertOne(ctx context.Context, collection string, doc M) (string, error) {
	id := uuid.New().String()

	stored := make(M, len(doc)+1)
	for k, v := range doc {
		stored[k] = v
	}
	stored["_id"] = id

	docJSON, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("marshaling document: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO documents (id, collection, key_hash, doc) VALUES ($1, $2, $3, $4)`,
		id, collection, id, docJSON,
	)
	if err != nil {
		return "", fmt.Errorf("inserting into %s: %w", collection, err)
	}
	return id, nil
}

// Upsert inserts doc or replaces the existing document with the same logical
// key. The key is hashed deterministically and backed by a unique index on
// (collection, key_hash), so concurrent writers cannot interleave into
// duplicate entries.
func (s *Postgres) Upsert(ctx context.Context, collection string, key M, doc M) error {
	keyHash := HashKey(key)

	stored := make(M, len(doc)+len(key))
	for k, v := range doc {
		stored[k] = v
	}
	for k, v := range key {
		stored[k] = v
	}

	docJSON, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshaling document: %w", err)
	}

	_, err = s.db.Exec(ctx,
		`INSERT INTO documents (id, collection, key_hash, doc)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (collection, key_hash) DO UPDATE SET doc = EXCLUDED.doc`,
		uuid.New().String(), collection, keyHash, docJSON,
	)
	if err != nil {
		return fmt.Errorf("upserting into %s: %w", collection, err)
	}
	return nil
}

// HashKey produces a deterministic hash of a logical key, independent of map
// iteration order.
func HashKey(key M) string {
	fields := make([]string, 0, len(key))
	for k := range key {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	h := sha256.New()
	for _, k := range fields {
		fmt.Fprintf(h, "%s=%v|", k, key[k])
	}
	return hex.EncodeToString(h.Sum(nil))
}
