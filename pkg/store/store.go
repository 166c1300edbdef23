// Package store provides the document-oriented persistence port used by the
// ingestion pipeline, with a Postgres JSONB implementation and an in-memory
// implementation for tests and dry runs. The pipeline only ever needs four
// operations, so the port stays deliberately small.
package store

import (
	"context"
	"errors"
)

// M is a document or filter: field name → scalar value.
type M map[string]any

// ErrNotFound is returned by FindOne when no document matches the filter.
var ErrNotFound = errors.New("store: document not found")

// Store is the persistence capability the pipeline depends on. Implementations
// must guarantee per-document atomicity for single-document writes; Upsert on
// the same key from concurrent writers must never produce duplicate documents.
type Store interface {
	// FindOne returns the first document in the collection matching the filter.
	FindOne(ctx context.Context, collection string, filter M) (M, error)
	// Find returns every document matching the filter.
	Find(ctx context.Context, collection string, filter M) ([]M, error)
	// InsertOne stores a new document and returns its generated id.
	InsertOne(ctx context.Context, collection string, doc M) (string, error)
	// Upsert inserts doc, or replaces the existing document identified by key.
	Upsert(ctx context.Context, collection string, key M, doc M) error
}
