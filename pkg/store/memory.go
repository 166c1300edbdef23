package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Memory is an in-process Store used by tests and the importer's dry-run mode.
// Matching mirrors the JSONB containment semantics of the Postgres store:
// every filter field must equal the corresponding document field.
type Memory struct {
	mu    sync.Mutex
	colls map[string][]M
	keys  map[string]map[string]int // collection → key hash → index in colls
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		colls: make(map[string][]M),
		keys:  make(map[string]map[string]int),
	}
}

// FindOne returns the first matching document.
func (s *Memory) FindOne(ctx context.Context, collection string, filter M) (M, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, doc := range s.colls[collection] {
		if matches(doc, filter) {
			return cloneDoc(doc), nil
		}
	}
	return nil, ErrNotFound
}

// Find returns every matching document in insertion order.
func (s *Memory) Find(ctx context.Context, collection string, filter M) ([]M, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []M
	for _, doc := range s.colls[collection] {
		if matches(doc, filter) {
			out = append(out, cloneDoc(doc))
		}
	}
	return out, nil
}

// InsertOne stores a new document with a generated "_id".
func (s *Memory) InsertOne(ctx context.Context, collection string, doc M) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := uuid.New().String()
	stored := cloneDoc(doc)
	stored["_id"] = id
	s.colls[collection] = append(s.colls[collection], stored)
	return id, nil
}

// Upsert inserts doc or replaces the document with the same logical key.
func (s *Memory) Upsert(ctx context.Context, collection string, key M, doc M) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneDoc(doc)
	for k, v := range key {
		stored[k] = v
	}

	hash := HashKey(key)
	if s.keys[collection] == nil {
		s.keys[collection] = make(map[string]int)
	}
	if idx, ok := s.keys[collection][hash]; ok {
		s.colls[collection][idx] = stored
		return nil
	}
	s.colls[collection] = append(s.colls[collection], stored)
	s.keys[collection][hash] = len(s.colls[collection]) - 1
	return nil
}

// Count reports how many documents a collection holds. Test helper.
func (s *Memory) Count(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.colls[collection])
}

// matches applies containment: every filter field must equal the document
// field. Scalar comparison goes through fmt.Sprint so int/float JSON
// round-trip differences do not break equality.
func matches(doc, filter M) bool {
	for k, want := range filter {
		got, ok := doc[k]
		if !ok {
			return false
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

func cloneDoc(doc M) M {
	cp := make(M, len(doc))
	for k, v := range doc {
		cp[k] = v
	}
	return cp
}
