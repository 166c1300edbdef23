package mapper

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/FACorreiaa/portfolio-importer/pkg/store"
)

// cacheCollection is where validated mappings persist across runs.
const cacheCollection = "column_mapping_cache"

// mappingVersion is bumped whenever mapping logic changes; entries written
// under older versions become permanently unreachable without being deleted.
const mappingVersion = 1

// CacheKey derives the deterministic column-signature key: two files with the
// same type, column count and column names (in any order) share one key.
func CacheKey(fileType string, columns []string) string {
	sorted := append([]string(nil), columns...)
	sort.Strings(sorted)

	h := md5.New()
	fmt.Fprintf(h, "%s|%d|%s", strings.ToLower(fileType), len(columns), strings.Join(sorted, ","))
	return hex.EncodeToString(h.Sum(nil))
}

// lookupCache returns the cached mapping for (owner, key, version), bumping
// hit_count and last_used_at on a hit. A nil mapping with nil error is a miss.
func (m *Mapper) lookupCache(ctx context.Context, owner uuid.UUID, key string) (Mapping, error) {
	filter := store.M{
		"owner_id":  owner.String(),
		"cache_key": key,
		"version":   mappingVersion,
	}
	doc, err := m.store.FindOne(ctx, cacheCollection, filter)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("mapping cache lookup: %w", err)
	}

	mapping, err := decodeMapping(doc["mapping"])
	if err != nil {
		return nil, fmt.Errorf("%w: cached entry is corrupt: %v", ErrInvalidMapping, err)
	}

	doc["hit_count"] = asInt(doc["hit_count"]) + 1
	doc["last_used_at"] = now().UTC().Format("2006-01-02T15:04:05Z07:00")
	if err := m.store.Upsert(ctx, cacheCollection, filter, doc); err != nil {
		return nil, fmt.Errorf("refreshing mapping cache entry: %w", err)
	}

	return mapping, nil
}

// storeCache persists a freshly validated mapping, upserting on the unique
// (owner, cache_key, version) key.
func (m *Mapper) storeCache(ctx context.Context, owner uuid.UUID, key string, columns []string, fileType string, mapping Mapping) error {
	ts := now().UTC().Format("2006-01-02T15:04:05Z07:00")

	keyFields := store.M{
		"owner_id":  owner.String(),
		"cache_key": key,
		"version":   mappingVersion,
	}
	doc := store.M{
		"column_names": columns,
		"file_type":    strings.ToLower(fileType),
		"column_count": len(columns),
		"mapping":      mapping,
		"hit_count":    0,
		"created_at":   ts,
		"last_used_at": ts,
	}
	return m.store.Upsert(ctx, cacheCollection, keyFields, doc)
}

// decodeMapping tolerates both the in-process shape (Mapping) and the
// JSON-roundtripped shape (map[string]any with nil for unmapped fields).
func decodeMapping(raw any) (Mapping, error) {
	switch v := raw.(type) {
	case Mapping:
		return v, nil
	case map[string]string:
		return Mapping(v), nil
	case map[string]any:
		mapping := make(Mapping, len(v))
		for field, col := range v {
			if col == nil {
				mapping[field] = ""
				continue
			}
			s, ok := col.(string)
			if !ok {
				return nil, fmt.Errorf("field %q maps to non-string %T", field, col)
			}
			mapping[field] = s
		}
		return mapping, nil
	default:
		return nil, fmt.Errorf("unexpected mapping shape %T", raw)
	}
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
