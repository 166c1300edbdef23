// Package mapper maps arbitrary source columns onto the fixed target schema.
// Mapping is expensive (it consults an external classifier), so validated
// mappings are cached in the persistent store keyed by the column signature:
// files from the same source system repeat their exact layout on every export,
// and repeat imports skip the classifier entirely after the first success.
package mapper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/portfolio-importer/internal/classifier"
	"github.com/FACorreiaa/portfolio-importer/internal/domain/ingest/table"
	"github.com/FACorreiaa/portfolio-importer/pkg/store"
)

var (
	// ErrInvalidMapping means a proposed or cached mapping omits target fields
	// or references source columns that do not exist. The whole file aborts;
	// no partial mapping is accepted.
	ErrInvalidMapping = errors.New("invalid column mapping")
	// ErrEmptySource means the input table has no columns to map from.
	ErrEmptySource = errors.New("source table has no columns")
)

// Mapping assigns each target field a source column name, or "" when the
// field is unmapped.
type Mapping map[string]string

// sampleRowCount is how many data rows are sent to the classifier as context.
const sampleRowCount = 5

// Mapper produces and caches schema mappings.
type Mapper struct {
	store      store.Store
	classifier classifier.Classifier // nil: heuristics only
	logger     *slog.Logger
}

// New creates a Mapper. classifier may be nil, in which case every cache miss
// is served by the heuristic column matcher.
func New(st store.Store, cl classifier.Classifier, logger *slog.Logger) *Mapper {
	return &Mapper{store: st, classifier: cl, logger: logger}
}

// MapColumns returns the mapping for the table's column signature, consulting
// the owner-scoped cache first and populating it on a miss.
func (m *Mapper) MapColumns(ctx context.Context, owner uuid.UUID, tbl *table.Detected, fileType string) (Mapping, error) {
	if len(tbl.Columns) == 0 {
		return nil, ErrEmptySource
	}

	key := CacheKey(fileType, tbl.Columns)

	if cached, err := m.lookupCache(ctx, owner, key); err != nil {
		return nil, err
	} else if cached != nil {
		cacheHits.Inc()
		m.logger.Debug("schema mapping served from cache",
			slog.String("cache_key", key),
			slog.String("owner", owner.String()),
		)
		return cached, nil
	}
	cacheMisses.Inc()

	mapping, err := m.propose(ctx, tbl)
	if err != nil {
		return nil, err
	}

	if err := validate(mapping, tbl.Columns); err != nil {
		return nil, err
	}

	if err := m.storeCache(ctx, owner, key, tbl.Columns, fileType, mapping); err != nil {
		return nil, fmt.Errorf("storing mapping cache: %w", err)
	}
	return mapping, nil
}

// propose asks the classifier for a mapping, falling back to keyword/fuzzy
// heuristics when the classifier is absent or has no answer. A classifier
// outage degrades quality, never correctness.
func (m *Mapper) propose(ctx context.Context, tbl *table.Detected) (Mapping, error) {
	if m.classifier == nil {
		heuristicFallbacks.Inc()
		return SuggestMapping(tbl.Columns), nil
	}

	proposed, err := m.classifier.MapColumns(ctx, classifier.ColumnMappingRequest{
		TargetFields:  table.TargetFields(),
		SourceColumns: tbl.Columns,
		SampleRows:    sampleRows(tbl, sampleRowCount),
	})
	if err != nil {
		m.logger.Warn("classifier unavailable, falling back to heuristic mapping",
			slog.Any("error", err),
		)
		heuristicFallbacks.Inc()
		return SuggestMapping(tbl.Columns), nil
	}

	mapping := make(Mapping, len(proposed))
	for field, col := range proposed {
		mapping[field] = col
	}
	return mapping, nil
}

// ApplyMapping projects the source table onto the target schema: mapped
// columns are copied, unmapped fields take the caller's default when provided,
// otherwise stay empty.
func ApplyMapping(tbl *table.Detected, mapping Mapping, defaults map[string]string) (*table.Detected, error) {
	if len(tbl.Columns) == 0 {
		return nil, ErrEmptySource
	}

	out := &table.Detected{
		Columns: table.TargetFields(),
		Rows:    make([]table.Row, len(tbl.Rows)),
	}
	for i, src := range tbl.Rows {
		row := make(table.Row, len(out.Columns))
		for _, field := range out.Columns {
			source := mapping[field]
			switch {
			case source != "":
				row[field] = src[source]
			default:
				row[field] = defaults[field]
			}
		}
		out.Rows[i] = row
	}
	return out, nil
}

// validate rejects mappings that omit target fields or name non-existent
// source columns.
func validate(mapping Mapping, sourceColumns []string) error {
	exists := make(map[string]struct{}, len(sourceColumns))
	for _, c := range sourceColumns {
		exists[c] = struct{}{}
	}

	for _, field := range table.TargetFields() {
		source, ok := mapping[field]
		if !ok {
			return fmt.Errorf("%w: missing target field %q", ErrInvalidMapping, field)
		}
		if source == "" {
			continue
		}
		if _, ok := exists[source]; !ok {
			return fmt.Errorf("%w: field %q references non-existent column %q",
				ErrInvalidMapping, field, source)
		}
	}
	return nil
}

// sampleRows converts the first n data rows to the classifier payload shape.
// Empty cells become nil so the model sees explicit nulls rather than "".
func sampleRows(tbl *table.Detected, n int) []map[string]any {
	if n > len(tbl.Rows) {
		n = len(tbl.Rows)
	}
	out := make([]map[string]any, n)
	for i := 0; i < n; i++ {
		row := make(map[string]any, len(tbl.Columns))
		for _, col := range tbl.Columns {
			if v := tbl.Rows[i][col]; v != "" {
				row[col] = v
			} else {
				row[col] = nil
			}
		}
		out[i] = row
	}
	return out
}

// now is stubbed in tests.
var now = time.Now
