// Package classifier defines the external best-effort text-classification
// capability used for schema mapping and asset typing, plus its Gemini-backed
// implementation. A classifier answer is never authoritative: callers must
// treat ErrNoAnswer as "fall back to heuristics/defaults", not as a failure.
package classifier

import (
	"context"
	"errors"
)

// ErrNoAnswer means the classifier could not produce a usable answer
// (unavailable, malformed response, low confidence). Callers fall back.
var ErrNoAnswer = errors.New("classifier: no answer")

// ColumnMappingRequest is the context handed to the classifier for schema
// mapping: the target schema, the source column names, and a small sample of
// rows so the model can reason over actual values.
type ColumnMappingRequest struct {
	TargetFields  []string
	SourceColumns []string
	SampleRows    []map[string]any
}

// AssetAnswer is the classifier's guess for an asset name.
type AssetAnswer struct {
	Type   string
	Symbol string
}

// Classifier is the external classification capability.
type Classifier interface {
	// MapColumns proposes, for every target field, a source column name or ""
	// when no source column fits.
	MapColumns(ctx context.Context, req ColumnMappingRequest) (map[string]string, error)
	// ClassifyAsset guesses the asset type (one of validTypes) and an optional
	// ticker symbol for a free-text asset name.
	ClassifyAsset(ctx context.Context, assetName string, validTypes []string) (*AssetAnswer, error)
}
