// Package resolver maps free-text wallet and asset names from imported rows
// onto stable entity ids, creating entities on first sight. Lookups within a
// single import run are memoized so a thousand-row file touches the store a
// handful of times, not per row.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/FACorreiaa/portfolio-importer/internal/classifier"
	"github.com/FACorreiaa/portfolio-importer/pkg/store"
)

const (
	walletCollection = "wallets"
	assetCollection  = "assets"
)

// Resolver resolves wallet and asset names to entity ids.
type Resolver struct {
	store      store.Store
	classifier classifier.Classifier // nil: keyword tier only
	keywords   *keywordMatcher
	logger     *slog.Logger

	// Per-run memoization. A Resolver is scoped to one import run and one
	// goroutine; these maps are not synchronized.
	wallets map[string]uuid.UUID // owner|name
	assets  map[string]uuid.UUID // name|typeHint
}

// New creates a resolver for a single import run. cl may be nil, in which case
// asset typing stops after the keyword tier.
func New(st store.Store, cl classifier.Classifier, logger *slog.Logger) *Resolver {
	return &Resolver{
		store:      st,
		classifier: cl,
		keywords:   newKeywordMatcher(),
		logger:     logger,
		wallets:    make(map[string]uuid.UUID),
		assets:     make(map[string]uuid.UUID),
	}
}

// ResolveWallet returns the id of the owner's wallet with the given name,
// creating the wallet when it does not exist yet.
func (r *Resolver) ResolveWallet(ctx context.Context, owner uuid.UUID, name string) (uuid.UUID, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return uuid.Nil, errors.New("wallet name is empty")
	}

	cacheKey := owner.String() + "|" + name
	if id, ok := r.wallets[cacheKey]; ok {
		return id, nil
	}

	// Older documents carry the owner id under "owner_id_str" instead of
	// "owner_id"; try both shapes before creating.
	for _, field := range []string{"owner_id", "owner_id_str"} {
		doc, err := r.store.FindOne(ctx, walletCollection, store.M{
			field:  owner.String(),
			"name": name,
		})
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return uuid.Nil, fmt.Errorf("wallet lookup: %w", err)
		}
		id, err := docID(doc)
		if err != nil {
			return uuid.Nil, fmt.Errorf("wallet %q: %w", name, err)
		}
		r.wallets[cacheKey] = id
		return id, nil
	}

	rawID, err := r.store.InsertOne(ctx, walletCollection, store.M{
		"owner_id":     owner.String(),
		"owner_id_str": owner.String(),
		"name":         name,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("creating wallet %q: %w", name, err)
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("wallet id %q: %w", rawID, err)
	}
	r.logger.Info("created wallet",
		slog.String("name", name),
		slog.String("owner", owner.String()),
	)
	r.wallets[cacheKey] = id
	return id, nil
}

// ResolveAsset returns the id of the asset with the given name, creating it
// with a classified type when it does not exist. typeHint, when non-empty, is
// a caller-supplied type that wins over classification.
func (r *Resolver) ResolveAsset(ctx context.Context, name, typeHint string) (uuid.UUID, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return uuid.Nil, errors.New("asset name is empty")
	}

	cacheKey := name + "|" + typeHint
	if id, ok := r.assets[cacheKey]; ok {
		return id, nil
	}

	doc, err := r.store.FindOne(ctx, assetCollection, store.M{"asset_name": name})
	switch {
	case err == nil:
		id, derr := docID(doc)
		if derr != nil {
			return uuid.Nil, fmt.Errorf("asset %q: %w", name, derr)
		}
		r.assets[cacheKey] = id
		return id, nil
	case !errors.Is(err, store.ErrNotFound):
		return uuid.Nil, fmt.Errorf("asset lookup: %w", err)
	}

	assetType, symbol := r.classifyType(ctx, name, typeHint)

	rawID, err := r.store.InsertOne(ctx, assetCollection, store.M{
		"asset_name": name,
		"asset_type": assetType,
		"symbol":     symbol,
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("creating asset %q: %w", name, err)
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("asset id %q: %w", rawID, err)
	}
	r.logger.Info("created asset",
		slog.String("name", name),
		slog.String("type", assetType),
	)
	r.assets[cacheKey] = id
	return id, nil
}

// classifyType decides an asset's type: caller hint, then keyword families,
// then the classifier, then "other". Classification is best-effort and never
// fails the resolution.
func (r *Resolver) classifyType(ctx context.Context, name, typeHint string) (assetType, symbol string) {
	if hint := canonicalType(typeHint); hint != "" {
		return hint, ""
	}

	if tag := r.keywords.classify(name); tag != "" {
		return tag, ""
	}

	if r.classifier != nil {
		answer, err := r.classifier.ClassifyAsset(ctx, name, AssetTypes())
		if err == nil {
			return answer.Type, answer.Symbol
		}
		if !errors.Is(err, classifier.ErrNoAnswer) {
			r.logger.Warn("asset classification failed",
				slog.String("name", name),
				slog.Any("error", err),
			)
		}
	}

	return TypeOther, ""
}

// canonicalType maps a free-form hint onto a canonical tag, or "" when the
// hint names no known type.
func canonicalType(hint string) string {
	hint = strings.ToLower(strings.TrimSpace(hint))
	if hint == "" {
		return ""
	}
	for _, tag := range AssetTypes() {
		if hint == tag {
			return tag
		}
	}
	return ""
}

// docID extracts the entity id from a stored document.
func docID(doc store.M) (uuid.UUID, error) {
	raw, ok := doc["_id"].(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("document has no string _id (got %T)", doc["_id"])
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("document _id %q: %w", raw, err)
	}
	return id, nil
}
