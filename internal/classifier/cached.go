package classifier

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachedAssets wraps a Classifier with TTL memoization of asset answers, so
// repeated imports mentioning the same asset name do not re-pay the network
// call. Column-mapping calls are not memoized here; they go through the
// persistent mapping cache instead.
type CachedAssets struct {
	inner Classifier
	cache *gocache.Cache
}

// NewCachedAssets wraps inner with an in-process asset-answer cache.
func NewCachedAssets(inner Classifier, ttl time.Duration) *CachedAssets {
	return &CachedAssets{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

// MapColumns delegates to the wrapped classifier.
func (c *CachedAssets) MapColumns(ctx context.Context, req ColumnMappingRequest) (map[string]string, error) {
	return c.inner.MapColumns(ctx, req)
}

// ClassifyAsset returns a memoized answer when available. Only positive
// answers are cached: a transient failure should not pin "no answer".
func (c *CachedAssets) ClassifyAsset(ctx context.Context, assetName string, validTypes []string) (*AssetAnswer, error) {
	if hit, ok := c.cache.Get(assetName); ok {
		return hit.(*AssetAnswer), nil
	}
	answer, err := c.inner.ClassifyAsset(ctx, assetName, validTypes)
	if err != nil {
		return nil, err
	}
	c.cache.Set(assetName, answer, gocache.DefaultExpiration)
	return answer, nil
}
