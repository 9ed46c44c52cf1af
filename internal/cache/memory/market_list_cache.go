// Package memory implements the domain cache interfaces in process, for
// single-instance deployments without Redis.
package memory

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// MarketListCache implements domain.MarketListCache on go-cache.
type MarketListCache struct {
	cache *gocache.Cache
}

// NewMarketListCache creates a cache whose entries default to defaultTTL and
// are swept every cleanupInterval.
func NewMarketListCache(defaultTTL, cleanupInterval time.Duration) *MarketListCache {
	return &MarketListCache{cache: gocache.New(defaultTTL, cleanupInterval)}
}

// GetMarkets returns domain.ErrNotFound on a miss or expiry. The returned
// slice is a copy.
func (c *MarketListCache) GetMarkets(_ context.Context, key string) ([]domain.Market, error) {
	v, found := c.cache.Get(key)
	if !found {
		return nil, domain.ErrNotFound
	}
	ms := v.([]domain.Market)
	return append([]domain.Market(nil), ms...), nil
}

// SetMarkets stores a copy of markets. A zero ttl uses the cache default.
func (c *MarketListCache) SetMarkets(_ context.Context, key string, markets []domain.Market, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	c.cache.Set(key, append([]domain.Market(nil), markets...), ttl)
	return nil
}

func (c *MarketListCache) Invalidate(_ context.Context, key string) error {
	c.cache.Delete(key)
	return nil
}

var _ domain.MarketListCache = (*MarketListCache)(nil)
