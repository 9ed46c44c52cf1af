package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// MarketListCache implements domain.MarketListCache with one JSON string
// per listing under {prefix}:markets:{key}.
type MarketListCache struct {
	c *Client
}

// NewMarketListCache creates a MarketListCache backed by the given Client.
func NewMarketListCache(c *Client) *MarketListCache {
	return &MarketListCache{c: c}
}

// GetMarkets returns domain.ErrNotFound on a miss.
func (mc *MarketListCache) GetMarkets(ctx context.Context, key string) ([]domain.Market, error) {
	data, err := mc.c.rdb.Get(ctx, mc.c.key("markets", key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get markets %s: %w", key, err)
	}
	var ms []domain.Market
	if err := json.Unmarshal(data, &ms); err != nil {
		return nil, fmt.Errorf("redis: unmarshal markets %s: %w", key, err)
	}
	return ms, nil
}

func (mc *MarketListCache) SetMarkets(ctx context.Context, key string, markets []domain.Market, ttl time.Duration) error {
	data, err := json.Marshal(markets)
	if err != nil {
		return fmt.Errorf("redis: marshal markets %s: %w", key, err)
	}
	if err := mc.c.rdb.Set(ctx, mc.c.key("markets", key), data, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set markets %s: %w", key, err)
	}
	return nil
}

func (mc *MarketListCache) Invalidate(ctx context.Context, key string) error {
	if err := mc.c.rdb.Del(ctx, mc.c.key("markets", key)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate markets %s: %w", key, err)
	}
	return nil
}

var _ domain.MarketListCache = (*MarketListCache)(nil)
