package domain

import (
	"context"
	"time"
)

// MarketListCache holds short-lived snapshots of per-exchange market lists.
// Get returns ErrNotFound on a miss.
type MarketListCache interface {
	GetMarkets(ctx context.Context, key string) ([]Market, error)
	SetMarkets(ctx context.Context, key string, markets []Market, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// SignalBus provides pub/sub fan-out of events.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
