package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

func TestMarketListCache(t *testing.T) {
	ctx := context.Background()
	c := NewMarketListCache(time.Minute, time.Minute)

	_, err := c.GetMarkets(ctx, "kalshi:x")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	in := []domain.Market{{ID: "KXFED", Exchange: domain.ExchangeKalshi}}
	require.NoError(t, c.SetMarkets(ctx, "kalshi:x", in, 0))
	in[0].ID = "mutated"

	out, err := c.GetMarkets(ctx, "kalshi:x")
	require.NoError(t, err)
	assert.Equal(t, "KXFED", out[0].ID)

	require.NoError(t, c.Invalidate(ctx, "kalshi:x"))
	_, err = c.GetMarkets(ctx, "kalshi:x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMarketListCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMarketListCache(time.Minute, time.Minute)
	require.NoError(t, c.SetMarkets(ctx, "k", []domain.Market{{ID: "a"}}, time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	_, err := c.GetMarkets(ctx, "k")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLockManager(t *testing.T) {
	ctx := context.Background()
	l := NewLockManager()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	unlock, err := l.Acquire(ctx, "scan", time.Minute)
	require.NoError(t, err)
	_, err = l.Acquire(ctx, "scan", time.Minute)
	assert.ErrorIs(t, err, domain.ErrLockHeld)

	unlock()
	unlock()
	unlock2, err := l.Acquire(ctx, "scan", time.Minute)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = l.Acquire(ctx, "scan", time.Minute)
	require.NoError(t, err, "an expired lease can be taken over")

	unlock2()
	_, err = l.Acquire(ctx, "scan", time.Minute)
	assert.ErrorIs(t, err, domain.ErrLockHeld, "a stale unlock must not release the new holder")
}

func TestSignalBusPatternDelivery(t *testing.T) {
	bus := NewSignalBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	all, err := bus.Subscribe(ctx, "opportunities*")
	require.NoError(t, err)
	exact, err := bus.Subscribe(ctx, "scan")
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, "opportunities:kalshi", []byte("a")))
	require.NoError(t, bus.Publish(ctx, "scan", []byte("b")))

	assert.Equal(t, []byte("a"), <-all)
	assert.Equal(t, []byte("b"), <-exact)
	select {
	case msg := <-all:
		t.Fatalf("unexpected message %q", msg)
	default:
	}
}

func TestSignalBusClosesOnCancel(t *testing.T) {
	bus := NewSignalBus()
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := bus.Subscribe(ctx, "x")
	require.NoError(t, err)
	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-ch:
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)

	_, err = bus.Subscribe(context.Background(), "[")
	assert.Error(t, err)
}
