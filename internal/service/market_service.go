package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/alanyoungcy/arbscanner/internal/scanner"
)

// MarketService lists exchange markets through a short-lived cache so
// several pair sources in one cycle share a single adapter call.
type MarketService struct {
	adapters map[domain.Exchange]domain.ExchangeAdapter
	cache    domain.MarketListCache
	ttl      time.Duration
	logger   *slog.Logger
}

// NewMarketService creates a MarketService. cache may be nil.
func NewMarketService(
	adapters []domain.ExchangeAdapter,
	cache domain.MarketListCache,
	ttl time.Duration,
	logger *slog.Logger,
) *MarketService {
	byEx := make(map[domain.Exchange]domain.ExchangeAdapter, len(adapters))
	for _, a := range adapters {
		byEx[a.Exchange()] = a
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &MarketService{
		adapters: byEx,
		cache:    cache,
		ttl:      ttl,
		logger:   logger.With(slog.String("component", "market_service")),
	}
}

var _ scanner.MarketLister = (*MarketService)(nil)

// Markets returns the exchange's markets matching filter, checking the cache
// first and back-filling it from the adapter on a miss.
func (s *MarketService) Markets(ctx context.Context, ex domain.Exchange, filter domain.MarketFilter) ([]domain.Market, error) {
	adapter, ok := s.adapters[ex]
	if !ok {
		return nil, fmt.Errorf("market_service: %w", &domain.AdapterError{Exchange: ex, Op: "list markets", Err: domain.ErrNoAdapter})
	}

	key := marketListKey(ex, filter)
	if s.cache != nil {
		ms, err := s.cache.GetMarkets(ctx, key)
		if err == nil {
			return ms, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.WarnContext(ctx, "market_service: cache get failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}

	ms, err := adapter.GetMarkets(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("market_service: list %s markets: %w", ex, err)
	}

	if s.cache != nil {
		if err := s.cache.SetMarkets(ctx, key, ms, s.ttl); err != nil {
			s.logger.WarnContext(ctx, "market_service: cache set failed",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
		}
	}
	s.logger.DebugContext(ctx, "market_service: listed markets",
		slog.String("exchange", string(ex)),
		slog.Int("count", len(ms)),
	)
	return ms, nil
}

// Invalidate drops the cached listing for ex and filter.
func (s *MarketService) Invalidate(ctx context.Context, ex domain.Exchange, filter domain.MarketFilter) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Invalidate(ctx, marketListKey(ex, filter)); err != nil {
		return fmt.Errorf("market_service: invalidate: %w", err)
	}
	return nil
}

// marketListKey is stable for equal filters regardless of ID order.
func marketListKey(ex domain.Exchange, f domain.MarketFilter) string {
	ids := append([]string(nil), f.IDs...)
	sort.Strings(ids)
	raw := strings.Join([]string{
		f.Category, f.Status, strconv.Itoa(f.Limit), strings.Join(ids, ","),
	}, "|")
	sum := sha1.Sum([]byte(raw))
	return string(ex) + ":" + hex.EncodeToString(sum[:8])
}
