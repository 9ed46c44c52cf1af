package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbscanner/internal/arbitrage"
	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/alanyoungcy/arbscanner/internal/scanner"
)

func discard() *slog.Logger { return slog.New(slog.NewJSONHandler(io.Discard, nil)) }

type memOppStore struct {
	recs []domain.OpportunityRecord
	err  error
}

func (s *memOppStore) InsertBatch(_ context.Context, opps []domain.OpportunityRecord) error {
	if s.err != nil {
		return s.err
	}
	s.recs = append(s.recs, opps...)
	return nil
}

func (s *memOppStore) ListRecent(_ context.Context, limit int) ([]domain.OpportunityRecord, error) {
	if limit > len(s.recs) {
		limit = len(s.recs)
	}
	return s.recs[:limit], nil
}

func (s *memOppStore) ListByPair(_ context.Context, key string, _ domain.ListOpts) ([]domain.OpportunityRecord, error) {
	var out []domain.OpportunityRecord
	for _, r := range s.recs {
		if r.PairKey == key {
			out = append(out, r)
		}
	}
	return out, nil
}

type memBus struct {
	mu   sync.Mutex
	msgs map[string][][]byte
	err  error
}

func (b *memBus) Publish(_ context.Context, ch string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	if b.msgs == nil {
		b.msgs = make(map[string][][]byte)
	}
	b.msgs[ch] = append(b.msgs[ch], payload)
	return nil
}

func (b *memBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, errors.New("not supported")
}

type memAudit struct{ events []string }

func (a *memAudit) Log(_ context.Context, event string, _ map[string]any) error {
	a.events = append(a.events, event)
	return nil
}

func (a *memAudit) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

type memNotifier struct{ titles []string }

func (n *memNotifier) Notify(_ context.Context, _, title, _ string) error {
	n.titles = append(n.titles, title)
	return nil
}

type memArchiver struct{ cycles []string }

func (a *memArchiver) ArchiveCycle(_ context.Context, s domain.ScanSummary, _ []domain.OpportunityRecord) (string, error) {
	a.cycles = append(a.cycles, s.CycleID)
	return "scans/" + s.CycleID + ".json", nil
}

func opportunity(id string, profit float64, valid bool) arbitrage.Opportunity {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return arbitrage.Opportunity{
		ID: id,
		Pair: domain.CandidatePair{
			Market1: domain.Market{ID: "K-" + id, Exchange: domain.ExchangeKalshi},
			Market2: domain.Market{ID: "P-" + id, Exchange: domain.ExchangePolymarket},
		},
		Direction:     arbitrage.DirectionYesNo,
		TotalCost:     0.92,
		NetArbitrage:  0.06,
		ProfitPercent: profit,
		MaxSize:       270,
		Valid:         valid,
		DetectedAt:    now,
		ExpiresAt:     now.Add(30 * time.Second),
	}
}

func result(opps ...arbitrage.Opportunity) scanner.ScanResult {
	return scanner.ScanResult{
		CycleID:       "cycle-1",
		Evaluated:     4,
		Rejections:    map[string]int{"validation/year_mismatch": 1},
		Opportunities: opps,
	}
}

func TestPublishFansOut(t *testing.T) {
	store := &memOppStore{}
	bus := &memBus{}
	audit := &memAudit{}
	notifier := &memNotifier{}
	archiver := &memArchiver{}
	svc := NewOpportunityService(store, bus, audit, notifier, archiver,
		OpportunityConfig{NotifyMinProfitPercent: 2}, discard())

	err := svc.Publish(context.Background(), result(
		opportunity("a", 6.5, true),
		opportunity("b", 1.0, true),
		opportunity("c", 9.0, false),
	))
	require.NoError(t, err)

	require.Len(t, store.recs, 3)
	assert.Equal(t, "cycle-1", store.recs[0].CycleID)
	assert.Len(t, bus.msgs[OpportunityChannel], 3)

	var evt OpportunityEvent
	require.NoError(t, json.Unmarshal(bus.msgs[OpportunityChannel][0], &evt))
	assert.Equal(t, "opportunity_detected", evt.Event)
	assert.Equal(t, "a", evt.ID)
	assert.Equal(t, "YES1_NO2", evt.Direction)

	assert.Equal(t, []string{"scan_cycle"}, audit.events)
	assert.Equal(t, []string{"cycle-1"}, archiver.cycles)
	require.Len(t, notifier.titles, 1, "only valid opportunities above the threshold notify")
	assert.Contains(t, notifier.titles[0], "6.50%")
}

func TestPublishStoreFailureIsFatal(t *testing.T) {
	bus := &memBus{}
	svc := NewOpportunityService(&memOppStore{err: errors.New("db down")}, bus, nil, nil, nil, OpportunityConfig{}, discard())
	err := svc.Publish(context.Background(), result(opportunity("a", 5, true)))
	assert.Error(t, err)
	assert.Empty(t, bus.msgs)
}

func TestPublishToleratesBusFailure(t *testing.T) {
	store := &memOppStore{}
	audit := &memAudit{}
	svc := NewOpportunityService(store, &memBus{err: errors.New("redis down")}, audit, nil, nil, OpportunityConfig{}, discard())
	require.NoError(t, svc.Publish(context.Background(), result(opportunity("a", 5, true))))
	assert.Len(t, store.recs, 1)
	assert.Len(t, audit.events, 1)
}

func TestPublishWithoutCollaborators(t *testing.T) {
	svc := NewOpportunityService(nil, nil, nil, nil, nil, OpportunityConfig{}, discard())
	require.NoError(t, svc.Publish(context.Background(), result(opportunity("a", 5, true))))
	recs, err := svc.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestListByPair(t *testing.T) {
	store := &memOppStore{}
	svc := NewOpportunityService(store, nil, nil, nil, nil, OpportunityConfig{}, discard())
	a := opportunity("a", 5, true)
	require.NoError(t, svc.Publish(context.Background(), result(a, opportunity("b", 3, true))))

	recs, err := svc.ListByPair(context.Background(), a.PairKey(), domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "a", recs[0].ID)

	recent, err := svc.ListRecent(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

type countingAdapter struct {
	ex      domain.Exchange
	markets []domain.Market
	calls   int
	err     error
}

func (a *countingAdapter) Exchange() domain.Exchange { return a.ex }

func (a *countingAdapter) GetMarkets(context.Context, domain.MarketFilter) ([]domain.Market, error) {
	a.calls++
	return a.markets, a.err
}

func (a *countingAdapter) GetQuote(context.Context, string) (domain.Quote, error) {
	return domain.Quote{}, domain.ErrQuoteUnavailable
}

type mapCache struct {
	data   map[string][]domain.Market
	setErr error
}

func (c *mapCache) GetMarkets(_ context.Context, key string) ([]domain.Market, error) {
	ms, ok := c.data[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return ms, nil
}

func (c *mapCache) SetMarkets(_ context.Context, key string, ms []domain.Market, _ time.Duration) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.data[key] = ms
	return nil
}

func (c *mapCache) Invalidate(_ context.Context, key string) error {
	delete(c.data, key)
	return nil
}

func TestMarketsReadThrough(t *testing.T) {
	adapter := &countingAdapter{ex: domain.ExchangeKalshi, markets: []domain.Market{{ID: "KXFED", Exchange: domain.ExchangeKalshi}}}
	cache := &mapCache{data: map[string][]domain.Market{}}
	svc := NewMarketService([]domain.ExchangeAdapter{adapter}, cache, time.Minute, discard())
	ctx := context.Background()

	f1 := domain.MarketFilter{IDs: []string{"b", "a"}}
	f2 := domain.MarketFilter{IDs: []string{"a", "b"}}

	ms, err := svc.Markets(ctx, domain.ExchangeKalshi, f1)
	require.NoError(t, err)
	assert.Len(t, ms, 1)
	_, err = svc.Markets(ctx, domain.ExchangeKalshi, f2)
	require.NoError(t, err)
	assert.Equal(t, 1, adapter.calls, "equal filters share a cache entry")

	require.NoError(t, svc.Invalidate(ctx, domain.ExchangeKalshi, f1))
	_, err = svc.Markets(ctx, domain.ExchangeKalshi, f1)
	require.NoError(t, err)
	assert.Equal(t, 2, adapter.calls)
}

func TestMarketsErrors(t *testing.T) {
	adapter := &countingAdapter{ex: domain.ExchangeKalshi, err: domain.ErrRateLimited}
	svc := NewMarketService([]domain.ExchangeAdapter{adapter}, nil, 0, discard())

	_, err := svc.Markets(context.Background(), domain.ExchangePolymarket, domain.MarketFilter{})
	assert.ErrorIs(t, err, domain.ErrNoAdapter)

	_, err = svc.Markets(context.Background(), domain.ExchangeKalshi, domain.MarketFilter{})
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestMarketsCacheWriteFailureIsSoft(t *testing.T) {
	adapter := &countingAdapter{ex: domain.ExchangeKalshi, markets: []domain.Market{{ID: "KXFED"}}}
	cache := &mapCache{data: map[string][]domain.Market{}, setErr: errors.New("full")}
	svc := NewMarketService([]domain.ExchangeAdapter{adapter}, cache, time.Minute, discard())
	ms, err := svc.Markets(context.Background(), domain.ExchangeKalshi, domain.MarketFilter{})
	require.NoError(t, err)
	assert.Len(t, ms, 1)
}
