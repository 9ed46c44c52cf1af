package scanner

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/alanyoungcy/arbscanner/internal/matching"
)

type fixedSource struct {
	pairs []domain.CandidatePair
	err   error
}

func (f fixedSource) Pairs(context.Context) ([]domain.CandidatePair, error) { return f.pairs, f.err }

type recordingSink struct {
	mu      sync.Mutex
	results []ScanResult
}

func (s *recordingSink) Publish(_ context.Context, res ScanResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, res)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.results)
}

type heldLock struct{}

func (heldLock) Acquire(context.Context, string, time.Duration) (func(), error) {
	return nil, domain.ErrLockHeld
}

type countingLock struct {
	acquired, released int
}

func (l *countingLock) Acquire(context.Context, string, time.Duration) (func(), error) {
	l.acquired++
	return func() { l.released++ }, nil
}

func TestParseSchedule(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s, err := ParseSchedule(RunnerConfig{Interval: 30 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, now.Add(30*time.Second), s.Next(now))

	s, err = ParseSchedule(RunnerConfig{Interval: time.Minute, Cron: "*/5 * * * *"})
	require.NoError(t, err)
	assert.Equal(t, now.Add(5*time.Minute), s.Next(now))

	_, err = ParseSchedule(RunnerConfig{Cron: "not a cron"})
	assert.Error(t, err)
	_, err = ParseSchedule(RunnerConfig{})
	assert.Error(t, err)
}

func TestRunOnceSupersedesLatest(t *testing.T) {
	s, _, _ := scanFixture(t)
	good := btcPair("KXBTCY-25DEC31", "btc-100k-2025", "Coinbase", "Coinbase")
	sink := &recordingSink{}
	lock := &countingLock{}

	r, err := NewRunner(RunnerConfig{Interval: time.Minute}, s, fixedSource{pairs: []domain.CandidatePair{good}}, sink, lock, discard())
	require.NoError(t, err)

	_, ok := r.Latest()
	assert.False(t, ok)

	first, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, first.Opportunities, 1)

	second, err := r.RunOnce(context.Background())
	require.NoError(t, err)

	latest, ok := r.Latest()
	require.True(t, ok)
	assert.Equal(t, second.CycleID, latest.CycleID)
	assert.NotEqual(t, first.CycleID, latest.CycleID)
	assert.Equal(t, 2, sink.count())
	assert.Equal(t, 2, lock.acquired)
	assert.Equal(t, 2, lock.released)
}

func TestRunOnceGuards(t *testing.T) {
	s, _, _ := scanFixture(t)

	r, err := NewRunner(RunnerConfig{Interval: time.Minute}, s, fixedSource{}, nil, heldLock{}, discard())
	require.NoError(t, err)
	_, err = r.RunOnce(context.Background())
	assert.ErrorIs(t, err, domain.ErrLockHeld)

	r, err = NewRunner(RunnerConfig{Interval: time.Minute}, s, fixedSource{}, nil, nil, discard())
	require.NoError(t, err)
	r.running.Store(true)
	_, err = r.RunOnce(context.Background())
	assert.ErrorIs(t, err, ErrCycleRunning)
	r.running.Store(false)

	r, err = NewRunner(RunnerConfig{Interval: time.Minute}, s, fixedSource{err: errors.New("db down")}, nil, nil, discard())
	require.NoError(t, err)
	_, err = r.RunOnce(context.Background())
	assert.Error(t, err)
	_, ok := r.Latest()
	assert.False(t, ok)
}

func TestNewRunnerDefaultsLogger(t *testing.T) {
	s, _, _ := scanFixture(t)
	good := btcPair("KXBTCY-25DEC31", "btc-100k-2025", "Coinbase", "Coinbase")

	var r *Runner
	var err error
	require.NotPanics(t, func() {
		r, err = NewRunner(RunnerConfig{Interval: time.Minute}, s, fixedSource{pairs: []domain.CandidatePair{good}}, nil, nil, nil)
	})
	require.NoError(t, err)
	res, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Opportunities, 1)
}

func TestRunStopsOnCancel(t *testing.T) {
	s, _, _ := scanFixture(t)
	good := btcPair("KXBTCY-25DEC31", "btc-100k-2025", "Coinbase", "Coinbase")
	sink := &recordingSink{}
	r, err := NewRunner(RunnerConfig{Interval: time.Hour, RunOnStart: true}, s,
		fixedSource{pairs: []domain.CandidatePair{good}}, sink, nil, discard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return sink.count() == 1 }, 5*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("runner did not stop")
	}
	_, ok := r.Latest()
	assert.True(t, ok)
}

type stubLister struct {
	adapters map[domain.Exchange]*stubAdapter
	failing  map[domain.Exchange]bool
}

func (l stubLister) Markets(ctx context.Context, ex domain.Exchange, f domain.MarketFilter) ([]domain.Market, error) {
	if l.failing[ex] {
		return nil, domain.ErrMarketUnavailable
	}
	a, ok := l.adapters[ex]
	if !ok {
		return nil, domain.ErrNoAdapter
	}
	return a.GetMarkets(ctx, f)
}

func listerFixture() stubLister {
	good := btcPair("KXBTCY-25DEC31", "btc-100k-2025", "Coinbase", "Coinbase")
	kalshi := newStubAdapter(domain.ExchangeKalshi)
	poly := newStubAdapter(domain.ExchangePolymarket)
	kalshi.markets = []domain.Market{good.Market1,
		{ID: "KXFED-26MAR", Exchange: domain.ExchangeKalshi, Title: "Will the Fed cut rates in March 2026?"}}
	poly.markets = []domain.Market{good.Market2,
		{ID: "lakers-title", Exchange: domain.ExchangePolymarket, Title: "Will the Lakers win the NBA title?"}}
	return stubLister{
		adapters: map[domain.Exchange]*stubAdapter{domain.ExchangeKalshi: kalshi, domain.ExchangePolymarket: poly},
		failing:  map[domain.Exchange]bool{},
	}
}

func TestStaticPairSource(t *testing.T) {
	lister := listerFixture()
	src := NewStaticPairSource([]PairRef{
		{Exchange1: domain.ExchangeKalshi, MarketID1: "KXBTCY-25DEC31", Exchange2: domain.ExchangePolymarket, MarketID2: "btc-100k-2025"},
		{Exchange1: domain.ExchangeKalshi, MarketID1: "missing", Exchange2: domain.ExchangePolymarket, MarketID2: "btc-100k-2025"},
	}, lister, discard())

	pairs, err := src.Pairs(context.Background())
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, btcTitle, pairs[0].Market1.Title)

	lister.failing[domain.ExchangeKalshi] = true
	lister.failing[domain.ExchangePolymarket] = true
	_, err = src.Pairs(context.Background())
	assert.ErrorIs(t, err, domain.ErrMarketUnavailable)
}

type memPairStore struct{ recs []domain.MarketPairRecord }

func (s *memPairStore) Upsert(_ context.Context, p domain.MarketPairRecord) error {
	s.recs = append(s.recs, p)
	return nil
}
func (s *memPairStore) ListActive(context.Context) ([]domain.MarketPairRecord, error) {
	return s.recs, nil
}
func (s *memPairStore) Deactivate(context.Context, string) error { return nil }

func TestStoreAndMultiPairSource(t *testing.T) {
	lister := listerFixture()
	store := &memPairStore{}
	require.NoError(t, store.Upsert(context.Background(), domain.MarketPairRecord{
		Exchange1: domain.ExchangeKalshi, MarketID1: "KXBTCY-25DEC31",
		Exchange2: domain.ExchangePolymarket, MarketID2: "btc-100k-2025", Active: true,
	}))
	fromStore := NewStorePairSource(store, lister, discard())
	matcher := NewMatcherPairSource(lister, matching.NewCandidateMatcher(matching.CandidateMatcherConfig{}),
		[]domain.Exchange{domain.ExchangeKalshi, domain.ExchangePolymarket}, domain.MarketFilter{}, discard())

	live, err := matcher.Pairs(context.Background())
	require.NoError(t, err)
	require.Len(t, live, 1)

	multi := NewMultiPairSource(discard(), fromStore, matcher, fixedSource{err: errors.New("broken")})
	pairs, err := multi.Pairs(context.Background())
	require.NoError(t, err)
	assert.Len(t, pairs, 1, "the stored and discovered pair are the same pair")
}
