package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// QuoteFetcherConfig tunes the per-exchange guard around adapter calls.
type QuoteFetcherConfig struct {
	RatePerSecond   float64
	Burst           int
	Timeout         time.Duration
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// DefaultQuoteFetcherConfig returns conservative defaults.
func DefaultQuoteFetcherConfig() QuoteFetcherConfig {
	return QuoteFetcherConfig{
		RatePerSecond:   10,
		Burst:           5,
		Timeout:         5 * time.Second,
		BreakerFailures: 5,
		BreakerCooldown: 30 * time.Second,
	}
}

type venue struct {
	adapter domain.ExchangeAdapter
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// QuoteFetcher fetches quotes through the exchange adapters, pacing calls
// per exchange and tripping a circuit breaker on repeated failures so one
// sick venue cannot stall a cycle.
type QuoteFetcher struct {
	venues  map[domain.Exchange]*venue
	timeout time.Duration
	logger  *slog.Logger
}

// NewQuoteFetcher creates a fetcher over the given adapters.
func NewQuoteFetcher(adapters []domain.ExchangeAdapter, cfg QuoteFetcherConfig, logger *slog.Logger) *QuoteFetcher {
	def := DefaultQuoteFetcherConfig()
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = def.RatePerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = def.Burst
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = def.BreakerFailures
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = def.BreakerCooldown
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "quote_fetcher"))

	f := &QuoteFetcher{
		venues:  make(map[domain.Exchange]*venue, len(adapters)),
		timeout: cfg.Timeout,
		logger:  logger,
	}
	for _, a := range adapters {
		ex := a.Exchange()
		failures := cfg.BreakerFailures
		f.venues[ex] = &venue{
			adapter: a,
			limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
			breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
				Name:    "quotes:" + string(ex),
				Timeout: cfg.BreakerCooldown,
				ReadyToTrip: func(c gobreaker.Counts) bool {
					return c.ConsecutiveFailures >= failures
				},
				IsSuccessful: func(err error) bool {
					return err == nil || errors.Is(err, context.Canceled)
				},
				OnStateChange: func(name string, from, to gobreaker.State) {
					logger.Warn("quote breaker state changed",
						slog.String("breaker", name),
						slog.String("from", from.String()),
						slog.String("to", to.String()),
					)
				},
			}),
		}
	}
	return f
}

// Fetch returns the current quote for m. Each call has its own timeout.
func (f *QuoteFetcher) Fetch(ctx context.Context, m domain.Market) (domain.Quote, error) {
	v, ok := f.venues[m.Exchange]
	if !ok {
		return domain.Quote{}, fmt.Errorf("scanner: %w", &domain.AdapterError{Exchange: m.Exchange, Op: "quote " + m.ID, Err: domain.ErrNoAdapter})
	}
	if err := v.limiter.Wait(ctx); err != nil {
		return domain.Quote{}, fmt.Errorf("scanner: quote %s/%s: rate wait: %w", m.Exchange, m.ID, err)
	}

	qctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	res, err := v.breaker.Execute(func() (interface{}, error) {
		return v.adapter.GetQuote(qctx, m.ID)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			err = domain.ErrCircuitOpen
		}
		var ae *domain.AdapterError
		if !errors.As(err, &ae) {
			err = &domain.AdapterError{Exchange: m.Exchange, Op: "quote " + m.ID, Err: err}
		}
		return domain.Quote{}, fmt.Errorf("scanner: %w", err)
	}
	q := res.(domain.Quote)
	if q.MarketID == "" {
		q.MarketID = m.ID
	}
	if q.Exchange == "" {
		q.Exchange = m.Exchange
	}
	return q, nil
}

// FetchPair fetches both legs' quotes concurrently.
func (f *QuoteFetcher) FetchPair(ctx context.Context, p domain.CandidatePair) (domain.QuotePair, error) {
	var qp domain.QuotePair
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		q, err := f.Fetch(gctx, p.Market1)
		qp.Quote1 = q
		return err
	})
	g.Go(func() error {
		q, err := f.Fetch(gctx, p.Market2)
		qp.Quote2 = q
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.QuotePair{}, err
	}
	return qp, nil
}
