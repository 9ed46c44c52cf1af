// Package scanner runs candidate pairs through matching, validation and
// pricing, one bounded-concurrency cycle at a time.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbscanner/internal/arbitrage"
	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/alanyoungcy/arbscanner/internal/matching"
	"github.com/alanyoungcy/arbscanner/internal/metrics"
	"github.com/alanyoungcy/arbscanner/internal/resolution"
	"github.com/alanyoungcy/arbscanner/internal/validation"
)

// Config tunes a scan cycle.
type Config struct {
	// Concurrency is the maximum number of pairs evaluated at once.
	Concurrency  int
	CycleTimeout time.Duration
	// MinMatchScore rejects pairs scoring below it (0-100).
	MinMatchScore float64
	// DominanceRatio is the share of evaluated pairs one rejection category
	// must reach before the cycle is reported as dominated by it.
	DominanceRatio    float64
	DominanceMinPairs int
}

// DefaultConfig returns the scan defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:       5,
		CycleTimeout:      2 * time.Minute,
		MinMatchScore:     60,
		DominanceRatio:    0.8,
		DominanceMinPairs: 5,
	}
}

// Deps are the pipeline components a Scanner drives.
type Deps struct {
	Features   *matching.FeatureExtractor
	Validator  *validation.TieredValidator
	Scorer     *matching.MatchScorer
	Aligner    *resolution.Aligner
	Calculator *arbitrage.Calculator
	Quotes     *QuoteFetcher
	Fees       arbitrage.FeeStructure
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
}

// Scanner evaluates candidate pairs. Matching and pricing are pure; the only
// I/O is quote fetching.
type Scanner struct {
	cfg       Config
	features  *matching.FeatureExtractor
	validator *validation.TieredValidator
	scorer    *matching.MatchScorer
	aligner   *resolution.Aligner
	calc      *arbitrage.Calculator
	quotes    *QuoteFetcher
	fees      arbitrage.FeeStructure
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a Scanner. Nil pipeline components get their defaults; Quotes
// is required for Scan but not for EvaluatePair.
func New(cfg Config, deps Deps) *Scanner {
	def := DefaultConfig()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.CycleTimeout <= 0 {
		cfg.CycleTimeout = def.CycleTimeout
	}
	if cfg.DominanceRatio <= 0 || cfg.DominanceRatio > 1 {
		cfg.DominanceRatio = def.DominanceRatio
	}
	if cfg.DominanceMinPairs <= 0 {
		cfg.DominanceMinPairs = def.DominanceMinPairs
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scanner{
		cfg:       cfg,
		features:  deps.Features,
		validator: deps.Validator,
		scorer:    deps.Scorer,
		aligner:   deps.Aligner,
		calc:      deps.Calculator,
		quotes:    deps.Quotes,
		fees:      deps.Fees,
		metrics:   deps.Metrics,
		logger:    logger.With(slog.String("component", "scanner")),
		now:       time.Now,
	}
	if s.features == nil {
		s.features = matching.NewFeatureExtractor(nil, logger)
	}
	if s.validator == nil {
		s.validator = validation.NewTieredValidator(validation.TierConfig{MaxTier: validation.TierSemanticFrame}, nil, nil, nil, logger)
	}
	if s.scorer == nil {
		s.scorer = matching.NewMatchScorer(nil, nil, logger)
	}
	if s.aligner == nil {
		s.aligner = resolution.NewAligner(logger)
	}
	if s.calc == nil {
		s.calc = arbitrage.NewCalculator(arbitrage.DefaultConfig(), logger)
	}
	if s.fees == nil {
		s.fees = arbitrage.DefaultFeeStructure()
	}
	return s
}

// ScanResult is the outcome of one cycle. Opportunities are deduplicated
// by pair and sorted by profit, best first.
type ScanResult struct {
	CycleID       string                  `json:"cycle_id"`
	StartedAt     time.Time               `json:"started_at"`
	Duration      time.Duration           `json:"duration"`
	Pairs         int                     `json:"pairs"`
	Evaluated     int                     `json:"evaluated"`
	Failures      int                     `json:"failures"`
	TimedOut      int                     `json:"timed_out"`
	Rejections    map[string]int          `json:"rejections"`
	Opportunities []arbitrage.Opportunity `json:"opportunities"`
}

// Summary is the persisted outline of the cycle.
func (r ScanResult) Summary() domain.ScanSummary {
	return domain.ScanSummary{
		CycleID:       r.CycleID,
		StartedAt:     r.StartedAt,
		Duration:      r.Duration,
		Evaluated:     r.Evaluated,
		Opportunities: len(r.Opportunities),
		Failures:      r.Failures,
		TimedOut:      r.TimedOut,
		Rejections:    r.Rejections,
	}
}

// Dominant returns the rejection key accounting for at least ratio of the
// evaluated pairs, if any.
func (r ScanResult) Dominant(ratio float64, minPairs int) (string, int, bool) {
	if r.Evaluated < minPairs || r.Evaluated == 0 {
		return "", 0, false
	}
	keys := make([]string, 0, len(r.Rejections))
	for k := range r.Rejections {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		n := r.Rejections[k]
		if float64(n) >= ratio*float64(r.Evaluated) {
			return k, n, true
		}
	}
	return "", 0, false
}

type pairOutcome struct {
	eval     Evaluation
	failed   bool
	timedOut bool
}

// Scan evaluates every pair under the concurrency limit and the cycle
// timeout. A pair that fails to quote or panics is logged and skipped; it
// never aborts the cycle.
func (s *Scanner) Scan(ctx context.Context, pairs []domain.CandidatePair) ScanResult {
	res := ScanResult{
		CycleID:    uuid.NewString(),
		StartedAt:  s.now(),
		Pairs:      len(pairs),
		Rejections: make(map[string]int),
	}
	cycleCtx, cancel := context.WithTimeout(ctx, s.cfg.CycleTimeout)
	defer cancel()

	best := make(map[string]arbitrage.Opportunity)
	var mu sync.Mutex
	collect := func(p domain.CandidatePair, out pairOutcome) {
		mu.Lock()
		defer mu.Unlock()
		switch {
		case out.timedOut:
			res.TimedOut++
			return
		case out.failed:
			res.Failures++
			return
		}
		res.Evaluated++
		s.metrics.PairEvaluated()
		if r := out.eval.Rejected; r != nil {
			res.Rejections[r.Key()]++
			s.metrics.PairRejected(string(r.Stage), r.Category)
			return
		}
		if o := out.eval.Opportunity; o != nil {
			key := p.Key()
			if prev, ok := best[key]; !ok || o.NetArbitrage > prev.NetArbitrage {
				best[key] = *o
			}
		}
	}

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for _, p := range pairs {
		if cycleCtx.Err() != nil {
			collect(p, pairOutcome{timedOut: true})
			continue
		}
		g.Go(func() error {
			collect(p, s.scanPair(cycleCtx, p))
			return nil
		})
	}
	_ = g.Wait()

	res.Opportunities = make([]arbitrage.Opportunity, 0, len(best))
	for _, o := range best {
		res.Opportunities = append(res.Opportunities, o)
		s.metrics.OpportunityFound()
	}
	sort.Slice(res.Opportunities, func(i, j int) bool {
		a, b := res.Opportunities[i], res.Opportunities[j]
		if a.ProfitPercent != b.ProfitPercent {
			return a.ProfitPercent > b.ProfitPercent
		}
		return a.TotalCost < b.TotalCost
	})
	res.Duration = s.now().Sub(res.StartedAt)

	outcome := "ok"
	if cycleCtx.Err() != nil && ctx.Err() == nil {
		outcome = "timeout"
	}
	s.metrics.CycleFinished(outcome, len(pairs), res.Duration)
	s.logSummary(res)
	return res
}

// scanPair matches the pair, fetches quotes only for survivors, and prices.
func (s *Scanner) scanPair(ctx context.Context, p domain.CandidatePair) (out pairOutcome) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("pair evaluation panicked",
				slog.String("pair", p.Key()),
				slog.String("panic", fmt.Sprint(r)),
			)
			out = pairOutcome{failed: true}
		}
	}()

	ev, ok := s.match(ctx, p.Market1, p.Market2)
	if !ok {
		s.logRejection(p, ev.Rejected)
		return pairOutcome{eval: ev}
	}
	if s.quotes == nil {
		s.logger.Warn("no quote fetcher configured", slog.String("pair", p.Key()))
		return pairOutcome{failed: true}
	}
	quotes, err := s.quotes.FetchPair(ctx, p)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, context.DeadlineExceeded) {
			return pairOutcome{timedOut: true}
		}
		var ae *domain.AdapterError
		exchange := "unknown"
		if errors.As(err, &ae) {
			exchange = string(ae.Exchange)
		}
		s.metrics.QuoteFailed(exchange)
		s.logger.Warn("quote fetch failed",
			slog.String("pair", p.Key()),
			slog.String("error", err.Error()),
		)
		return pairOutcome{failed: true}
	}

	ev = s.price(ev, quotes, nil)
	if ev.Rejected != nil {
		s.logRejection(p, ev.Rejected)
	}
	return pairOutcome{eval: ev}
}

func (s *Scanner) logSummary(res ScanResult) {
	s.logger.Info("scan cycle finished",
		slog.String("cycle_id", res.CycleID),
		slog.Int("pairs", res.Pairs),
		slog.Int("evaluated", res.Evaluated),
		slog.Int("opportunities", len(res.Opportunities)),
		slog.Int("failures", res.Failures),
		slog.Int("timed_out", res.TimedOut),
		slog.Any("rejections", res.Rejections),
		slog.Duration("duration", res.Duration),
	)
	if key, n, ok := res.Dominant(s.cfg.DominanceRatio, s.cfg.DominanceMinPairs); ok {
		s.logger.Warn("scan dominated by one rejection category",
			slog.String("cycle_id", res.CycleID),
			slog.String("category", key),
			slog.Int("rejected", n),
			slog.Int("evaluated", res.Evaluated),
		)
	}
}
