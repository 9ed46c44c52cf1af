package app

import (
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/arbscanner/internal/arbitrage"
	"github.com/alanyoungcy/arbscanner/internal/config"
	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/alanyoungcy/arbscanner/internal/matching"
	"github.com/alanyoungcy/arbscanner/internal/metrics"
	"github.com/alanyoungcy/arbscanner/internal/resolution"
	"github.com/alanyoungcy/arbscanner/internal/scanner"
	"github.com/alanyoungcy/arbscanner/internal/service"
	"github.com/alanyoungcy/arbscanner/internal/validation"
)

// Pipeline is the assembled scanner with its sources and sink.
type Pipeline struct {
	Scanner       *scanner.Scanner
	Runner        *scanner.Runner
	Markets       *service.MarketService
	Opportunities *service.OpportunityService
}

// NewScanner builds the matching and pricing pipeline. quotes and m may be
// nil for offline evaluation.
func NewScanner(
	cfg *config.Config,
	similarity domain.SimilarityProvider,
	quotes *scanner.QuoteFetcher,
	m *metrics.Metrics,
	logger *slog.Logger,
) (*scanner.Scanner, error) {
	model := matching.DefaultLogisticModel()
	if cfg.Matching.WeightsPath != "" {
		loaded, err := matching.LoadModelWeights(cfg.Matching.WeightsPath)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		model = loaded
	}

	fees, err := feeStructure(cfg.Fees)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	blockers := validation.NewHardBlockerValidator(validation.DefaultBlockers(), logger)
	validator := validation.NewTieredValidator(validation.TierConfig{
		MaxTier:           cfg.Validation.MaxTier,
		SkipQuickFilter:   cfg.Validation.SkipQuickFilter,
		SkipEntityMatch:   cfg.Validation.SkipEntityMatch,
		SkipSemanticFrame: cfg.Validation.SkipSemanticFrame,
	}, blockers, nil, nil, logger)

	calc := arbitrage.NewCalculator(arbitrage.Config{
		SafetyMargin:               cfg.Arbitrage.SafetyMargin,
		MinProfitPercent:           cfg.Arbitrage.MinProfitPercent,
		MaxPositionSize:            cfg.Arbitrage.MaxPositionSize,
		TTL:                        cfg.Arbitrage.TTL.Duration,
		DisableResolutionFiltering: cfg.Resolution.DisableFiltering,
	}, logger)

	return scanner.New(scanner.Config{
		Concurrency:       cfg.Scanner.Concurrency,
		CycleTimeout:      cfg.Scanner.CycleTimeout.Duration,
		MinMatchScore:     cfg.Scanner.MinMatchScore,
		DominanceRatio:    cfg.Scanner.DominanceRatio,
		DominanceMinPairs: cfg.Scanner.DominanceMinPairs,
	}, scanner.Deps{
		Features:   matching.NewFeatureExtractor(similarity, logger),
		Validator:  validator,
		Scorer:     matching.NewMatchScorer(matching.DefaultStrategyRegistry(), model, logger),
		Aligner:    resolution.NewAligner(logger),
		Calculator: calc,
		Quotes:     quotes,
		Fees:       fees,
		Metrics:    m,
		Logger:     logger,
	}), nil
}

func feeStructure(fees map[string]config.FeeConfig) (arbitrage.FeeStructure, error) {
	specs := make(map[string]arbitrage.FeeSpec, len(fees))
	for name, f := range fees {
		specs[name] = arbitrage.FeeSpec{Model: f.Model, Flat: f.Flat, Percent: f.Percent}
	}
	return arbitrage.NewFeeStructure(specs)
}

// NewPipeline assembles the scheduled scanner on top of deps.
func NewPipeline(cfg *config.Config, deps *Dependencies, logger *slog.Logger) (*Pipeline, error) {
	q := cfg.Scanner.Quotes
	quotes := scanner.NewQuoteFetcher(deps.Adapters, scanner.QuoteFetcherConfig{
		RatePerSecond:   q.RatePerSecond,
		Burst:           q.Burst,
		Timeout:         q.Timeout.Duration,
		BreakerFailures: q.BreakerFailures,
		BreakerCooldown: q.BreakerCooldown.Duration,
	}, logger)

	sc, err := NewScanner(cfg, deps.Similarity, quotes, deps.Metrics, logger)
	if err != nil {
		return nil, err
	}

	markets := service.NewMarketService(deps.Adapters, deps.MarketCache, cfg.Scanner.MarketCacheTTL.Duration, logger)

	source, err := pairSource(cfg, deps, markets, logger)
	if err != nil {
		return nil, err
	}

	// Typed nils must not reach the service's interface fields.
	var audit domain.AuditStore
	if deps.Audit != nil {
		audit = deps.Audit
	}
	var archiver service.CycleArchiver
	if deps.Archiver != nil {
		archiver = deps.Archiver
	}
	opps := service.NewOpportunityService(deps.Opportunities, deps.SignalBus, audit, deps.Notifier, archiver,
		service.OpportunityConfig{NotifyMinProfitPercent: cfg.Notify.MinProfitPercent}, logger)

	runner, err := scanner.NewRunner(scanner.RunnerConfig{
		Interval:   cfg.Scanner.Interval.Duration,
		Cron:       cfg.Scanner.Cron,
		RunOnStart: cfg.Scanner.RunOnStart,
		LockKey:    "arbscanner:scan",
		LockTTL:    cfg.Scanner.LockTTL.Duration,
	}, sc, source, opps, deps.LockManager, logger)
	if err != nil {
		return nil, fmt.Errorf("app: %w", err)
	}

	return &Pipeline{Scanner: sc, Runner: runner, Markets: markets, Opportunities: opps}, nil
}

// pairSource combines the configured pairs, the stored curated pairs and
// live discovery, whichever are available.
func pairSource(cfg *config.Config, deps *Dependencies, markets *service.MarketService, logger *slog.Logger) (scanner.PairSource, error) {
	var sources []scanner.PairSource

	if len(cfg.Pairs) > 0 {
		refs, err := parsePairs(cfg.Pairs)
		if err != nil {
			return nil, err
		}
		sources = append(sources, scanner.NewStaticPairSource(refs, markets, logger))
	}
	if deps.Pairs != nil {
		sources = append(sources, scanner.NewStorePairSource(deps.Pairs, markets, logger))
	}
	if d := cfg.Scanner.Discovery; d.Enabled {
		matcher := matching.NewCandidateMatcher(matching.CandidateMatcherConfig{
			MinSharedKeywords: cfg.Matching.MinSharedKeywords,
			MinKeywordOverlap: cfg.Matching.MinKeywordOverlap,
			MaxPairs:          cfg.Matching.MaxPairs,
		})
		filter := domain.MarketFilter{Category: d.Category, Status: "open", Limit: d.Limit}
		sources = append(sources, scanner.NewMatcherPairSource(markets, matcher, exchangesOf(deps.Adapters, d.Sources), filter, logger))
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("app: no pair source: configure [[pairs]], enable the database or enable discovery")
	}
	if len(sources) == 1 {
		return sources[0], nil
	}
	return scanner.NewMultiPairSource(logger, sources...), nil
}
