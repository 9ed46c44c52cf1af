package matching

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// DefaultWeights are the heuristic feature weights in ModelFeatureNames
// order. They sum to 1.
var DefaultWeights = [ModelFeatureCount]float64{
	0.12, 0.08, 0.25, 0.15, 0.10, 0.12, 0.08, 0.03, 0.03, 0.02, 0.02,
}

// ScoringStrategy turns a feature vector into a 0-100 match score.
type ScoringStrategy interface {
	Name() string
	CalculateScore(fv FeatureVector, m1, m2 domain.Market) float64
}

// HeuristicStrategy is a confidence-weighted linear combination of the
// scaled features.
type HeuristicStrategy struct {
	name    string
	weights [ModelFeatureCount]float64
}

// NewHeuristicStrategy returns a strategy using the given weights.
func NewHeuristicStrategy(name string, weights [ModelFeatureCount]float64) *HeuristicStrategy {
	return &HeuristicStrategy{name: name, weights: weights}
}

func (s *HeuristicStrategy) Name() string { return s.name }

// CalculateScore returns Σ wᵢ·cᵢ·xᵢ / Σ wᵢ·cᵢ scaled to 0-100, where xᵢ is
// the scaled feature and cᵢ its confidence. Confidence shifts weight toward
// trusted features; a pair whose features all agree scores 100 however
// confident the extractor was.
func (s *HeuristicStrategy) CalculateScore(fv FeatureVector, _, _ domain.Market) float64 {
	x := fv.ModelInputs()
	c := fv.ModelConfidences()
	var num, den float64
	for i := range x {
		w := s.weights[i] * clamp(c[i], 0, 1)
		num += w * clamp(x[i], 0, 1)
		den += w
	}
	if den == 0 {
		return 0
	}
	return clamp(100*num/den, 0, 100)
}

// StrategyRegistry holds per-exchange-pair scoring strategies with a default
// fallback. Pair lookups are order independent.
type StrategyRegistry struct {
	mu         sync.RWMutex
	strategies map[string]ScoringStrategy
	fallback   ScoringStrategy
}

// NewStrategyRegistry returns a registry whose fallback is fallback.
func NewStrategyRegistry(fallback ScoringStrategy) *StrategyRegistry {
	return &StrategyRegistry{
		strategies: make(map[string]ScoringStrategy),
		fallback:   fallback,
	}
}

// DefaultStrategyRegistry registers the built-in venue-pair profiles.
func DefaultStrategyRegistry() *StrategyRegistry {
	r := NewStrategyRegistry(NewHeuristicStrategy("default", DefaultWeights))
	// Kalshi and Polymarket phrase titles differently; lean on keywords and
	// resolution sources.
	r.Register(domain.ExchangeKalshi, domain.ExchangePolymarket, NewHeuristicStrategy("kalshi_polymarket",
		[ModelFeatureCount]float64{0.08, 0.08, 0.28, 0.15, 0.10, 0.14, 0.09, 0.03, 0.03, 0.01, 0.01}))
	// PredictIt contract names mirror Kalshi's closely.
	r.Register(domain.ExchangeKalshi, domain.ExchangePredictIt, NewHeuristicStrategy("kalshi_predictit",
		[ModelFeatureCount]float64{0.18, 0.05, 0.25, 0.15, 0.10, 0.10, 0.08, 0.03, 0.03, 0.01, 0.02}))
	r.Register(domain.ExchangePolymarket, domain.ExchangePredictIt, NewHeuristicStrategy("polymarket_predictit",
		[ModelFeatureCount]float64{0.10, 0.06, 0.27, 0.15, 0.10, 0.12, 0.10, 0.03, 0.03, 0.02, 0.02}))
	return r
}

// Register adds or replaces the strategy for an exchange pair.
func (r *StrategyRegistry) Register(ex1, ex2 domain.Exchange, s ScoringStrategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[exchangePairKey(ex1, ex2)] = s
}

// GetStrategy returns the strategy for the exchange pair, or the fallback.
func (r *StrategyRegistry) GetStrategy(ex1, ex2 domain.Exchange) ScoringStrategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if s, ok := r.strategies[exchangePairKey(ex1, ex2)]; ok {
		return s
	}
	return r.fallback
}

// List returns the registered pair keys, sorted.
func (r *StrategyRegistry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.strategies))
	for k := range r.strategies {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func exchangePairKey(a, b domain.Exchange) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("%s:%s", a, b)
}

// MatchScorer picks the strategy for a pair's exchanges and, when a learned
// model is loaded, blends in its bounded adjustment.
type MatchScorer struct {
	registry *StrategyRegistry
	model    *LogisticModel
	logger   *slog.Logger
}

// NewMatchScorer creates a scorer. model may be nil.
func NewMatchScorer(registry *StrategyRegistry, model *LogisticModel, logger *slog.Logger) *MatchScorer {
	if registry == nil {
		registry = DefaultStrategyRegistry()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MatchScorer{
		registry: registry,
		model:    model,
		logger:   logger.With(slog.String("component", "match_scorer")),
	}
}

// GetStrategy exposes the registry lookup.
func (s *MatchScorer) GetStrategy(ex1, ex2 domain.Exchange) ScoringStrategy {
	return s.registry.GetStrategy(ex1, ex2)
}

// Score returns the 0-100 match score of the pair.
func (s *MatchScorer) Score(fv FeatureVector, m1, m2 domain.Market) float64 {
	strategy := s.registry.GetStrategy(m1.Exchange, m2.Exchange)
	if s.model != nil {
		strategy = NewLogisticBlend(strategy, s.model)
	}
	score := strategy.CalculateScore(fv, m1, m2)
	s.logger.Debug("pair scored",
		slog.String("strategy", strategy.Name()),
		slog.String("market1", m1.ID),
		slog.String("market2", m2.ID),
		slog.Float64("score", score),
	)
	return score
}
