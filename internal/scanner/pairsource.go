package scanner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/alanyoungcy/arbscanner/internal/matching"
)

// PairSource supplies the candidate pairs for a cycle.
type PairSource interface {
	Pairs(ctx context.Context) ([]domain.CandidatePair, error)
}

// MarketLister returns markets for one exchange, typically through a
// read-through cache.
type MarketLister interface {
	Markets(ctx context.Context, ex domain.Exchange, filter domain.MarketFilter) ([]domain.Market, error)
}

// PairRef names two markets by exchange and ID.
type PairRef struct {
	Exchange1 domain.Exchange
	MarketID1 string
	Exchange2 domain.Exchange
	MarketID2 string
}

// resolveRefs loads the markets behind refs, one batched call per exchange.
// Refs whose markets cannot be loaded are logged and dropped.
func resolveRefs(ctx context.Context, markets MarketLister, refs []PairRef, logger *slog.Logger) ([]domain.CandidatePair, error) {
	ids := make(map[domain.Exchange][]string)
	for _, r := range refs {
		ids[r.Exchange1] = append(ids[r.Exchange1], r.MarketID1)
		ids[r.Exchange2] = append(ids[r.Exchange2], r.MarketID2)
	}

	index := make(map[string]domain.Market)
	var lastErr error
	loaded := 0
	for ex, list := range ids {
		ms, err := markets.Markets(ctx, ex, domain.MarketFilter{IDs: list})
		if err != nil {
			lastErr = err
			logger.Warn("pair source: load markets failed",
				slog.String("exchange", string(ex)),
				slog.Int("ids", len(list)),
				slog.String("error", err.Error()),
			)
			continue
		}
		loaded++
		for _, m := range ms {
			index[string(ex)+":"+m.ID] = m
		}
	}
	if loaded == 0 && lastErr != nil {
		return nil, fmt.Errorf("pair source: %w", lastErr)
	}

	pairs := make([]domain.CandidatePair, 0, len(refs))
	for _, r := range refs {
		m1, ok1 := index[string(r.Exchange1)+":"+r.MarketID1]
		m2, ok2 := index[string(r.Exchange2)+":"+r.MarketID2]
		if !ok1 || !ok2 {
			logger.Debug("pair source: market missing, skipping pair",
				slog.String("pair", domain.PairKey(r.Exchange1, r.MarketID1, r.Exchange2, r.MarketID2)),
			)
			continue
		}
		pairs = append(pairs, domain.CandidatePair{Market1: m1, Market2: m2})
	}
	return pairs, nil
}

// StaticPairSource evaluates a fixed, configured list of pairs.
type StaticPairSource struct {
	refs    []PairRef
	markets MarketLister
	logger  *slog.Logger
}

func NewStaticPairSource(refs []PairRef, markets MarketLister, logger *slog.Logger) *StaticPairSource {
	return &StaticPairSource{refs: refs, markets: markets, logger: logger.With(slog.String("component", "static_pairs"))}
}

func (s *StaticPairSource) Pairs(ctx context.Context) ([]domain.CandidatePair, error) {
	return resolveRefs(ctx, s.markets, s.refs, s.logger)
}

// StorePairSource evaluates the active pairs in the market pair store.
type StorePairSource struct {
	store   domain.MarketPairStore
	markets MarketLister
	logger  *slog.Logger
}

func NewStorePairSource(store domain.MarketPairStore, markets MarketLister, logger *slog.Logger) *StorePairSource {
	return &StorePairSource{store: store, markets: markets, logger: logger.With(slog.String("component", "store_pairs"))}
}

func (s *StorePairSource) Pairs(ctx context.Context) ([]domain.CandidatePair, error) {
	recs, err := s.store.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("pair source: list active pairs: %w", err)
	}
	refs := make([]PairRef, 0, len(recs))
	for _, r := range recs {
		refs = append(refs, PairRef{Exchange1: r.Exchange1, MarketID1: r.MarketID1, Exchange2: r.Exchange2, MarketID2: r.MarketID2})
	}
	return resolveRefs(ctx, s.markets, refs, s.logger)
}

// MatcherPairSource discovers pairs live by matching the open markets of
// every exchange against every other.
type MatcherPairSource struct {
	markets   MarketLister
	matcher   *matching.CandidateMatcher
	exchanges []domain.Exchange
	filter    domain.MarketFilter
	logger    *slog.Logger
}

func NewMatcherPairSource(
	markets MarketLister,
	matcher *matching.CandidateMatcher,
	exchanges []domain.Exchange,
	filter domain.MarketFilter,
	logger *slog.Logger,
) *MatcherPairSource {
	return &MatcherPairSource{
		markets:   markets,
		matcher:   matcher,
		exchanges: exchanges,
		filter:    filter,
		logger:    logger.With(slog.String("component", "matcher_pairs")),
	}
}

func (s *MatcherPairSource) Pairs(ctx context.Context) ([]domain.CandidatePair, error) {
	lists := make([][]domain.Market, len(s.exchanges))
	for i, ex := range s.exchanges {
		ms, err := s.markets.Markets(ctx, ex, s.filter)
		if err != nil {
			s.logger.Warn("matcher: load markets failed",
				slog.String("exchange", string(ex)),
				slog.String("error", err.Error()),
			)
			continue
		}
		lists[i] = ms
	}

	var pairs []domain.CandidatePair
	for i := range lists {
		for j := i + 1; j < len(lists); j++ {
			pairs = append(pairs, s.matcher.Match(lists[i], lists[j])...)
		}
	}
	s.logger.Info("matcher discovered pairs", slog.Int("pairs", len(pairs)))
	return pairs, nil
}

// MultiPairSource concatenates sources, dropping repeated pairs. A failing
// source is logged and skipped.
type MultiPairSource struct {
	sources []PairSource
	logger  *slog.Logger
}

func NewMultiPairSource(logger *slog.Logger, sources ...PairSource) *MultiPairSource {
	return &MultiPairSource{sources: sources, logger: logger.With(slog.String("component", "pair_sources"))}
}

func (s *MultiPairSource) Pairs(ctx context.Context) ([]domain.CandidatePair, error) {
	seen := make(map[string]bool)
	var out []domain.CandidatePair
	var lastErr error
	ok := 0
	for _, src := range s.sources {
		pairs, err := src.Pairs(ctx)
		if err != nil {
			lastErr = err
			s.logger.Warn("pair source failed", slog.String("error", err.Error()))
			continue
		}
		ok++
		for _, p := range pairs {
			if k := p.Key(); !seen[k] {
				seen[k] = true
				out = append(out, p)
			}
		}
	}
	if ok == 0 && lastErr != nil {
		return nil, lastErr
	}
	return out, nil
}
