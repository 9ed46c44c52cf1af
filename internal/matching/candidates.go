package matching

import (
	"sort"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// CandidateMatcherConfig tunes live pair discovery.
type CandidateMatcherConfig struct {
	MinSharedKeywords int
	MinKeywordOverlap float64
	MaxPairs          int
}

// CandidateMatcher proposes cross-exchange pairs from two market lists by
// shared title keywords. It is a cheap prefilter; validation decides.
type CandidateMatcher struct {
	cfg CandidateMatcherConfig
}

// NewCandidateMatcher applies defaults to zero config fields.
func NewCandidateMatcher(cfg CandidateMatcherConfig) *CandidateMatcher {
	if cfg.MinSharedKeywords <= 0 {
		cfg.MinSharedKeywords = 2
	}
	if cfg.MinKeywordOverlap <= 0 {
		cfg.MinKeywordOverlap = 0.3
	}
	return &CandidateMatcher{cfg: cfg}
}

type scoredCandidate struct {
	pair    domain.CandidatePair
	overlap float64
}

// Match returns pairs (a from left, b from right) whose titles share enough
// keywords and whose categories overlap, best overlap first.
func (m *CandidateMatcher) Match(left, right []domain.Market) []domain.CandidatePair {
	type tokenized struct {
		market domain.Market
		tokens map[string]bool
		cats   []string
	}
	prep := func(ms []domain.Market) []tokenized {
		out := make([]tokenized, 0, len(ms))
		for _, mk := range ms {
			toks := Keywords(mk.Title)
			if len(toks) == 0 {
				continue
			}
			out = append(out, tokenized{market: mk, tokens: toks, cats: Categories(mk)})
		}
		return out
	}
	l, r := prep(left), prep(right)

	var found []scoredCandidate
	for _, a := range l {
		for _, b := range r {
			if a.market.Exchange == b.market.Exchange {
				continue
			}
			shared := intersectCount(a.tokens, b.tokens)
			if shared < m.cfg.MinSharedKeywords {
				continue
			}
			overlap := OverlapOfSmaller(a.tokens, b.tokens)
			if overlap < m.cfg.MinKeywordOverlap {
				continue
			}
			if len(a.cats) > 0 && len(b.cats) > 0 && !CategoriesOverlap(a.cats, b.cats) {
				continue
			}
			found = append(found, scoredCandidate{
				pair:    domain.CandidatePair{Market1: a.market, Market2: b.market},
				overlap: overlap,
			})
		}
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].overlap > found[j].overlap })
	if m.cfg.MaxPairs > 0 && len(found) > m.cfg.MaxPairs {
		found = found[:m.cfg.MaxPairs]
	}
	out := make([]domain.CandidatePair, len(found))
	for i, f := range found {
		out[i] = f.pair
	}
	return out
}
