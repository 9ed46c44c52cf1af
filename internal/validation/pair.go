package validation

import (
	"time"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// ValidatedPair is a candidate pair that passed validation. Its fields are
// unexported so a non-zero value can only come from this package; the zero
// value reports IsZero and must be refused by consumers.
type ValidatedPair struct {
	market1     domain.Market
	market2     domain.Market
	confidence  float64
	maxTier     int
	validatedAt time.Time
}

func newValidatedPair(m1, m2 domain.Market, confidence float64, maxTier int, at time.Time) ValidatedPair {
	return ValidatedPair{
		market1:     m1,
		market2:     m2,
		confidence:  confidence,
		maxTier:     maxTier,
		validatedAt: at,
	}
}

func (p ValidatedPair) Market1() domain.Market { return p.market1 }
func (p ValidatedPair) Market2() domain.Market { return p.market2 }

// Confidence is the overall validation confidence in (0,1].
func (p ValidatedPair) Confidence() float64 { return p.confidence }

// MaxTier is the highest validation tier the pair went through.
func (p ValidatedPair) MaxTier() int { return p.maxTier }

func (p ValidatedPair) ValidatedAt() time.Time { return p.validatedAt }

// IsZero reports whether p was not produced by a validator.
func (p ValidatedPair) IsZero() bool { return p.validatedAt.IsZero() }

// Candidate returns the pair as an unvalidated CandidatePair.
func (p ValidatedPair) Candidate() domain.CandidatePair {
	return domain.CandidatePair{Market1: p.market1, Market2: p.market2}
}
