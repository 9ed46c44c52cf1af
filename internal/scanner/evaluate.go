package scanner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/arbscanner/internal/arbitrage"
	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/alanyoungcy/arbscanner/internal/matching"
	"github.com/alanyoungcy/arbscanner/internal/resolution"
	"github.com/alanyoungcy/arbscanner/internal/validation"
)

// Stage is the pipeline step that rejected a pair.
type Stage string

const (
	StageValidation Stage = "validation"
	StageScoring    Stage = "scoring"
	StageResolution Stage = "resolution"
	StagePricing    Stage = "pricing"
)

// Rejection is a first-class "no opportunity" outcome. It is not an error.
type Rejection struct {
	Stage    Stage               `json:"stage"`
	Category string              `json:"category"`
	Reason   string              `json:"reason"`
	Severity validation.Severity `json:"severity"`
}

// Key groups rejections for counting, "stage/category".
func (r Rejection) Key() string { return string(r.Stage) + "/" + r.Category }

// Evaluation is the result of running one pair through the pipeline.
// Exactly one of Opportunity and Rejected is set.
type Evaluation struct {
	Opportunity *arbitrage.Opportunity      `json:"opportunity,omitempty"`
	Rejected    *Rejection                  `json:"rejected,omitempty"`
	Features    matching.FeatureVector      `json:"features"`
	Validation  validation.ValidationResult `json:"validation"`
	Score       float64                     `json:"score"`
	Resolution  *resolution.Alignment       `json:"resolution,omitempty"`
}

// matched carries a pair that survived the matching stages.
type matched struct {
	pair       validation.ValidatedPair
	score      float64
	resolution resolution.Alignment
}

// EvaluatePair runs extract, validate, score, align and price for one pair
// with the given quotes.
func (s *Scanner) EvaluatePair(ctx context.Context, m1, m2 domain.Market, q1, q2 domain.Quote, fees arbitrage.FeeStructure) Evaluation {
	ev, ok := s.match(ctx, m1, m2)
	if !ok {
		return ev
	}
	return s.price(ev, domain.QuotePair{Quote1: q1, Quote2: q2}, fees)
}

// match runs the quote-independent stages. On success ev.Rejected is nil
// and the returned Evaluation carries the validated pair for pricing.
func (s *Scanner) match(ctx context.Context, m1, m2 domain.Market) (Evaluation, bool) {
	var ev Evaluation
	ev.Features = s.features.Extract(ctx, m1, m2)

	ev.Validation = s.validator.Validate(m1, m2)
	if fail, failed := ev.Validation.Failure(); failed {
		ev.Rejected = &Rejection{
			Stage:    StageValidation,
			Category: fail.Category(),
			Reason:   fail.Reason,
			Severity: fail.Severity,
		}
		return ev, false
	}
	if _, ok := ev.Validation.Pair(); !ok {
		ev.Rejected = &Rejection{Stage: StageValidation, Category: "invalid", Reason: "validation produced no pair", Severity: validation.SeverityHigh}
		return ev, false
	}

	ev.Score = s.scorer.Score(ev.Features, m1, m2)
	if ev.Score < s.cfg.MinMatchScore {
		ev.Rejected = &Rejection{
			Stage:    StageScoring,
			Category: "below_min_score",
			Reason:   fmt.Sprintf("match score %.1f below %.1f", ev.Score, s.cfg.MinMatchScore),
			Severity: validation.SeverityMedium,
		}
		return ev, false
	}

	al := s.aligner.Align(m1, m2)
	ev.Resolution = &al
	if !s.calc.AcceptsResolution(al) {
		ev.Rejected = &Rejection{
			Stage:    StageResolution,
			Category: "not_tradeable",
			Reason:   fmt.Sprintf("resolution score %.0f, %d risks", al.Score, len(al.Risks)),
			Severity: validation.SeverityHigh,
		}
		return ev, false
	}
	return ev, true
}

func (s *Scanner) price(ev Evaluation, quotes domain.QuotePair, fees arbitrage.FeeStructure) Evaluation {
	pair, _ := ev.Validation.Pair()
	if fees == nil {
		fees = s.fees
	}
	opp, rej := s.calc.Calculate(arbitrage.CalculationInput{
		Pair:       pair,
		Quotes:     quotes,
		Resolution: *ev.Resolution,
		Fees:       fees,
		MatchScore: ev.Score,
	})
	if rej != nil {
		ev.Rejected = &Rejection{
			Stage:    StagePricing,
			Category: string(rej.Reason),
			Reason:   rej.String(),
			Severity: validation.SeverityMedium,
		}
		return ev
	}
	ev.Opportunity = &opp
	return ev
}

func (s *Scanner) logRejection(p domain.CandidatePair, r *Rejection) {
	s.logger.Debug("pair rejected",
		slog.String("pair", p.Key()),
		slog.String("stage", string(r.Stage)),
		slog.String("category", r.Category),
		slog.String("severity", string(r.Severity)),
		slog.String("reason", r.Reason),
	)
}
