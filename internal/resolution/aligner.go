package resolution

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/alanyoungcy/arbscanner/internal/matching"
)

// Score deductions and thresholds.
const (
	penaltySources      = 40.0
	penaltyTiming       = 20.0
	penaltyConditions   = 15.0
	penaltyStrictness   = 15.0
	penaltyShortRules   = 10.0
	minRulesLength      = 50
	conditionOverlapMin = 0.3
	tradeableScore      = 70.0
	reviewScore         = 85.0
)

// Level buckets the alignment score.
type Level string

const (
	LevelHigh   Level = "HIGH"
	LevelMedium Level = "MEDIUM"
	LevelLow    Level = "LOW"
	LevelNone   Level = "NONE"
)

// Alignment is the verdict on whether two markets settle the same way.
type Alignment struct {
	Score           float64  `json:"score"`
	Level           Level    `json:"level"`
	SourcesMatch    bool     `json:"sources_match"`
	TimingMatch     bool     `json:"timing_match"`
	ConditionsMatch bool     `json:"conditions_match"`
	Risks           []string `json:"risks,omitempty"`
	Warnings        []string `json:"warnings,omitempty"`
	Tradeable       bool     `json:"tradeable"`
	RequiresReview  bool     `json:"requires_review"`
	Criteria1       Criteria `json:"criteria1"`
	Criteria2       Criteria `json:"criteria2"`
}

// Aligner scores resolution alignment.
type Aligner struct {
	logger *slog.Logger
}

// NewAligner creates an Aligner.
func NewAligner(logger *slog.Logger) *Aligner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aligner{logger: logger.With(slog.String("component", "resolution_aligner"))}
}

// Align compares the resolution criteria of m1 and m2.
func (a *Aligner) Align(m1, m2 domain.Market) Alignment {
	c1, c2 := ExtractCriteria(m1), ExtractCriteria(m2)
	al := Alignment{Score: 100, Criteria1: c1, Criteria2: c2}

	al.SourcesMatch = matching.SourcesOverlap(c1.Sources, c2.Sources)
	if !al.SourcesMatch {
		al.Score -= penaltySources
		if len(c1.Sources) > 0 && len(c2.Sources) > 0 {
			al.Risks = append(al.Risks, fmt.Sprintf("resolution sources differ: %s vs %s",
				strings.Join(c1.Sources, ","), strings.Join(c2.Sources, ",")))
		} else {
			al.Warnings = append(al.Warnings, "resolution source not stated on at least one market")
		}
	}

	switch {
	case c1.Timing == "" && c2.Timing == "":
		al.TimingMatch = true
		al.Warnings = append(al.Warnings, "no resolution timing stated")
	case c1.Timing == "" || c2.Timing == "":
		al.Score -= penaltyTiming
		al.Warnings = append(al.Warnings, "resolution timing stated on only one market")
	case timingOverlaps(c1.Timing, c2.Timing):
		al.TimingMatch = true
	default:
		al.Score -= penaltyTiming
		al.Risks = append(al.Risks, fmt.Sprintf("resolution timing differs: %q vs %q", c1.Timing, c2.Timing))
	}

	al.ConditionsMatch = conditionsOverlap(c1.Conditions, c2.Conditions)
	if !al.ConditionsMatch {
		al.Score -= penaltyConditions
		al.Warnings = append(al.Warnings, "resolution conditions share little wording")
	}

	if c1.Strict != c2.Strict {
		al.Score -= penaltyStrictness
		al.Warnings = append(al.Warnings, "one market resolves strictly, the other flexibly")
	}

	for i, c := range []Criteria{c1, c2} {
		if c.RulesLength < minRulesLength {
			al.Score -= penaltyShortRules
			al.Warnings = append(al.Warnings, fmt.Sprintf("market %d has little or no rules text", i+1))
		}
	}

	al.Score = max(al.Score, 0)
	al.Level = levelFor(al.Score)
	al.Tradeable = al.Score >= tradeableScore && len(al.Risks) == 0
	al.RequiresReview = al.Score < reviewScore || len(al.Risks) > 0

	a.logger.Debug("resolution aligned",
		slog.String("market1", m1.ID),
		slog.String("market2", m2.ID),
		slog.Float64("score", al.Score),
		slog.Bool("tradeable", al.Tradeable),
		slog.Int("risks", len(al.Risks)),
	)
	return al
}

func levelFor(score float64) Level {
	switch {
	case score >= reviewScore:
		return LevelHigh
	case score >= tradeableScore:
		return LevelMedium
	case score >= 50:
		return LevelLow
	}
	return LevelNone
}

// timingOverlaps compares two timing phrases. When both name a date the
// dates must agree; a year stated on only one side is not a conflict.
// Otherwise one phrase must contain the other.
func timingOverlaps(a, b string) bool {
	da, okA := parseDeadline(a)
	db, okB := parseDeadline(b)
	if okA && okB {
		return da.matches(db)
	}
	na, nb := matching.Normalize(a), matching.Normalize(b)
	return na != "" && nb != "" && (strings.Contains(na, nb) || strings.Contains(nb, na))
}

// conditionsOverlap requires the condition sentences to share at least 30%
// of their significant words. Two empty sets agree.
func conditionsOverlap(a, b []string) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	ka := matching.Keywords(strings.Join(a, " "))
	kb := matching.Keywords(strings.Join(b, " "))
	return matching.OverlapOfSmaller(ka, kb) >= conditionOverlapMin
}
