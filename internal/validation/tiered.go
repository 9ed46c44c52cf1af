package validation

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/alanyoungcy/arbscanner/internal/matching"
)

// Validation tiers, cheapest first.
const (
	TierQuickFilter   = 0
	TierHardBlockers  = 1
	TierEntityMatch   = 2
	TierSemanticFrame = 3
)

var tierNames = [...]string{
	TierQuickFilter:   "quick_filter",
	TierHardBlockers:  "hard_blockers",
	TierEntityMatch:   "entity_match",
	TierSemanticFrame: "semantic_frame",
}

const (
	quickFilterFailConfidence = 0.1
	tierOneConfidence         = 0.9
	extractorFailConfidence   = 0.5
	quickFilterMaxYearGap     = 1
)

// TierOutcome is the result of one validation tier.
type TierOutcome struct {
	Tier       int      `json:"tier"`
	Name       string   `json:"name"`
	Passed     bool     `json:"passed"`
	Skipped    bool     `json:"skipped,omitempty"`
	Confidence float64  `json:"confidence"`
	Severity   Severity `json:"severity,omitempty"`
	Reason     string   `json:"reason,omitempty"`
	// Blocker names the hard blocker that failed tier 1.
	Blocker string `json:"blocker,omitempty"`
}

func (o TierOutcome) fail(sev Severity, reason string) TierOutcome {
	o.Passed = false
	o.Severity = sev
	o.Reason = reason
	o.Confidence = quickFilterFailConfidence
	return o
}

// ValidationResult is the outcome of a tiered validation run.
// StoppedAtTier is -1 when every executed tier passed.
type ValidationResult struct {
	Valid             bool          `json:"valid"`
	Tiers             []TierOutcome `json:"tiers"`
	OverallConfidence float64       `json:"overall_confidence"`
	StoppedAtTier     int           `json:"stopped_at_tier"`

	pair ValidatedPair
}

// Failure returns the tier that halted validation.
func (r ValidationResult) Failure() (TierOutcome, bool) {
	if r.Valid || r.StoppedAtTier < 0 {
		return TierOutcome{}, false
	}
	for _, t := range r.Tiers {
		if t.Tier == r.StoppedAtTier {
			return t, true
		}
	}
	return TierOutcome{}, false
}

// Pair returns the ValidatedPair for a valid result.
func (r ValidationResult) Pair() (ValidatedPair, bool) {
	if !r.Valid {
		return ValidatedPair{}, false
	}
	return r.pair, true
}

// TierConfig selects which tiers run. The hard-blocker tier always runs;
// MaxTier below 1 is raised to 1.
type TierConfig struct {
	MaxTier           int
	SkipQuickFilter   bool
	SkipEntityMatch   bool
	SkipSemanticFrame bool
}

// TieredValidator runs tiers 0-3 in order, halting at the first failure.
type TieredValidator struct {
	cfg      TierConfig
	blockers *HardBlockerValidator
	entities EntityExtractor
	frames   FrameExtractor
	logger   *slog.Logger
	now      func() time.Time
}

// NewTieredValidator creates a validator. Nil collaborators get the lexicon
// and pattern defaults.
func NewTieredValidator(
	cfg TierConfig,
	blockers *HardBlockerValidator,
	entities EntityExtractor,
	frames FrameExtractor,
	logger *slog.Logger,
) *TieredValidator {
	if cfg.MaxTier < TierHardBlockers {
		cfg.MaxTier = TierHardBlockers
	}
	if cfg.MaxTier > TierSemanticFrame {
		cfg.MaxTier = TierSemanticFrame
	}
	if logger == nil {
		logger = slog.Default()
	}
	if blockers == nil {
		blockers = NewHardBlockerValidator(nil, logger)
	}
	if entities == nil {
		entities = LexiconEntityExtractor{}
	}
	if frames == nil {
		frames = PatternFrameExtractor{}
	}
	return &TieredValidator{
		cfg:      cfg,
		blockers: blockers,
		entities: entities,
		frames:   frames,
		logger:   logger.With(slog.String("component", "tiered_validator")),
		now:      time.Now,
	}
}

// Validate runs the configured tiers on (m1, m2).
func (v *TieredValidator) Validate(m1, m2 domain.Market) ValidationResult {
	res := ValidationResult{StoppedAtTier: -1, OverallConfidence: 1}

	stages := []struct {
		tier int
		skip bool
		run  func() TierOutcome
	}{
		{TierQuickFilter, v.cfg.SkipQuickFilter, func() TierOutcome { return quickFilter(m1, m2) }},
		{TierHardBlockers, false, func() TierOutcome { return v.hardBlockers(m1, m2) }},
		{TierEntityMatch, v.cfg.SkipEntityMatch, func() TierOutcome { return v.entityMatch(m1, m2) }},
		{TierSemanticFrame, v.cfg.SkipSemanticFrame, func() TierOutcome { return v.semanticFrame(m1, m2) }},
	}

	for _, st := range stages {
		if st.tier > v.cfg.MaxTier || st.skip {
			res.Tiers = append(res.Tiers, TierOutcome{Tier: st.tier, Name: tierNames[st.tier], Passed: true, Skipped: true})
			continue
		}
		out := st.run()
		res.Tiers = append(res.Tiers, out)
		res.OverallConfidence *= out.Confidence
		if !out.Passed {
			res.StoppedAtTier = st.tier
			v.logger.Debug("pair rejected",
				slog.Int("tier", st.tier),
				slog.String("market1", m1.ID),
				slog.String("market2", m2.ID),
				slog.String("reason", out.Reason),
			)
			return res
		}
	}

	res.Valid = true
	res.pair = newValidatedPair(m1, m2, res.OverallConfidence, v.cfg.MaxTier, v.now())
	return res
}

// quickFilter requires overlapping categories and years within a one-year
// window. Markets without categories or years pass.
func quickFilter(m1, m2 domain.Market) TierOutcome {
	out := TierOutcome{Tier: TierQuickFilter, Name: tierNames[TierQuickFilter], Passed: true, Confidence: 1.0}
	c1, c2 := matching.Categories(m1), matching.Categories(m2)
	if len(c1) > 0 && len(c2) > 0 && !matching.CategoriesOverlap(c1, c2) {
		return out.fail(SeverityMedium, fmt.Sprintf("no category overlap: %v vs %v", c1, c2))
	}
	if dist, ok := matching.YearDistance(matching.Years(m1), matching.Years(m2)); ok && dist > quickFilterMaxYearGap {
		return out.fail(SeverityMedium, fmt.Sprintf("years %d apart", dist))
	}
	return out
}

func (v *TieredValidator) hardBlockers(m1, m2 domain.Market) TierOutcome {
	out := TierOutcome{Tier: TierHardBlockers, Name: tierNames[TierHardBlockers], Passed: true, Confidence: tierOneConfidence}
	report := v.blockers.ValidateWithDetails(m1, m2)
	if first, blocked := report.First(); blocked {
		out = out.fail(first.Severity, first.BlockerName+": "+first.Reason)
		out.Blocker = first.BlockerName
	}
	return out
}

// Category is a short label for a failed tier: the blocker name for tier 1,
// the tier name otherwise.
func (o TierOutcome) Category() string {
	if o.Blocker != "" {
		return o.Blocker
	}
	return o.Name
}

func (v *TieredValidator) entityMatch(m1, m2 domain.Market) (out TierOutcome) {
	defer v.recoverTier(TierEntityMatch, &out)
	e1, err := v.entities.Extract(m1)
	if err != nil {
		return v.degraded(TierEntityMatch, err)
	}
	e2, err := v.entities.Extract(m2)
	if err != nil {
		return v.degraded(TierEntityMatch, err)
	}
	return compareEntities(e1, e2)
}

func (v *TieredValidator) semanticFrame(m1, m2 domain.Market) (out TierOutcome) {
	defer v.recoverTier(TierSemanticFrame, &out)
	f1, err := v.frames.Extract(m1)
	if err != nil {
		return v.degraded(TierSemanticFrame, err)
	}
	f2, err := v.frames.Extract(m2)
	if err != nil {
		return v.degraded(TierSemanticFrame, err)
	}
	return compareFrames(f1, f2)
}

// degraded is the pass-with-reduced-confidence outcome for an extractor
// failure.
func (v *TieredValidator) degraded(tier int, err error) TierOutcome {
	v.logger.Warn("validation tier degraded",
		slog.String("tier", tierNames[tier]),
		slog.String("error", err.Error()),
	)
	return TierOutcome{
		Tier:       tier,
		Name:       tierNames[tier],
		Passed:     true,
		Confidence: extractorFailConfidence,
		Reason:     "extractor failed: " + err.Error(),
	}
}

func (v *TieredValidator) recoverTier(tier int, out *TierOutcome) {
	if r := recover(); r != nil {
		*out = v.degraded(tier, fmt.Errorf("panic: %v", r))
	}
}
