package validation

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// BlockerReport is the outcome of running every blocker on a pair.
type BlockerReport struct {
	Blocked         bool                `json:"blocked"`
	Results         []HardBlockerResult `json:"results"`
	Triggered       []HardBlockerResult `json:"triggered,omitempty"`
	CriticalReasons []string            `json:"critical_reasons,omitempty"`
	HighReasons     []string            `json:"high_reasons,omitempty"`
}

// First returns the first triggered blocker, in blocker order.
func (r BlockerReport) First() (HardBlockerResult, bool) {
	if len(r.Triggered) == 0 {
		return HardBlockerResult{}, false
	}
	return r.Triggered[0], true
}

// HardBlockerValidator runs an ordered list of blockers.
type HardBlockerValidator struct {
	blockers []Blocker
	logger   *slog.Logger
	now      func() time.Time
}

// NewHardBlockerValidator creates a validator over blockers; nil means
// DefaultBlockers.
func NewHardBlockerValidator(blockers []Blocker, logger *slog.Logger) *HardBlockerValidator {
	if blockers == nil {
		blockers = DefaultBlockers()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HardBlockerValidator{
		blockers: blockers,
		logger:   logger.With(slog.String("component", "hard_blockers")),
		now:      time.Now,
	}
}

// Blockers returns the blocker names in evaluation order.
func (v *HardBlockerValidator) Blockers() []string {
	names := make([]string, len(v.blockers))
	for i, b := range v.blockers {
		names[i] = b.Name()
	}
	return names
}

// Validate returns the first blocker that fires, or a non-blocked result.
func (v *HardBlockerValidator) Validate(m1, m2 domain.Market) HardBlockerResult {
	for _, b := range v.blockers {
		if res := v.check(b, m1, m2); res.Blocked {
			return res
		}
	}
	return HardBlockerResult{Reason: "no blockers triggered"}
}

// ValidateWithDetails runs every blocker and aggregates the reasons by
// severity.
func (v *HardBlockerValidator) ValidateWithDetails(m1, m2 domain.Market) BlockerReport {
	report := BlockerReport{Results: make([]HardBlockerResult, 0, len(v.blockers))}
	for _, b := range v.blockers {
		res := v.check(b, m1, m2)
		report.Results = append(report.Results, res)
		if !res.Blocked {
			continue
		}
		report.Blocked = true
		report.Triggered = append(report.Triggered, res)
		switch res.Severity {
		case SeverityCritical:
			report.CriticalReasons = append(report.CriticalReasons, res.Reason)
		case SeverityHigh:
			report.HighReasons = append(report.HighReasons, res.Reason)
		}
	}
	return report
}

// Admit validates the pair with the hard blockers only and, when nothing
// fires, returns a ValidatedPair at full blocker confidence.
func (v *HardBlockerValidator) Admit(m1, m2 domain.Market) (ValidatedPair, HardBlockerResult) {
	res := v.Validate(m1, m2)
	if res.Blocked {
		return ValidatedPair{}, res
	}
	return newValidatedPair(m1, m2, tierOneConfidence, 1, v.now()), res
}

// check runs one blocker, converting a panic into "no opinion".
func (v *HardBlockerValidator) check(b Blocker, m1, m2 domain.Market) (res HardBlockerResult) {
	defer func() {
		if r := recover(); r != nil {
			v.logger.Error("blocker panicked, treating as not blocked",
				slog.String("blocker", b.Name()),
				slog.String("market1", m1.ID),
				slog.String("market2", m2.ID),
				slog.String("panic", fmt.Sprint(r)),
			)
			res = HardBlockerResult{BlockerName: b.Name(), Reason: "blocker failed"}
		}
	}()
	return b.Check(m1, m2)
}
