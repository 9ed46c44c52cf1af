// Package validation decides whether two candidate markets are safe to treat
// as the same event. HardBlockerValidator applies fixed deal-breaker rules;
// TieredValidator runs progressively more expensive checks on top of them.
// Only this package can mint a ValidatedPair.
package validation

import "github.com/alanyoungcy/arbscanner/internal/domain"

// Severity ranks how certain a rejection is.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
)

// HardBlockerResult is one blocker's verdict on a pair.
type HardBlockerResult struct {
	Blocked     bool     `json:"blocked"`
	Severity    Severity `json:"severity,omitempty"`
	Reason      string   `json:"reason"`
	BlockerName string   `json:"blocker,omitempty"`
}

// Blocker is a single deal-breaker rule. Check must be a pure function of
// the two markets and must report "not blocked" when it lacks the signal it
// needs.
type Blocker interface {
	Name() string
	Severity() Severity
	Check(m1, m2 domain.Market) HardBlockerResult
}

// Blocker names, also used as metric labels.
const (
	BlockerPositionType    = "position_type"
	BlockerGeographic      = "geographic"
	BlockerTemporalYear    = "temporal_year"
	BlockerOppositeOutcome = "opposite_outcome"
	BlockerEventType       = "event_type"
)

// DefaultBlockers returns the fixed, ordered blocker list: critical checks
// first so the first hit is the most severe.
func DefaultBlockers() []Blocker {
	return []Blocker{
		PositionTypeBlocker{},
		GeographicBlocker{},
		TemporalYearBlocker{},
		OppositeOutcomeBlocker{},
		EventTypeBlocker{},
	}
}

func pass(b Blocker) HardBlockerResult {
	return HardBlockerResult{BlockerName: b.Name(), Reason: "ok"}
}

func block(b Blocker, reason string) HardBlockerResult {
	return HardBlockerResult{
		Blocked:     true,
		Severity:    b.Severity(),
		Reason:      reason,
		BlockerName: b.Name(),
	}
}
