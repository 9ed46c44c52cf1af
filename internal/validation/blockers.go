package validation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/alanyoungcy/arbscanner/internal/matching"
)

// PositionTypeBlocker rejects a vice-presidential market paired with a
// presidential one.
type PositionTypeBlocker struct{}

func (PositionTypeBlocker) Name() string       { return BlockerPositionType }
func (PositionTypeBlocker) Severity() Severity { return SeverityCritical }

func (b PositionTypeBlocker) Check(m1, m2 domain.Market) HardBlockerResult {
	p1, p2 := matching.Position(m1), matching.Position(m2)
	if p1 == domain.PositionUnknown || p2 == domain.PositionUnknown || p1 == p2 {
		return pass(b)
	}
	return block(b, fmt.Sprintf("position type mismatch: %s vs %s", p1, p2))
}

// GeographicBlocker rejects markets about different countries, including a
// market inferred to be about the US against one naming another country.
type GeographicBlocker struct{}

func (GeographicBlocker) Name() string       { return BlockerGeographic }
func (GeographicBlocker) Severity() Severity { return SeverityCritical }

func (b GeographicBlocker) Check(m1, m2 domain.Market) HardBlockerResult {
	c1, c2 := matching.Countries(m1), matching.Countries(m2)
	if !matching.CountriesConflict(c1, c2) {
		return pass(b)
	}
	return block(b, fmt.Sprintf("geographic mismatch: %s vs %s", c1, c2))
}

// TemporalYearBlocker rejects markets whose referenced years are two or more
// apart, such as separate election cycles.
type TemporalYearBlocker struct{}

func (TemporalYearBlocker) Name() string       { return BlockerTemporalYear }
func (TemporalYearBlocker) Severity() Severity { return SeverityHigh }

func (b TemporalYearBlocker) Check(m1, m2 domain.Market) HardBlockerResult {
	y1, y2 := matching.Years(m1), matching.Years(m2)
	dist, ok := matching.YearDistance(y1, y2)
	if !ok || dist < 2 {
		return pass(b)
	}
	return block(b, fmt.Sprintf("year mismatch: %s vs %s", joinInts(y1), joinInts(y2)))
}

// OppositeOutcomeBlocker rejects markets on opposing outcomes of the same
// event: one party against the other, or different contracts of a
// multi-outcome market.
type OppositeOutcomeBlocker struct{}

func (OppositeOutcomeBlocker) Name() string       { return BlockerOppositeOutcome }
func (OppositeOutcomeBlocker) Severity() Severity { return SeverityHigh }

func (b OppositeOutcomeBlocker) Check(m1, m2 domain.Market) HardBlockerResult {
	p1, p2 := matching.Parties(m1), matching.Parties(m2)
	if len(p1) == 1 && len(p2) == 1 && p1[0] != p2[0] {
		return block(b, fmt.Sprintf("opposite outcome: party %s vs %s", p1[0], p2[0]))
	}
	o1, o2 := matching.OutcomeLabel(m1), matching.OutcomeLabel(m2)
	if matching.OutcomesConflict(o1, o2) {
		return block(b, fmt.Sprintf("opposite outcome: %q vs %q", o1, o2))
	}
	return pass(b)
}

// EventTypeBlocker rejects a nomination market paired with an outright
// winner market.
type EventTypeBlocker struct{}

func (EventTypeBlocker) Name() string       { return BlockerEventType }
func (EventTypeBlocker) Severity() Severity { return SeverityHigh }

func (b EventTypeBlocker) Check(m1, m2 domain.Market) HardBlockerResult {
	e1, e2 := matching.Event(m1), matching.Event(m2)
	if e1 == domain.EventUnknown || e2 == domain.EventUnknown || e1 == e2 {
		return pass(b)
	}
	return block(b, fmt.Sprintf("event type mismatch: %s vs %s", e1, e2))
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ",")
}
