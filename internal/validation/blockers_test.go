package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

func kalshi(id, title string) domain.Market {
	return domain.Market{ID: id, Exchange: domain.ExchangeKalshi, Title: title}
}

func poly(id, title string) domain.Market {
	return domain.Market{ID: id, Exchange: domain.ExchangePolymarket, Title: title}
}

func TestBlockers(t *testing.T) {
	cases := []struct {
		name     string
		blocker  Blocker
		a, b     domain.Market
		blocked  bool
		severity Severity
		contains []string
	}{
		{
			name:     "vice president vs president",
			blocker:  PositionTypeBlocker{},
			a:        kalshi("KXVPRESNOMR-28-JDV", "Republican VP nominee 2028"),
			b:        poly("p", "Republican presidential nominee 2028"),
			blocked:  true,
			severity: SeverityCritical,
			contains: []string{"VICE_PRESIDENT", "PRESIDENT"},
		},
		{
			name:    "same position",
			blocker: PositionTypeBlocker{},
			a:       poly("a", "Presidential election winner 2028"),
			b:       kalshi("KXPRES-28", "Who will win the presidency in 2028?"),
		},
		{
			name:     "implicit US vs Honduras",
			blocker:  GeographicBlocker{},
			a:        kalshi("KXPRES-28", "Will X win the 2028 presidential election?"),
			b:        poly("h", "Next president of Honduras?"),
			blocked:  true,
			severity: SeverityCritical,
			contains: []string{"United States", "Honduras"},
		},
		{
			name:    "no geography on either side",
			blocker: GeographicBlocker{},
			a:       poly("a", "Will Bitcoin hit $150k?"),
			b:       poly("b", "Bitcoin above $150,000?"),
		},
		{
			name:     "election cycles four years apart",
			blocker:  TemporalYearBlocker{},
			a:        poly("a", "Who will win the 2024 presidential election?"),
			b:        poly("b", "Who will win the 2028 presidential election?"),
			blocked:  true,
			severity: SeverityHigh,
			contains: []string{"2024", "2028"},
		},
		{
			name:    "adjacent years pass",
			blocker: TemporalYearBlocker{},
			a:       poly("a", "Recession in 2025?"),
			b:       poly("b", "Recession by early 2026?"),
		},
		{
			name:     "opposite parties",
			blocker:  OppositeOutcomeBlocker{},
			a:        poly("a", "Will Republicans win the House in 2026?"),
			b:        poly("b", "Will Democrats win the House in 2026?"),
			blocked:  true,
			severity: SeverityHigh,
		},
		{
			name:     "different contracts of one market",
			blocker:  OppositeOutcomeBlocker{},
			a:        poly("a", "Super Bowl winner: Kansas City"),
			b:        poly("b", "Super Bowl winner: Philadelphia"),
			blocked:  true,
			severity: SeverityHigh,
		},
		{
			name:     "nominee vs winner",
			blocker:  EventTypeBlocker{},
			a:        poly("a", "Will Newsom be the Democratic nominee?"),
			b:        poly("b", "Will Newsom win the general election?"),
			blocked:  true,
			severity: SeverityHigh,
			contains: []string{"NOMINEE", "WINNER"},
		},
		{
			name:    "event type unknown on one side",
			blocker: EventTypeBlocker{},
			a:       poly("a", "Will Newsom be the Democratic nominee?"),
			b:       poly("b", "Newsom 2028"),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := tc.blocker.Check(tc.a, tc.b)
			assert.Equal(t, tc.blocked, res.Blocked, res.Reason)
			assert.Equal(t, tc.blocker.Name(), res.BlockerName)
			if tc.blocked {
				assert.Equal(t, tc.severity, res.Severity)
			}
			for _, s := range tc.contains {
				assert.Contains(t, res.Reason, s)
			}
		})
	}
}

func TestValidateReturnsFirstBlockerInOrder(t *testing.T) {
	v := NewHardBlockerValidator(nil, nil)
	// Fires position_type and temporal_year; position_type comes first.
	a := kalshi("KXVPRESNOMR-24-JDV", "Republican VP nominee 2024")
	b := poly("p", "Republican presidential nominee 2028")

	res := v.Validate(a, b)
	require.True(t, res.Blocked)
	assert.Equal(t, BlockerPositionType, res.BlockerName)

	report := v.ValidateWithDetails(a, b)
	assert.True(t, report.Blocked)
	assert.Len(t, report.Results, 5)
	assert.Len(t, report.CriticalReasons, 1)
	assert.NotEmpty(t, report.HighReasons)
	first, ok := report.First()
	require.True(t, ok)
	assert.Equal(t, BlockerPositionType, first.BlockerName)
}

func TestValidateCleanPair(t *testing.T) {
	v := NewHardBlockerValidator(nil, nil)
	a := poly("a", "Will Bitcoin close above $100,000 on December 31, 2025?")
	b := kalshi("KXBTC-25DEC31", "Bitcoin above $100,000 at the end of 2025?")

	res := v.Validate(a, b)
	assert.False(t, res.Blocked)

	vp, res := v.Admit(a, b)
	assert.False(t, res.Blocked)
	assert.False(t, vp.IsZero())
	assert.Equal(t, "a", vp.Market1().ID)
	assert.Equal(t, 1, vp.MaxTier())
}

type panickyBlocker struct{}

func (panickyBlocker) Name() string                               { return "panicky" }
func (panickyBlocker) Severity() Severity                         { return SeverityCritical }
func (panickyBlocker) Check(_, _ domain.Market) HardBlockerResult { panic("boom") }

func TestPanickingBlockerIsNoOpinion(t *testing.T) {
	v := NewHardBlockerValidator([]Blocker{panickyBlocker{}, GeographicBlocker{}}, nil)
	res := v.Validate(poly("a", "Fed cut?"), poly("b", "Fed cut in March?"))
	assert.False(t, res.Blocked)

	report := v.ValidateWithDetails(poly("a", "x"), poly("b", "y"))
	assert.False(t, report.Blocked)
	assert.Equal(t, "panicky", report.Results[0].BlockerName)
	assert.Equal(t, []string{"panicky", BlockerGeographic}, v.Blockers())
}

func TestAdmitBlockedPairYieldsZeroValue(t *testing.T) {
	v := NewHardBlockerValidator(nil, nil)
	vp, res := v.Admit(
		kalshi("KXPRES-28", "Will X win the 2028 presidential election?"),
		poly("h", "Next president of Honduras?"),
	)
	assert.True(t, res.Blocked)
	assert.True(t, vp.IsZero())
}
