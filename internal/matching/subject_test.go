package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

func TestDetectImplicitUSVersusNamedCountry(t *testing.T) {
	d := NewSubjectConflictDetector()
	k := kalshiMarket("KXPRES-28", "Will X win the 2028 presidential election?")
	p := polyMarket("honduras-2025", "Next president of Honduras?")

	got := d.Detect(k, p)
	require.True(t, got.Conflict)
	assert.Equal(t, ConflictCountry, got.Kind)
	assert.Contains(t, got.Reason, "United States")
	assert.Contains(t, got.Reason, "Honduras")
}

func TestDetectVicePresidentVersusPresident(t *testing.T) {
	d := NewSubjectConflictDetector()
	k := kalshiMarket("KXVPRESNOMR-28-JDV", "Who will be the 2028 Republican nominee?")
	p := polyMarket("p", "Republican presidential nominee 2028")

	got := d.Detect(k, p)
	require.True(t, got.Conflict)
	assert.Equal(t, ConflictPosition, got.Kind)
	assert.Contains(t, got.Reason, "VICE_PRESIDENT")
	assert.Contains(t, got.Reason, "PRESIDENT")
}

func TestDetectPersonMismatch(t *testing.T) {
	d := NewSubjectConflictDetector()
	a := polyMarket("a", "Will Gavin Newsom win the 2028 Democratic nomination?")
	b := polyMarket("b", "Will Josh Shapiro win the 2028 Democratic nomination?")

	got := d.Detect(a, b)
	require.True(t, got.Conflict)
	assert.Equal(t, ConflictPerson, got.Kind)
}

func TestDetectCompatible(t *testing.T) {
	d := NewSubjectConflictDetector()
	cases := []struct {
		name string
		a, b domain.Market
	}{
		{
			name: "same person different phrasing",
			a:    polyMarket("a", "Will Donald Trump win the popular vote?"),
			b:    domain.Market{ID: "b", Exchange: domain.ExchangePredictIt, Title: "Trump wins popular vote?"},
		},
		{
			name: "both inferred US",
			a:    kalshiMarket("a", "Who will win the 2026 Senate race in Ohio?"),
			b:    domain.Market{ID: "b", Exchange: domain.ExchangePredictIt, Title: "Which party wins the Senate in 2026?"},
		},
		{
			name: "no signals at all",
			a:    polyMarket("a", "Will it snow on Christmas?"),
			b:    kalshiMarket("b", "Snowfall on Christmas day?"),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := d.Detect(tc.a, tc.b)
			assert.False(t, got.Conflict, got.Reason)
			assert.Equal(t, "compatible", got.Reason)
		})
	}
}

func TestCountriesSkipsNewMexico(t *testing.T) {
	c := Countries(polyMarket("a", "Will Democrats win the New Mexico governor race?"))
	assert.NotContains(t, c.Countries, "Mexico")
}

func TestCountriesExplicitUSAbbreviation(t *testing.T) {
	c := Countries(polyMarket("a", "Who will win the 2028 US presidential election?"))
	assert.Equal(t, []string{"United States"}, c.Countries)
	assert.False(t, c.Implicit)
}

func TestPersonsResolvesKnownNames(t *testing.T) {
	assert.Equal(t, []string{"Donald Trump"}, Persons(polyMarket("a", "Will Donald Trump's approval exceed 50%?")))
	assert.Equal(t, []string{"JD Vance"}, Persons(kalshiMarket("KXVPRESNOMR-28-JDV", "VP nominee")))
}

func TestPositionAndEvent(t *testing.T) {
	assert.Equal(t, domain.PositionVicePresident, Position(polyMarket("a", "Who will be Harris's running mate?")))
	assert.Equal(t, domain.PositionPresident, Position(polyMarket("a", "Presidential Election Winner 2028")))
	assert.Equal(t, domain.PositionUnknown, Position(polyMarket("a", "Fed decision in March")))

	assert.Equal(t, domain.EventNominee, Event(polyMarket("a", "Republican presidential nominee 2028")))
	assert.Equal(t, domain.EventWinner, Event(polyMarket("a", "Who will win the 2028 election?")))

	hinted := polyMarket("a", "Republican presidential nominee 2028")
	hinted.Hints.EventType = domain.EventWinner
	assert.Equal(t, domain.EventWinner, Event(hinted))
}

func TestOutcomeLabels(t *testing.T) {
	pi := domain.Market{
		ID: "c1", Exchange: domain.ExchangePredictIt, Title: "Which party wins the House?",
		Metadata: domain.PredictItMetadata{MarketName: "Which party wins the House?", ContractName: "Democratic"},
	}
	assert.Equal(t, "Democratic", OutcomeLabel(pi))
	assert.Equal(t, "Kansas City", OutcomeLabel(polyMarket("p", "Super Bowl winner: Kansas City")))
	assert.Equal(t, "", OutcomeLabel(polyMarket("p", "Will it rain?")))

	assert.True(t, OutcomesConflict("Democratic", "Republican"))
	assert.False(t, OutcomesConflict("Kansas City", "Kansas City Chiefs"))
	assert.False(t, OutcomesConflict("", "Republican"))
}
