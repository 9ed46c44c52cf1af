package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

func TestCandidateMatcher(t *testing.T) {
	m := NewCandidateMatcher(CandidateMatcherConfig{MaxPairs: 10})
	kalshi := []domain.Market{
		kalshiMarket("k1", "Will Bitcoin close above $100,000 this year?"),
		kalshiMarket("k2", "Who will win the Super Bowl?"),
	}
	poly := []domain.Market{
		polyMarket("p1", "Bitcoin above $100,000 at year end?"),
		polyMarket("p2", "Fed rate cut in March?"),
	}

	pairs := m.Match(kalshi, poly)
	require.Len(t, pairs, 1)
	assert.Equal(t, "k1", pairs[0].Market1.ID)
	assert.Equal(t, "p1", pairs[0].Market2.ID)
}

func TestCandidateMatcherSkipsSameExchange(t *testing.T) {
	m := NewCandidateMatcher(CandidateMatcherConfig{})
	a := []domain.Market{polyMarket("a", "Bitcoin above 100000 year end")}
	b := []domain.Market{polyMarket("b", "Bitcoin above 100000 year end")}
	assert.Empty(t, m.Match(a, b))
}
