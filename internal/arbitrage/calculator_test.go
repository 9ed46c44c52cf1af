package arbitrage

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/alanyoungcy/arbscanner/internal/resolution"
	"github.com/alanyoungcy/arbscanner/internal/validation"
)

func validatedBTC(t *testing.T) validation.ValidatedPair {
	t.Helper()
	k := domain.Market{ID: "KXBTC-25DEC31-B100000", Exchange: domain.ExchangeKalshi,
		Title: "Will Bitcoin close above $100,000 on December 31, 2025?"}
	p := domain.Market{ID: "btc-above-100k-dec-31", Exchange: domain.ExchangePolymarket,
		Title: "Will Bitcoin close above $100,000 on December 31, 2025?"}
	vp, res := validation.NewHardBlockerValidator(nil, nil).Admit(k, p)
	require.False(t, res.Blocked, res.Reason)
	return vp
}

func quotes(yes1, no1, liq1, yes2, no2, liq2 float64) domain.QuotePair {
	return domain.QuotePair{
		Quote1: domain.Quote{MarketID: "KXBTC-25DEC31-B100000", Exchange: domain.ExchangeKalshi,
			Yes: domain.QuoteSide{Ask: yes1, Liquidity: liq1}, No: domain.QuoteSide{Ask: no1, Liquidity: liq1}},
		Quote2: domain.Quote{MarketID: "btc-above-100k-dec-31", Exchange: domain.ExchangePolymarket,
			Yes: domain.QuoteSide{Ask: yes2, Liquidity: liq2}, No: domain.QuoteSide{Ask: no2, Liquidity: liq2}},
	}
}

var tradeable = resolution.Alignment{Score: 100, Level: resolution.LevelHigh, Tradeable: true}

func TestCalculateArithmetic(t *testing.T) {
	c := NewCalculator(DefaultConfig(), nil)
	opp, rej := c.Calculate(CalculationInput{
		Pair:       validatedBTC(t),
		Quotes:     quotes(0.45, 0.57, 2000, 0.55, 0.47, 3000),
		Resolution: tradeable,
		MatchScore: 82,
	})
	require.Nil(t, rej)

	assert.Equal(t, DirectionYesNo, opp.Direction)
	assert.InDelta(t, 0.92, opp.TotalCost, 1e-9)
	assert.InDelta(t, 0.08, opp.GrossArbitrage, 1e-9)
	assert.Less(t, opp.NetArbitrage, opp.GrossArbitrage)
	// Kalshi 0.005 + 1% of 0.45, Polymarket 2% of 0.53
	assert.InDelta(t, 0.0095, opp.Fees.Exchange1, 1e-9)
	assert.InDelta(t, 0.0106, opp.Fees.Exchange2, 1e-9)
	assert.InDelta(t, 0.0599, opp.NetArbitrage, 1e-9)
	assert.InDelta(t, 0.0599/0.92*100, opp.ProfitPercent, 1e-6)

	assert.Equal(t, DepthMedium, opp.Liquidity.Depth)
	assert.Equal(t, 2000.0, opp.Liquidity.Min)
	assert.InDelta(t, 2000*0.15*0.9, opp.MaxSize, 1e-9)
	assert.InDelta(t, opp.NetArbitrage*opp.MaxSize, opp.ProfitDollars, 1e-6)
	assert.InDelta(t, 0.82, opp.Confidence, 1e-9)
	assert.InDelta(t, 0.9, opp.ValidationConfidence, 1e-9)
	assert.True(t, opp.Valid)
	assert.NotEmpty(t, opp.ID)
	assert.Equal(t, 30*time.Second, opp.ExpiresAt.Sub(opp.DetectedAt))
	assert.Equal(t, "YES", opp.Legs[0].Side)
	assert.Equal(t, "NO", opp.Legs[1].Side)
}

func TestCalculatePicksMoreProfitableLeg(t *testing.T) {
	c := NewCalculator(DefaultConfig(), nil)
	opp, rej := c.Calculate(CalculationInput{
		Pair:       validatedBTC(t),
		Quotes:     quotes(0.48, 0.40, 2000, 0.50, 0.50, 2000),
		Resolution: tradeable,
	})
	require.Nil(t, rej)
	assert.Equal(t, DirectionNoYes, opp.Direction)
	assert.InDelta(t, 0.90, opp.TotalCost, 1e-9)
}

func TestCalculateRejections(t *testing.T) {
	pair := validatedBTC(t)
	notTradeable := resolution.Alignment{Score: 60, Risks: []string{"resolution sources differ"}}

	tests := []struct {
		name   string
		in     CalculationInput
		reason RejectReason
	}{
		{"zero pair", CalculationInput{Quotes: quotes(0.45, 0.57, 2000, 0.55, 0.47, 3000), Resolution: tradeable}, RejectNotValidated},
		{"not tradeable", CalculationInput{Pair: pair, Quotes: quotes(0.45, 0.57, 2000, 0.55, 0.47, 3000), Resolution: notTradeable}, RejectNotTradeable},
		{"no liquidity", CalculationInput{Pair: pair, Quotes: quotes(0.45, 0.57, 0, 0.55, 0.47, 3000), Resolution: tradeable}, RejectNoLiquidity},
		{"no arbitrage", CalculationInput{Pair: pair, Quotes: quotes(0.50, 0.52, 2000, 0.50, 0.50, 2000), Resolution: tradeable}, RejectNoArbitrage},
		{"missing asks", CalculationInput{Pair: pair, Quotes: quotes(0, 0, 2000, 0, 0, 2000), Resolution: tradeable}, RejectInvalidQuote},
		{"fees eat the edge", CalculationInput{Pair: pair, Quotes: quotes(0.49, 0.60, 2000, 0.60, 0.495, 2000), Resolution: tradeable}, RejectUnprofitable},
	}
	c := NewCalculator(DefaultConfig(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, rej := c.Calculate(tt.in)
			require.NotNil(t, rej)
			assert.Equal(t, tt.reason, rej.Reason, rej.String())
		})
	}
}

func TestCalculateResolutionOverrideMarksInvalid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DisableResolutionFiltering = true
	opp, rej := NewCalculator(cfg, nil).Calculate(CalculationInput{
		Pair:       validatedBTC(t),
		Quotes:     quotes(0.45, 0.57, 2000, 0.55, 0.47, 3000),
		Resolution: resolution.Alignment{Score: 60, Risks: []string{"timing differs"}},
	})
	require.Nil(t, rej)
	assert.False(t, opp.Valid)
	assert.NotEmpty(t, opp.ExecutionNotes)
}

func TestMaxSizeNeverExceedsThinnerBook(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPositionSize = 0
	c := NewCalculator(cfg, nil)
	pair := validatedBTC(t)
	for _, liq := range []float64{1, 50, 999, 1000, 1001, 5000, 5001, 250000} {
		opp, rej := c.Calculate(CalculationInput{
			Pair:       pair,
			Quotes:     quotes(0.45, 0.57, liq, 0.55, 0.47, liq*3),
			Resolution: tradeable,
		})
		require.Nil(t, rej)
		assert.LessOrEqual(t, opp.MaxSize, min(liq, liq*3))
	}
}

func TestMaxPositionSizeCaps(t *testing.T) {
	c := NewCalculator(DefaultConfig(), nil)
	opp, rej := c.Calculate(CalculationInput{
		Pair:       validatedBTC(t),
		Quotes:     quotes(0.45, 0.57, 100000, 0.55, 0.47, 100000),
		Resolution: tradeable,
	})
	require.Nil(t, rej)
	assert.Equal(t, DepthDeep, opp.Liquidity.Depth)
	assert.Equal(t, 1000.0, opp.MaxSize)
}

func TestClassifyDepth(t *testing.T) {
	assert.Equal(t, DepthShallow, ClassifyDepth(0))
	assert.Equal(t, DepthShallow, ClassifyDepth(1000))
	assert.Equal(t, DepthMedium, ClassifyDepth(1000.01))
	assert.Equal(t, DepthMedium, ClassifyDepth(5000))
	assert.Equal(t, DepthDeep, ClassifyDepth(5000.01))
}

func TestOpportunityRecordAndExpiry(t *testing.T) {
	c := NewCalculator(DefaultConfig(), nil)
	opp, rej := c.Calculate(CalculationInput{
		Pair:       validatedBTC(t),
		Quotes:     quotes(0.45, 0.57, 2000, 0.55, 0.47, 3000),
		Resolution: tradeable,
	})
	require.Nil(t, rej)

	rec := opp.Record("cycle-1")
	assert.Equal(t, "cycle-1", rec.CycleID)
	assert.Equal(t, opp.PairKey(), rec.PairKey)
	assert.Equal(t, domain.ExchangeKalshi, rec.Exchange1)
	assert.Equal(t, "MEDIUM", rec.DepthQuality)
	assert.Equal(t, opp.Fees.Total, rec.TotalFees)

	assert.False(t, opp.Expired(opp.DetectedAt))
	assert.True(t, opp.Expired(opp.DetectedAt.Add(31*time.Second)))
}

func TestFeeModels(t *testing.T) {
	fs := DefaultFeeStructure()
	p := decimal.RequireFromString("0.40")
	assert.Equal(t, "0.009", fs.For(domain.ExchangeKalshi).PerContract(p).String())
	assert.Equal(t, "0.012", fs.For(domain.ExchangePolymarket).PerContract(p).String())
	assert.Equal(t, "0.06", fs.For(domain.ExchangePredictIt).PerContract(p).String())
	assert.True(t, fs.For("unknown").PerContract(p).IsZero())

	q, err := NewFeeModel(FeeSpec{Model: "kalshi_quadratic", Percent: 0.07})
	require.NoError(t, err)
	assert.Equal(t, "0.0168", q.PerContract(p).String())

	_, err = NewFeeModel(FeeSpec{Model: "bogus"})
	assert.Error(t, err)

	custom, err := NewFeeStructure(map[string]FeeSpec{"polymarket": {Model: "none"}})
	require.NoError(t, err)
	assert.Equal(t, "none", custom.For(domain.ExchangePolymarket).Name())
	assert.Equal(t, "flat_plus_percent", custom.For(domain.ExchangeKalshi).Name())

	_, err = NewFeeStructure(map[string]FeeSpec{"nasdaq": {Model: "none"}})
	assert.Error(t, err)
}
