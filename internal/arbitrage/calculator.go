// Package arbitrage prices validated cross-exchange pairs: it picks the
// cheaper complementary leg, subtracts venue fees and sizes the position
// from the thinner book.
package arbitrage

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/alanyoungcy/arbscanner/internal/resolution"
	"github.com/alanyoungcy/arbscanner/internal/validation"
)

// Direction names which side is bought on each exchange.
type Direction string

const (
	// DirectionYesNo buys YES on exchange 1 and NO on exchange 2.
	DirectionYesNo Direction = "YES1_NO2"
	// DirectionNoYes buys NO on exchange 1 and YES on exchange 2.
	DirectionNoYes Direction = "NO1_YES2"
)

// DepthQuality classifies the thinner side's liquidity.
type DepthQuality string

const (
	DepthDeep    DepthQuality = "DEEP"
	DepthMedium  DepthQuality = "MEDIUM"
	DepthShallow DepthQuality = "SHALLOW"
)

const (
	deepLiquidity   = 5000.0
	mediumLiquidity = 1000.0
)

// ClassifyDepth buckets a liquidity figure.
func ClassifyDepth(liquidity float64) DepthQuality {
	switch {
	case liquidity > deepLiquidity:
		return DepthDeep
	case liquidity > mediumLiquidity:
		return DepthMedium
	}
	return DepthShallow
}

// depthFraction is the share of the thinner book a position may take.
func depthFraction(d DepthQuality) float64 {
	switch d {
	case DepthDeep:
		return 0.25
	case DepthMedium:
		return 0.15
	}
	return 0.10
}

// Leg is one side of the trade.
type Leg struct {
	Exchange  domain.Exchange `json:"exchange"`
	MarketID  string          `json:"market_id"`
	Side      string          `json:"side"`
	Price     float64         `json:"price"`
	Fee       float64         `json:"fee"`
	Liquidity float64         `json:"liquidity"`
}

// Fees is the per-contract fee breakdown.
type Fees struct {
	Exchange1 float64 `json:"exchange1"`
	Exchange2 float64 `json:"exchange2"`
	Total     float64 `json:"total"`
}

// Liquidity is the depth available on the chosen legs.
type Liquidity struct {
	Exchange1 float64      `json:"exchange1"`
	Exchange2 float64      `json:"exchange2"`
	Min       float64      `json:"min"`
	Depth     DepthQuality `json:"depth"`
}

// Opportunity is a priced, sized arbitrage for one validated pair. It is
// never modified after Calculate returns; a later cycle supersedes it.
type Opportunity struct {
	ID                   string               `json:"id"`
	Pair                 domain.CandidatePair `json:"pair"`
	Quotes               domain.QuotePair     `json:"quotes"`
	Direction            Direction            `json:"direction"`
	Legs                 [2]Leg               `json:"legs"`
	TotalCost            float64              `json:"total_cost"`
	GrossArbitrage       float64              `json:"gross_arbitrage"`
	NetArbitrage         float64              `json:"net_arbitrage"`
	ProfitPercent        float64              `json:"profit_percent"`
	ProfitDollars        float64              `json:"profit_dollars"`
	MaxSize              float64              `json:"max_size"`
	Confidence           float64              `json:"confidence"`
	ValidationConfidence float64              `json:"validation_confidence"`
	Fees                 Fees                 `json:"fees"`
	Liquidity            Liquidity            `json:"liquidity"`
	Resolution           resolution.Alignment `json:"resolution"`
	TTL                  time.Duration        `json:"ttl"`
	DetectedAt           time.Time            `json:"detected_at"`
	ExpiresAt            time.Time            `json:"expires_at"`
	ExecutionNotes       []string             `json:"execution_notes,omitempty"`
	Valid                bool                 `json:"valid"`
}

// PairKey identifies the pair the opportunity belongs to.
func (o Opportunity) PairKey() string { return o.Pair.Key() }

// Expired reports whether the opportunity is past its TTL and must be
// re-validated before use.
func (o Opportunity) Expired(now time.Time) bool { return !now.Before(o.ExpiresAt) }

// Record flattens the opportunity for storage.
func (o Opportunity) Record(cycleID string) domain.OpportunityRecord {
	return domain.OpportunityRecord{
		ID:                   o.ID,
		CycleID:              cycleID,
		PairKey:              o.PairKey(),
		Exchange1:            o.Pair.Market1.Exchange,
		MarketID1:            o.Pair.Market1.ID,
		Exchange2:            o.Pair.Market2.Exchange,
		MarketID2:            o.Pair.Market2.ID,
		Direction:            string(o.Direction),
		TotalCost:            o.TotalCost,
		GrossArbitrage:       o.GrossArbitrage,
		NetArbitrage:         o.NetArbitrage,
		ProfitPercent:        o.ProfitPercent,
		ProfitDollars:        o.ProfitDollars,
		MaxSize:              o.MaxSize,
		TotalFees:            o.Fees.Total,
		Confidence:           o.Confidence,
		ValidationConfidence: o.ValidationConfidence,
		DepthQuality:         string(o.Liquidity.Depth),
		ResolutionScore:      o.Resolution.Score,
		Tradeable:            o.Resolution.Tradeable,
		Valid:                o.Valid,
		Notes:                o.ExecutionNotes,
		DetectedAt:           o.DetectedAt,
		ExpiresAt:            o.ExpiresAt,
	}
}

// RejectReason categorises why no opportunity was produced.
type RejectReason string

const (
	RejectNotValidated RejectReason = "not_validated"
	RejectNotTradeable RejectReason = "resolution_not_tradeable"
	RejectInvalidQuote RejectReason = "invalid_quote"
	RejectNoArbitrage  RejectReason = "no_arbitrage"
	RejectNoLiquidity  RejectReason = "no_liquidity"
	RejectUnprofitable RejectReason = "unprofitable_after_fees"
	RejectBelowMinimum RejectReason = "below_min_profit"
)

// Rejection explains a pair that priced to no opportunity.
type Rejection struct {
	Reason RejectReason `json:"reason"`
	Detail string       `json:"detail"`
}

func (r *Rejection) String() string {
	if r.Detail == "" {
		return string(r.Reason)
	}
	return string(r.Reason) + ": " + r.Detail
}

func reject(reason RejectReason, format string, args ...any) *Rejection {
	return &Rejection{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

// Config tunes the calculator.
type Config struct {
	// SafetyMargin is subtracted from 1 when testing totalCost.
	SafetyMargin float64
	// MinProfitPercent is the minimum net profit as a percent of cost.
	MinProfitPercent float64
	// MaxPositionSize caps MaxSize in contracts; 0 means uncapped.
	MaxPositionSize float64
	TTL             time.Duration
	// DisableResolutionFiltering keeps pairs whose resolution is not
	// tradeable, marking their opportunities invalid.
	DisableResolutionFiltering bool
}

// DefaultConfig returns the calculator defaults.
func DefaultConfig() Config {
	return Config{
		SafetyMargin:     0.01,
		MinProfitPercent: 0.5,
		MaxPositionSize:  1000,
		TTL:              30 * time.Second,
	}
}

// CalculationInput is everything Calculate needs for one pair.
type CalculationInput struct {
	Pair       validation.ValidatedPair
	Quotes     domain.QuotePair
	Resolution resolution.Alignment
	Fees       FeeStructure
	// MatchScore is the 0-100 score from the match scorer.
	MatchScore float64
}

// Calculator turns validated pairs and quotes into opportunities.
type Calculator struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// NewCalculator creates a Calculator. A zero TTL takes the default.
func NewCalculator(cfg Config, logger *slog.Logger) *Calculator {
	def := DefaultConfig()
	if cfg.SafetyMargin < 0 {
		cfg.SafetyMargin = 0
	}
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Calculator{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "arbitrage_calculator")),
		now:    time.Now,
	}
}

type legPrice struct {
	dir        Direction
	legs       [2]Leg
	cost, net  decimal.Decimal
	gross      decimal.Decimal
	fee1, fee2 decimal.Decimal
}

// Calculate prices both complementary legs and returns the more profitable
// one. A nil Rejection means the opportunity is populated.
func (c *Calculator) Calculate(in CalculationInput) (Opportunity, *Rejection) {
	if in.Pair.IsZero() {
		return Opportunity{}, reject(RejectNotValidated, "pair has not passed validation")
	}
	var notes []string
	valid := true
	if !in.Resolution.Tradeable {
		if !c.AcceptsResolution(in.Resolution) {
			return Opportunity{}, reject(RejectNotTradeable, "resolution score %.0f with %d risks",
				in.Resolution.Score, len(in.Resolution.Risks))
		}
		valid = false
		notes = append(notes, "resolution alignment not tradeable; kept for data collection")
	}
	if in.Fees == nil {
		in.Fees = DefaultFeeStructure()
	}

	m1, m2 := in.Pair.Market1(), in.Pair.Market2()
	q1, q2 := in.Quotes.Quote1, in.Quotes.Quote2
	candidates := []struct {
		dir    Direction
		s1, s2 string
		a, b   domain.QuoteSide
	}{
		{DirectionYesNo, "YES", "NO", q1.Yes, q2.No},
		{DirectionNoYes, "NO", "YES", q1.No, q2.Yes},
	}

	one := decimal.NewFromInt(1)
	ceiling := one.Sub(decimal.NewFromFloat(c.cfg.SafetyMargin))
	fm1, fm2 := in.Fees.For(m1.Exchange), in.Fees.For(m2.Exchange)

	var best *legPrice
	sawQuote, sawArb := false, false
	for _, cand := range candidates {
		if !askUsable(cand.a.Ask) || !askUsable(cand.b.Ask) {
			continue
		}
		sawQuote = true
		p1, p2 := decimal.NewFromFloat(cand.a.Ask), decimal.NewFromFloat(cand.b.Ask)
		cost := p1.Add(p2)
		if !cost.LessThan(ceiling) {
			continue
		}
		sawArb = true
		if cand.a.Liquidity <= 0 || cand.b.Liquidity <= 0 {
			continue
		}
		f1, f2 := fm1.PerContract(p1), fm2.PerContract(p2)
		gross := one.Sub(cost)
		lp := legPrice{
			dir:   cand.dir,
			cost:  cost,
			gross: gross,
			net:   gross.Sub(f1).Sub(f2),
			fee1:  f1,
			fee2:  f2,
			legs: [2]Leg{
				{Exchange: m1.Exchange, MarketID: m1.ID, Side: cand.s1, Price: cand.a.Ask, Fee: f1.InexactFloat64(), Liquidity: cand.a.Liquidity},
				{Exchange: m2.Exchange, MarketID: m2.ID, Side: cand.s2, Price: cand.b.Ask, Fee: f2.InexactFloat64(), Liquidity: cand.b.Liquidity},
			},
		}
		if best == nil || lp.net.GreaterThan(best.net) {
			best = &lp
		}
	}

	switch {
	case !sawQuote:
		return Opportunity{}, reject(RejectInvalidQuote, "no usable ask prices")
	case !sawArb:
		return Opportunity{}, reject(RejectNoArbitrage, "total cost not below %s", ceiling.String())
	case best == nil:
		return Opportunity{}, reject(RejectNoLiquidity, "no liquidity on a priced leg")
	}

	if !best.net.IsPositive() {
		return Opportunity{}, reject(RejectUnprofitable, "gross %s, net %s", best.gross.StringFixed(4), best.net.StringFixed(4))
	}
	profitPct := best.net.Div(best.cost).Mul(decimal.NewFromInt(100))
	if profitPct.InexactFloat64() < c.cfg.MinProfitPercent {
		return Opportunity{}, reject(RejectBelowMinimum, "%.2f%% below %.2f%%", profitPct.InexactFloat64(), c.cfg.MinProfitPercent)
	}

	liq := Liquidity{Exchange1: best.legs[0].Liquidity, Exchange2: best.legs[1].Liquidity}
	liq.Min = min(liq.Exchange1, liq.Exchange2)
	liq.Depth = ClassifyDepth(liq.Min)
	size := c.maxSize(liq, in.Pair.Confidence())
	if liq.Depth == DepthShallow {
		notes = append(notes, "shallow book: size conservatively")
	}

	now := c.now()
	opp := Opportunity{
		ID:                   uuid.NewString(),
		Pair:                 in.Pair.Candidate(),
		Quotes:               in.Quotes,
		Direction:            best.dir,
		Legs:                 best.legs,
		TotalCost:            best.cost.InexactFloat64(),
		GrossArbitrage:       best.gross.InexactFloat64(),
		NetArbitrage:         best.net.InexactFloat64(),
		ProfitPercent:        profitPct.InexactFloat64(),
		ProfitDollars:        best.net.Mul(decimal.NewFromFloat(size)).InexactFloat64(),
		MaxSize:              size,
		Confidence:           clamp01(in.MatchScore / 100),
		ValidationConfidence: in.Pair.Confidence(),
		Fees: Fees{
			Exchange1: best.fee1.InexactFloat64(),
			Exchange2: best.fee2.InexactFloat64(),
			Total:     best.fee1.Add(best.fee2).InexactFloat64(),
		},
		Liquidity:      liq,
		Resolution:     in.Resolution,
		TTL:            c.cfg.TTL,
		DetectedAt:     now,
		ExpiresAt:      now.Add(c.cfg.TTL),
		ExecutionNotes: append(notes, in.Resolution.Warnings...),
		Valid:          valid,
	}

	c.logger.Debug("opportunity priced",
		slog.String("pair", opp.PairKey()),
		slog.String("direction", string(opp.Direction)),
		slog.Float64("total_cost", opp.TotalCost),
		slog.Float64("net", opp.NetArbitrage),
		slog.Float64("max_size", opp.MaxSize),
		slog.Bool("valid", opp.Valid),
	)
	return opp, nil
}

// AcceptsResolution reports whether Calculate would price a pair with this
// alignment.
func (c *Calculator) AcceptsResolution(al resolution.Alignment) bool {
	return al.Tradeable || c.cfg.DisableResolutionFiltering
}

// maxSize takes a depth-dependent share of the thinner book, scaled by
// validation confidence and capped by MaxPositionSize. It never exceeds
// liq.Min.
func (c *Calculator) maxSize(liq Liquidity, confidence float64) float64 {
	size := liq.Min * depthFraction(liq.Depth) * clamp01(confidence)
	if c.cfg.MaxPositionSize > 0 {
		size = min(size, c.cfg.MaxPositionSize)
	}
	return min(size, liq.Min)
}

func askUsable(ask float64) bool { return ask > 0 && ask < 1 }

func clamp01(v float64) float64 { return max(0, min(1, v)) }
