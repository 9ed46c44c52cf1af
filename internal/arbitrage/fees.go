package arbitrage

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// FeeModel prices the venue fee for buying one contract at price.
type FeeModel interface {
	Name() string
	PerContract(price decimal.Decimal) decimal.Decimal
}

// FlatPlusPercent charges a fixed amount per contract plus a share of the
// notional paid.
type FlatPlusPercent struct {
	Flat    decimal.Decimal
	Percent decimal.Decimal
}

func (FlatPlusPercent) Name() string { return "flat_plus_percent" }

func (f FlatPlusPercent) PerContract(price decimal.Decimal) decimal.Decimal {
	return f.Flat.Add(f.Percent.Mul(price))
}

// PercentOfPayout charges a share of the winnings, (1 - price) per contract.
type PercentOfPayout struct {
	Percent decimal.Decimal
}

func (PercentOfPayout) Name() string { return "percent_of_payout" }

func (p PercentOfPayout) PerContract(price decimal.Decimal) decimal.Decimal {
	return p.Percent.Mul(decimal.NewFromInt(1).Sub(price))
}

// ProbabilityWeighted is Kalshi's published trading fee, rate * P * (1 - P).
type ProbabilityWeighted struct {
	Rate decimal.Decimal
}

func (ProbabilityWeighted) Name() string { return "kalshi_quadratic" }

func (q ProbabilityWeighted) PerContract(price decimal.Decimal) decimal.Decimal {
	return q.Rate.Mul(price).Mul(decimal.NewFromInt(1).Sub(price))
}

// NoFee is used for venues without a configured model.
type NoFee struct{}

func (NoFee) Name() string                                { return "none" }
func (NoFee) PerContract(decimal.Decimal) decimal.Decimal { return decimal.Zero }

// FeeSpec is the configuration form of a fee model.
type FeeSpec struct {
	Model   string  `toml:"model"`
	Flat    float64 `toml:"flat"`
	Percent float64 `toml:"percent"`
}

// NewFeeModel builds a FeeModel from its configuration form.
func NewFeeModel(spec FeeSpec) (FeeModel, error) {
	switch strings.ToLower(spec.Model) {
	case "", "none":
		return NoFee{}, nil
	case "flat_plus_percent":
		return FlatPlusPercent{
			Flat:    decimal.NewFromFloat(spec.Flat),
			Percent: decimal.NewFromFloat(spec.Percent),
		}, nil
	case "percent_of_payout":
		return PercentOfPayout{Percent: decimal.NewFromFloat(spec.Percent)}, nil
	case "kalshi_quadratic":
		return ProbabilityWeighted{Rate: decimal.NewFromFloat(spec.Percent)}, nil
	default:
		return nil, fmt.Errorf("arbitrage: unknown fee model %q", spec.Model)
	}
}

// FeeStructure maps each exchange to its fee model.
type FeeStructure map[domain.Exchange]FeeModel

// DefaultFeeStructure returns the published default schedules: Kalshi
// $0.005 per contract plus 1% of notional, Polymarket 2% of winnings and
// PredictIt 10% of winnings.
func DefaultFeeStructure() FeeStructure {
	return FeeStructure{
		domain.ExchangeKalshi: FlatPlusPercent{
			Flat:    decimal.RequireFromString("0.005"),
			Percent: decimal.RequireFromString("0.01"),
		},
		domain.ExchangePolymarket: PercentOfPayout{Percent: decimal.RequireFromString("0.02")},
		domain.ExchangePredictIt:  PercentOfPayout{Percent: decimal.RequireFromString("0.10")},
	}
}

// NewFeeStructure builds a FeeStructure from per-exchange specs, starting
// from the defaults.
func NewFeeStructure(specs map[string]FeeSpec) (FeeStructure, error) {
	fs := DefaultFeeStructure()
	for name, spec := range specs {
		ex, ok := domain.ParseExchange(name)
		if !ok {
			return nil, fmt.Errorf("arbitrage: fee schedule: unknown exchange %q", name)
		}
		m, err := NewFeeModel(spec)
		if err != nil {
			return nil, err
		}
		fs[ex] = m
	}
	return fs, nil
}

// For returns the model for ex, NoFee when none is configured.
func (fs FeeStructure) For(ex domain.Exchange) FeeModel {
	if m, ok := fs[ex]; ok && m != nil {
		return m
	}
	return NoFee{}
}
