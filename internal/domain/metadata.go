package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExchangeMetadata is the per-venue payload attached to a Market. Exactly one
// implementation exists per Exchange.
type ExchangeMetadata interface {
	Exchange() Exchange
	RulesText() string
	TickerCode() string
}

// KalshiMetadata carries Kalshi event/market tickers and rule text.
type KalshiMetadata struct {
	Ticker           string `json:"ticker"`
	EventTicker      string `json:"event_ticker,omitempty"`
	SeriesTicker     string `json:"series_ticker,omitempty"`
	RulesPrimary     string `json:"rules_primary,omitempty"`
	RulesSecondary   string `json:"rules_secondary,omitempty"`
	SettlementSource string `json:"settlement_source,omitempty"`
}

func (KalshiMetadata) Exchange() Exchange   { return ExchangeKalshi }
func (k KalshiMetadata) TickerCode() string { return k.Ticker }

func (k KalshiMetadata) RulesText() string {
	return joinNonEmpty(k.RulesPrimary, k.RulesSecondary, k.SettlementSource)
}

// PolymarketMetadata carries the Gamma slug, condition and token identifiers.
type PolymarketMetadata struct {
	Slug             string    `json:"slug,omitempty"`
	ConditionID      string    `json:"condition_id,omitempty"`
	TokenIDs         [2]string `json:"token_ids"`
	Outcomes         [2]string `json:"outcomes"`
	ResolutionSource string    `json:"resolution_source,omitempty"`
	Rules            string    `json:"rules,omitempty"`
}

func (PolymarketMetadata) Exchange() Exchange { return ExchangePolymarket }
func (PolymarketMetadata) TickerCode() string { return "" }

func (p PolymarketMetadata) RulesText() string {
	return joinNonEmpty(p.Rules, p.ResolutionSource)
}

// PredictItMetadata carries the parent market and contract names. A PredictIt
// contract is one outcome of a multi-outcome market.
type PredictItMetadata struct {
	MarketID     int    `json:"market_id,omitempty"`
	ContractID   int    `json:"contract_id,omitempty"`
	MarketName   string `json:"market_name,omitempty"`
	ContractName string `json:"contract_name,omitempty"`
	Rules        string `json:"rules,omitempty"`
}

func (PredictItMetadata) Exchange() Exchange  { return ExchangePredictIt }
func (PredictItMetadata) TickerCode() string  { return "" }
func (p PredictItMetadata) RulesText() string { return p.Rules }

func joinNonEmpty(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n")
}

// marketJSON is the wire form of Market with the metadata union flattened
// into a discriminated object.
type marketJSON struct {
	marketAlias
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

type marketAlias Market

// MarshalJSON encodes the metadata union under "metadata"; the venue is taken
// from the market's Exchange field.
func (m Market) MarshalJSON() ([]byte, error) {
	out := marketJSON{marketAlias: marketAlias(m)}
	if m.Metadata != nil {
		raw, err := json.Marshal(m.Metadata)
		if err != nil {
			return nil, err
		}
		out.Metadata = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the metadata union using the Exchange discriminator.
func (m *Market) UnmarshalJSON(data []byte) error {
	var in marketJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*m = Market(in.marketAlias)
	m.Metadata = nil
	if len(in.Metadata) == 0 || string(in.Metadata) == "null" {
		return nil
	}
	var (
		md  ExchangeMetadata
		err error
	)
	switch m.Exchange {
	case ExchangeKalshi:
		var k KalshiMetadata
		err = json.Unmarshal(in.Metadata, &k)
		md = k
	case ExchangePolymarket:
		var p PolymarketMetadata
		err = json.Unmarshal(in.Metadata, &p)
		md = p
	case ExchangePredictIt:
		var p PredictItMetadata
		err = json.Unmarshal(in.Metadata, &p)
		md = p
	default:
		return fmt.Errorf("market %s: metadata for unknown exchange %q", m.ID, m.Exchange)
	}
	if err != nil {
		return fmt.Errorf("market %s: decode %s metadata: %w", m.ID, m.Exchange, err)
	}
	m.Metadata = md
	return nil
}
