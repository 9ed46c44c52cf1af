package domain

import (
	"strings"
	"time"
)

// Exchange identifies a prediction-market venue.
type Exchange string

const (
	ExchangeKalshi     Exchange = "kalshi"
	ExchangePolymarket Exchange = "polymarket"
	ExchangePredictIt  Exchange = "predictit"
)

// ParseExchange normalizes a venue name. The second result is false for
// unknown venues.
func ParseExchange(s string) (Exchange, bool) {
	switch Exchange(strings.ToLower(strings.TrimSpace(s))) {
	case ExchangeKalshi:
		return ExchangeKalshi, true
	case ExchangePolymarket:
		return ExchangePolymarket, true
	case ExchangePredictIt:
		return ExchangePredictIt, true
	}
	return "", false
}

// PositionType is the office a political market is about.
type PositionType string

const (
	PositionUnknown       PositionType = ""
	PositionPresident     PositionType = "PRESIDENT"
	PositionVicePresident PositionType = "VICE_PRESIDENT"
)

// EventType distinguishes nomination markets from outright winner markets.
type EventType string

const (
	EventUnknown EventType = ""
	EventNominee EventType = "NOMINEE"
	EventWinner  EventType = "WINNER"
)

// MarketHints are optional structured attributes an adapter may know about a
// market. Zero values mean "not known" and heuristics fall back to text.
type MarketHints struct {
	PositionType PositionType `json:"position_type,omitempty"`
	EventType    EventType    `json:"event_type,omitempty"`
	Year         int          `json:"year,omitempty"`
	Party        string       `json:"party,omitempty"`
	Categories   []string     `json:"categories,omitempty"`
}

// Market is a single binary contract on one exchange.
type Market struct {
	ID           string           `json:"id"`
	Exchange     Exchange         `json:"exchange"`
	Title        string           `json:"title"`
	Description  string           `json:"description,omitempty"`
	CloseTime    *time.Time       `json:"close_time,omitempty"`
	Volume24h    float64          `json:"volume_24h,omitempty"`
	LastYesPrice float64          `json:"last_yes_price,omitempty"`
	Hints        MarketHints      `json:"hints"`
	Metadata     ExchangeMetadata `json:"-"`
}

// Text returns the title and description joined for keyword scans.
func (m Market) Text() string {
	if m.Description == "" {
		return m.Title
	}
	return m.Title + " " + m.Description
}

// RulesText returns the venue's resolution rules, falling back to the
// description when the adapter supplied no metadata.
func (m Market) RulesText() string {
	if m.Metadata != nil {
		if r := strings.TrimSpace(m.Metadata.RulesText()); r != "" {
			return r
		}
	}
	return m.Description
}

// Ticker returns the venue-specific short code, if any. Kalshi markets use
// their ID as ticker when no metadata is attached.
func (m Market) Ticker() string {
	if m.Metadata != nil {
		if t := m.Metadata.TickerCode(); t != "" {
			return t
		}
	}
	if m.Exchange == ExchangeKalshi {
		return m.ID
	}
	return ""
}
