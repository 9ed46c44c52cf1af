package domain

import "time"

// QuoteSide is the top of book for one side (YES or NO) of a binary market.
// Prices are probabilities in [0,1]; Liquidity is contracts available at Ask.
type QuoteSide struct {
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Liquidity float64 `json:"liquidity"`
}

// Quote is a point-in-time snapshot of a market's book.
type Quote struct {
	MarketID  string    `json:"market_id"`
	Exchange  Exchange  `json:"exchange"`
	Yes       QuoteSide `json:"yes"`
	No        QuoteSide `json:"no"`
	Timestamp time.Time `json:"timestamp"`
}

// Age returns how old the quote is relative to now.
func (q Quote) Age(now time.Time) time.Duration {
	if q.Timestamp.IsZero() {
		return 0
	}
	return now.Sub(q.Timestamp)
}

// QuotePair holds the quotes for both legs of a candidate pair, in pair order.
type QuotePair struct {
	Quote1 Quote `json:"quote1"`
	Quote2 Quote `json:"quote2"`
}
