package domain

import "time"

// CandidatePair is an unvalidated pairing of two markets on different
// exchanges that may describe the same event.
type CandidatePair struct {
	Market1 Market `json:"market1"`
	Market2 Market `json:"market2"`
}

func (p CandidatePair) Exchange1() Exchange { return p.Market1.Exchange }
func (p CandidatePair) Exchange2() Exchange { return p.Market2.Exchange }

// Key identifies the pair independent of leg order.
func (p CandidatePair) Key() string {
	return PairKey(p.Market1.Exchange, p.Market1.ID, p.Market2.Exchange, p.Market2.ID)
}

// PairKey builds an order-independent key for two exchange/market refs.
func PairKey(ex1 Exchange, id1 string, ex2 Exchange, id2 string) string {
	a := string(ex1) + ":" + id1
	b := string(ex2) + ":" + id2
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

// MarketPairRecord is a stored mapping between two venue market IDs.
type MarketPairRecord struct {
	ID        string    `json:"id"`
	Exchange1 Exchange  `json:"exchange1"`
	MarketID1 string    `json:"market_id1"`
	Exchange2 Exchange  `json:"exchange2"`
	MarketID2 string    `json:"market_id2"`
	Source    string    `json:"source"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}
