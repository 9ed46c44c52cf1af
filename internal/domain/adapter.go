package domain

import "context"

// MarketFilter narrows a GetMarkets call. Empty fields do not filter.
type MarketFilter struct {
	IDs      []string
	Category string
	Status   string
	Limit    int
}

// ExchangeAdapter is the read-only view of one venue the scanner consumes.
// Adapters own their own retry and rate-limit policy.
type ExchangeAdapter interface {
	Exchange() Exchange
	GetMarkets(ctx context.Context, filter MarketFilter) ([]Market, error)
	GetQuote(ctx context.Context, marketID string) (Quote, error)
}

// SimilarityProvider scores the semantic similarity of two texts in [0,1].
type SimilarityProvider interface {
	Similarity(ctx context.Context, text1, text2 string) (float64, error)
}
