package polymarket

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/arbscanner/internal/platform/rest"
)

// DefaultClobURL is the production CLOB API root.
const DefaultClobURL = "https://clob.polymarket.com"

// ClobClient reads order books from the CLOB API. Book reads are public.
type ClobClient struct {
	http *rest.Client
}

// NewClobClient creates a CLOB client.
func NewClobClient(baseURL string, timeout time.Duration, maxRetries int) *ClobClient {
	if baseURL == "" {
		baseURL = DefaultClobURL
	}
	return &ClobClient{http: rest.New(rest.Config{BaseURL: baseURL, Timeout: timeout, MaxRetries: maxRetries})}
}

// GetBook returns the book for one outcome token.
func (c *ClobClient) GetBook(ctx context.Context, tokenID string) (Book, error) {
	var b Book
	if err := c.http.GetJSON(ctx, "/book", url.Values{"token_id": {tokenID}}, &b); err != nil {
		return Book{}, fmt.Errorf("polymarket/clob: get book %s: %w", tokenID, err)
	}
	return b, nil
}

// Top is the best bid and ask of a book with the size resting at the ask.
type Top struct {
	Bid     decimal.Decimal
	Ask     decimal.Decimal
	AskSize decimal.Decimal
}

// TopOfBook scans both sides; the API does not promise level order.
// Malformed levels are skipped.
func (b Book) TopOfBook() Top {
	var t Top
	for _, l := range b.Bids {
		p, s, ok := parseLevel(l)
		if ok && s.IsPositive() && p.GreaterThan(t.Bid) {
			t.Bid = p
		}
	}
	for _, l := range b.Asks {
		p, s, ok := parseLevel(l)
		if !ok || !s.IsPositive() {
			continue
		}
		if t.Ask.IsZero() || p.LessThan(t.Ask) {
			t.Ask, t.AskSize = p, s
		}
	}
	return t
}

func parseLevel(l BookLevel) (decimal.Decimal, decimal.Decimal, bool) {
	p, err := decimal.NewFromString(l.Price)
	if err != nil {
		return decimal.Zero, decimal.Zero, false
	}
	s, err := decimal.NewFromString(l.Size)
	if err != nil {
		return decimal.Zero, decimal.Zero, false
	}
	return p, s, true
}
