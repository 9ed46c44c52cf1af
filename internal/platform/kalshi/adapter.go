package kalshi

import (
	"context"
	"strings"
	"time"

	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/alanyoungcy/arbscanner/internal/platform/rest"
)

// tickerBatch bounds the tickers sent in one list request.
const tickerBatch = 100

// Adapter implements domain.ExchangeAdapter for Kalshi.
type Adapter struct {
	client *Client
	now    func() time.Time
}

// NewAdapter wraps client.
func NewAdapter(client *Client) *Adapter {
	return &Adapter{client: client, now: time.Now}
}

var _ domain.ExchangeAdapter = (*Adapter)(nil)

func (a *Adapter) Exchange() domain.Exchange { return domain.ExchangeKalshi }

// GetMarkets lists markets. Status "open" maps to Kalshi's "open" filter;
// Category is applied locally since the markets endpoint cannot filter on it.
func (a *Adapter) GetMarkets(ctx context.Context, f domain.MarketFilter) ([]domain.Market, error) {
	var raw []KalshiMarket
	if len(f.IDs) > 0 {
		for start := 0; start < len(f.IDs); start += tickerBatch {
			end := min(start+tickerBatch, len(f.IDs))
			ms, err := a.client.ListMarkets(ctx, MarketsQuery{Tickers: f.IDs[start:end], Status: f.Status})
			if err != nil {
				return nil, a.wrap("list markets", err)
			}
			raw = append(raw, ms...)
		}
	} else {
		ms, err := a.client.ListMarkets(ctx, MarketsQuery{Status: f.Status, Limit: f.Limit})
		if err != nil {
			return nil, a.wrap("list markets", err)
		}
		raw = ms
	}

	out := make([]domain.Market, 0, len(raw))
	for _, km := range raw {
		m := km.ToDomain()
		if f.Category != "" && !strings.EqualFold(km.Category, f.Category) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// GetQuote derives both sides' top of book from the resting bids: a YES ask
// is 100 minus the best NO bid, and vice versa.
func (a *Adapter) GetQuote(ctx context.Context, ticker string) (domain.Quote, error) {
	book, err := a.client.GetOrderbook(ctx, ticker)
	if err != nil {
		return domain.Quote{}, a.wrap("quote "+ticker, err)
	}
	if len(book.Yes) == 0 && len(book.No) == 0 {
		return domain.Quote{}, a.wrap("quote "+ticker, domain.ErrQuoteUnavailable)
	}
	return book.ToQuote(ticker, a.now()), nil
}

func (a *Adapter) wrap(op string, err error) error {
	return &domain.AdapterError{Exchange: domain.ExchangeKalshi, Op: op, Err: err}
}

// ToDomain maps the API market onto domain.Market.
func (km KalshiMarket) ToDomain() domain.Market {
	m := domain.Market{
		ID:           km.Ticker,
		Exchange:     domain.ExchangeKalshi,
		Title:        km.Title,
		Description:  firstNonEmpty(km.Subtitle, km.YesSubTitle),
		Volume24h:    float64(km.Volume24H),
		LastYesPrice: km.LastPrice / 100,
		Metadata: domain.KalshiMetadata{
			Ticker:         km.Ticker,
			EventTicker:    km.EventTicker,
			SeriesTicker:   km.SeriesTicker,
			RulesPrimary:   km.RulesPrimary,
			RulesSecondary: km.RulesSecondary,
		},
	}
	if km.Category != "" {
		m.Hints.Categories = []string{km.Category}
	}
	if t := rest.ParseTime(firstNonEmpty(km.CloseTime, km.ExpirationTime)); !t.IsZero() {
		m.CloseTime = &t
	}
	return m
}

// ToQuote converts the book. Levels are ascending, so the best bid is last.
func (b KalshiOrderbook) ToQuote(ticker string, now time.Time) domain.Quote {
	yesBid, yesBidQty := best(b.Yes)
	noBid, noBidQty := best(b.No)
	q := domain.Quote{MarketID: ticker, Exchange: domain.ExchangeKalshi, Timestamp: now}
	if yesBid > 0 {
		q.Yes.Bid = cents(yesBid)
	}
	if noBid > 0 {
		q.No.Bid = cents(noBid)
		q.Yes.Ask = cents(100 - noBid)
		q.Yes.Liquidity = float64(noBidQty)
	}
	if yesBid > 0 {
		q.No.Ask = cents(100 - yesBid)
		q.No.Liquidity = float64(yesBidQty)
	}
	return q
}

func best(levels [][2]int64) (price, qty int64) {
	for _, l := range levels {
		if l[0] > price && l[1] > 0 {
			price, qty = l[0], l[1]
		}
	}
	return price, qty
}

func cents(c int64) float64 { return float64(c) / 100 }

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}
