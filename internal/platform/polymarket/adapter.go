// Package polymarket is a read-only adapter for Polymarket: markets come
// from the Gamma API and quotes from the CLOB book of each outcome token.
package polymarket

import (
	"context"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/alanyoungcy/arbscanner/internal/platform/rest"
)

// Adapter implements domain.ExchangeAdapter for Polymarket. Market IDs are
// Gamma slugs.
type Adapter struct {
	gamma  *GammaClient
	clob   *ClobClient
	tokens *gocache.Cache // slug -> [2]string{yesToken, noToken}
	now    func() time.Time
}

// NewAdapter creates an Adapter. Token IDs learned from market listings are
// remembered for tokenTTL so quoting does not re-read the market.
func NewAdapter(gamma *GammaClient, clob *ClobClient, tokenTTL time.Duration) *Adapter {
	if tokenTTL <= 0 {
		tokenTTL = time.Hour
	}
	return &Adapter{
		gamma:  gamma,
		clob:   clob,
		tokens: gocache.New(tokenTTL, tokenTTL),
		now:    time.Now,
	}
}

var _ domain.ExchangeAdapter = (*Adapter)(nil)

func (a *Adapter) Exchange() domain.Exchange { return domain.ExchangePolymarket }

// GetMarkets lists markets. Only binary markets with both token IDs are
// returned.
func (a *Adapter) GetMarkets(ctx context.Context, f domain.MarketFilter) ([]domain.Market, error) {
	raw, err := a.gamma.ListMarkets(ctx, MarketsQuery{
		Slugs:    f.IDs,
		OpenOnly: strings.EqualFold(f.Status, "open"),
		Limit:    f.Limit,
	})
	if err != nil {
		return nil, a.wrap("list markets", err)
	}
	out := make([]domain.Market, 0, len(raw))
	for _, am := range raw {
		m, ok := am.ToDomain()
		if !ok {
			continue
		}
		if f.Category != "" && !strings.EqualFold(am.Category, f.Category) {
			continue
		}
		md := m.Metadata.(domain.PolymarketMetadata)
		a.tokens.SetDefault(m.ID, md.TokenIDs)
		out = append(out, m)
	}
	return out, nil
}

// GetQuote reads the YES and NO token books concurrently.
func (a *Adapter) GetQuote(ctx context.Context, slug string) (domain.Quote, error) {
	tokens, err := a.tokenIDs(ctx, slug)
	if err != nil {
		return domain.Quote{}, a.wrap("quote "+slug, err)
	}

	var yes, no Book
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { yes, err = a.clob.GetBook(gctx, tokens[0]); return err })
	g.Go(func() (err error) { no, err = a.clob.GetBook(gctx, tokens[1]); return err })
	if err := g.Wait(); err != nil {
		return domain.Quote{}, a.wrap("quote "+slug, err)
	}

	yt, nt := yes.TopOfBook(), no.TopOfBook()
	if yt.Ask.IsZero() && nt.Ask.IsZero() {
		return domain.Quote{}, a.wrap("quote "+slug, domain.ErrQuoteUnavailable)
	}
	return domain.Quote{
		MarketID:  slug,
		Exchange:  domain.ExchangePolymarket,
		Yes:       side(yt),
		No:        side(nt),
		Timestamp: a.now(),
	}, nil
}

func side(t Top) domain.QuoteSide {
	return domain.QuoteSide{
		Bid:       t.Bid.InexactFloat64(),
		Ask:       t.Ask.InexactFloat64(),
		Liquidity: t.AskSize.InexactFloat64(),
	}
}

func (a *Adapter) tokenIDs(ctx context.Context, slug string) ([2]string, error) {
	if v, ok := a.tokens.Get(slug); ok {
		return v.([2]string), nil
	}
	am, err := a.gamma.GetMarketBySlug(ctx, slug)
	if err != nil {
		return [2]string{}, err
	}
	m, ok := am.ToDomain()
	if !ok {
		return [2]string{}, fmt.Errorf("market %s is not a binary market: %w", slug, domain.ErrMarketUnavailable)
	}
	ids := m.Metadata.(domain.PolymarketMetadata).TokenIDs
	a.tokens.SetDefault(slug, ids)
	return ids, nil
}

func (a *Adapter) wrap(op string, err error) error {
	return &domain.AdapterError{Exchange: domain.ExchangePolymarket, Op: op, Err: err}
}

// ToDomain maps a Gamma market. It reports false for markets that are not
// two-outcome or lack token IDs. Token IDs are ordered YES then NO.
func (am APIMarket) ToDomain() (domain.Market, bool) {
	if len(am.ClobTokenIDs) != 2 || am.Slug == "" {
		return domain.Market{}, false
	}
	outcomes := [2]string{"Yes", "No"}
	if len(am.Outcomes) == 2 {
		outcomes = [2]string{am.Outcomes[0], am.Outcomes[1]}
	}
	tokens := [2]string{am.ClobTokenIDs[0], am.ClobTokenIDs[1]}
	if strings.EqualFold(outcomes[1], "yes") {
		outcomes[0], outcomes[1] = outcomes[1], outcomes[0]
		tokens[0], tokens[1] = tokens[1], tokens[0]
	}

	m := domain.Market{
		ID:           am.Slug,
		Exchange:     domain.ExchangePolymarket,
		Title:        am.Question,
		Description:  am.Description,
		Volume24h:    float64(am.Volume24hr),
		LastYesPrice: float64(am.LastTradePrice),
		Metadata: domain.PolymarketMetadata{
			Slug:             am.Slug,
			ConditionID:      am.ConditionID,
			TokenIDs:         tokens,
			Outcomes:         outcomes,
			ResolutionSource: am.ResolutionSource,
			Rules:            am.Description,
		},
	}
	if am.Category != "" {
		m.Hints.Categories = []string{am.Category}
	}
	if t := rest.ParseTime(am.EndDate); !t.IsZero() {
		m.CloseTime = &t
	}
	return m, true
}
