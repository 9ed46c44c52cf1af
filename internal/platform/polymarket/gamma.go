package polymarket

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/alanyoungcy/arbscanner/internal/platform/rest"
)

// DefaultGammaURL is the production Gamma API root.
const DefaultGammaURL = "https://gamma-api.polymarket.com"

// GammaClient is the REST client for the Gamma API (market discovery and
// metadata).
type GammaClient struct {
	http *rest.Client
}

// NewGammaClient creates a Gamma client.
func NewGammaClient(baseURL string, timeout time.Duration, maxRetries int) *GammaClient {
	if baseURL == "" {
		baseURL = DefaultGammaURL
	}
	return &GammaClient{http: rest.New(rest.Config{BaseURL: baseURL, Timeout: timeout, MaxRetries: maxRetries})}
}

// MarketsQuery narrows ListMarkets.
type MarketsQuery struct {
	Slugs []string
	// OpenOnly restricts to active, unclosed markets.
	OpenOnly bool
	Limit    int
}

// ListMarkets pages through /markets with limit/offset.
func (g *GammaClient) ListMarkets(ctx context.Context, q MarketsQuery) ([]APIMarket, error) {
	const pageSize = 100
	var out []APIMarket
	for offset := 0; ; offset += pageSize {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(pageSize))
		params.Set("offset", strconv.Itoa(offset))
		for _, s := range q.Slugs {
			params.Add("slug", s)
		}
		if q.OpenOnly {
			params.Set("active", "true")
			params.Set("closed", "false")
		}

		var page []APIMarket
		if err := g.http.GetJSON(ctx, "/markets", params, &page); err != nil {
			return nil, fmt.Errorf("polymarket/gamma: list markets: %w", err)
		}
		out = append(out, page...)
		if q.Limit > 0 && len(out) >= q.Limit {
			return out[:q.Limit], nil
		}
		if len(page) < pageSize {
			return out, nil
		}
	}
}

// GetMarketBySlug returns one market or a wrapped domain.ErrNotFound.
func (g *GammaClient) GetMarketBySlug(ctx context.Context, slug string) (APIMarket, error) {
	ms, err := g.ListMarkets(ctx, MarketsQuery{Slugs: []string{slug}, Limit: 1})
	if err != nil {
		return APIMarket{}, err
	}
	if len(ms) == 0 {
		return APIMarket{}, fmt.Errorf("polymarket/gamma: slug %s: %w", slug, domain.ErrNotFound)
	}
	return ms[0], nil
}
