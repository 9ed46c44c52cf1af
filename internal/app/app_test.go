package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbscanner/internal/config"
	"github.com/alanyoungcy/arbscanner/internal/domain"
	"github.com/alanyoungcy/arbscanner/internal/scanner"
)

func discard() *slog.Logger { return slog.New(slog.NewJSONHandler(io.Discard, nil)) }

func offlineConfig() *config.Config {
	cfg := config.Defaults()
	cfg.Server.Enabled = false
	cfg.Pairs = []config.PairConfig{{
		Exchange1: "kalshi", MarketID1: "KXBTCY-25DEC31",
		Exchange2: "Polymarket", MarketID2: " btc-100k-2025 ",
	}}
	return &cfg
}

func TestWireWithoutBackends(t *testing.T) {
	cfg := offlineConfig()
	deps, cleanup, err := Wire(context.Background(), cfg, discard())
	require.NoError(t, err)
	defer cleanup()

	assert.Len(t, deps.Adapters, 2)
	assert.Nil(t, deps.Opportunities)
	assert.Nil(t, deps.Audit)
	assert.Nil(t, deps.Archiver)
	assert.Nil(t, deps.Similarity)
	assert.NotNil(t, deps.MarketCache)
	assert.NotNil(t, deps.LockManager)
	assert.NotNil(t, deps.SignalBus)
	assert.Empty(t, deps.HealthChecks)
	assert.False(t, deps.Notifier.Enabled())

	p, err := NewPipeline(cfg, deps, discard())
	require.NoError(t, err)
	assert.NotNil(t, p.Runner)
	_, ok := p.Runner.Latest()
	assert.False(t, ok)
}

func TestWireBadKalshiKey(t *testing.T) {
	cfg := offlineConfig()
	cfg.Kalshi.RsaPrivateKey = "not a pem"
	_, _, err := Wire(context.Background(), cfg, discard())
	assert.ErrorContains(t, err, "wire: kalshi")
}

func TestPairSourceRequiresOne(t *testing.T) {
	cfg := offlineConfig()
	cfg.Pairs = nil
	deps, cleanup, err := Wire(context.Background(), cfg, discard())
	require.NoError(t, err)
	defer cleanup()

	_, err = NewPipeline(cfg, deps, discard())
	assert.ErrorContains(t, err, "no pair source")

	cfg.Scanner.Discovery.Enabled = true
	_, err = NewPipeline(cfg, deps, discard())
	assert.NoError(t, err)
}

func TestParsePairs(t *testing.T) {
	refs, err := parsePairs(offlineConfig().Pairs)
	require.NoError(t, err)
	assert.Equal(t, []scanner.PairRef{{
		Exchange1: domain.ExchangeKalshi, MarketID1: "KXBTCY-25DEC31",
		Exchange2: domain.ExchangePolymarket, MarketID2: "btc-100k-2025",
	}}, refs)

	_, err = parsePairs([]config.PairConfig{{Exchange1: "nyse", Exchange2: "kalshi"}})
	assert.Error(t, err)
}

type namedAdapter struct{ ex domain.Exchange }

func (a namedAdapter) Exchange() domain.Exchange { return a.ex }
func (namedAdapter) GetMarkets(context.Context, domain.MarketFilter) ([]domain.Market, error) {
	return nil, nil
}
func (namedAdapter) GetQuote(context.Context, string) (domain.Quote, error) {
	return domain.Quote{}, domain.ErrQuoteUnavailable
}

func TestExchangesOf(t *testing.T) {
	adapters := []domain.ExchangeAdapter{namedAdapter{domain.ExchangeKalshi}, namedAdapter{domain.ExchangePolymarket}}
	assert.Equal(t, []domain.Exchange{domain.ExchangeKalshi, domain.ExchangePolymarket}, exchangesOf(adapters, nil))
	assert.Equal(t, []domain.Exchange{domain.ExchangePolymarket}, exchangesOf(adapters, []string{"POLYMARKET"}))
}

func TestFeeStructureOverrides(t *testing.T) {
	fs, err := feeStructure(map[string]config.FeeConfig{"kalshi": {Model: "none"}})
	require.NoError(t, err)
	assert.Equal(t, "none", fs.For(domain.ExchangeKalshi).Name())
	assert.Equal(t, "percent_of_payout", fs.For(domain.ExchangePolymarket).Name())

	_, err = feeStructure(map[string]config.FeeConfig{"nyse": {}})
	assert.Error(t, err)
}

const btcTitle = "Will Bitcoin close above $100,000 on December 31, 2025?"
const btcRules = "Resolves Yes if the Coinbase BTC-USD spot price is above $100,000 at 11:59 PM ET on December 31, 2025."

func writeFixture(t *testing.T, fx PairFixture) string {
	t.Helper()
	raw, err := json.Marshal(fx)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "pair.json")
	require.NoError(t, os.WriteFile(path, raw, 0o600))
	return path
}

func TestEvaluateFixture(t *testing.T) {
	closeAt := time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC)
	fx := PairFixture{
		Market1: domain.Market{ID: "KXBTCY-25DEC31", Exchange: domain.ExchangeKalshi, Title: btcTitle, Description: btcRules, CloseTime: &closeAt, Volume24h: 20000},
		Market2: domain.Market{ID: "btc-100k-2025", Exchange: domain.ExchangePolymarket, Title: btcTitle, Description: btcRules, CloseTime: &closeAt, Volume24h: 20000},
		Quote1: domain.Quote{
			Yes: domain.QuoteSide{Bid: 0.48, Ask: 0.50, Liquidity: 4000},
			No:  domain.QuoteSide{Bid: 0.50, Ask: 0.52, Liquidity: 4000},
		},
		Quote2: domain.Quote{
			Yes: domain.QuoteSide{Bid: 0.53, Ask: 0.57, Liquidity: 6000},
			No:  domain.QuoteSide{Bid: 0.43, Ask: 0.45, Liquidity: 6000},
		},
	}

	var out bytes.Buffer
	a := New(offlineConfig(), discard())
	require.NoError(t, a.Evaluate(context.Background(), writeFixture(t, fx), &out))

	var ev struct {
		Rejected    *scanner.Rejection `json:"rejected"`
		Opportunity *struct {
			TotalCost float64 `json:"total_cost"`
		} `json:"opportunity"`
	}
	require.NoError(t, json.Unmarshal(out.Bytes(), &ev))
	require.Nil(t, ev.Rejected, "%+v", ev.Rejected)
	require.NotNil(t, ev.Opportunity)
	assert.InDelta(t, 0.95, ev.Opportunity.TotalCost, 1e-9)
}

func TestEvaluateRejection(t *testing.T) {
	fx := PairFixture{
		Market1: domain.Market{ID: "KXPRES-28", Exchange: domain.ExchangeKalshi, Title: "Will X win the 2028 presidential election?"},
		Market2: domain.Market{ID: "honduras", Exchange: domain.ExchangePolymarket, Title: "Next president of Honduras?"},
	}
	var out bytes.Buffer
	a := New(offlineConfig(), discard())
	require.NoError(t, a.Evaluate(context.Background(), writeFixture(t, fx), &out))
	assert.Contains(t, out.String(), `"stage": "validation"`)
}

func TestEvaluateBadFixture(t *testing.T) {
	a := New(offlineConfig(), discard())
	assert.Error(t, a.Evaluate(context.Background(), filepath.Join(t.TempDir(), "missing.json"), io.Discard))
	assert.ErrorContains(t, a.Evaluate(context.Background(), writeFixture(t, PairFixture{}), io.Discard), "need an exchange")
}
