// Package kalshi is a read-only adapter for the Kalshi trade API.
package kalshi

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/arbscanner/internal/platform/rest"
)

// DefaultBaseURL is the production API root.
const DefaultBaseURL = "https://api.elections.kalshi.com/trade-api/v2"

// Client is the REST client for the Kalshi API. Market data is public;
// requests are signed only when a key is configured.
type Client struct {
	http       *rest.Client
	apiKeyID   string
	privateKey *rsa.PrivateKey
}

// ClientConfig configures a Client.
type ClientConfig struct {
	BaseURL    string
	APIKeyID   string
	PrivateKey []byte // PEM
	Timeout    time.Duration
	MaxRetries int
}

// NewClient creates a Kalshi REST client.
func NewClient(cfg ClientConfig) (*Client, error) {
	c := &Client{apiKeyID: cfg.APIKeyID}
	if len(cfg.PrivateKey) > 0 {
		if err := c.setRSAPrivateKey(cfg.PrivateKey); err != nil {
			return nil, err
		}
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	rc := rest.Config{BaseURL: base, Timeout: cfg.Timeout, MaxRetries: cfg.MaxRetries}
	if c.privateKey != nil {
		rc.Signer = c.signRequest
	}
	c.http = rest.New(rc)
	return c, nil
}

// setRSAPrivateKey loads a PKCS#8 or PKCS#1 PEM key.
func (c *Client) setRSAPrivateKey(pemBytes []byte) error {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return fmt.Errorf("kalshi: no PEM block found in private key")
	}
	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		pkcs1Key, pkcs1Err := x509.ParsePKCS1PrivateKey(block.Bytes)
		if pkcs1Err != nil {
			return fmt.Errorf("kalshi: parse private key: %w (pkcs1: %v)", err, pkcs1Err)
		}
		c.privateKey = pkcs1Key
		return nil
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return fmt.Errorf("kalshi: expected RSA private key, got %T", key)
	}
	c.privateKey = rsaKey
	return nil
}

// MarketsQuery narrows ListMarkets.
type MarketsQuery struct {
	Tickers     []string
	EventTicker string
	Status      string
	Limit       int
}

// ListMarkets follows the cursor until the query is exhausted or Limit
// markets have been read.
func (c *Client) ListMarkets(ctx context.Context, q MarketsQuery) ([]KalshiMarket, error) {
	const pageSize = 200
	var out []KalshiMarket
	cursor := ""
	for {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(pageSize))
		if len(q.Tickers) > 0 {
			params.Set("tickers", strings.Join(q.Tickers, ","))
		}
		if q.EventTicker != "" {
			params.Set("event_ticker", q.EventTicker)
		}
		if q.Status != "" {
			params.Set("status", q.Status)
		}
		if cursor != "" {
			params.Set("cursor", cursor)
		}

		var resp struct {
			Markets []KalshiMarket `json:"markets"`
			Cursor  string         `json:"cursor"`
		}
		if err := c.http.GetJSON(ctx, "/markets", params, &resp); err != nil {
			return nil, fmt.Errorf("kalshi: list markets: %w", err)
		}
		out = append(out, resp.Markets...)
		if q.Limit > 0 && len(out) >= q.Limit {
			return out[:q.Limit], nil
		}
		if resp.Cursor == "" || len(resp.Markets) == 0 {
			return out, nil
		}
		cursor = resp.Cursor
	}
}

// GetOrderbook returns the current book for ticker.
func (c *Client) GetOrderbook(ctx context.Context, ticker string) (KalshiOrderbook, error) {
	var resp struct {
		Orderbook KalshiOrderbook `json:"orderbook"`
	}
	if err := c.http.GetJSON(ctx, "/markets/"+url.PathEscape(ticker)+"/orderbook", nil, &resp); err != nil {
		return KalshiOrderbook{}, fmt.Errorf("kalshi: get orderbook %s: %w", ticker, err)
	}
	return resp.Orderbook, nil
}

// signRequest adds RSA-PSS-SHA256 auth headers over timestamp + method +
// path. The signed path is the full URL path without the query.
func (c *Client) signRequest(req *http.Request, method, _ string) error {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	hash := sha256.Sum256([]byte(ts + method + req.URL.Path))
	signature, err := rsa.SignPSS(rand.Reader, c.privateKey, crypto.SHA256, hash[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
	})
	if err != nil {
		return fmt.Errorf("RSA sign: %w", err)
	}
	req.Header.Set("KALSHI-ACCESS-KEY", c.apiKeyID)
	req.Header.Set("KALSHI-ACCESS-SIGNATURE", base64.StdEncoding.EncodeToString(signature))
	req.Header.Set("KALSHI-ACCESS-TIMESTAMP", ts)
	return nil
}
