// Package rest is the small JSON-over-HTTP client the exchange adapters
// share: status mapping to domain errors and bounded retries on 429 and 5xx.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// Signer adds authentication headers to a request. path includes the
// query string.
type Signer func(req *http.Request, method, path string) error

// Config tunes a Client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
	Signer     Signer
}

// Client issues GET requests against one API root.
type Client struct {
	baseURL    string
	http       *http.Client
	maxRetries int
	backoff    time.Duration
	signer     Signer
}

// New creates a Client. Zero values take defaults: 30s timeout, 2 retries,
// 250ms initial backoff.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	} else if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 2
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 250 * time.Millisecond
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		http:       &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.Backoff,
		signer:     cfg.Signer,
	}
}

// StatusError is a non-2xx response.
type StatusError struct {
	Code int
	Body string
	err  error
}

func (e *StatusError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("HTTP %d: %v: %s", e.Code, e.err, e.Body)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return e.err }

func statusError(code int, body []byte) error {
	if len(body) > 512 {
		body = body[:512]
	}
	se := &StatusError{Code: code, Body: string(body)}
	switch code {
	case http.StatusNotFound:
		se.err = domain.ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		se.err = domain.ErrUnauthorized
	case http.StatusTooManyRequests:
		se.err = domain.ErrRateLimited
	}
	return se
}

func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= 500
	}
	return false
}

// GetJSON fetches path with query and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	body, err := c.get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	wait := c.backoff
	for attempt := 0; ; attempt++ {
		body, err := c.once(ctx, path)
		if err == nil || attempt >= c.maxRetries || !retryable(err) {
			return body, err
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
		wait *= 2
	}
}

func (c *Client) once(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.signer != nil {
		if err := c.signer(req, http.MethodGet, path); err != nil {
			return nil, fmt.Errorf("sign request: %w", err)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp.StatusCode, body)
	}
	return body, nil
}

// ParseTime accepts RFC 3339 with or without fractional seconds. The zero
// time means absent or malformed.
func ParseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(sec, 0).UTC()
	}
	return time.Time{}
}
