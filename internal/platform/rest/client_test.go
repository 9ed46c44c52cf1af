package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

func TestGetJSONRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		assert.Equal(t, "open", r.URL.Query().Get("status"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Backoff: time.Millisecond})
	var out struct{ OK bool }
	require.NoError(t, c.GetJSON(context.Background(), "/markets", url.Values{"status": {"open"}}, &out))
	assert.True(t, out.OK)
	assert.EqualValues(t, 3, calls.Load())
}

func TestGetJSONMapsStatus(t *testing.T) {
	cases := map[int]error{
		http.StatusNotFound:        domain.ErrNotFound,
		http.StatusUnauthorized:    domain.ErrUnauthorized,
		http.StatusTooManyRequests: domain.ErrRateLimited,
	}
	for code, want := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(code)
		}))
		c := New(Config{BaseURL: srv.URL, MaxRetries: -1})
		err := c.GetJSON(context.Background(), "/x", nil, &struct{}{})
		assert.ErrorIs(t, err, want, "status %d", code)
		srv.Close()
	}
}

func TestGetJSONDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Backoff: time.Millisecond})
	err := c.GetJSON(context.Background(), "/x", nil, &struct{}{})
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.EqualValues(t, 1, calls.Load())
}

func TestSignerSeesQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "signed", r.Header.Get("X-Sig"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	var seen string
	c := New(Config{BaseURL: srv.URL, Signer: func(req *http.Request, _, path string) error {
		seen = path
		req.Header.Set("X-Sig", "signed")
		return nil
	}})
	require.NoError(t, c.GetJSON(context.Background(), "/markets", url.Values{"limit": {"5"}}, &struct{}{}))
	assert.Equal(t, "/markets?limit=5", seen)
}

func TestParseTime(t *testing.T) {
	assert.Equal(t, 2026, ParseTime("2026-11-03T12:00:00Z").Year())
	assert.Equal(t, 2026, ParseTime("2026-11-03T12:00:00.123Z").Year())
	assert.Equal(t, time.November, ParseTime("2026-11-03").Month())
	assert.True(t, ParseTime("").IsZero())
	assert.True(t, ParseTime("soon").IsZero())
}
