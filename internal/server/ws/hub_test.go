package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

type chanBus struct{ ch chan []byte }

func (b *chanBus) Publish(context.Context, string, []byte) error { return errors.New("unused") }

func (b *chanBus) Subscribe(context.Context, string) (<-chan []byte, error) { return b.ch, nil }

func TestHubRelaysBusMessages(t *testing.T) {
	bus := &chanBus{ch: make(chan []byte, 1)}
	hub := NewHub(bus, Config{Status: func() any { return map[string]string{"state": "idle"} }},
		slog.New(slog.NewJSONHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	assert.Equal(t, "status", env.Channel)
	assert.JSONEq(t, `{"state":"idle"}`, string(env.Payload))

	bus.ch <- []byte(`{"event":"opportunity_detected","id":"o1"}`)
	require.NoError(t, conn.ReadJSON(&env))
	assert.Equal(t, "opportunities", env.Channel)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "o1", payload["id"])
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+query, nil)
	require.NoError(t, err)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func TestHubFiltersByProfitAndExchange(t *testing.T) {
	bus := &chanBus{ch: make(chan []byte, 3)}
	hub := NewHub(bus, Config{}, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	defer srv.Close()
	conn := dial(t, srv, "?min_profit=2&exchange=kalshi")
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	bus.ch <- []byte(`{"id":"low","profit_percent":1.2,"exchange1":"kalshi","exchange2":"polymarket"}`)
	bus.ch <- []byte(`{"id":"other","profit_percent":5,"exchange1":"predictit","exchange2":"polymarket"}`)
	bus.ch <- []byte(`{"id":"keep","profit_percent":3.5,"exchange1":"polymarket","exchange2":"kalshi"}`)

	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	var payload map[string]any
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Equal(t, "keep", payload["id"])
}

func TestCheckOrigin(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	req := func(origin string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/ws", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return r
	}

	open := NewHub(&chanBus{}, Config{}, logger)
	assert.True(t, open.checkOrigin(req("https://evil.example")))

	restricted := NewHub(&chanBus{}, Config{AllowedOrigins: []string{"https://ops.example"}}, logger)
	assert.True(t, restricted.checkOrigin(req("https://ops.example")))
	assert.True(t, restricted.checkOrigin(req("")))
	assert.False(t, restricted.checkOrigin(req("https://evil.example")))

	wildcard := NewHub(&chanBus{}, Config{AllowedOrigins: []string{"https://ops.example", "*"}}, logger)
	assert.True(t, wildcard.checkOrigin(req("https://evil.example")))
}

func TestParseFilter(t *testing.T) {
	f := parseFilter(url.Values{"min_profit": {"1.5"}, "exchange": {"Polymarket"}})
	assert.Equal(t, filter{MinProfit: 1.5, Exchange: domain.ExchangePolymarket}, f)
	assert.Equal(t, filter{}, parseFilter(url.Values{"min_profit": {"-3"}, "exchange": {"nyse"}}))

	three := 3.0
	assert.True(t, f.allows(frameMeta{}))
	assert.True(t, f.allows(frameMeta{ProfitPercent: &three, Exchange1: "kalshi", Exchange2: "polymarket"}))
	assert.False(t, f.allows(frameMeta{ProfitPercent: &three, Exchange1: "kalshi", Exchange2: "predictit"}))
}

func TestClientControl(t *testing.T) {
	c := &client{subs: map[string]bool{"opportunities": true}}
	assert.True(t, c.isSubscribed("opportunities"))
	assert.False(t, c.isSubscribed("scans:c1"))

	c.handleControl(controlMsg{Action: "subscribe", Channels: []string{"scans:*"}})
	assert.True(t, c.isSubscribed("scans:c1"))

	c.handleControl(controlMsg{Action: "unsubscribe", Channels: []string{"opportunities"}})
	assert.False(t, c.isSubscribed("opportunities"))

	c.handleControl(controlMsg{Action: "filter", MinProfit: 2, Exchange: "kalshi"})
	assert.Equal(t, filter{MinProfit: 2, Exchange: domain.ExchangeKalshi}, c.filter)
	one := 1.0
	assert.False(t, c.wants(frame{channel: "scans:c1", meta: frameMeta{ProfitPercent: &one}}))
	assert.True(t, c.wants(frame{channel: "scans:c1"}))
}
