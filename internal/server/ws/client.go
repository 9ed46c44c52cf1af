package ws

import (
	"encoding/json"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 256
)

// filter narrows the opportunity frames a client receives.
type filter struct {
	MinProfit float64         `json:"min_profit"`
	Exchange  domain.Exchange `json:"exchange"`
}

func parseFilter(q url.Values) filter {
	var f filter
	if v, err := strconv.ParseFloat(q.Get("min_profit"), 64); err == nil && v > 0 {
		f.MinProfit = v
	}
	if ex, ok := domain.ParseExchange(q.Get("exchange")); ok {
		f.Exchange = ex
	}
	return f
}

func (f filter) allows(m frameMeta) bool {
	if m.ProfitPercent != nil && *m.ProfitPercent < f.MinProfit {
		return false
	}
	if f.Exchange != "" && m.Exchange1 != "" &&
		m.Exchange1 != string(f.Exchange) && m.Exchange2 != string(f.Exchange) {
		return false
	}
	return true
}

// controlMsg changes a client's subscriptions or filter:
//
//	{"action":"subscribe","channels":["opportunities"]}
//	{"action":"filter","min_profit":2,"exchange":"kalshi"}
type controlMsg struct {
	Action    string   `json:"action"`
	Channels  []string `json:"channels"`
	MinProfit float64  `json:"min_profit"`
	Exchange  string   `json:"exchange"`
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	subs   map[string]bool
	filter filter
}

func newClient(h *Hub, conn *websocket.Conn, f filter) *client {
	c := &client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		subs:   make(map[string]bool, len(h.channels)),
		filter: f,
	}
	for _, ch := range h.channels {
		c.subs[ch] = true
	}
	return c
}

func (c *client) wants(f frame) bool {
	if !c.isSubscribed(f.channel) {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filter.allows(f.meta)
}

// isSubscribed matches exact channels and trailing-* prefixes.
func (c *client) isSubscribed(channel string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.subs[channel] {
		return true
	}
	for sub := range c.subs {
		if prefix, ok := strings.CutSuffix(sub, "*"); ok && strings.HasPrefix(channel, prefix) {
			return true
		}
	}
	return false
}

func (c *client) handleControl(msg controlMsg) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch msg.Action {
	case "subscribe":
		for _, ch := range msg.Channels {
			c.subs[ch] = true
		}
	case "unsubscribe":
		for _, ch := range msg.Channels {
			delete(c.subs, ch)
		}
	case "filter":
		c.filter = filter{MinProfit: max(msg.MinProfit, 0)}
		if ex, ok := domain.ParseExchange(msg.Exchange); ok {
			c.filter.Exchange = ex
		}
	}
}

// sendStatus queues the status snapshot so a client sees a frame before
// the next cycle publishes anything.
func (c *client) sendStatus() {
	if c.hub.status == nil {
		return
	}
	payload, err := json.Marshal(c.hub.status())
	if err != nil {
		return
	}
	f, err := newFrame(statusChannel, payload)
	if err != nil {
		return
	}
	select {
	case c.send <- f.data:
	default:
	}
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("ws: unexpected close", slog.String("error", err.Error()))
			}
			return
		}
		var msg controlMsg
		if json.Unmarshal(raw, &msg) == nil && msg.Action != "" {
			c.handleControl(msg)
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
