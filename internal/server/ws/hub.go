// Package ws streams signal-bus events to WebSocket clients.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

const statusChannel = "status"

// Envelope wraps every frame sent to clients.
type Envelope struct {
	Channel string          `json:"channel"`
	Payload json.RawMessage `json:"payload"`
}

// Config selects the bus channels the hub relays.
type Config struct {
	Channels []string
	// Status returns the snapshot each client receives on connect.
	Status func() any
	// AllowedOrigins restricts browser clients. Empty or "*" allows any.
	AllowedOrigins []string
}

// frame is a marshalled envelope plus the fields client filters look at.
type frame struct {
	channel string
	data    []byte
	meta    frameMeta
}

// frameMeta is decoded from opportunity payloads; other payloads leave it
// zero and pass every filter.
type frameMeta struct {
	ProfitPercent *float64 `json:"profit_percent"`
	Exchange1     string   `json:"exchange1"`
	Exchange2     string   `json:"exchange2"`
}

// Hub relays bus messages to connected clients. New clients start
// subscribed to every relayed channel.
type Hub struct {
	bus      domain.SignalBus
	channels []string
	status   func() any
	origins  map[string]bool
	upgrader websocket.Upgrader

	frames     chan frame
	register   chan *client
	unregister chan *client
	done       chan struct{}

	mu      sync.RWMutex
	clients map[*client]struct{}

	logger *slog.Logger
}

func NewHub(bus domain.SignalBus, cfg Config, logger *slog.Logger) *Hub {
	channels := cfg.Channels
	if len(channels) == 0 {
		channels = []string{"opportunities"}
	}
	h := &Hub{
		bus:        bus,
		channels:   channels,
		status:     cfg.Status,
		frames:     make(chan frame, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		clients:    make(map[*client]struct{}),
		logger:     logger.With(slog.String("component", "ws_hub")),
	}
	for _, o := range cfg.AllowedOrigins {
		if o == "*" {
			h.origins = nil
			break
		}
		if h.origins == nil {
			h.origins = make(map[string]bool)
		}
		h.origins[o] = true
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin admits non-browser clients, which send no Origin header.
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || h.origins == nil || h.origins[origin]
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Run subscribes to the bus and serves clients until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for _, ch := range h.channels {
		go h.relay(ctx, ch)
	}

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return ctx.Err()

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("ws: client connected", slog.Int("clients", n))

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			n := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("ws: client disconnected", slog.Int("clients", n))

		case f := <-h.frames:
			h.deliver(f)
		}
	}
}

func (h *Hub) deliver(f frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	dropped := 0
	for c := range h.clients {
		if !c.wants(f) {
			continue
		}
		select {
		case c.send <- f.data:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Warn("ws: dropped frame for slow clients",
			slog.String("channel", f.channel),
			slog.Int("clients", dropped),
		)
	}
}

// relay forwards one bus channel into the hub until ctx ends or the
// subscription closes.
func (h *Hub) relay(ctx context.Context, channel string) {
	msgs, err := h.bus.Subscribe(ctx, channel)
	if err != nil {
		h.logger.Error("ws: subscribe failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-msgs:
			if !ok {
				h.logger.Warn("ws: subscription closed", slog.String("channel", channel))
				return
			}
			f, err := newFrame(channel, payload)
			if err != nil {
				continue
			}
			select {
			case h.frames <- f:
			case <-ctx.Done():
				return
			}
		}
	}
}

func newFrame(channel string, payload []byte) (frame, error) {
	if !json.Valid(payload) {
		payload, _ = json.Marshal(string(payload))
	}
	data, err := json.Marshal(Envelope{Channel: channel, Payload: payload})
	if err != nil {
		return frame{}, err
	}
	f := frame{channel: channel, data: data}
	_ = json.Unmarshal(payload, &f.meta)
	return f, nil
}

// HandleWS upgrades the request and registers the client. Query
// parameters min_profit and exchange set the client's opportunity filter.
// GET /ws?min_profit=1.5&exchange=kalshi
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws: upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := newClient(h, conn, parseFilter(r.URL.Query()))
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}
	c.sendStatus()

	go c.writePump()
	go c.readPump()
}
