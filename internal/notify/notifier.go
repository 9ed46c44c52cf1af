// Package notify fans opportunity alerts out to chat webhooks. Alerts can be
// filtered by event type, are suppressed when an identical alert went out
// recently, and each channel is rate limited on its own.
package notify

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// Sender delivers one alert over one channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	// Name identifies the channel in logs, e.g. "telegram".
	Name() string
}

// Config tunes the Notifier.
type Config struct {
	// Events limits Notify to these event types. Empty allows all.
	Events []string
	// DedupWindow suppresses a repeat of the same event and title. Zero
	// disables suppression.
	DedupWindow time.Duration
	// PerMinute caps sends per channel. Zero means unlimited.
	PerMinute int
}

type channel struct {
	sender  Sender
	limiter *rate.Limiter
}

// Notifier dispatches alerts to every configured Sender.
type Notifier struct {
	channels []channel
	events   map[string]bool
	seen     *gocache.Cache
	logger   *slog.Logger
}

// NewNotifier creates a Notifier for senders.
func NewNotifier(senders []Sender, cfg Config, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(cfg.Events))
	for _, e := range cfg.Events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	n := &Notifier{
		events: allowed,
		logger: logger.With(slog.String("component", "notifier")),
	}
	if cfg.DedupWindow > 0 {
		n.seen = gocache.New(cfg.DedupWindow, 2*cfg.DedupWindow)
	}
	for _, s := range senders {
		ch := channel{sender: s}
		if cfg.PerMinute > 0 {
			ch.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.PerMinute)), cfg.PerMinute)
		}
		n.channels = append(n.channels, ch)
	}
	return n
}

// Enabled reports whether any sender is configured.
func (n *Notifier) Enabled() bool { return len(n.channels) > 0 }

// Notify sends the alert if its event type is allowed and it is not a
// recent duplicate.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "notifier: event filtered out", slog.String("event", event))
		return nil
	}
	if n.seen != nil {
		key := dedupKey(event, title)
		if err := n.seen.Add(key, struct{}{}, gocache.DefaultExpiration); err != nil {
			n.logger.DebugContext(ctx, "notifier: duplicate suppressed",
				slog.String("event", event),
				slog.String("title", title),
			)
			return nil
		}
	}
	return n.dispatch(ctx, title, message)
}

// NotifyAll sends to every sender, bypassing the event filter and dedup.
func (n *Notifier) NotifyAll(ctx context.Context, title, message string) error {
	return n.dispatch(ctx, title, message)
}

// dispatch sends to each channel; one failing channel does not stop the
// others. A channel over its rate budget is skipped, not queued.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	var errs []error
	for _, ch := range n.channels {
		name := ch.sender.Name()
		if ch.limiter != nil && !ch.limiter.Allow() {
			n.logger.WarnContext(ctx, "notifier: rate limited", slog.String("sender", name))
			continue
		}
		if err := ch.sender.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "notifier: sender failed",
				slog.String("sender", name),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		n.logger.DebugContext(ctx, "notifier: sent",
			slog.String("sender", name),
			slog.String("title", title),
		)
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

func dedupKey(event, title string) string {
	sum := sha256.Sum256([]byte(event + "\x00" + title))
	return hex.EncodeToString(sum[:12])
}
