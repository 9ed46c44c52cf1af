package memory

import (
	"context"
	"path"
	"sync"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// SignalBus is a process-local domain.SignalBus for single-instance
// deployments. Channel patterns follow path.Match, like Redis PSUBSCRIBE
// globs. Slow subscribers drop messages rather than block publishers.
type SignalBus struct {
	mu     sync.RWMutex
	subs   map[int]subscription
	nextID int
}

type subscription struct {
	pattern string
	out     chan []byte
}

func NewSignalBus() *SignalBus {
	return &SignalBus{subs: make(map[int]subscription)}
}

func (b *SignalBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, s := range b.subs {
		if ok, _ := path.Match(s.pattern, channel); !ok {
			continue
		}
		msg := append([]byte(nil), payload...)
		select {
		case s.out <- msg:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscription that ends, closing the returned
// channel, when ctx is done.
func (b *SignalBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	if _, err := path.Match(channel, ""); err != nil {
		return nil, err
	}
	out := make(chan []byte, 128)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = subscription{pattern: channel, out: out}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		close(out)
	}()
	return out, nil
}

var _ domain.SignalBus = (*SignalBus)(nil)
