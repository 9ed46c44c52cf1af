package memory

import (
	"context"
	"sync"
	"time"

	"github.com/alanyoungcy/arbscanner/internal/domain"
)

// LockManager is a process-local domain.LockManager. Locks expire after
// their TTL like the Redis implementation.
type LockManager struct {
	mu    sync.Mutex
	held  map[string]lease
	now   func() time.Time
	nextN uint64
}

type lease struct {
	n       uint64
	expires time.Time
}

func NewLockManager() *LockManager {
	return &LockManager{held: make(map[string]lease), now: time.Now}
}

func (l *LockManager) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if cur, ok := l.held[key]; ok && now.Before(cur.expires) {
		return nil, domain.ErrLockHeld
	}
	l.nextN++
	n := l.nextN
	l.held[key] = lease{n: n, expires: now.Add(ttl)}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if cur, ok := l.held[key]; ok && cur.n == n {
				delete(l.held, key)
			}
		})
	}, nil
}

var _ domain.LockManager = (*LockManager)(nil)
