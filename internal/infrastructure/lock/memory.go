package lock

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker serializes holders inside one process. Expired holds are taken over.
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]memoryHold
	now   func() time.Time
	token uint64
}

type memoryHold struct {
	token     uint64
	expiresAt time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		held: make(map[string]memoryHold),
		now:  time.Now,
	}
}

func (l *MemoryLocker) TryLock(_ context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if hold, ok := l.held[key]; ok && now.Before(hold.expiresAt) {
		return nil, false, nil
	}

	l.token++
	token := l.token
	l.held[key] = memoryHold{token: token, expiresAt: now.Add(ttl)}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if hold, ok := l.held[key]; ok && hold.token == token {
			delete(l.held, key)
		}
		return nil
	}, true, nil
}
