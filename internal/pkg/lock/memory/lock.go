package memory

import (
	"context"
	"sync"
	"time"

	"github.com/open-pageflow/pageflow/internal/pkg/lock"
)

type MemoryProvider struct {
	mu    sync.Mutex
	locks map[string]time.Time
}

func NewProvider() *MemoryProvider {
	return &MemoryProvider{
		locks: make(map[string]time.Time),
	}
}

func (p *MemoryProvider) NewLock(key string, ttl time.Duration) lock.Lock {
	return &memoryLock{provider: p, key: key, ttl: ttl}
}

type memoryLock struct {
	provider *MemoryProvider
	key      string
	ttl      time.Duration
}

func (l *memoryLock) Acquire(ctx context.Context) (bool, error) {
	l.provider.mu.Lock()
	defer l.provider.mu.Unlock()

	now := time.Now()
	if expiresAt, ok := l.provider.locks[l.key]; ok && now.Before(expiresAt) {
		return false, nil
	}
	l.provider.locks[l.key] = now.Add(l.ttl)
	return true, nil
}

func (l *memoryLock) Release(ctx context.Context) error {
	l.provider.mu.Lock()
	defer l.provider.mu.Unlock()
	delete(l.provider.locks, l.key)
	return nil
}
