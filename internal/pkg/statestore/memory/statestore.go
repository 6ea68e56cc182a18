package memory

import (
	"context"
	"sync"
	"time"
)

type MemoryStore struct {
	mu        sync.Mutex
	items     map[string]time.Time
	done      chan struct{}
	closeOnce sync.Once
}

func NewStore() *MemoryStore {
	s := &MemoryStore{
		items: make(map[string]time.Time),
		done:  make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

// Close encerra a goroutine de limpeza. Chamadas repetidas são inofensivas.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}

func (s *MemoryStore) Put(ctx context.Context, state string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[state] = time.Now().Add(ttl)
	return nil
}

func (s *MemoryStore) Consume(ctx context.Context, state string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, ok := s.items[state]
	if !ok {
		return false, nil
	}
	delete(s.items, state)
	return time.Now().Before(expiresAt), nil
}

func (s *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			now := time.Now()
			for k, expiresAt := range s.items {
				if now.After(expiresAt) {
					delete(s.items, k)
				}
			}
			s.mu.Unlock()
		}
	}
}
