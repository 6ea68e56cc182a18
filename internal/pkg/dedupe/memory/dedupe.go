package memory

import (
	"context"
	"sync"
	"time"
)

type MemoryDeduper struct {
	mu        sync.Mutex
	items     map[string]time.Time
	done      chan struct{}
	closeOnce sync.Once
}

func NewDeduper() *MemoryDeduper {
	d := &MemoryDeduper{
		items: make(map[string]time.Time),
		done:  make(chan struct{}),
	}
	go d.cleanupLoop()
	return d
}

// Close encerra a goroutine de limpeza. Chamadas repetidas são inofensivas.
func (d *MemoryDeduper) Close() error {
	d.closeOnce.Do(func() { close(d.done) })
	return nil
}

func (d *MemoryDeduper) Seen(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	if expiresAt, ok := d.items[key]; ok && now.Before(expiresAt) {
		return true, nil
	}
	d.items[key] = now.Add(ttl)
	return false, nil
}

func (d *MemoryDeduper) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-d.done:
			return
		case <-ticker.C:
			d.mu.Lock()
			now := time.Now()
			for k, expiresAt := range d.items {
				if now.After(expiresAt) {
					delete(d.items, k)
				}
			}
			d.mu.Unlock()
		}
	}
}
