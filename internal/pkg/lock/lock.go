package lock

import (
	"context"
	"time"
)

// Lock é um lock de vida limitada usado para garantir no máximo um envio
// concorrente por broadcast. Acquire retorna false sem erro quando o lock já
// está tomado.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

type Provider interface {
	NewLock(key string, ttl time.Duration) Lock
}
