package statestore

import (
	"context"
	"time"
)

// Store guarda tokens de correlação de uso único com expiração, usados no
// fluxo de login OAuth. Consume remove o token ao validá-lo, de modo que um
// mesmo state nunca autorize dois logins.
type Store interface {
	Put(ctx context.Context, state string, ttl time.Duration) error
	Consume(ctx context.Context, state string) (bool, error)
}
