package dedupe

import (
	"context"
	"time"
)

// Deduper registra identificadores de eventos já processados por uma janela
// de tempo. Seen retorna true quando a chave já tinha sido registrada, o que
// permite descartar reentregas de webhook da plataforma.
type Deduper interface {
	Seen(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
