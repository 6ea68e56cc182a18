package queue

import (
	"context"
	"encoding/json"
	"time"
)

// Event é um evento de webhook recebido da plataforma, enfileirado para
// processamento assíncrono. PageID é o id da página na plataforma (não o id
// interno); Payload carrega o objeto messaging bruto.
type Event struct {
	ID        string          `json:"id"`
	PageID    string          `json:"pageId"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"createdAt"`
}

type Queue interface {
	Enqueue(ctx context.Context, event Event) error
	Dequeue(ctx context.Context, timeout time.Duration) (*Event, error)
	Size(ctx context.Context) (int64, error)
	Close() error
}
