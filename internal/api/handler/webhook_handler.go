package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/open-pageflow/pageflow/internal/pkg/queue"
)

// WebhookHandler recebe os eventos da plataforma. O POST apenas valida o
// formato, fatia o envelope em eventos individuais e os enfileira: a resposta
// é sempre 200 para a plataforma não reentregar nem desativar a inscrição.
type WebhookHandler struct {
	queue       queue.Queue
	verifyToken string
	log         *zap.Logger
}

func NewWebhookHandler(q queue.Queue, verifyToken string, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{queue: q, verifyToken: verifyToken, log: log}
}

func (h *WebhookHandler) RegisterVerify(r *gin.RouterGroup) {
	r.GET("/webhook", h.verify)
}

func (h *WebhookHandler) RegisterReceive(r *gin.RouterGroup) {
	r.POST("/webhook", h.receive)
}

// verify responde ao handshake de inscrição da plataforma.
func (h *WebhookHandler) verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		c.String(http.StatusOK, challenge)
		return
	}

	h.log.Warn("webhook: handshake recusado", zap.String("mode", mode))
	c.String(http.StatusForbidden, "forbidden")
}

type webhookEnvelope struct {
	Object string `json:"object"`
	Entry  []struct {
		ID        string            `json:"id"`
		Time      int64             `json:"time"`
		Messaging []json.RawMessage `json:"messaging"`
	} `json:"entry"`
}

func (h *WebhookHandler) receive(c *gin.Context) {
	var envelope webhookEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		// Corpo fora do formato esperado ainda recebe ack.
		h.log.Warn("webhook: envelope inválido", zap.Error(err))
		c.String(http.StatusOK, "EVENT_RECEIVED")
		return
	}

	if envelope.Object != "page" {
		h.log.Debug("webhook: objeto ignorado", zap.String("object", envelope.Object))
		c.String(http.StatusOK, "EVENT_RECEIVED")
		return
	}

	ctx := c.Request.Context()
	for _, entry := range envelope.Entry {
		for _, raw := range entry.Messaging {
			event := queue.Event{
				ID:        eventID(raw),
				PageID:    entry.ID,
				Type:      "messaging",
				Payload:   raw,
				CreatedAt: time.Now(),
			}
			if err := h.queue.Enqueue(ctx, event); err != nil {
				h.log.Error("webhook: falha ao enfileirar evento",
					zap.String("pageId", entry.ID),
					zap.Error(err),
				)
			}
		}
	}

	c.String(http.StatusOK, "EVENT_RECEIVED")
}

// eventID extrai um identificador estável para dedup: o mid da mensagem
// quando existe, senão remetente+timestamp, senão um uuid.
func eventID(raw json.RawMessage) string {
	var probe struct {
		Sender    struct{ ID string } `json:"sender"`
		Timestamp int64               `json:"timestamp"`
		Message   *struct {
			MID string `json:"mid"`
		} `json:"message"`
	}
	if err := json.Unmarshal(raw, &probe); err == nil {
		if probe.Message != nil && probe.Message.MID != "" {
			return probe.Message.MID
		}
		if probe.Sender.ID != "" && probe.Timestamp > 0 {
			return probe.Sender.ID + ":" + strconv.FormatInt(probe.Timestamp, 10)
		}
	}
	return uuid.NewString()
}
