package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// Sender envia um payload renderizado para um destinatário. A falha vem
// sempre como erro estruturado: quem faz fan-out decide continuar.
type Sender interface {
	Send(ctx context.Context, recipientPSID, pageToken string, payload Payload) error
}

type Client struct {
	http    *http.Client
	baseURL string
	log     *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
		log:     log,
	}
}

type sendRequest struct {
	Recipient recipient `json:"recipient"`
	Message   Payload   `json:"message"`
}

type recipient struct {
	ID string `json:"id"`
}

// Send faz uma única chamada à send API. Sem retry: a política de reenvio,
// se existir, pertence a quem chama.
func (c *Client) Send(ctx context.Context, recipientPSID, pageToken string, payload Payload) error {
	body, err := json.Marshal(sendRequest{
		Recipient: recipient{ID: recipientPSID},
		Message:   payload,
	})
	if err != nil {
		return fmt.Errorf("messenger: marshal: %w", err)
	}

	endpoint := fmt.Sprintf("%s/me/messages?access_token=%s", c.baseURL, url.QueryEscape(pageToken))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("messenger: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("messenger: envio: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("messenger: status %d: %s", resp.StatusCode, string(detail))
	}

	c.log.Debug("messenger: payload entregue",
		zap.String("recipient", recipientPSID),
		zap.Int("status", resp.StatusCode),
	)
	return nil
}
