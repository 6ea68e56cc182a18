package messenger

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClientSend(t *testing.T) {
	t.Parallel()

	var (
		gotPath  string
		gotToken string
		gotBody  []byte
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.URL.Query().Get("access_token")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := client.Send(ctx, "psid-1", "tok en+123", Payload{Text: "oi"})
	require.NoError(t, err)

	require.Equal(t, "/me/messages", gotPath)
	require.Equal(t, "tok en+123", gotToken)

	var req struct {
		Recipient struct {
			ID string `json:"id"`
		} `json:"recipient"`
		Message Payload `json:"message"`
	}
	require.NoError(t, json.Unmarshal(gotBody, &req))
	require.Equal(t, "psid-1", req.Recipient.ID)
	require.Equal(t, "oi", req.Message.Text)
}

func TestClientSendNonSuccessStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := client.Send(ctx, "psid-1", "token", Payload{Text: "oi"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "status 400")
	require.Contains(t, err.Error(), "Invalid OAuth access token")
}
