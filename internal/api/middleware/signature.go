package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const headerSignature = "X-Hub-Signature-256"

// VerifySignature valida o HMAC-SHA256 do corpo cru contra o app secret.
// O corpo é rebobinado para os handlers seguintes.
func VerifySignature(appSecret string, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "corpo ilegível"})
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		header := c.GetHeader(headerSignature)
		if !validSignature(appSecret, header, body) {
			log.Warn("webhook: assinatura inválida",
				zap.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "assinatura inválida"})
			return
		}

		c.Next()
	}
}

func validSignature(appSecret, header string, body []byte) bool {
	expected, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)
	computed := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(computed), []byte(expected))
}
