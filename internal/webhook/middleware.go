package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// SignatureHeader carries "sha256=<hex HMAC of the raw body>".
	SignatureHeader    = "X-Webhook-Signature"
	signaturePrefix    = "sha256="
	maxWebhookBodySize = 64 << 10
)

// SignatureAuthMiddleware rejects requests whose body was not signed with secret.
// The body is restored for the handler.
func SignatureAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		signature, found := strings.CutPrefix(c.GetHeader(SignatureHeader), signaturePrefix)
		if !found || signature == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing signature"})
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodySize+1))
		if err != nil || len(body) > maxWebhookBodySize {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
			return
		}

		expected, err := hex.DecodeString(signature)
		if err != nil || !hmac.Equal(expected, Sign(secret, body)) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
			return
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Next()
	}
}

// Sign computes the HMAC-SHA256 of body.
func Sign(secret string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}

// SignatureValue formats a header value for body. Used by tests and payment-provider tooling.
func SignatureValue(secret string, body []byte) string {
	return signaturePrefix + hex.EncodeToString(Sign(secret, body))
}
