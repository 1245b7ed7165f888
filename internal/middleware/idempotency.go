package middleware

import (
	"net/http" // HTTP status codes

	"rewards_system/internal/ledger" // Operation id context

	"github.com/gin-gonic/gin" // Gin web framework
)

// IdempotencyHeader carries the client key of a mutation; replays of a committed key are rejected
const IdempotencyHeader = "Idempotency-Key"

// maxIdempotencyKey bounds the header so the scoped id fits the operation id column
const maxIdempotencyKey = 64

// Idempotency forwards the Idempotency-Key header to the ledger through the request context.
// It must run after JWTAuthMiddleware: keys are scoped to the authenticated account.
func Idempotency() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyHeader) // Optional client key
		if key == "" {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKey {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Idempotency-Key is too long", "code": "invalid_input"})
			return
		}
		id, ok := AccountID(c) // Set by JWTAuthMiddleware
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header", "code": "unauthorized"})
			return
		}
		c.Request = c.Request.WithContext(ledger.WithClientKey(c.Request.Context(), id, key))
		c.Next()
	}
}
