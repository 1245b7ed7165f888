package middleware

import (
	"net/http" // HTTP status codes
	"strings"  // String manipulation

	"rewards_system/internal/utils" // JWT utility functions

	"github.com/gin-gonic/gin" // Gin web framework
)

// AccountIDKey is the gin context key holding the authenticated account id
const AccountIDKey = "accountID"

// JWTAuthMiddleware validates JWT tokens and stores the account id in the context
func JWTAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization") // Get Authorization header
		// Check if the Authorization header is present and properly formatted
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid Authorization header", "code": "unauthorized"})
			return
		}
		claims, err := utils.ParseJWT(strings.TrimPrefix(authHeader, "Bearer "), secret)
		if err != nil || claims.AccountID == 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token", "code": "unauthorized"})
			return
		}
		c.Set(AccountIDKey, claims.AccountID) // Store accountID in context
		c.Next()
	}
}

// AccountID returns the authenticated account id set by JWTAuthMiddleware
func AccountID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(AccountIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id != 0
}
