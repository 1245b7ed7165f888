package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"rewards_system/internal/dbtest"
	"rewards_system/internal/domain"
	"rewards_system/internal/ledger"
	"rewards_system/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const secret = "middleware-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

func do(r http.Handler, token string) int {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestJWTAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.GET("/x", JWTAuthMiddleware(secret), func(c *gin.Context) {
		id, ok := AccountID(c)
		require.True(t, ok)
		require.Equal(t, uint(9), id)
		c.Status(http.StatusNoContent)
	})

	token, err := utils.GenerateJWT(9, secret)
	require.NoError(t, err)
	require.Equal(t, http.StatusNoContent, do(r, token))
	require.Equal(t, http.StatusUnauthorized, do(r, ""))
	require.Equal(t, http.StatusUnauthorized, do(r, "garbage"))

	foreign, err := utils.GenerateJWT(9, "other")
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, do(r, foreign))
}

func TestAdminOnlyMiddlewareReadsRoleFromDB(t *testing.T) {
	db := dbtest.Open(t)
	acc := domain.Account{Email: "a@example.com", Password: "x", Role: domain.RoleUser, ReferralCode: "ADMIN001"}
	require.NoError(t, db.Create(&acc).Error)
	token, err := utils.GenerateJWT(acc.ID, secret)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/x", JWTAuthMiddleware(secret), AdminOnlyMiddleware(db), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	require.Equal(t, http.StatusForbidden, do(r, token))
	require.NoError(t, db.Model(&acc).Update("role", domain.RoleAdmin).Error)
	require.Equal(t, http.StatusNoContent, do(r, token))
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	r := gin.New()
	r.GET("/x", JWTAuthMiddleware(secret), rl.Handler(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	a, err := utils.GenerateJWT(1, secret)
	require.NoError(t, err)
	b, err := utils.GenerateJWT(2, secret)
	require.NoError(t, err)

	require.Equal(t, http.StatusNoContent, do(r, a))
	require.Equal(t, http.StatusNoContent, do(r, a))
	require.Equal(t, http.StatusTooManyRequests, do(r, a))
	// buckets are per account
	require.Equal(t, http.StatusNoContent, do(r, b))

	rl.idle = 0
	require.Equal(t, 2, rl.Sweep())
}

func TestIdempotency(t *testing.T) {
	r := gin.New()
	var seen string
	r.GET("/x", JWTAuthMiddleware(secret), Idempotency(), func(c *gin.Context) {
		seen = ledger.OperationIDFrom(c.Request.Context())
		c.Status(http.StatusNoContent)
	})
	send := func(token, key string) int {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set(IdempotencyHeader, key)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	a, err := utils.GenerateJWT(7, secret)
	require.NoError(t, err)
	b, err := utils.GenerateJWT(8, secret)
	require.NoError(t, err)

	require.Equal(t, http.StatusNoContent, send(a, "order-42"))
	require.Equal(t, "client:7:order-42", seen)

	// the same key from another account is a different operation
	require.Equal(t, http.StatusNoContent, send(b, "order-42"))
	require.Equal(t, "client:8:order-42", seen)

	// keys shaped like server ids stay inside the client namespace
	require.Equal(t, http.StatusNoContent, send(a, "profit:5:0"))
	require.Equal(t, ledger.ClientOperationID(7, "profit:5:0"), seen)
	require.NotEqual(t, "profit:5:0", seen)

	seen = "unchanged"
	require.Equal(t, http.StatusNoContent, do(r, a))
	require.Empty(t, seen)

	require.Equal(t, http.StatusBadRequest, send(a, strings.Repeat("k", 65)))
}

func TestIdempotencyRequiresAccount(t *testing.T) {
	r := gin.New()
	r.GET("/x", Idempotency(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	require.Equal(t, http.StatusNoContent, do(r, ""))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(IdempotencyHeader, "order-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
