package utils

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	token, err := GenerateJWT(42, "secret")
	require.NoError(t, err)

	claims, err := ParseJWT(token, "secret")
	require.NoError(t, err)
	require.Equal(t, uint(42), claims.AccountID)
	require.Equal(t, TokenIssuer, claims.Issuer)
	require.Equal(t, "42", claims.Subject)

	_, err = ParseJWT(token, "other-secret")
	require.Error(t, err)

	_, err = ParseJWT("not-a-token", "secret")
	require.Error(t, err)
}

func TestParseJWTRejectsForeignClaims(t *testing.T) {
	sign := func(c Claims) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte("secret"))
		require.NoError(t, err)
		return token
	}
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))

	_, err := ParseJWT(sign(Claims{AccountID: 1, RegisteredClaims: jwt.RegisteredClaims{Issuer: "elsewhere", Subject: "1", ExpiresAt: exp}}), "secret")
	require.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)

	_, err = ParseJWT(sign(Claims{AccountID: 1, RegisteredClaims: jwt.RegisteredClaims{Issuer: TokenIssuer, Subject: "2", ExpiresAt: exp}}), "secret")
	require.ErrorIs(t, err, ErrTokenSubject)

	_, err = ParseJWT(sign(Claims{AccountID: 1, RegisteredClaims: jwt.RegisteredClaims{Issuer: TokenIssuer, Subject: "1"}}), "secret")
	require.ErrorIs(t, err, jwt.ErrTokenRequiredClaimMissing)

	expired := jwt.NewNumericDate(time.Now().Add(-time.Minute))
	_, err = ParseJWT(sign(Claims{AccountID: 1, RegisteredClaims: jwt.RegisteredClaims{Issuer: TokenIssuer, Subject: "1", ExpiresAt: expired}}), "secret")
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestCacheKeys(t *testing.T) {
	require.Equal(t, "account:7", AccountKey(7))
	require.Equal(t, "txhistory:account:7:page:2:size:20", HistoryKey(7, 2, 20))
	require.Equal(t, "catalog:tasks:daily", CatalogKey("tasks", "daily"))
}

func TestCacheWithoutRedis(t *testing.T) {
	ctx := context.Background()
	var dest map[string]string
	found, err := GetCache(ctx, nil, "k", &dest)
	require.NoError(t, err)
	require.False(t, found)
	require.NoError(t, SetCache(ctx, nil, "k", "v", CacheTTL))
	require.NoError(t, DeleteCache(ctx, nil, "k"))
	require.NoError(t, DeletePrefix(ctx, nil, "k"))
}
