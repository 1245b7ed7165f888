package utils

import (
	"errors"  // Claim errors
	"strconv" // Subject encoding
	"time"    // Time for token expiration

	"github.com/golang-jwt/jwt/v5" // JWT library
)

// TokenTTL is how long an issued session token stays valid
const TokenTTL = 24 * time.Hour

// TokenIssuer is stamped into every session token and required on parse
const TokenIssuer = "rewards_system"

// ErrTokenSubject is returned when the subject does not name the account the token carries
var ErrTokenSubject = errors.New("token subject does not match account")

// Claims of a session token. The role is deliberately absent: admin checks read it from the database.
type Claims struct {
	AccountID            uint `json:"account_id"` // Authenticated account
	jwt.RegisteredClaims      // iss, sub, iat, exp
}

// GenerateJWT issues a session token for an account
func GenerateJWT(accountID uint, secret string) (string, error) {
	now := time.Now()
	claims := Claims{
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    TokenIssuer,                                // Checked on parse
			Subject:   strconv.FormatUint(uint64(accountID), 10), // Mirrors AccountID
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),      // Token expiry
			IssuedAt:  jwt.NewNumericDate(now),                    // Issued at current time
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseJWT validates a session token: HS256 only, our issuer, unexpired, subject matching the account
func ParseJWT(tokenStr, secret string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}
	if claims.AccountID == 0 || claims.Subject != strconv.FormatUint(uint64(claims.AccountID), 10) {
		return nil, ErrTokenSubject
	}
	return claims, nil
}
