package api

import (
	"net/http" // HTTP status codes

	"rewards_system/internal/accounts" // Account store
	"rewards_system/internal/domain"   // Domain models

	"github.com/gin-gonic/gin" // Gin web framework
)

// RegisterRequest is the sign-up body
type RegisterRequest struct {
	Email        string `json:"email" binding:"required"`    // Email must be provided
	Password     string `json:"password" binding:"required"` // Password must be provided
	ReferralCode string `json:"referral_code"`               // Optional code of the referrer
}

// LoginRequest is the login body
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`    // Email must be provided
	Password string `json:"password" binding:"required"` // Password must be provided
}

// AuthResponse carries the session token
type AuthResponse struct {
	Token   string          `json:"token"`   // JWT token
	Account *domain.Account `json:"account"` // Account state at login
}

// RegisterHandler creates an account, optionally linked to a referrer
func RegisterHandler(store *accounts.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c) // Malformed body
			return
		}
		acc, err := store.Register(c.Request.Context(), accounts.RegisterInput{
			Email:        req.Email,        // Validated by the store
			Password:     req.Password,     // Hashed by the store
			ReferralCode: req.ReferralCode, // Empty means no referrer
		})
		if err != nil {
			respondError(c, err, nil) // Email taken, bad code or invalid input
			return
		}
		c.JSON(http.StatusCreated, gin.H{"message": "Account registered successfully", "account": acc})
	}
}

// LoginHandler authenticates an account and returns a JWT token
func LoginHandler(store *accounts.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c) // Malformed body
			return
		}
		acc, token, err := store.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			respondError(c, err, nil) // Same answer for unknown email and wrong password
			return
		}
		c.JSON(http.StatusOK, AuthResponse{Token: token, Account: acc})
	}
}
