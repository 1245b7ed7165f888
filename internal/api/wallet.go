package api

import (
	"net/http" // HTTP status codes

	"rewards_system/internal/accounts" // Account store
	"rewards_system/internal/ledger"   // History and reconciliation
	"rewards_system/internal/rewards"  // Deposits and withdrawals

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Exact money amounts
	"github.com/sirupsen/logrus"    // Logging library
)

// DepositRequest represents a deposit confirmed by a payment rail
type DepositRequest struct {
	Amount    decimal.Decimal `json:"amount"`    // Deposit amount, strictly positive
	Method    string          `json:"method"`    // Rail name, e.g. bkash
	Reference string          `json:"reference"` // Rail transaction reference
}

// WithdrawRequest represents a payout request
type WithdrawRequest struct {
	Amount  decimal.Decimal `json:"amount"`                     // Payout amount, at least the configured minimum
	Method  string          `json:"method" binding:"required"`  // Rail name
	Details string          `json:"details" binding:"required"` // Destination, e.g. wallet number
}

// GetAccountHandler returns the caller's account and balance
func GetAccountHandler(store *accounts.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c) // Authenticated account
		if !ok {
			return
		}
		acc, err := store.Get(c.Request.Context(), id) // Cached read
		if err != nil {
			respondError(c, err, logrus.Fields{"account_id": id})
			return
		}
		c.JSON(http.StatusOK, acc)
	}
}

// TransactionHistoryHandler returns the caller's transactions, newest first
func TransactionHistoryHandler(engine *ledger.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c) // Authenticated account
		if !ok {
			return
		}
		page, size := pageQuery(c) // Pagination parameters
		// Cached per page
		history, err := engine.History(c.Request.Context(), id, page, size)
		if err != nil {
			respondError(c, err, logrus.Fields{"account_id": id})
			return
		}
		c.JSON(http.StatusOK, history)
	}
}

// DepositHandler credits a deposit to the caller's balance
func DepositHandler(svc *rewards.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c) // Authenticated account
		if !ok {
			return
		}
		var req DepositRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c)
			return
		}
		res, err := svc.Deposit(c.Request.Context(), id, req.Amount, req.Method, req.Reference)
		if err != nil {
			respondError(c, err, logrus.Fields{"account_id": id, "action": "deposit"})
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// WithdrawHandler debits the caller and files a pending withdrawal
func WithdrawHandler(svc *rewards.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c) // Authenticated account
		if !ok {
			return
		}
		var req WithdrawRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c)
			return
		}
		w, err := svc.Withdraw(c.Request.Context(), id, rewards.WithdrawInput{
			Amount:  req.Amount,  // Checked against the minimum
			Method:  req.Method,  // Rail name
			Details: req.Details, // Destination
		})
		if err != nil {
			respondError(c, err, logrus.Fields{"account_id": id, "action": "withdraw"})
			return
		}
		c.JSON(http.StatusCreated, w)
	}
}

// ListWithdrawalsHandler returns the caller's withdrawals
func ListWithdrawalsHandler(svc *rewards.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c) // Authenticated account
		if !ok {
			return
		}
		list, err := svc.ListWithdrawals(c.Request.Context(), id)
		if err != nil {
			respondError(c, err, logrus.Fields{"account_id": id})
			return
		}
		c.JSON(http.StatusOK, gin.H{"withdrawals": list})
	}
}

// ReconcileHandler compares the caller's balance with the sum of their transactions
func ReconcileHandler(engine *ledger.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c) // Authenticated account
		if !ok {
			return
		}
		rec, err := engine.Reconcile(c.Request.Context(), id) // Single snapshot read
		if err != nil {
			respondError(c, err, logrus.Fields{"account_id": id})
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}
