package api

import (
	"net/http" // HTTP status codes
	"strconv"  // Query parsing
	"time"     // Date filters

	"rewards_system/internal/accounts" // Account store
	"rewards_system/internal/domain"   // Domain models
	"rewards_system/internal/ledger"   // Transaction listing
	"rewards_system/internal/rewards"  // Settlement and withdrawals

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// RoleRequest changes an account's role
type RoleRequest struct {
	Role string `json:"role" binding:"required"` // user or admin
}

// ResolveRequest approves or rejects a pending withdrawal
type ResolveRequest struct {
	Approve *bool `json:"approve" binding:"required"` // false refunds the amount
}

// ListAccountsHandler returns a page of accounts
func ListAccountsHandler(store *accounts.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, size := pageQuery(c) // Pagination parameters
		list, err := store.List(c.Request.Context(), page, size)
		if err != nil {
			respondError(c, err, nil)
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// SetRoleHandler promotes or demotes an account
func SetRoleHandler(store *accounts.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id") // Target account
		if !ok {
			return
		}
		var req RoleRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c)
			return
		}
		if err := store.SetRole(c.Request.Context(), id, req.Role); err != nil {
			respondError(c, err, logrus.Fields{"target_id": id})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Role updated", "role": req.Role})
	}
}

// DeleteAccountHandler removes an account with its ledger and reward history
func DeleteAccountHandler(store *accounts.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := accountID(c) // Admin performing the deletion
		if !ok {
			return
		}
		id, ok := idParam(c, "id") // Target account
		if !ok {
			return
		}
		// Admins cannot delete themselves
		if id == actor {
			respondError(c, domain.ErrInvalidInput, nil)
			return
		}
		if err := store.Delete(c.Request.Context(), id); err != nil {
			respondError(c, err, logrus.Fields{"target_id": id})
			return
		}
		logrus.WithFields(logrus.Fields{"admin_id": actor, "target_id": id}).Info("Account deleted by admin")
		c.JSON(http.StatusOK, gin.H{"message": "Account deleted successfully"})
	}
}

// parseDate accepts a plain date or an RFC3339 timestamp
func parseDate(v string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond) // Whole day inclusive
	}
	return t, nil
}

// ListTransactionsHandler returns all transactions, with optional filtering by account, type, or date
func ListTransactionsHandler(engine *ledger.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var f ledger.TransactionFilter // Filters from the query string
		if v := c.Query("account_id"); v != "" {
			id, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				badRequest(c)
				return
			}
			f.AccountID = uint(id) // Filter by account
		}
		f.Type = domain.TransactionType(c.Query("type")) // Validated by the ledger
		if v := c.Query("from"); v != "" {
			t, err := parseDate(v, false)
			if err != nil {
				badRequest(c)
				return
			}
			f.From = t // Filter by start date
		}
		if v := c.Query("to"); v != "" {
			t, err := parseDate(v, true)
			if err != nil {
				badRequest(c)
				return
			}
			f.To = t // Filter by end date
		}
		page, size := pageQuery(c) // Pagination parameters
		res, err := engine.Transactions(c.Request.Context(), f, page, size)
		if err != nil {
			respondError(c, err, nil)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// PendingWithdrawalsHandler returns withdrawals waiting for review
func PendingWithdrawalsHandler(svc *rewards.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := svc.PendingWithdrawals(c.Request.Context())
		if err != nil {
			respondError(c, err, nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"withdrawals": list})
	}
}

// ResolveWithdrawalHandler marks a withdrawal paid, or rejects it and refunds the account
func ResolveWithdrawalHandler(svc *rewards.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := idParam(c, "id") // Withdrawal from the path
		if !ok {
			return
		}
		var req ResolveRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c)
			return
		}
		w, err := svc.ResolveWithdrawal(c.Request.Context(), id, *req.Approve)
		if err != nil {
			respondError(c, err, logrus.Fields{"withdrawal_id": id})
			return
		}
		c.JSON(http.StatusOK, w)
	}
}

// SettleHandler runs an investment settlement pass now instead of waiting for the schedule
func SettleHandler(svc *rewards.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := svc.SettleInvestments(c.Request.Context())
		if err != nil {
			respondError(c, err, nil)
			return
		}
		c.JSON(http.StatusOK, report)
	}
}
