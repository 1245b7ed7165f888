package api

import (
	"net/http" // HTTP status codes

	"rewards_system/internal/accounts" // Referral listing
	"rewards_system/internal/rewards"  // Reward rules

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Exact money amounts
	"github.com/sirupsen/logrus"    // Logging library
)

// InvestRequest optionally names the amount; zero invests the package minimum
type InvestRequest struct {
	Amount decimal.Decimal `json:"amount"` // Amount within the package range
}

// DailyBonusHandler claims today's bonus
func DailyBonusHandler(svc *rewards.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c) // Authenticated account
		if !ok {
			return
		}
		res, err := svc.ClaimDailyBonus(c.Request.Context(), id)
		if err != nil {
			respondError(c, err, logrus.Fields{"account_id": id, "action": "daily_bonus"})
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// CompleteTaskHandler credits a completed task
func CompleteTaskHandler(svc *rewards.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c) // Authenticated account
		if !ok {
			return
		}
		taskID, ok := idParam(c, "id") // Task from the path
		if !ok {
			return
		}
		res, err := svc.CompleteTask(c.Request.Context(), id, taskID)
		if err != nil {
			respondError(c, err, logrus.Fields{"account_id": id, "task_id": taskID})
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// SpinHandler spins the wheel once per day
func SpinHandler(svc *rewards.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c) // Authenticated account
		if !ok {
			return
		}
		res, err := svc.Spin(c.Request.Context(), id) // Drawn on the server
		if err != nil {
			respondError(c, err, logrus.Fields{"account_id": id, "action": "spin"})
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// ClaimGiftHandler claims a gift
func ClaimGiftHandler(svc *rewards.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c) // Authenticated account
		if !ok {
			return
		}
		giftID, ok := idParam(c, "id") // Gift from the path
		if !ok {
			return
		}
		res, err := svc.ClaimGift(c.Request.Context(), id, giftID)
		if err != nil {
			respondError(c, err, logrus.Fields{"account_id": id, "gift_id": giftID})
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// ReferralsHandler lists the accounts the caller referred
func ReferralsHandler(store *accounts.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c) // Authenticated account
		if !ok {
			return
		}
		list, err := store.Referrals(c.Request.Context(), id)
		if err != nil {
			respondError(c, err, logrus.Fields{"account_id": id})
			return
		}
		c.JSON(http.StatusOK, gin.H{"referrals": list})
	}
}

// InvestHandler buys into an investment package
func InvestHandler(svc *rewards.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c) // Authenticated account
		if !ok {
			return
		}
		pkgID, ok := idParam(c, "id") // Package from the path
		if !ok {
			return
		}
		var req InvestRequest // Body is optional
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c)
				return
			}
		}
		inv, err := svc.Invest(c.Request.Context(), id, pkgID, req.Amount)
		if err != nil {
			respondError(c, err, logrus.Fields{"account_id": id, "package_id": pkgID})
			return
		}
		c.JSON(http.StatusCreated, inv)
	}
}

// ListInvestmentsHandler returns the caller's investments
func ListInvestmentsHandler(svc *rewards.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c) // Authenticated account
		if !ok {
			return
		}
		list, err := svc.ListInvestments(c.Request.Context(), id)
		if err != nil {
			respondError(c, err, logrus.Fields{"account_id": id})
			return
		}
		c.JSON(http.StatusOK, gin.H{"investments": list})
	}
}

// CancelInvestmentHandler cancels one of the caller's active investments. Mounted under /admin
// too, where isAdmin lets the actor cancel any investment.
func CancelInvestmentHandler(svc *rewards.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c) // Authenticated account
		if !ok {
			return
		}
		invID, ok := idParam(c, "id") // Investment from the path
		if !ok {
			return
		}
		inv, err := svc.CancelInvestment(c.Request.Context(), invID, id, c.GetBool("isAdmin"))
		if err != nil {
			respondError(c, err, logrus.Fields{"account_id": id, "investment_id": invID})
			return
		}
		c.JSON(http.StatusOK, inv)
	}
}

// PurchaseHandler buys one unit of a shop product
func PurchaseHandler(svc *rewards.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := accountID(c) // Authenticated account
		if !ok {
			return
		}
		productID, ok := idParam(c, "id") // Product from the path
		if !ok {
			return
		}
		res, err := svc.Purchase(c.Request.Context(), id, productID)
		if err != nil {
			respondError(c, err, logrus.Fields{"account_id": id, "product_id": productID})
			return
		}
		c.JSON(http.StatusOK, res)
	}
}
