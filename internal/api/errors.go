package api

import (
	"errors"   // Matching sentinel errors
	"net/http" // HTTP status codes
	"strconv"  // Path parameter parsing
	"strings"  // Accept-Language parsing

	"rewards_system/internal/domain"     // Sentinel errors
	"rewards_system/internal/middleware" // Authenticated account lookup

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging library
)

// errorKind is the stable machine-readable description of a failure
type errorKind struct {
	status int    // HTTP status
	code   string // Value of the "code" field
	en     string // English message
	bn     string // Bengali message
}

var errorKinds = []struct {
	err  error
	kind errorKind
}{
	{domain.ErrAccountNotFound, errorKind{http.StatusNotFound, "account_not_found", "Account not found", "অ্যাকাউন্ট পাওয়া যায়নি"}},
	{domain.ErrNotFound, errorKind{http.StatusNotFound, "not_found", "Not found", "খুঁজে পাওয়া যায়নি"}},
	{domain.ErrInsufficientFunds, errorKind{http.StatusUnprocessableEntity, "insufficient_funds", "Insufficient balance", "পর্যাপ্ত ব্যালেন্স নেই"}},
	{domain.ErrOutOfStock, errorKind{http.StatusConflict, "out_of_stock", "Product is out of stock", "পণ্যটি স্টকে নেই"}},
	{domain.ErrAlreadyClaimedToday, errorKind{http.StatusConflict, "already_claimed_today", "Already claimed today, come back tomorrow", "আজ ইতিমধ্যে নেওয়া হয়েছে, আগামীকাল আবার চেষ্টা করুন"}},
	{domain.ErrAlreadyClaimed, errorKind{http.StatusConflict, "already_claimed", "Already claimed", "ইতিমধ্যে নেওয়া হয়েছে"}},
	{domain.ErrTaskAlreadyCompleted, errorKind{http.StatusConflict, "task_already_completed", "Task already completed", "টাস্কটি ইতিমধ্যে সম্পন্ন হয়েছে"}},
	{domain.ErrInvalidAmount, errorKind{http.StatusBadRequest, "invalid_amount", "Invalid amount", "অবৈধ পরিমাণ"}},
	{domain.ErrInvalidInput, errorKind{http.StatusBadRequest, "invalid_input", "Invalid request", "অবৈধ অনুরোধ"}},
	{domain.ErrUnauthorized, errorKind{http.StatusForbidden, "unauthorized", "You are not allowed to do this", "আপনার এই কাজের অনুমতি নেই"}},
	{domain.ErrStorageConflict, errorKind{http.StatusConflict, "storage_conflict", "The server is busy, please retry", "সার্ভার ব্যস্ত, অনুগ্রহ করে আবার চেষ্টা করুন"}},
	{domain.ErrDuplicateOperation, errorKind{http.StatusConflict, "duplicate_operation", "This request was already processed", "এই অনুরোধটি ইতিমধ্যে সম্পন্ন হয়েছে"}},
	{domain.ErrInvalidCredentials, errorKind{http.StatusUnauthorized, "invalid_credentials", "Invalid email or password", "ইমেইল বা পাসওয়ার্ড ভুল"}},
	{domain.ErrEmailTaken, errorKind{http.StatusConflict, "email_taken", "Email is already registered", "ইমেইলটি ইতিমধ্যে নিবন্ধিত"}},
	{domain.ErrInvalidReferralCode, errorKind{http.StatusBadRequest, "invalid_referral_code", "Invalid referral code", "রেফারেল কোডটি সঠিক নয়"}},
	{domain.ErrInvalidState, errorKind{http.StatusConflict, "invalid_state", "Not allowed in the current state", "বর্তমান অবস্থায় এটি করা যাবে না"}},
}

var internalKind = errorKind{http.StatusInternalServerError, "internal", "Something went wrong", "কিছু একটা ভুল হয়েছে"}

// kindOf finds the first sentinel err wraps; unknown errors are internal
func kindOf(err error) errorKind {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return internalKind
}

// locale picks "bn" when the client prefers Bengali, "en" otherwise
func locale(c *gin.Context) string {
	for _, part := range strings.Split(c.GetHeader("Accept-Language"), ",") {
		tag := strings.ToLower(strings.TrimSpace(strings.SplitN(part, ";", 2)[0]))
		switch {
		case strings.HasPrefix(tag, "bn"):
			return "bn"
		case strings.HasPrefix(tag, "en"):
			return "en"
		}
	}
	return "en"
}

// respondError writes the {"error", "code"} body for err
func respondError(c *gin.Context, err error, fields logrus.Fields) {
	kind := kindOf(err)
	if kind.status == http.StatusInternalServerError {
		entry := logrus.WithError(err).WithFields(logrus.Fields{"path": c.FullPath(), "method": c.Request.Method})
		if fields != nil {
			entry = entry.WithFields(fields)
		}
		entry.Error("Request failed")
	}
	msg := kind.en
	if locale(c) == "bn" {
		msg = kind.bn
	}
	c.JSON(kind.status, gin.H{"error": msg, "code": kind.code})
}

// badRequest rejects a malformed body or parameter
func badRequest(c *gin.Context) {
	respondError(c, domain.ErrInvalidInput, nil)
}

// accountID reads the authenticated account; it writes 401 when missing
func accountID(c *gin.Context) (uint, bool) {
	id, ok := middleware.AccountID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized", "code": "unauthorized"})
	}
	return id, ok
}

// idParam parses a positive numeric path parameter; it writes 400 when invalid
func idParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		badRequest(c)
		return 0, false
	}
	return uint(v), true
}

// pageQuery reads the page and page_size query parameters; the ledger normalizes bad values
func pageQuery(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return page, size
}
