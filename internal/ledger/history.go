package ledger

import (
	"context" // Request context
	"errors"  // Sentinel matching
	"fmt"     // Error wrapping
	"time"    // Date filters

	"rewards_system/internal/domain" // Domain models
	"rewards_system/internal/utils"  // Cache helpers

	"github.com/shopspring/decimal" // Money
	"github.com/sirupsen/logrus"    // Logging
	"gorm.io/gorm"                  // GORM ORM library
)

// HistoryPage is one page of an account's transactions, newest first
type HistoryPage struct {
	Transactions []domain.Transaction `json:"transactions"` // List of transactions
	Page         int                  `json:"page"`         // Current page
	PageSize     int                  `json:"page_size"`    // Page size
	Total        int64                `json:"total"`        // Total transactions
	TotalPages   int                  `json:"total_pages"`  // Total pages
	Cached       bool                 `json:"cached"`       // Served from redis
}

// History returns a page of transactions for the account, cached in redis for a minute
func (e *Engine) History(ctx context.Context, accountID uint, page, pageSize int) (*HistoryPage, error) {
	page, pageSize = NormalizePage(page, pageSize)
	cacheKey := utils.HistoryKey(accountID, page, pageSize) // Redis cache key
	var cached HistoryPage
	// Try to get from cache
	if found, err := utils.GetCache(ctx, e.rdb, cacheKey, &cached); err == nil && found {
		cached.Cached = true
		return &cached, nil
	}
	query := e.db.WithContext(ctx).Model(&domain.Transaction{}).Where("account_id = ?", accountID)
	var total int64 // Total count of transactions
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count transactions: %w", err)
	}
	var txs []domain.Transaction // Slice to hold transactions
	if err := query.Order("created_at desc, id desc").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("fetch transactions: %w", err)
	}
	resp := &HistoryPage{
		Transactions: txs,
		Page:         page,
		PageSize:     pageSize,
		Total:        total,
		TotalPages:   (int(total) + pageSize - 1) / pageSize, // Calculate total pages
	}
	if err := utils.SetCache(ctx, e.rdb, cacheKey, resp, utils.CacheTTL); err != nil {
		logrus.WithFields(logrus.Fields{"account_id": accountID, "error": err.Error()}).Debug("History cache write failed")
	}
	return resp, nil
}

// Reconciliation compares the stored balance with the sum of the account's transactions
type Reconciliation struct {
	AccountID uint            `json:"account_id"`
	Balance   decimal.Decimal `json:"balance"`
	LedgerSum decimal.Decimal `json:"ledger_sum"`
	Entries   int             `json:"entries"`
	OK        bool            `json:"ok"`
}

// Reconcile checks that the balance equals the sum of all transaction amounts
func (e *Engine) Reconcile(ctx context.Context, accountID uint) (*Reconciliation, error) {
	var rec *Reconciliation
	// Both reads see the same snapshot
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var acc domain.Account
		if err := tx.First(&acc, accountID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrAccountNotFound
			}
			return err
		}
		var rows []domain.Transaction
		if err := tx.Select("amount").Where("account_id = ?", accountID).Find(&rows).Error; err != nil {
			return err
		}
		sum := decimal.Zero
		for _, r := range rows {
			sum = sum.Add(r.Amount)
		}
		rec = &Reconciliation{
			AccountID: accountID,
			Balance:   acc.Balance,
			LedgerSum: sum,
			Entries:   len(rows),
			OK:        sum.Equal(acc.Balance),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !rec.OK {
		logrus.WithFields(logrus.Fields{
			"account_id": accountID,
			"balance":    rec.Balance.String(),
			"ledger_sum": rec.LedgerSum.String(),
		}).Error("Ledger reconciliation mismatch")
	}
	return rec, nil
}

// NormalizePage applies the default page (1) and size (20, max 100)
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1 // Default page
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20 // Default page size
	}
	return page, pageSize
}

// TransactionFilter narrows the admin transaction listing; zero values match everything
type TransactionFilter struct {
	AccountID uint
	Type      domain.TransactionType
	From      time.Time // Inclusive
	To        time.Time // Inclusive
}

// Transactions lists transactions across accounts for administrators, newest first. Not cached.
func (e *Engine) Transactions(ctx context.Context, f TransactionFilter, page, pageSize int) (*HistoryPage, error) {
	page, pageSize = NormalizePage(page, pageSize)
	query := e.db.WithContext(ctx).Model(&domain.Transaction{})
	if f.AccountID != 0 {
		query = query.Where("account_id = ?", f.AccountID)
	}
	if f.Type != "" {
		if !f.Type.Valid() {
			return nil, domain.ErrInvalidInput
		}
		query = query.Where("type = ?", f.Type)
	}
	if !f.From.IsZero() {
		query = query.Where("created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		query = query.Where("created_at <= ?", f.To)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count transactions: %w", err)
	}
	var txs []domain.Transaction
	if err := query.Order("created_at desc, id desc").Offset((page - 1) * pageSize).Limit(pageSize).Find(&txs).Error; err != nil {
		return nil, fmt.Errorf("fetch transactions: %w", err)
	}
	return &HistoryPage{
		Transactions: txs,
		Page:         page,
		PageSize:     pageSize,
		Total:        total,
		TotalPages:   (int(total) + pageSize - 1) / pageSize,
	}, nil
}
