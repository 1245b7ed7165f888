package domain

import (
	"time" // Timestamps

	"github.com/shopspring/decimal" // Money
)

// TransactionType is the business reason of a balance change
type TransactionType string

// Transaction types
const (
	TxDeposit       TransactionType = "deposit"
	TxWithdrawal    TransactionType = "withdrawal"
	TxInvestment    TransactionType = "investment"
	TxProfit        TransactionType = "profit"
	TxBonus         TransactionType = "bonus"
	TxReferralBonus TransactionType = "referral_bonus"
	TxTaskReward    TransactionType = "task_reward"
	TxPurchase      TransactionType = "purchase"
)

// Valid reports whether t is one of the known transaction types
func (t TransactionType) Valid() bool {
	switch t {
	case TxDeposit, TxWithdrawal, TxInvestment, TxProfit, TxBonus, TxReferralBonus, TxTaskReward, TxPurchase:
		return true
	}
	return false
}

// Transaction Model, an append-only ledger entry
type Transaction struct {
	ID           uint            `gorm:"primaryKey" json:"id"`                                  // Primary key
	AccountID    uint            `gorm:"not null;index" json:"account_id"`                      // Owner account
	OperationID  string          `gorm:"size:128;not null;index" json:"operation_id"`           // Groups entries of one operation
	Type         TransactionType `gorm:"size:32;not null;index" json:"type"`                    // Transaction type
	Amount       decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`             // Signed amount
	BalanceAfter decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"balance_after"`      // Balance once applied
	Description  string          `gorm:"size:255" json:"description"`                           // Human readable reason
	CreatedAt    time.Time       `gorm:"index" json:"created_at"`                               // Timestamp of creation
}

// Operation records a committed ledger operation so an idempotency key is honoured once
type Operation struct {
	ID        string    `gorm:"primaryKey;size:128" json:"id"`
	AccountID uint      `gorm:"not null;index" json:"account_id"`
	Kind      string    `gorm:"size:32;not null" json:"kind"`
	CreatedAt time.Time `json:"created_at"`
}

// Claim kinds used by RewardClaim
const (
	ClaimDailyBonus = "daily_bonus"
	ClaimTask       = "task"
	ClaimSpin       = "spin"
	ClaimGift       = "gift"
)

// RewardClaim is one rewarded (account, kind, ref, day) tuple; Day is empty for lifetime claims
type RewardClaim struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	AccountID uint            `gorm:"not null;uniqueIndex:idx_reward_claim" json:"account_id"`
	Kind      string          `gorm:"size:32;not null;uniqueIndex:idx_reward_claim" json:"kind"`
	RefID     uint            `gorm:"not null;uniqueIndex:idx_reward_claim" json:"ref_id"`
	Day       string          `gorm:"size:10;not null;uniqueIndex:idx_reward_claim" json:"day"`
	Amount    decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}
