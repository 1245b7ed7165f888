package domain

import (
	"time" // Timestamps

	"github.com/shopspring/decimal" // Money
)

// Investment statuses
const (
	InvestmentActive    = "active"
	InvestmentCompleted = "completed"
	InvestmentCancelled = "cancelled"
)

// Investment links an account to a snapshot of the package it bought
type Investment struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	AccountID      uint            `gorm:"not null;index" json:"account_id"`
	PackageID      uint            `gorm:"not null;index" json:"package_id"`
	PackageName    string          `gorm:"size:128" json:"package_name"`
	Amount         decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	DailyReturnPct decimal.Decimal `gorm:"type:decimal(8,4);not null" json:"daily_return_pct"`
	DurationDays   int             `gorm:"not null" json:"duration_days"`
	DaysPaid       int             `gorm:"not null;default:0" json:"days_paid"`
	ProfitPaid     decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"profit_paid"`
	StartAt        time.Time       `gorm:"not null" json:"start_at"`
	EndAt          time.Time       `gorm:"not null" json:"end_at"`
	Status         string          `gorm:"size:16;not null;index" json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// DailyProfit is the amount credited for one elapsed day
func (i *Investment) DailyProfit() decimal.Decimal {
	return i.Amount.Mul(i.DailyReturnPct).Div(decimal.NewFromInt(100)).Round(2)
}

// Withdrawal statuses
const (
	WithdrawalPending  = "pending"
	WithdrawalPaid     = "paid"
	WithdrawalRejected = "rejected"
)

// Withdrawal is a payout request handed to the external payment rail
type Withdrawal struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	AccountID   uint            `gorm:"not null;index" json:"account_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Method      string          `gorm:"size:64;not null" json:"method"`
	Details     string          `gorm:"size:255;not null" json:"details"`
	Status      string          `gorm:"size:16;not null;index" json:"status"`
	OperationID string          `gorm:"size:128" json:"operation_id"`
	ResolvedAt  *time.Time      `json:"resolved_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
