package domain

import (
	"time" // Timestamps

	"github.com/shopspring/decimal" // Money
)

// Task kinds
const (
	TaskDaily  = "daily"
	TaskIntern = "intern"
)

// InvestmentPackage is a tier users can invest in for daily returns
type InvestmentPackage struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Name           string          `gorm:"size:128;not null" json:"name"`
	Description    string          `gorm:"size:512" json:"description"`
	MinAmount      decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"min_amount"`
	MaxAmount      decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"max_amount"`
	DailyReturnPct decimal.Decimal `gorm:"type:decimal(8,4);not null" json:"daily_return_pct"` // Percent of the principal per day
	DurationDays   int             `gorm:"not null" json:"duration_days"`
	Active         bool            `gorm:"not null" json:"active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Product is a shop item with limited stock
type Product struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"size:128;not null" json:"name"`
	Description string          `gorm:"size:512" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"price"`
	Stock       int             `gorm:"not null" json:"stock"`
	Active      bool            `gorm:"not null" json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Task is a daily or intern task paying a fixed reward
type Task struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Kind        string          `gorm:"size:16;not null;index" json:"kind"` // daily or intern
	Ordinal     int             `gorm:"not null" json:"ordinal"`            // Display order only
	Title       string          `gorm:"size:128;not null" json:"title"`
	Description string          `gorm:"size:512" json:"description"`
	Reward      decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"reward"`
	Active      bool            `gorm:"not null" json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Gift is a free reward claimable once per day or once per lifetime
type Gift struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	Name      string          `gorm:"size:128;not null" json:"name"`
	Amount    decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Daily     bool            `gorm:"not null" json:"daily"`
	Active    bool            `gorm:"not null" json:"active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
