package domain

import (
	"time" // Timestamps

	"github.com/shopspring/decimal" // Money
)

// Account roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Account Model, the registered user and its wallet/reward state
type Account struct {
	ID                   uint            `gorm:"primaryKey" json:"id"`                                        // Primary key
	Email                string          `gorm:"size:191;uniqueIndex;not null" json:"email"`                  // Unique, lower-cased
	Password             string          `gorm:"size:255;not null" json:"-"`                                  // bcrypt hash
	Role                 string          `gorm:"size:16;not null;default:user" json:"role"`                   // Role: user or admin
	Balance              decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"balance"`        // Wallet balance, never negative
	ReferralCode         string          `gorm:"size:16;uniqueIndex;not null" json:"referral_code"`           // Code other users sign up with
	ReferredBy           *uint           `gorm:"index" json:"referred_by,omitempty"`                          // Back-link to the code owner
	LastBonusClaimAt     *time.Time      `json:"last_bonus_claim_at,omitempty"`                               // Last daily bonus claim
	DailyBonusAmount     decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"daily_bonus_amount"` // Amount credited by the next claim
	BonusStreak          int             `gorm:"not null;default:0" json:"bonus_streak"`                      // Consecutive claim days
	CompletedDailyTasks  int             `gorm:"not null;default:0" json:"completed_daily_tasks"`             // Resets when DailyTasksDay changes
	DailyTasksDay        string          `gorm:"size:10" json:"daily_tasks_day,omitempty"`                    // Day the daily counter refers to
	CompletedInternTasks int             `gorm:"not null;default:0" json:"completed_intern_tasks"`            // Lifetime counter
	Version              int64           `gorm:"not null;default:0" json:"-"`                                 // Optimistic lock
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// IsAdmin reports whether the stored role grants admin access
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// ReferralReward marks that the referral bonus for a referred account was paid
type ReferralReward struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	ReferrerID     uint            `gorm:"not null;index" json:"referrer_id"`
	ReferredID     uint            `gorm:"not null;uniqueIndex" json:"referred_id"` // Each referred account pays out once
	ReferrerAmount decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"referrer_amount"`
	ReferredAmount decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"referred_amount"`
	CreatedAt      time.Time       `json:"created_at"`
}
