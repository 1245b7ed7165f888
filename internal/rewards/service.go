// Package rewards decides whether a reward or spend action is allowed and applies it.
//
// Every rule runs inside a ledger operation: eligibility is checked against the snapshot the
// operation read, and the checks, the balance change and any side records commit together or
// not at all. A concurrent request for the same account loses the version race and is replayed
// against the committed state, so two requests can never both pass the same check.
package rewards

import (
	"context" // Request context
	"time"    // Calendar days

	"rewards_system/internal/catalog" // Catalog cache invalidation
	"rewards_system/internal/config"  // Reward settings
	"rewards_system/internal/domain"  // Domain models
	"rewards_system/internal/ledger"  // Atomic balance mutations

	"github.com/shopspring/decimal" // Money
	"github.com/sirupsen/logrus"    // Logging
	"gorm.io/gorm"                  // GORM ORM library
)

// dayLayout formats the calendar day used by daily eligibility windows
const dayLayout = "2006-01-02"

// Settings are the tunable reward amounts
type Settings struct {
	DailyBonusBase     decimal.Decimal
	DailyBonusStep     decimal.Decimal
	DailyBonusMaxSteps int
	ReferrerBonus      decimal.Decimal
	ReferredBonus      decimal.Decimal
	MinWithdrawal      decimal.Decimal
}

// SettingsFromConfig reads the reward settings from the service configuration
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		DailyBonusBase:     config.Decimal(cfg.DailyBonusBase),
		DailyBonusStep:     config.Decimal(cfg.DailyBonusStep),
		DailyBonusMaxSteps: cfg.DailyBonusMaxSteps,
		ReferrerBonus:      config.Decimal(cfg.ReferralBonusReferrer),
		ReferredBonus:      config.Decimal(cfg.ReferralBonusReferred),
		MinWithdrawal:      config.Decimal(cfg.MinWithdrawal),
	}
}

// Service evaluates reward rules on top of the ledger engine
type Service struct {
	ledger   *ledger.Engine
	catalog  *catalog.Store
	settings Settings
	loc      *time.Location
	wheel    Wheel
	draw     func(n int) (int, error)
}

// NewService creates the rules evaluator. loc defines the calendar day of daily windows.
func NewService(engine *ledger.Engine, cat *catalog.Store, settings Settings, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		ledger:   engine,
		catalog:  cat,
		settings: settings,
		loc:      loc,
		wheel:    DefaultWheel,
		draw:     cryptoDraw,
	}
}

// WithDraw replaces the random source of the spin wheel
func (s *Service) WithDraw(draw func(n int) (int, error)) *Service {
	s.draw = draw
	return s
}

// Reward is the result of a crediting action
type Reward struct {
	Amount      decimal.Decimal `json:"amount"`
	Balance     decimal.Decimal `json:"balance"`
	OperationID string          `json:"operation_id"`
}

func (s *Service) db() *gorm.DB {
	return s.ledger.DB()
}

// day is the calendar day of t in the service location
func (s *Service) day(t time.Time) string {
	return t.In(s.loc).Format(dayLayout)
}

// yesterday is the calendar day before t in the service location
func (s *Service) yesterday(t time.Time) string {
	return t.In(s.loc).AddDate(0, 0, -1).Format(dayLayout)
}

// bonusForStreakDay is the daily bonus credited on the n-th consecutive day
func (s *Service) bonusForStreakDay(n int) decimal.Decimal {
	steps := n - 1
	if steps > s.settings.DailyBonusMaxSteps {
		steps = s.settings.DailyBonusMaxSteps
	}
	if steps < 0 {
		steps = 0
	}
	return s.settings.DailyBonusBase.Add(s.settings.DailyBonusStep.Mul(decimal.NewFromInt(int64(steps))))
}

// claimed reports whether a RewardClaim for the tuple already exists
func claimed(tx *gorm.DB, accountID uint, kind string, refID uint, day string) (bool, error) {
	var n int64
	err := tx.Model(&domain.RewardClaim{}).
		Where("account_id = ? AND kind = ? AND ref_id = ? AND day = ?", accountID, kind, refID, day).
		Count(&n).Error
	return n > 0, err
}

// recordClaim stages the RewardClaim row of a successful claim
func recordClaim(op *ledger.Op, kind string, refID uint, day string, amount decimal.Decimal) {
	claim := domain.RewardClaim{
		AccountID: op.Account().ID,
		Kind:      kind,
		RefID:     refID,
		Day:       day,
		Amount:    amount,
		CreatedAt: op.Now(),
	}
	op.Then(func(tx *gorm.DB) error { return tx.Create(&claim).Error })
}

// validMoney accepts positive amounts with at most two decimal places
func validMoney(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(d.Round(2))
}

// logOutcome writes the success or failure line of an action
func logOutcome(action string, accountID uint, fields logrus.Fields, err error) {
	entry := logrus.WithFields(logrus.Fields{"account_id": accountID, "action": action}).WithFields(fields)
	if err != nil {
		entry.WithField("error", err.Error()).Warn("Reward action rejected")
		return
	}
	entry.Info("Reward action applied")
}

// Deposit credits funds received on an external rail
func (s *Service) Deposit(ctx context.Context, accountID uint, amount decimal.Decimal, method, reference string) (*Reward, error) {
	if !validMoney(amount) {
		return nil, domain.ErrInvalidAmount
	}
	desc := "Deposit"
	if method != "" {
		desc += " via " + method
	}
	if reference != "" {
		desc += " (" + reference + ")"
	}
	res, err := s.ledger.Run(ctx, accountID, ledger.Options{Kind: string(domain.TxDeposit)}, func(op *ledger.Op) error {
		return op.Post(amount, domain.TxDeposit, desc)
	})
	logOutcome("deposit", accountID, logrus.Fields{"amount": amount.String()}, err)
	if err != nil {
		return nil, err
	}
	return &Reward{Amount: amount, Balance: res.Account(accountID).Balance, OperationID: res.OperationID}, nil
}
