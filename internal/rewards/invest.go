package rewards

import (
	"context" // Request context
	"errors"  // Sentinel matching
	"fmt"     // Error wrapping
	"strconv" // Referral operation ids
	"time"    // Clock and durations

	"rewards_system/internal/domain"  // Domain models
	"rewards_system/internal/ledger"  // Atomic balance mutations
	"rewards_system/internal/metrics" // Prometheus collectors

	"github.com/shopspring/decimal" // Money
	"github.com/sirupsen/logrus"    // Logging
	"gorm.io/gorm"                  // GORM ORM library
)

const day = 24 * time.Hour

// Invest debits amount (the package minimum when zero) and opens an investment in the package.
// The referred account's first investment pays the referral bonus to both parties.
func (s *Service) Invest(ctx context.Context, accountID, packageID uint, amount decimal.Decimal) (*domain.Investment, error) {
	if amount.IsNegative() || !amount.Equal(amount.Round(2)) {
		return nil, domain.ErrInvalidAmount
	}
	inv := &domain.Investment{}
	_, err := s.ledger.Run(ctx, accountID, ledger.Options{Kind: string(domain.TxInvestment)}, func(op *ledger.Op) error {
		var pkg domain.InvestmentPackage
		if err := op.DB().First(&pkg, packageID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		if !pkg.Active {
			return domain.ErrNotFound
		}
		stake := amount
		if stake.IsZero() {
			stake = pkg.MinAmount
		}
		if stake.LessThan(pkg.MinAmount) || stake.GreaterThan(pkg.MaxAmount) {
			return domain.ErrInvalidAmount
		}
		if err := op.Post(stake.Neg(), domain.TxInvestment, "Investment: "+pkg.Name); err != nil {
			return err
		}
		now := op.Now()
		*inv = domain.Investment{
			AccountID:      op.Account().ID,
			PackageID:      pkg.ID,
			PackageName:    pkg.Name,
			Amount:         stake,
			DailyReturnPct: pkg.DailyReturnPct,
			DurationDays:   pkg.DurationDays,
			ProfitPaid:     decimal.Zero,
			StartAt:        now,
			EndAt:          now.Add(time.Duration(pkg.DurationDays) * day),
			Status:         domain.InvestmentActive,
		}
		op.Then(func(tx *gorm.DB) error { return tx.Create(inv).Error })
		return nil
	})
	logOutcome("invest", accountID, logrus.Fields{"package_id": packageID, "amount": inv.Amount.String()}, err)
	if err != nil {
		return nil, err
	}
	if _, err := s.AwardReferral(ctx, accountID); err != nil {
		// The settlement sweep retries unpaid referrals
		logrus.WithFields(logrus.Fields{"account_id": accountID, "error": err.Error()}).Warn("Referral award deferred")
	}
	return inv, nil
}

// referralOperationID makes the referral payout of one referred account a single operation
func referralOperationID(referredID uint) string {
	return "referral:" + strconv.FormatUint(uint64(referredID), 10)
}

// AwardReferral pays the referral bonus for referredID if it qualifies and was never paid.
// It reports whether this call paid it.
func (s *Service) AwardReferral(ctx context.Context, referredID uint) (bool, error) {
	var referred domain.Account
	if err := s.db().WithContext(ctx).Select("id", "referred_by").First(&referred, referredID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, domain.ErrAccountNotFound
		}
		return false, err
	}
	if referred.ReferredBy == nil || *referred.ReferredBy == referredID {
		return false, nil
	}
	referrerID := *referred.ReferredBy
	opts := ledger.Options{Kind: string(domain.TxReferralBonus), OperationID: referralOperationID(referredID)}
	_, err := s.ledger.RunMany(ctx, []uint{referrerID, referredID}, opts, func(b *ledger.Batch) error {
		var paid int64
		if err := b.DB().Model(&domain.ReferralReward{}).Where("referred_id = ?", referredID).Count(&paid).Error; err != nil {
			return err
		}
		if paid > 0 {
			return domain.ErrAlreadyClaimed
		}
		var invested int64
		if err := b.DB().Model(&domain.Investment{}).Where("account_id = ?", referredID).Count(&invested).Error; err != nil {
			return err
		}
		if invested == 0 {
			return errNotQualified
		}
		if s.settings.ReferrerBonus.IsPositive() {
			if err := b.Op(referrerID).Post(s.settings.ReferrerBonus, domain.TxReferralBonus, "Referral bonus"); err != nil {
				return err
			}
		}
		if s.settings.ReferredBonus.IsPositive() {
			if err := b.Op(referredID).Post(s.settings.ReferredBonus, domain.TxReferralBonus, "Welcome referral bonus"); err != nil {
				return err
			}
		}
		reward := domain.ReferralReward{
			ReferrerID:     referrerID,
			ReferredID:     referredID,
			ReferrerAmount: s.settings.ReferrerBonus,
			ReferredAmount: s.settings.ReferredBonus,
			CreatedAt:      b.Now(),
		}
		b.Then(func(tx *gorm.DB) error { return tx.Create(&reward).Error })
		return nil
	})
	switch {
	case err == nil:
		logrus.WithFields(logrus.Fields{"referrer_id": referrerID, "referred_id": referredID}).Info("Referral bonus paid")
		return true, nil
	case errors.Is(err, domain.ErrAlreadyClaimed), errors.Is(err, domain.ErrDuplicateOperation), errors.Is(err, errNotQualified):
		return false, nil
	case errors.Is(err, domain.ErrAccountNotFound):
		return false, nil // Referrer was deleted
	default:
		return false, err
	}
}

var errNotQualified = errors.New("referral not qualified yet")

// SettleReport summarises one settlement pass
type SettleReport struct {
	Credited  int             `json:"credited"`
	Completed int             `json:"completed"`
	Failed    int             `json:"failed"`
	Amount    decimal.Decimal `json:"amount"`
	Referrals int             `json:"referrals"`
}

// SettleInvestments credits the daily profit of every active investment for each whole day
// elapsed and not yet paid, completing investments whose duration is fully paid. It also pays
// referral bonuses whose award was deferred.
func (s *Service) SettleInvestments(ctx context.Context) (*SettleReport, error) {
	var active []domain.Investment
	if err := s.db().WithContext(ctx).Where("status = ?", domain.InvestmentActive).Order("id").Find(&active).Error; err != nil {
		return nil, fmt.Errorf("list active investments: %w", err)
	}
	report := &SettleReport{Amount: decimal.Zero}
	for _, inv := range active {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		paid, completed, err := s.settleOne(ctx, inv)
		switch {
		case errors.Is(err, errNothingDue), errors.Is(err, domain.ErrDuplicateOperation):
			continue
		case err != nil:
			report.Failed++
			logrus.WithFields(logrus.Fields{"investment_id": inv.ID, "error": err.Error()}).Error("Investment settlement failed")
			continue
		}
		report.Credited++
		report.Amount = report.Amount.Add(paid)
		status := domain.InvestmentActive
		if completed {
			report.Completed++
			status = domain.InvestmentCompleted
		}
		metrics.InvestmentsSettled.WithLabelValues(status).Inc()
	}

	var pending []uint
	err := s.db().WithContext(ctx).Model(&domain.Account{}).
		Where("referred_by IS NOT NULL").
		Where("id IN (?)", s.db().Model(&domain.Investment{}).Select("account_id")).
		Where("id NOT IN (?)", s.db().Model(&domain.ReferralReward{}).Select("referred_id")).
		Pluck("id", &pending).Error
	if err != nil {
		return report, fmt.Errorf("list unpaid referrals: %w", err)
	}
	for _, id := range pending {
		ok, err := s.AwardReferral(ctx, id)
		if err != nil {
			logrus.WithFields(logrus.Fields{"account_id": id, "error": err.Error()}).Error("Referral award failed")
			continue
		}
		if ok {
			report.Referrals++
		}
	}

	logrus.WithFields(logrus.Fields{
		"credited":  report.Credited,
		"completed": report.Completed,
		"failed":    report.Failed,
		"amount":    report.Amount.String(),
		"referrals": report.Referrals,
	}).Info("Settlement pass finished")
	return report, nil
}

var errNothingDue = errors.New("nothing due")

// settleOne pays the elapsed unpaid days of one investment. The operation id is derived from
// the investment and the days already paid, so concurrent settlement passes pay a day once.
func (s *Service) settleOne(ctx context.Context, snapshot domain.Investment) (decimal.Decimal, bool, error) {
	var paid decimal.Decimal
	var completed bool
	opID := fmt.Sprintf("profit:%d:%d", snapshot.ID, snapshot.DaysPaid)
	_, err := s.ledger.Run(ctx, snapshot.AccountID, ledger.Options{Kind: string(domain.TxProfit), OperationID: opID}, func(op *ledger.Op) error {
		var inv domain.Investment
		if err := op.DB().First(&inv, snapshot.ID).Error; err != nil {
			return err
		}
		if inv.Status != domain.InvestmentActive {
			return errNothingDue
		}
		elapsed := int(op.Now().Sub(inv.StartAt) / day)
		if elapsed > inv.DurationDays {
			elapsed = inv.DurationDays
		}
		due := elapsed - inv.DaysPaid
		if due <= 0 {
			return errNothingDue
		}
		paid = inv.DailyProfit().Mul(decimal.NewFromInt(int64(due)))
		if paid.IsPositive() {
			desc := fmt.Sprintf("Profit: %s (%d day(s))", inv.PackageName, due)
			if err := op.Post(paid, domain.TxProfit, desc); err != nil {
				return err
			}
		}
		completed = inv.DaysPaid+due >= inv.DurationDays
		status := domain.InvestmentActive
		if completed {
			status = domain.InvestmentCompleted
		}
		fromDays := inv.DaysPaid
		updates := map[string]any{
			"days_paid":   fromDays + due,
			"profit_paid": inv.ProfitPaid.Add(paid),
			"status":      status,
			"updated_at":  op.Now(),
		}
		op.Then(func(tx *gorm.DB) error {
			q := tx.Model(&domain.Investment{}).
				Where("id = ? AND status = ? AND days_paid = ?", inv.ID, domain.InvestmentActive, fromDays).
				Updates(updates)
			if q.Error != nil {
				return q.Error
			}
			if q.RowsAffected == 0 {
				return domain.ErrInvalidState
			}
			return nil
		})
		return nil
	})
	return paid, completed, err
}

// CancelInvestment stops an active investment and refunds the principal minus the profit
// already paid. Only the owner or an admin may cancel.
func (s *Service) CancelInvestment(ctx context.Context, investmentID, actorID uint, isAdmin bool) (*domain.Investment, error) {
	var inv domain.Investment
	if err := s.db().WithContext(ctx).First(&inv, investmentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if !isAdmin && inv.AccountID != actorID {
		return nil, domain.ErrUnauthorized
	}
	var refund decimal.Decimal
	_, err := s.ledger.Run(ctx, inv.AccountID, ledger.Options{Kind: "cancel_investment"}, func(op *ledger.Op) error {
		if err := op.DB().First(&inv, investmentID).Error; err != nil {
			return err
		}
		if inv.Status != domain.InvestmentActive {
			return domain.ErrInvalidState
		}
		refund = inv.Amount.Sub(inv.ProfitPaid)
		if refund.IsPositive() {
			if err := op.Post(refund, domain.TxInvestment, "Investment cancelled: "+inv.PackageName); err != nil {
				return err
			}
		} else {
			refund = decimal.Zero
		}
		now := op.Now()
		inv.Status = domain.InvestmentCancelled
		inv.EndAt = now
		inv.UpdatedAt = now
		op.Then(func(tx *gorm.DB) error {
			return tx.Model(&domain.Investment{}).Where("id = ?", inv.ID).Updates(map[string]any{
				"status":     domain.InvestmentCancelled,
				"end_at":     now,
				"updated_at": now,
			}).Error
		})
		return nil
	})
	logOutcome("cancel_investment", inv.AccountID, logrus.Fields{
		"investment_id": investmentID,
		"actor_id":      actorID,
		"admin":         isAdmin,
		"refund":        refund.String(),
	}, err)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// ListInvestments returns the account's investments, newest first
func (s *Service) ListInvestments(ctx context.Context, accountID uint) ([]domain.Investment, error) {
	var list []domain.Investment
	if err := s.db().WithContext(ctx).Where("account_id = ?", accountID).Order("id desc").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
