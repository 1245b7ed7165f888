package rewards

import (
	"context" // Request context
	"errors"  // Sentinel matching
	"strings" // Input trimming

	"rewards_system/internal/domain" // Domain models
	"rewards_system/internal/ledger" // Atomic balance mutations

	"github.com/shopspring/decimal" // Money
	"github.com/sirupsen/logrus"    // Logging
	"gorm.io/gorm"                  // GORM ORM library
)

// WithdrawInput is a payout request
type WithdrawInput struct {
	Amount  decimal.Decimal
	Method  string
	Details string
}

// Withdraw debits the amount and files a pending withdrawal for the payment rail
func (s *Service) Withdraw(ctx context.Context, accountID uint, in WithdrawInput) (*domain.Withdrawal, error) {
	method := strings.TrimSpace(in.Method)
	details := strings.TrimSpace(in.Details)
	if method == "" || details == "" {
		return nil, domain.ErrInvalidInput
	}
	if !validMoney(in.Amount) || in.Amount.LessThan(s.settings.MinWithdrawal) {
		return nil, domain.ErrInvalidAmount
	}
	w := &domain.Withdrawal{}
	_, err := s.ledger.Run(ctx, accountID, ledger.Options{Kind: string(domain.TxWithdrawal)}, func(op *ledger.Op) error {
		if err := op.Post(in.Amount.Neg(), domain.TxWithdrawal, "Withdrawal via "+method); err != nil {
			return err
		}
		*w = domain.Withdrawal{
			AccountID:   op.Account().ID,
			Amount:      in.Amount,
			Method:      method,
			Details:     details,
			Status:      domain.WithdrawalPending,
			OperationID: op.OperationID(),
		}
		op.Then(func(tx *gorm.DB) error { return tx.Create(w).Error })
		return nil
	})
	logOutcome("withdraw", accountID, logrus.Fields{"amount": in.Amount.String(), "method": method}, err)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// ResolveWithdrawal marks a pending withdrawal paid, or rejects it and refunds the amount
func (s *Service) ResolveWithdrawal(ctx context.Context, id uint, approve bool) (*domain.Withdrawal, error) {
	var w domain.Withdrawal
	if err := s.db().WithContext(ctx).First(&w, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	if w.Status != domain.WithdrawalPending {
		return nil, domain.ErrInvalidState
	}
	now := s.ledger.Now()

	if approve {
		q := s.db().WithContext(ctx).Model(&domain.Withdrawal{}).
			Where("id = ? AND status = ?", id, domain.WithdrawalPending).
			Updates(map[string]any{"status": domain.WithdrawalPaid, "resolved_at": now, "updated_at": now})
		if q.Error != nil {
			return nil, q.Error
		}
		if q.RowsAffected == 0 {
			return nil, domain.ErrInvalidState
		}
		w.Status = domain.WithdrawalPaid
		w.ResolvedAt = &now
		logOutcome("withdrawal_paid", w.AccountID, logrus.Fields{"withdrawal_id": id}, nil)
		return &w, nil
	}

	_, err := s.ledger.Run(ctx, w.AccountID, ledger.Options{Kind: "withdrawal_rejected"}, func(op *ledger.Op) error {
		if err := op.DB().First(&w, id).Error; err != nil {
			return err
		}
		if w.Status != domain.WithdrawalPending {
			return domain.ErrInvalidState
		}
		if err := op.Post(w.Amount, domain.TxWithdrawal, "Withdrawal rejected, refunded"); err != nil {
			return err
		}
		at := op.Now()
		w.Status = domain.WithdrawalRejected
		w.ResolvedAt = &at
		op.Then(func(tx *gorm.DB) error {
			// An approval that committed after the read above wins; the refund is rolled back
			q := tx.Model(&domain.Withdrawal{}).
				Where("id = ? AND status = ?", id, domain.WithdrawalPending).
				Updates(map[string]any{"status": domain.WithdrawalRejected, "resolved_at": at, "updated_at": at})
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
	logOutcome("withdrawal_rejected", w.AccountID, logrus.Fields{"withdrawal_id": id, "amount": w.Amount.String()}, err)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// ListWithdrawals returns the account's withdrawals, newest first
func (s *Service) ListWithdrawals(ctx context.Context, accountID uint) ([]domain.Withdrawal, error) {
	var list []domain.Withdrawal
	err := s.db().WithContext(ctx).Where("account_id = ?", accountID).Order("id desc").Find(&list).Error
	return list, err
}

// PendingWithdrawals returns withdrawals waiting for an admin, oldest first
func (s *Service) PendingWithdrawals(ctx context.Context) ([]domain.Withdrawal, error) {
	var list []domain.Withdrawal
	err := s.db().WithContext(ctx).Where("status = ?", domain.WithdrawalPending).Order("id").Find(&list).Error
	return list, err
}
