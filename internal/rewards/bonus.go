package rewards

import (
	"context" // Request context
	"errors"  // Sentinel matching

	"rewards_system/internal/domain" // Domain models
	"rewards_system/internal/ledger" // Atomic balance mutations

	"github.com/shopspring/decimal" // Money
	"github.com/sirupsen/logrus"    // Logging
	"gorm.io/gorm"                  // GORM ORM library
)

// BonusResult is the outcome of a daily bonus claim
type BonusResult struct {
	Reward
	Streak     int             `json:"streak"`
	NextAmount decimal.Decimal `json:"next_amount"`
}

// ClaimDailyBonus credits the daily bonus once per calendar day. Claiming on consecutive days
// grows the amount by one step per day up to the configured cap; a missed day starts over.
func (s *Service) ClaimDailyBonus(ctx context.Context, accountID uint) (*BonusResult, error) {
	out := &BonusResult{}
	res, err := s.ledger.Run(ctx, accountID, ledger.Options{Kind: domain.ClaimDailyBonus}, func(op *ledger.Op) error {
		acc := op.Account()
		now := op.Now()
		today := s.day(now)

		streak := 1
		if acc.LastBonusClaimAt != nil {
			last := s.day(*acc.LastBonusClaimAt)
			if last == today {
				return domain.ErrAlreadyClaimedToday
			}
			if last == s.yesterday(now) {
				streak = acc.BonusStreak + 1
			}
		}
		amount := acc.DailyBonusAmount
		if streak == 1 || !amount.IsPositive() {
			amount = s.bonusForStreakDay(1)
		}
		if amount.IsPositive() {
			if err := op.Post(amount, domain.TxBonus, "Daily bonus"); err != nil {
				return err
			}
		}
		claimedAt := now
		acc.LastBonusClaimAt = &claimedAt
		acc.BonusStreak = streak
		acc.DailyBonusAmount = s.bonusForStreakDay(streak + 1)
		recordClaim(op, domain.ClaimDailyBonus, 0, today, amount)

		out.Amount = amount
		out.Streak = streak
		out.NextAmount = acc.DailyBonusAmount
		return nil
	})
	logOutcome("daily_bonus", accountID, logrus.Fields{"amount": out.Amount.String(), "streak": out.Streak}, err)
	if err != nil {
		return nil, err
	}
	out.Balance = res.Account(accountID).Balance
	out.OperationID = res.OperationID
	return out, nil
}

// TaskResult is the outcome of a task completion
type TaskResult struct {
	Reward
	TaskID    uint   `json:"task_id"`
	Kind      string `json:"kind"`
	Completed int    `json:"completed"` // Tasks of this kind completed today (daily) or ever (intern)
}

// CompleteTask credits a task's reward once per day for daily tasks and once ever for intern tasks.
// Tasks may be completed in any order.
func (s *Service) CompleteTask(ctx context.Context, accountID, taskID uint) (*TaskResult, error) {
	out := &TaskResult{TaskID: taskID}
	res, err := s.ledger.Run(ctx, accountID, ledger.Options{Kind: domain.ClaimTask}, func(op *ledger.Op) error {
		var task domain.Task
		if err := op.DB().First(&task, taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		if !task.Active {
			return domain.ErrNotFound
		}

		acc := op.Account()
		today := s.day(op.Now())
		window := today
		if task.Kind == domain.TaskIntern {
			window = "" // Lifetime
		}
		done, err := claimed(op.DB(), acc.ID, domain.ClaimTask, task.ID, window)
		if err != nil {
			return err
		}
		if done {
			return domain.ErrTaskAlreadyCompleted
		}
		if err := op.Post(task.Reward, domain.TxTaskReward, "Task: "+task.Title); err != nil {
			return err
		}

		if task.Kind == domain.TaskIntern {
			acc.CompletedInternTasks++
			out.Completed = acc.CompletedInternTasks
		} else {
			if acc.DailyTasksDay != today {
				acc.CompletedDailyTasks = 0
				acc.DailyTasksDay = today
			}
			acc.CompletedDailyTasks++
			out.Completed = acc.CompletedDailyTasks
		}
		recordClaim(op, domain.ClaimTask, task.ID, window, task.Reward)
		out.Kind = task.Kind
		out.Amount = task.Reward
		return nil
	})
	logOutcome("task", accountID, logrus.Fields{"task_id": taskID, "amount": out.Amount.String()}, err)
	if err != nil {
		return nil, err
	}
	out.Balance = res.Account(accountID).Balance
	out.OperationID = res.OperationID
	return out, nil
}

// ClaimGift credits a gift once per day or once ever, depending on the gift
func (s *Service) ClaimGift(ctx context.Context, accountID, giftID uint) (*Reward, error) {
	out := &Reward{}
	res, err := s.ledger.Run(ctx, accountID, ledger.Options{Kind: domain.ClaimGift}, func(op *ledger.Op) error {
		var gift domain.Gift
		if err := op.DB().First(&gift, giftID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrNotFound
			}
			return err
		}
		if !gift.Active {
			return domain.ErrNotFound
		}
		window := ""
		if gift.Daily {
			window = s.day(op.Now())
		}
		done, err := claimed(op.DB(), op.Account().ID, domain.ClaimGift, gift.ID, window)
		if err != nil {
			return err
		}
		if done {
			if gift.Daily {
				return domain.ErrAlreadyClaimedToday
			}
			return domain.ErrAlreadyClaimed
		}
		if err := op.Post(gift.Amount, domain.TxBonus, "Gift: "+gift.Name); err != nil {
			return err
		}
		recordClaim(op, domain.ClaimGift, gift.ID, window, gift.Amount)
		out.Amount = gift.Amount
		return nil
	})
	logOutcome("gift", accountID, logrus.Fields{"gift_id": giftID, "amount": out.Amount.String()}, err)
	if err != nil {
		return nil, err
	}
	out.Balance = res.Account(accountID).Balance
	out.OperationID = res.OperationID
	return out, nil
}
