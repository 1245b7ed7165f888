package app

import (
	"context" // Job context
	"time"    // Job timeout

	"rewards_system/internal/middleware" // Rate limiter sweep

	"github.com/robfig/cron/v3"  // Job scheduling
	"github.com/sirupsen/logrus" // Logging
)

// settleTimeout bounds one settlement pass so a stuck database cannot pile up runs
const settleTimeout = 10 * time.Minute

// Scheduler registers the background jobs: investment settlement on the configured schedule and
// a periodic sweep of idle rate limiter buckets. The caller starts and stops the returned cron.
func (a *App) Scheduler(limiter *middleware.RateLimiter) (*cron.Cron, error) {
	cronLog := cron.PrintfLogger(logrus.StandardLogger())
	c := cron.New(
		cron.WithLocation(a.Config.Location()),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	if _, err := c.AddFunc(a.Config.SettleSchedule, a.settle); err != nil {
		return nil, err
	}
	if limiter != nil {
		if _, err := c.AddFunc("@every 5m", func() {
			if n := limiter.Sweep(); n > 0 {
				logrus.WithField("removed", n).Debug("Swept idle rate limiters")
			}
		}); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// settle runs one settlement pass and logs the report
func (a *App) settle() {
	ctx, cancel := context.WithTimeout(context.Background(), settleTimeout)
	defer cancel()
	report, err := a.Rewards.SettleInvestments(ctx)
	if err != nil {
		logrus.WithError(err).Error("Scheduled settlement failed")
		return
	}
	logrus.WithFields(logrus.Fields{
		"credited":  report.Credited,
		"completed": report.Completed,
		"failed":    report.Failed,
		"amount":    report.Amount.String(),
		"referrals": report.Referrals,
	}).Info("Scheduled settlement finished")
}
