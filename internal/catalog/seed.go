package catalog

import (
	"context" // Request context

	"rewards_system/internal/domain" // Domain models

	"github.com/shopspring/decimal" // Money
	"github.com/sirupsen/logrus"    // Logging
	"gorm.io/gorm"                  // GORM ORM library
)

// SeedReport counts the entries Seed inserted per kind
type SeedReport struct {
	Packages int
	Products int
	Tasks    int
	Gifts    int
}

func amount(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// DefaultPackages are the starter investment tiers
func DefaultPackages() []domain.InvestmentPackage {
	return []domain.InvestmentPackage{
		{Name: "Bronze", Description: "Entry tier", MinAmount: amount(500), MaxAmount: amount(4999), DailyReturnPct: decimal.RequireFromString("1.5"), DurationDays: 30, Active: true},
		{Name: "Silver", Description: "Mid tier", MinAmount: amount(5000), MaxAmount: amount(19999), DailyReturnPct: amount(2), DurationDays: 45, Active: true},
		{Name: "Gold", Description: "Top tier", MinAmount: amount(20000), MaxAmount: amount(100000), DailyReturnPct: decimal.RequireFromString("2.5"), DurationDays: 60, Active: true},
	}
}

// DefaultProducts are the starter shop items
func DefaultProducts() []domain.Product {
	return []domain.Product{
		{Name: "Mobile recharge 50", Description: "Top-up voucher", Price: amount(60), Stock: 500, Active: true},
		{Name: "Mobile recharge 100", Description: "Top-up voucher", Price: amount(115), Stock: 500, Active: true},
		{Name: "Bluetooth earbuds", Description: "Delivered in 7 days", Price: amount(1800), Stock: 25, Active: true},
	}
}

// DefaultTasks are five daily and three intern tasks
func DefaultTasks() []domain.Task {
	return []domain.Task{
		{Kind: domain.TaskDaily, Ordinal: 1, Title: "Watch the daily video", Reward: amount(2), Active: true},
		{Kind: domain.TaskDaily, Ordinal: 2, Title: "Share the app", Reward: amount(3), Active: true},
		{Kind: domain.TaskDaily, Ordinal: 3, Title: "Rate a product", Reward: amount(2), Active: true},
		{Kind: domain.TaskDaily, Ordinal: 4, Title: "Read the news digest", Reward: amount(2), Active: true},
		{Kind: domain.TaskDaily, Ordinal: 5, Title: "Check in at the shop", Reward: amount(1), Active: true},
		{Kind: domain.TaskIntern, Ordinal: 1, Title: "Complete your profile", Reward: amount(20), Active: true},
		{Kind: domain.TaskIntern, Ordinal: 2, Title: "Verify your phone", Reward: amount(30), Active: true},
		{Kind: domain.TaskIntern, Ordinal: 3, Title: "Make a first investment", Reward: amount(50), Active: true},
	}
}

// DefaultGifts are one daily and one welcome gift
func DefaultGifts() []domain.Gift {
	return []domain.Gift{
		{Name: "Daily gift", Amount: amount(1), Daily: true, Active: true},
		{Name: "Welcome gift", Amount: amount(25), Daily: false, Active: true},
	}
}

// Seed fills empty catalog tables with the defaults. Tables that already hold rows are left alone,
// so running it twice inserts nothing the second time.
func (s *Store) Seed(ctx context.Context) (*SeedReport, error) {
	report := &SeedReport{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if report.Packages, err = seedTable(tx, DefaultPackages()); err != nil {
			return err
		}
		if report.Products, err = seedTable(tx, DefaultProducts()); err != nil {
			return err
		}
		if report.Tasks, err = seedTable(tx, DefaultTasks()); err != nil {
			return err
		}
		report.Gifts, err = seedTable(tx, DefaultGifts())
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Invalidate(ctx)
	logrus.WithFields(logrus.Fields{
		"packages": report.Packages,
		"products": report.Products,
		"tasks":    report.Tasks,
		"gifts":    report.Gifts,
	}).Info("Catalog seeded")
	return report, nil
}

func seedTable[T any](tx *gorm.DB, rows []T) (int, error) {
	var count int64
	if err := tx.Model(new(T)).Count(&count).Error; err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}
	if err := tx.Create(&rows).Error; err != nil {
		return 0, err
	}
	return len(rows), nil
}
