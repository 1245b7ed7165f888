package db

import (
	"fmt"  // Error wrapping
	"time" // Pool lifetimes

	"rewards_system/internal/config" // Custom package for configuration

	"gorm.io/driver/mysql"    // MySQL driver for GORM
	"gorm.io/driver/postgres" // Postgres driver for GORM (pgx)
	"gorm.io/gorm"            // GORM ORM library
	"gorm.io/gorm/logger"     // GORM query logger
)

// Open connects to the configured database
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN())
	default:
		dialector = mysql.Open(cfg.DSN())
	}
	gormCfg := &gorm.Config{
		TranslateError: true, // Map duplicate keys to gorm.ErrDuplicatedKey
		NowFunc:        func() time.Time { return time.Now().UTC() },
	}
	if cfg.IsProd {
		gormCfg.Logger = logger.Default.LogMode(logger.Silent)
	}
	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}
