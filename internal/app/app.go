// Package app builds the service graph shared by the server and the admin CLI.
package app

import (
	"fmt" // Error wrapping

	"rewards_system/internal/accounts" // Account store
	"rewards_system/internal/catalog"  // Catalog store
	"rewards_system/internal/config"   // Custom package for configuration
	"rewards_system/internal/db"       // Database and redis connections
	"rewards_system/internal/ledger"   // Ledger engine
	"rewards_system/internal/realtime" // Event publisher
	"rewards_system/internal/rewards"  // Reward rules

	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging
	"gorm.io/gorm"                 // GORM ORM library
)

// App holds the connected stores and services
type App struct {
	Config    *config.Config
	DB        *gorm.DB
	Redis     *redis.Client // nil when redis is not configured
	Publisher *realtime.Publisher
	Ledger    *ledger.Engine
	Accounts  *accounts.Store
	Catalog   *catalog.Store
	Rewards   *rewards.Service
}

// New connects to the database and redis, applies migrations, and wires the services
func New(cfg *config.Config) (*App, error) {
	gdb, err := db.Open(cfg)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(gdb); err != nil {
		return nil, err
	}
	rdb, err := db.OpenRedis(cfg)
	if err != nil {
		return nil, err
	}
	return NewWithConnections(cfg, gdb, rdb), nil
}

// NewWithConnections wires the services over already opened connections
func NewWithConnections(cfg *config.Config, gdb *gorm.DB, rdb *redis.Client) *App {
	pub := realtime.NewPublisher(rdb)
	var notifier ledger.Notifier
	if rdb != nil {
		notifier = pub
	}
	engine := ledger.NewEngine(gdb, rdb, notifier, cfg.LedgerMaxRetries)
	cat := catalog.NewStore(gdb, rdb)
	return &App{
		Config:    cfg,
		DB:        gdb,
		Redis:     rdb,
		Publisher: pub,
		Ledger:    engine,
		Accounts:  accounts.NewStore(gdb, rdb, cfg.JWTSecret, config.Decimal(cfg.DailyBonusBase)),
		Catalog:   cat,
		Rewards:   rewards.NewService(engine, cat, rewards.SettingsFromConfig(cfg), cfg.Location()),
	}
}

// Close releases the connections
func (a *App) Close() error {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close redis")
		}
	}
	sqlDB, err := a.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	return sqlDB.Close()
}
