package config

import (
	"errors"        // Validation errors
	"fmt"           // Error wrapping
	"time"          // Durations and locations
	_ "time/tzdata" // Embedded zone database for TIMEZONE

	"github.com/caarlos0/env/v11"   // Struct tag based env parsing
	"github.com/joho/godotenv"      // For loading .env files
	"github.com/shopspring/decimal" // Money
)

// Config holds the application configuration
type Config struct {
	AppPort    string `env:"APP_PORT" envDefault:"8080"`      // Application port
	DBDriver   string `env:"DB_DRIVER" envDefault:"mysql"`    // Database driver: mysql or postgres
	DBUser     string `env:"DB_USER"`                         // Database user
	DBPassword string `env:"DB_PASSWORD"`                     // Database password
	DBHost     string `env:"DB_HOST" envDefault:"127.0.0.1"`  // Database host
	DBPort     string `env:"DB_PORT" envDefault:"3306"`       // Database port
	DBName     string `env:"DB_NAME" envDefault:"rewards"`    // Database name
	JWTSecret  string `env:"JWT_SECRET"`                      // JWT secret key
	RedisAddr  string `env:"REDIS_ADDR"`                      // Redis server address, empty disables redis
	RedisPass  string `env:"REDIS_PASS"`                      // Redis password
	RedisDB    int    `env:"REDIS_DB" envDefault:"0"`         // Redis database number
	IsProd     bool   `env:"IS_PROD" envDefault:"false"`      // Is production environment
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`     // logrus level name
	Timezone   string `env:"TIMEZONE" envDefault:"UTC"`       // Calendar used for daily eligibility windows
	TrustProxy string `env:"TRUSTED_PROXY" envDefault:"127.0.0.1"`

	LedgerMaxRetries int `env:"LEDGER_MAX_RETRIES" envDefault:"5"` // CAS retry budget per operation

	DailyBonusBase     string `env:"DAILY_BONUS_BASE" envDefault:"10"`     // Bonus for the first day of a streak
	DailyBonusStep     string `env:"DAILY_BONUS_STEP" envDefault:"5"`      // Added per consecutive day
	DailyBonusMaxSteps int    `env:"DAILY_BONUS_MAX_STEPS" envDefault:"6"` // Streak growth cap

	ReferralBonusReferrer string `env:"REFERRAL_BONUS_REFERRER" envDefault:"50"` // Paid to the code owner
	ReferralBonusReferred string `env:"REFERRAL_BONUS_REFERRED" envDefault:"20"` // Paid to the new account
	MinWithdrawal         string `env:"MIN_WITHDRAWAL" envDefault:"100"`         // Smallest payout request

	SettleSchedule string `env:"SETTLE_SCHEDULE" envDefault:"@every 1h"` // cron spec for investment settlement

	RateLimitRPS   int `env:"RATE_LIMIT_RPS" envDefault:"5"`    // Reward endpoint requests per second per account
	RateLimitBurst int `env:"RATE_LIMIT_BURST" envDefault:"10"` // Burst allowance
}

// LoadConfig loads configuration from the .env file and environment variables
func LoadConfig() (*Config, error) {
	_ = godotenv.Load() // Load .env file if present
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoadConfig is LoadConfig for entry points that cannot run without configuration
func MustLoadConfig() *Config {
	cfg, err := LoadConfig()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate rejects configurations the server cannot start with
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	if c.DBDriver != "mysql" && c.DBDriver != "postgres" {
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	for name, v := range map[string]string{
		"DAILY_BONUS_BASE":        c.DailyBonusBase,
		"DAILY_BONUS_STEP":        c.DailyBonusStep,
		"REFERRAL_BONUS_REFERRER": c.ReferralBonusReferrer,
		"REFERRAL_BONUS_REFERRED": c.ReferralBonusReferred,
		"MIN_WITHDRAWAL":          c.MinWithdrawal,
	} {
		d, err := decimal.NewFromString(v)
		if err != nil || d.IsNegative() {
			return fmt.Errorf("%s must be a non-negative decimal", name)
		}
	}
	if c.LedgerMaxRetries < 1 {
		return errors.New("LEDGER_MAX_RETRIES must be at least 1")
	}
	return nil
}

// Location returns the time zone that defines a calendar day
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC // Validate already rejected bad names
	}
	return loc
}

// Decimal parses one of the decimal-valued settings, falling back to zero
func Decimal(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// DSN builds the data source name for the configured driver
func (c *Config) DSN() string {
	if c.DBDriver == "postgres" {
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable TimeZone=UTC",
			c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName)
	}
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?parseTime=true"
}
