package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		DBDriver:              "mysql",
		JWTSecret:             "secret",
		Timezone:              "UTC",
		LedgerMaxRetries:      5,
		DailyBonusBase:        "10",
		DailyBonusStep:        "5",
		ReferralBonusReferrer: "50",
		ReferralBonusReferred: "20",
		MinWithdrawal:         "100",
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "ok", mutate: func(*Config) {}},
		{name: "missing secret", mutate: func(c *Config) { c.JWTSecret = "" }, wantErr: true},
		{name: "unknown driver", mutate: func(c *Config) { c.DBDriver = "oracle" }, wantErr: true},
		{name: "bad timezone", mutate: func(c *Config) { c.Timezone = "Mars/Base" }, wantErr: true},
		{name: "negative bonus", mutate: func(c *Config) { c.DailyBonusBase = "-1" }, wantErr: true},
		{name: "zero retries", mutate: func(c *Config) { c.LedgerMaxRetries = 0 }, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := validConfig()
			tc.mutate(c)
			err := c.Validate()
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestDSN(t *testing.T) {
	c := validConfig()
	c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName = "u", "p", "h", "3306", "d"
	require.Equal(t, "u:p@tcp(h:3306)/d?parseTime=true", c.DSN())

	c.DBDriver = "postgres"
	c.DBPort = "5432"
	require.Contains(t, c.DSN(), "host=h port=5432 user=u password=p dbname=d")
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "from-env")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("TIMEZONE", "Asia/Dhaka")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "from-env", cfg.JWTSecret)
	require.Equal(t, "postgres", cfg.DBDriver)
	require.Equal(t, "Asia/Dhaka", cfg.Location().String())
	require.Equal(t, 5, cfg.LedgerMaxRetries)
	require.Equal(t, "10", Decimal(cfg.DailyBonusBase).String())
}
