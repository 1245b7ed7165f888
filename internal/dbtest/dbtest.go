// Package dbtest opens throwaway SQLite databases with the full schema applied.
package dbtest

import (
	"path/filepath"
	"testing"
	"time"

	"rewards_system/internal/db"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func open(t testing.TB, dsn string, conns int) *gorm.DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(conns)
	sqlDB.SetMaxIdleConns(conns)
	sqlDB.SetConnMaxLifetime(0)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb))
	return gdb
}

// Open returns a migrated in-memory database that lives as long as the test.
// SQLite keeps one database per connection for :memory:, so the pool is pinned to a single
// connection and concurrent callers are serialized: they never lose a version check.
func Open(t testing.TB) *gorm.DB {
	return open(t, ":memory:", 1)
}

// OpenFile returns a migrated file database in WAL mode shared by several connections, so
// concurrent transactions really overlap and the losers go through the ledger's retry path.
func OpenFile(t testing.TB, conns int) *gorm.DB {
	dsn := filepath.Join(t.TempDir(), "test.db") + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	return open(t, dsn, conns)
}
