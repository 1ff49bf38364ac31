// Package testutil opens throwaway databases for package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/lshigami/compliance/database"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewDB returns a migrated in-memory sqlite database private to the test.
// A single connection keeps every query on the same in-memory database.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := database.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// CreateLegacyTable creates the wide employee table with one column pair (and
// the unused next-due column) per code, and one row per user.
func CreateLegacyTable(t *testing.T, db *gorm.DB, table string, codes []string, userIDs ...uint) {
	t.Helper()
	ddl := fmt.Sprintf(`CREATE TABLE %q (user_id INTEGER PRIMARY KEY`, table)
	for _, c := range codes {
		ddl += fmt.Sprintf(`, %q DATETIME, %q BOOLEAN, %q DATETIME`, c+"DatumPosl", c+"Pozadovano", c+"DatumPristi")
	}
	ddl += ")"
	require.NoError(t, db.Exec(ddl).Error)
	for _, id := range userIDs {
		require.NoError(t, db.Exec(fmt.Sprintf(`INSERT INTO %q (user_id) VALUES (?)`, table), id).Error)
	}
}
