// Package testutil provides the shared hermetic database used by package
// tests. Production runs on MySQL; tests use the pure-Go sqlite driver with
// the same GORM models so no server is needed.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	appdb "goldvault/internal/db"
)

// OpenDB opens a throwaway sqlite database migrated with every domain model.
// The connection pool is capped at one so concurrent test goroutines
// serialize the way sqlite's single writer would.
func OpenDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "goldvault_test.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(appdb.Models()...); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}
