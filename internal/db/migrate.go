package db

import (
	"goldvault/internal/domain" // Importing domain models

	"github.com/sirupsen/logrus"

	"gorm.io/driver/mysql" // MySQL driver for GORM
	"gorm.io/gorm"         // GORM ORM library
)

// Models lists every persisted model, in dependency order. Shared by the
// migrate command and the test harness.
func Models() []any {
	return []any{
		&domain.User{},                   // Accounts
		&domain.Wallet{},                 // Gold balances
		&domain.Transaction{},            // Ledger records
		&domain.PriceSnapshot{},          // Market price feed
		&domain.PriceOverride{},          // Admin price overrides
		&domain.RecurringPlan{},          // Recurring savings plans
		&domain.RecurringPlanExecution{}, // Per-occurrence execution rows
		&domain.Kitty{},                  // Rotating savings pools
		&domain.KittyMember{},            // Pool membership
		&domain.KittyContribution{},      // Per-round contributions
		&domain.KittyAllocation{},        // Pot payouts
		&domain.WithdrawalFulfillment{},  // Physical delivery records
	}
}

// Migrate performs automatic migration for the database schema
func Migrate(dsn string) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{}) // Open a connection to the database
	if err != nil {
		logrus.Fatalf("failed to connect database: %v", err) // Log fatal error if connection fails
	}
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	err = db.AutoMigrate(Models()...)
	if err != nil {
		logrus.Fatalf("migration failed: %v", err) // Log fatal error if migration fails
	}
	logrus.Info("Migration completed.") // Log successful migration
}
