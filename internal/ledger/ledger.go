// Package ledger owns wallet balances. All mutations go through Debit,
// Credit and SetLocked so the balance invariants (balance >= 0,
// 0 <= locked <= balance) hold at every committed state, and through the
// Recorder so every mutation is paired with an immutable transaction record
// in the same database transaction.
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"goldvault/internal/apperr"
	"goldvault/internal/domain"
)

// casRetries bounds the optimistic-update loop under contention.
const casRetries = 5

// Ensure returns the wallet for (ownerID, assetType), creating it with zero
// balances on first use. Idempotent; safe to call inside a transaction.
func Ensure(db *gorm.DB, ownerID uint, assetType string) (*domain.Wallet, error) {
	if assetType == "" {
		assetType = domain.AssetGold
	}
	var w domain.Wallet
	err := db.Where("owner_id = ? AND asset_type = ?", ownerID, assetType).First(&w).Error
	if err == nil {
		return &w, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	w = domain.Wallet{
		OwnerID:   ownerID,
		AssetType: assetType,
		Balance:   decimal.Zero,
		Locked:    decimal.Zero,
	}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&w).Error; err != nil {
		return nil, err
	}
	// A concurrent Ensure may have won the insert; re-read either way so the
	// caller always sees the committed row.
	if err := db.Where("owner_id = ? AND asset_type = ?", ownerID, assetType).First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

// Debit subtracts amount from the wallet balance. Fails with
// InsufficientBalance when amount exceeds balance - locked at the instant of
// the update. Must be called inside the same transaction as the paired
// transaction-record write.
func Debit(db *gorm.DB, walletID uint, amount decimal.Decimal) (*domain.Wallet, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperr.BadRequest("debit amount must be positive, got %s", amount)
	}
	return mutate(db, walletID, func(w *domain.Wallet) error {
		if amount.GreaterThan(w.Available()) {
			return apperr.InsufficientBalance(
				"insufficient balance: requested %s g, available %s g (balance %s g, locked %s g)",
				amount, w.Available(), w.Balance, w.Locked)
		}
		w.Balance = w.Balance.Sub(amount)
		return nil
	})
}

// Credit adds amount to the wallet balance. There is no upper bound.
func Credit(db *gorm.DB, walletID uint, amount decimal.Decimal) (*domain.Wallet, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperr.BadRequest("credit amount must be positive, got %s", amount)
	}
	return mutate(db, walletID, func(w *domain.Wallet) error {
		w.Balance = w.Balance.Add(amount)
		return nil
	})
}

// SetLocked sets the reserved sub-balance. amount must satisfy
// 0 <= amount <= balance.
func SetLocked(db *gorm.DB, walletID uint, amount decimal.Decimal) (*domain.Wallet, error) {
	if amount.IsNegative() {
		return nil, apperr.BadRequest("locked amount cannot be negative, got %s", amount)
	}
	return mutate(db, walletID, func(w *domain.Wallet) error {
		if amount.GreaterThan(w.Balance) {
			return apperr.BadRequest("cannot lock %s g: balance is %s g", amount, w.Balance)
		}
		w.Locked = amount
		return nil
	})
}

// mutate applies fn to a fresh copy of the wallet row and writes the new
// balances back with a compare-and-swap on the previous values, retrying on
// interleaved writers. On dialects with row locks the initial read takes
// FOR UPDATE, so the CAS succeeds on the first pass; sqlite (tests) has a
// single writer and needs neither.
func mutate(db *gorm.DB, walletID uint, fn func(w *domain.Wallet) error) (*domain.Wallet, error) {
	for attempt := 0; attempt < casRetries; attempt++ {
		var w domain.Wallet
		if err := lockingRead(db).First(&w, walletID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperr.NotFound("wallet %d not found", walletID)
			}
			return nil, err
		}
		prevBalance, prevLocked := w.Balance, w.Locked
		if err := fn(&w); err != nil {
			return nil, err
		}
		res := db.Model(&domain.Wallet{}).
			Where("id = ? AND balance = ? AND locked = ?", w.ID, prevBalance, prevLocked).
			Updates(map[string]any{"balance": w.Balance, "locked": w.Locked})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			return &w, nil
		}
	}
	return nil, fmt.Errorf("wallet %d: balance update contention, gave up after %d attempts", walletID, casRetries)
}

// lockingRead adds FOR UPDATE on dialects that support row locks.
func lockingRead(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "mysql" {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return db
}
