package domain

import "github.com/shopspring/decimal"

// AssetGold is the only asset type the ledger currently holds.
const AssetGold = "GOLD"

// Wallet Model
type Wallet struct {
	ID        uint            `gorm:"primaryKey"`                            // Primary key
	OwnerID   uint            `gorm:"uniqueIndex:idx_owner_asset;not null"`  // Foreign key to User
	AssetType string          `gorm:"uniqueIndex:idx_owner_asset;size:16"`   // Asset type, e.g. GOLD
	Balance   decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0"` // Total balance in grams
	Locked    decimal.Decimal `gorm:"type:decimal(20,8);not null;default:0"` // Reserved, not spendable
	CreatedAt int64           `gorm:"autoCreateTime:milli"`                  // Timestamp of creation in milliseconds
	UpdatedAt int64           `gorm:"autoUpdateTime:milli"`                  // Timestamp of last update in milliseconds
}

// Available returns the spendable part of the balance (balance - locked).
func (w Wallet) Available() decimal.Decimal {
	return w.Balance.Sub(w.Locked)
}
