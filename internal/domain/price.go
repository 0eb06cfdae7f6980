package domain

import "github.com/shopspring/decimal"

// PriceSnapshot Model. Append-only feed of market prices; the most recent
// row by EffectiveAt is the market price.
type PriceSnapshot struct {
	ID          uint            `gorm:"primaryKey"`                  // Primary key
	Source      string          `gorm:"size:64;not null"`            // Feed identifier, e.g. "market"
	BuyPrice    decimal.Decimal `gorm:"type:decimal(20,8);not null"` // Price per gram users buy at
	SellPrice   decimal.Decimal `gorm:"type:decimal(20,8);not null"` // Price per gram users sell at
	Currency    string          `gorm:"size:8;not null"`             // Fiat currency code
	EffectiveAt int64           `gorm:"index;not null"`              // When the price took effect, milliseconds
	CreatedAt   int64           `gorm:"autoCreateTime:milli"`        // Timestamp of creation in milliseconds
}

// PriceOverride Model. Append-only: an override is never edited, a newer row
// supersedes it. Active while ExpiresAt is nil or in the future.
type PriceOverride struct {
	ID        uint            `gorm:"primaryKey"`                  // Primary key
	AdminID   uint            `gorm:"not null"`                    // Admin who set the override
	BuyPrice  decimal.Decimal `gorm:"type:decimal(20,8);not null"` // Price per gram users buy at
	SellPrice decimal.Decimal `gorm:"type:decimal(20,8);not null"` // Price per gram users sell at
	Currency  string          `gorm:"size:8;not null"`             // Fiat currency code
	Reason    string          `gorm:"size:255"`                    // Why the override was placed
	ExpiresAt *int64          // Expiry in milliseconds, nil = until superseded
	CreatedAt int64           `gorm:"autoCreateTime:milli;index"` // Timestamp of creation in milliseconds
}
