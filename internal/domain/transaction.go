package domain

import "github.com/shopspring/decimal"

// Transaction kinds
const (
	KindBuy              = "BUY"               // Purchase of gold, credits the wallet
	KindSell             = "SELL"              // Sale of gold, debits the wallet
	KindWithdrawCash     = "WITHDRAW_CASH"     // Cash-out of gold value, debits the wallet
	KindWithdrawPhysical = "WITHDRAW_PHYSICAL" // Physical delivery, debits the wallet
	KindAdjustment       = "ADJUSTMENT"        // Manual/internal correction, signed
)

// Transaction statuses
const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
	StatusCancelled = "CANCELLED"
)

// Transaction Model. Rows are immutable once created: only Status and
// CompletedAt may transition, the gram/fiat amounts never change.
type Transaction struct {
	ID             uint            `gorm:"primaryKey"`                  // Primary key
	OwnerID        uint            `gorm:"index;not null"`              // Foreign key to User
	WalletID       uint            `gorm:"index;not null"`              // Foreign key to Wallet
	Kind           string          `gorm:"size:24;not null"`            // BUY, SELL, WITHDRAW_CASH, WITHDRAW_PHYSICAL, ADJUSTMENT
	Status         string          `gorm:"size:16;not null"`            // PENDING, COMPLETED, FAILED, CANCELLED
	GoldGrams      decimal.Decimal `gorm:"type:decimal(20,8);not null"` // Signed: positive credits, negative debits
	FiatAmount     decimal.Decimal `gorm:"type:decimal(20,8);not null"` // Fiat value of the movement
	FeeAmount      decimal.Decimal `gorm:"type:decimal(20,8);not null"` // Fee charged in fiat
	Currency       string          `gorm:"size:8;not null"`             // Fiat currency code
	ReferenceCode  string          `gorm:"uniqueIndex;size:64"`         // Human-readable unique reference
	IdempotencyKey *string         `gorm:"uniqueIndex;size:128"`        // Optional dedupe key supplied by retrying callers
	Metadata       string          `gorm:"type:text"`                   // JSON blob with flow-specific details
	CompletedAt    *int64          // Timestamp of completion in milliseconds, nil while pending
	CreatedAt      int64           `gorm:"autoCreateTime:milli"` // Timestamp of creation in milliseconds
}
