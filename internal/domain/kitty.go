package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kitty statuses
const (
	KittyActive    = "ACTIVE"
	KittyPaused    = "PAUSED"
	KittyCompleted = "COMPLETED"
)

// Kitty Model. A rotating savings pool: each round every active member
// contributes, and the accumulated pot goes to one member.
type Kitty struct {
	ID              uint            `gorm:"primaryKey"`                  // Primary key
	OwnerID         uint            `gorm:"index;not null"`              // User who runs the kitty
	Name            string          `gorm:"size:128;not null"`           // User-facing label
	MonthlyAmount   decimal.Decimal `gorm:"type:decimal(20,8);not null"` // Fiat contribution per member per round
	Currency        string          `gorm:"size:8;not null"`             // Fiat currency code
	ContributionDay int             `gorm:"not null"`                    // Day of month contributions are due, 1-31
	StartDate       time.Time       `gorm:"not null"`                    // First round start
	TotalRounds     int             `gorm:"not null"`                    // Number of rounds = max member count
	CurrentRound    int             `gorm:"not null;default:1"`          // Round currently collecting
	Status          string          `gorm:"size:16;not null;default:ACTIVE"` // ACTIVE, PAUSED, COMPLETED
	CreatedAt       int64           `gorm:"autoCreateTime:milli"`            // Timestamp of creation in milliseconds
	UpdatedAt       int64           `gorm:"autoUpdateTime:milli"`            // Timestamp of last update in milliseconds
}

// KittyMember Model. AllocationOrder is unique among active members of a
// kitty; removed members keep their slot number but free it for reuse, so
// uniqueness is enforced by the engine rather than an index.
type KittyMember struct {
	ID              uint  `gorm:"primaryKey"`           // Primary key
	KittyID         uint  `gorm:"index;not null"`       // Foreign key to Kitty
	OwnerUserID     uint  `gorm:"index;not null"`       // Foreign key to User
	AllocationOrder int   `gorm:"not null"`             // Position in the payout rotation
	IsActive        bool  `gorm:"not null;default:true"` // Soft-removal flag
	HasReceivedPot  bool  `gorm:"not null;default:false"` // One-way flag, set when the pot is allocated
	CreatedAt       int64 `gorm:"autoCreateTime:milli"`   // Timestamp of creation in milliseconds
	UpdatedAt       int64 `gorm:"autoUpdateTime:milli"`   // Timestamp of last update in milliseconds
}

// KittyContribution Model. One row per member per round, upserted.
type KittyContribution struct {
	ID          uint            `gorm:"primaryKey"`                        // Primary key
	KittyID     uint            `gorm:"uniqueIndex:idx_kitty_member_round"` // Foreign key to Kitty
	MemberID    uint            `gorm:"uniqueIndex:idx_kitty_member_round"` // Foreign key to KittyMember
	RoundNumber int             `gorm:"uniqueIndex:idx_kitty_member_round"` // Round the contribution belongs to
	AmountFiat  decimal.Decimal `gorm:"type:decimal(20,8);not null"`        // Fiat contributed
	GoldGrams   decimal.Decimal `gorm:"type:decimal(20,8);not null"`        // Grams the contribution bought
	PaymentRef  string          `gorm:"size:128"`                           // External payment reference
	IsPaid      bool            `gorm:"not null;default:false"`             // True once a payment reference exists
	PaidAt      *int64          // Timestamp of payment in milliseconds
	CreatedAt   int64           `gorm:"autoCreateTime:milli"` // Timestamp of creation in milliseconds
	UpdatedAt   int64           `gorm:"autoUpdateTime:milli"` // Timestamp of last update in milliseconds
}

// KittyAllocation Model. At most one per (kitty, round).
type KittyAllocation struct {
	ID              uint            `gorm:"primaryKey"`                   // Primary key
	KittyID         uint            `gorm:"uniqueIndex:idx_kitty_round"`  // Foreign key to Kitty
	RoundNumber     int             `gorm:"uniqueIndex:idx_kitty_round"`  // Round whose pot was paid out
	MemberID        uint            `gorm:"index;not null"`               // Recipient member
	TotalGoldGrams  decimal.Decimal `gorm:"type:decimal(20,8);not null"`  // Sum of paid contributions' grams
	TotalAmountFiat decimal.Decimal `gorm:"type:decimal(20,8);not null"`  // Sum of paid contributions' fiat
	TransactionID   uint            `gorm:"not null"`                     // Ledger credit to the recipient
	AllocatedAt     int64           `gorm:"not null"`                     // Timestamp of allocation in milliseconds
	CreatedAt       int64           `gorm:"autoCreateTime:milli"`         // Timestamp of creation in milliseconds
}
