package domain

// Delivery methods for physical withdrawals
const (
	DeliveryHome          = "home"
	DeliveryPartnerPickup = "partner_pickup"
	DeliveryVaultPickup   = "vault_pickup"
)

// WithdrawalFulfillment Model. Delivery metadata for a physical withdrawal;
// the paired transaction stays PENDING until an admin marks delivery done.
type WithdrawalFulfillment struct {
	ID             uint   `gorm:"primaryKey"`           // Primary key
	TransactionID  uint   `gorm:"uniqueIndex;not null"` // Foreign key to Transaction
	CoinSize       string `gorm:"size:16;not null"`     // Coin denomination ordered
	Quantity       int    `gorm:"not null"`             // Number of coins
	DeliveryMethod string `gorm:"size:24;not null"`     // home, partner_pickup, vault_pickup
	AddressLine    string `gorm:"size:255"`             // Street address (home delivery)
	City           string `gorm:"size:64"`              // City (home delivery)
	PostalCode     string `gorm:"size:16"`              // Postal code (home delivery)
	LocationCode   string `gorm:"size:64"`              // Partner/vault identifier (pickup methods)
	RecipientName  string `gorm:"size:128;not null"`    // Who receives the gold
	RecipientPhone string `gorm:"size:32;not null"`     // Contact phone for delivery
	TrackingNumber string `gorm:"size:64"`              // Carrier tracking, set on dispatch
	ShippedAt      *int64 // Timestamp of dispatch in milliseconds
	DeliveredAt    *int64 // Timestamp of delivery in milliseconds
	CreatedAt      int64  `gorm:"autoCreateTime:milli"` // Timestamp of creation in milliseconds
	UpdatedAt      int64  `gorm:"autoUpdateTime:milli"` // Timestamp of last update in milliseconds
}
