package domain

// User Model
type User struct {
	ID       uint   `gorm:"primaryKey"`      // Primary key
	Username string `gorm:"unique;not null"` // Unique username
	Password string `gorm:"not null"`        // Hashed password
	FullName string `gorm:"size:128"`        // Display name, used as default withdrawal recipient
	Phone    string `gorm:"size:32"`         // Contact phone, used as default withdrawal contact
	Role     string `gorm:"default:user"`    // Role: user or admin
}
