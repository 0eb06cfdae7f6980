package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Recurring plan frequencies
const (
	FrequencyDaily   = "DAILY"
	FrequencyWeekly  = "WEEKLY"
	FrequencyMonthly = "MONTHLY"
	FrequencyYearly  = "YEARLY"
)

// Recurring plan statuses
const (
	PlanActive    = "ACTIVE"
	PlanPaused    = "PAUSED"
	PlanCancelled = "CANCELLED"
	PlanCompleted = "COMPLETED"
)

// Recurring plan execution statuses
const (
	ExecutionPending   = "PENDING"
	ExecutionCompleted = "COMPLETED"
	ExecutionFailed    = "FAILED"
)

// RecurringPlan Model
type RecurringPlan struct {
	ID                uint             `gorm:"primaryKey"`                  // Primary key
	OwnerID           uint             `gorm:"index;not null"`              // Foreign key to User
	Name              string           `gorm:"size:128"`                    // User-facing label
	RecurringAmount   decimal.Decimal  `gorm:"type:decimal(20,8);not null"` // Fiat charged per occurrence
	Currency          string           `gorm:"size:8;not null"`             // Fiat currency code
	Frequency         string           `gorm:"size:16;not null"`            // DAILY, WEEKLY, MONTHLY, YEARLY
	ExecutionDay      int              // ISO weekday (weekly) or day of month (monthly)
	StartDate         time.Time        `gorm:"not null"`       // First date the plan may run
	NextExecutionDate time.Time        `gorm:"index;not null"` // Next due date, always kept current
	Status            string           `gorm:"size:16;not null;default:ACTIVE"` // ACTIVE, PAUSED, CANCELLED, COMPLETED
	GoalAmount        *decimal.Decimal `gorm:"type:decimal(20,8)"`              // Optional fiat savings goal
	GoalDate          *time.Time       // Optional target date for the goal
	CreatedAt         int64            `gorm:"autoCreateTime:milli"` // Timestamp of creation in milliseconds
	UpdatedAt         int64            `gorm:"autoUpdateTime:milli"` // Timestamp of last update in milliseconds
}

// RecurringPlanExecution Model. One row per logical occurrence of a plan,
// unique on (plan, scheduled date) so retries continue the same occurrence
// instead of creating a sibling.
type RecurringPlanExecution struct {
	ID            uint             `gorm:"primaryKey"`                            // Primary key
	PlanID        uint             `gorm:"uniqueIndex:idx_plan_occurrence"`       // Foreign key to RecurringPlan
	ScheduledDate time.Time        `gorm:"uniqueIndex:idx_plan_occurrence"`       // The occurrence this row represents
	ExecutedDate  *time.Time       // When the attempt actually ran, nil until attempted
	AmountFiat    decimal.Decimal  `gorm:"type:decimal(20,8);not null"` // Fiat charged for this occurrence
	GoldGrams     *decimal.Decimal `gorm:"type:decimal(20,8)"`          // Grams realized on success
	TransactionID *uint            // Ledger transaction created on success
	Status        string           `gorm:"size:16;not null"` // PENDING, COMPLETED, FAILED
	FailureReason string           `gorm:"size:255"`         // Populated on failure
	CreatedAt     int64            `gorm:"autoCreateTime:milli"` // Timestamp of creation in milliseconds
	UpdatedAt     int64            `gorm:"autoUpdateTime:milli"` // Timestamp of last update in milliseconds
}
