package api

import (
	"context"  // Transition function signature
	"net/http" // HTTP status codes
	"time"     // Date parsing

	"goldvault/internal/domain"    // Domain models
	"goldvault/internal/recurring" // Recurring plan scheduler

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Exact decimal arithmetic
)

// CreatePlanRequest describes a new recurring savings plan
type CreatePlanRequest struct {
	Name            string           `json:"name" binding:"required"`             // Plan display name
	RecurringAmount decimal.Decimal  `json:"recurring_amount" binding:"required"` // Fiat per occurrence
	Currency        string           `json:"currency"`                            // Fiat currency code
	Frequency       string           `json:"frequency" binding:"required"`        // DAILY, WEEKLY, MONTHLY, YEARLY
	ExecutionDay    int              `json:"execution_day"`                       // Weekday 1-7 or day-of-month 1-31
	StartDate       string           `json:"start_date"`                          // YYYY-MM-DD, defaults to today
	GoalAmount      *decimal.Decimal `json:"goal_amount"`                         // Optional savings goal
	GoalDate        string           `json:"goal_date"`                           // Optional YYYY-MM-DD target
}

// CreatePlanHandler creates a recurring plan for the caller
func CreatePlanHandler(sched *recurring.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			return
		}
		var req CreatePlanRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		in := recurring.CreatePlanInput{
			OwnerID:         userID,              // Authenticated caller
			Name:            req.Name,            // Plan name
			RecurringAmount: req.RecurringAmount, // Fiat per occurrence
			Currency:        req.Currency,        // Currency
			Frequency:       req.Frequency,       // Schedule frequency
			ExecutionDay:    req.ExecutionDay,    // Schedule day
			GoalAmount:      req.GoalAmount,      // Savings goal
		}
		// Parse the optional dates
		if req.StartDate != "" {
			start, err := time.Parse("2006-01-02", req.StartDate)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be YYYY-MM-DD"})
				return
			}
			in.StartDate = start
		}
		if req.GoalDate != "" {
			goal, err := time.Parse("2006-01-02", req.GoalDate)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "goal_date must be YYYY-MM-DD"})
				return
			}
			in.GoalDate = &goal
		}
		// Create the plan
		plan, err := sched.CreatePlan(c.Request.Context(), in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, plan) // Return the stored plan
	}
}

// ListPlansHandler returns the caller's plans, newest first
func ListPlansHandler(sched *recurring.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			return
		}
		plans, err := sched.ListPlans(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"plans": plans}) // Return the plans
	}
}

// planTransition wraps the shared id-parse / owner-scope / respond pattern
// around a plan state transition.
func planTransition(fn func(ctx context.Context, ownerID, planID uint) (*domain.RecurringPlan, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			return
		}
		planID, ok := parseIDParam(c, "id") // Parse plan ID from path
		if !ok {
			return
		}
		// Apply the transition
		plan, err := fn(c.Request.Context(), userID, planID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, plan) // Return the updated plan
	}
}

// PausePlanHandler pauses an active plan
func PausePlanHandler(sched *recurring.Scheduler) gin.HandlerFunc {
	return planTransition(sched.Pause)
}

// ResumePlanHandler resumes a paused plan
func ResumePlanHandler(sched *recurring.Scheduler) gin.HandlerFunc {
	return planTransition(sched.Resume)
}

// CancelPlanHandler cancels a plan permanently
func CancelPlanHandler(sched *recurring.Scheduler) gin.HandlerFunc {
	return planTransition(sched.Cancel)
}

// CompletePlanHandler marks a goal-reached plan as completed
func CompletePlanHandler(sched *recurring.Scheduler) gin.HandlerFunc {
	return planTransition(sched.Complete)
}

// PlanProgressHandler reports totals and goal status for a plan
func PlanProgressHandler(sched *recurring.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			return
		}
		planID, ok := parseIDParam(c, "id") // Parse plan ID from path
		if !ok {
			return
		}
		progress, err := sched.PlanProgress(c.Request.Context(), userID, planID)
		if err != nil {
			respondError(c, err)
			return
		}
		// Return the progress summary
		c.JSON(http.StatusOK, gin.H{
			"plan":            progress.Plan,                // The plan itself
			"total_fiat":      progress.TotalFiat.String(),  // Fiat invested so far
			"total_grams":     progress.TotalGrams.String(), // Grams accumulated so far
			"execution_count": progress.ExecutionCount,      // Completed occurrences
			"goal_reached":    progress.GoalReached,         // Whether the goal is met
		})
	}
}
