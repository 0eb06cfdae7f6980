package api

import (
	"net/http" // HTTP status codes
	"time"     // Date parsing

	"goldvault/internal/kitty" // Rotating pool engine

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Exact decimal arithmetic
)

// CreateKittyRequest describes a new rotating savings pool
type CreateKittyRequest struct {
	Name            string          `json:"name" binding:"required"`             // Pool display name
	MonthlyAmount   decimal.Decimal `json:"monthly_amount" binding:"required"`   // Fiat per member per round
	Currency        string          `json:"currency"`                            // Fiat currency code
	ContributionDay int             `json:"contribution_day" binding:"required"` // Day of month contributions are due
	StartDate       string          `json:"start_date"`                          // YYYY-MM-DD, defaults to today
	TotalRounds     int             `json:"total_rounds" binding:"required"`     // Number of rounds (= max members)
	MemberInvites   []uint          `json:"member_invites"`                      // User IDs to seat after the owner
}

// CreateKittyHandler creates a kitty owned by the caller
func CreateKittyHandler(engine *kitty.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			return
		}
		var req CreateKittyRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		in := kitty.CreateInput{
			OwnerID:         userID,              // Authenticated caller becomes member #1
			Name:            req.Name,            // Pool name
			MonthlyAmount:   req.MonthlyAmount,   // Per-round contribution
			Currency:        req.Currency,        // Currency
			ContributionDay: req.ContributionDay, // Due day
			TotalRounds:     req.TotalRounds,     // Round count
			MemberInvites:   req.MemberInvites,   // Invited user IDs
		}
		// Parse the optional start date
		if req.StartDate != "" {
			start, err := time.Parse("2006-01-02", req.StartDate)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "start_date must be YYYY-MM-DD"})
				return
			}
			in.StartDate = start
		}
		// Create the kitty with its founding members
		k, err := engine.Create(c.Request.Context(), in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, k) // Return the stored kitty
	}
}

// GetKittyHandler returns a kitty and its members in allocation order
func GetKittyHandler(engine *kitty.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		kittyID, ok := parseIDParam(c, "id") // Parse kitty ID from path
		if !ok {
			return
		}
		k, members, err := engine.Get(c.Request.Context(), kittyID)
		if err != nil {
			respondError(c, err)
			return
		}
		// Return the kitty with its member roster
		c.JSON(http.StatusOK, gin.H{
			"kitty":   k,       // The pool
			"members": members, // Members ordered by allocation order
		})
	}
}

// AddMemberRequest seats a user in a kitty
type AddMemberRequest struct {
	UserID          uint `json:"user_id" binding:"required"`          // User to seat
	AllocationOrder int  `json:"allocation_order" binding:"required"` // Round in which they receive the pot
}

// AddKittyMemberHandler seats a new member in the kitty
func AddKittyMemberHandler(engine *kitty.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		kittyID, ok := parseIDParam(c, "id") // Parse kitty ID from path
		if !ok {
			return
		}
		var req AddMemberRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		member, err := engine.AddMember(c.Request.Context(), kittyID, req.UserID, req.AllocationOrder)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, member) // Return the seated member
	}
}

// RemoveKittyMemberHandler deactivates a member, freeing their slot
func RemoveKittyMemberHandler(engine *kitty.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		kittyID, ok := parseIDParam(c, "id") // Parse kitty ID from path
		if !ok {
			return
		}
		memberID, ok := parseIDParam(c, "memberID") // Parse member ID from path
		if !ok {
			return
		}
		if err := engine.RemoveMember(c.Request.Context(), kittyID, memberID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Member removed"}) // Confirm removal
	}
}

// ContributionRequest records a member's contribution for a round
type ContributionRequest struct {
	MemberID    uint            `json:"member_id" binding:"required"`    // Contributing member
	RoundNumber int             `json:"round_number" binding:"required"` // Round the contribution is for
	GoldGrams   decimal.Decimal `json:"gold_grams"`                      // Gram valuation of the contribution
	AmountFiat  decimal.Decimal `json:"amount_fiat" binding:"required"`  // Fiat contributed
	PaymentRef  string          `json:"payment_ref"`                     // Set once the payment clears
}

// RecordContributionHandler upserts a round contribution
func RecordContributionHandler(engine *kitty.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		kittyID, ok := parseIDParam(c, "id") // Parse kitty ID from path
		if !ok {
			return
		}
		var req ContributionRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		contribution, err := engine.RecordContribution(c.Request.Context(),
			kittyID, req.MemberID, req.RoundNumber, req.GoldGrams, req.AmountFiat, req.PaymentRef)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, contribution) // Return the stored contribution
	}
}

// AllocatePotRequest pays out a round's pot to a member
type AllocatePotRequest struct {
	MemberID    uint `json:"member_id" binding:"required"`    // Receiving member
	RoundNumber int  `json:"round_number" binding:"required"` // Round being allocated
}

// AllocatePotHandler allocates the round's pot to the designated member
func AllocatePotHandler(engine *kitty.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		kittyID, ok := parseIDParam(c, "id") // Parse kitty ID from path
		if !ok {
			return
		}
		var req AllocatePotRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		allocation, err := engine.AllocatePot(c.Request.Context(), kittyID, req.MemberID, req.RoundNumber)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, allocation) // Return the stored allocation
	}
}
