package api

import (
	"net/http" // HTTP status codes
	"time"     // Timestamp parsing

	"goldvault/internal/pricing" // Price oracle

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Exact decimal arithmetic
)

// SnapshotRequest appends a market price snapshot
type SnapshotRequest struct {
	Source      string          `json:"source" binding:"required"`     // Feed name
	BuyPrice    decimal.Decimal `json:"buy_price" binding:"required"`  // Price per gram users buy at
	SellPrice   decimal.Decimal `json:"sell_price" binding:"required"` // Price per gram users sell at
	Currency    string          `json:"currency" binding:"required"`   // Fiat currency code
	EffectiveAt *time.Time      `json:"effective_at"`                  // Defaults to now
}

// RecordSnapshotHandler lets an admin (or the feed worker) append a snapshot
func RecordSnapshotHandler(oracle *pricing.Oracle) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req SnapshotRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Append the snapshot
		snap, err := oracle.RecordSnapshot(c.Request.Context(), req.Source, req.BuyPrice, req.SellPrice, req.Currency, req.EffectiveAt)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, snap) // Return the stored snapshot
	}
}

// OverrideRequest appends an admin price override
type OverrideRequest struct {
	BuyPrice  decimal.Decimal `json:"buy_price" binding:"required"`  // Override buy price
	SellPrice decimal.Decimal `json:"sell_price" binding:"required"` // Override sell price
	Currency  string          `json:"currency" binding:"required"`   // Fiat currency code
	Reason    string          `json:"reason"`                        // Why the override exists
	ExpiresAt *time.Time      `json:"expires_at"`                    // Optional expiry; nil never expires
}

// AddOverrideHandler lets an admin pin the effective price
func AddOverrideHandler(oracle *pricing.Oracle) gin.HandlerFunc {
	return func(c *gin.Context) {
		adminID, ok := currentUserID(c) // Get adminID from context
		if !ok {
			return
		}
		var req OverrideRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Append the override; prior overrides are superseded by recency
		ov, err := oracle.AddOverride(c.Request.Context(), adminID, req.BuyPrice, req.SellPrice, req.Currency, req.Reason, req.ExpiresAt)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, ov) // Return the stored override
	}
}
