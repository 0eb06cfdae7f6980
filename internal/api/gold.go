package api

import (
	"net/http" // HTTP status codes
	"strconv"  // Path parameter parsing

	"goldvault/internal/movement" // Movement flows
	"goldvault/internal/pricing"  // Price oracle

	"github.com/gin-gonic/gin"      // Gin web framework
	"github.com/shopspring/decimal" // Exact decimal arithmetic
)

// GetPriceHandler returns the currently effective gold price
func GetPriceHandler(oracle *pricing.Oracle) gin.HandlerFunc {
	return func(c *gin.Context) {
		quote, err := oracle.EffectiveQuote(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, quote) // Return the effective quote
	}
}

// BuyRequest is a purchase order: exactly one of grams or fiat_amount
type BuyRequest struct {
	Grams          *decimal.Decimal `json:"grams"`           // Gram-first order
	FiatAmount     *decimal.Decimal `json:"fiat_amount"`     // Fiat-first order
	IdempotencyKey string           `json:"idempotency_key"` // Optional dedupe key
}

// BuyHandler purchases gold for the caller
func BuyHandler(svc *movement.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			return
		}
		var req BuyRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Execute the buy flow
		res, err := svc.Buy(c.Request.Context(), movement.BuyInput{
			OwnerID:        userID,             // Authenticated caller
			Grams:          req.Grams,          // Gram-first amount
			FiatAmount:     req.FiatAmount,     // Fiat-first amount
			IdempotencyKey: req.IdempotencyKey, // Dedupe key
		})
		if err != nil {
			respondError(c, err)
			return
		}
		// Return the completed transaction and updated wallet
		c.JSON(http.StatusCreated, gin.H{
			"transaction": toTransactionResponse(*res.Transaction),
			"wallet":      toWalletResponse(*res.Wallet),
		})
	}
}

// SellRequest is a sale order
type SellRequest struct {
	Grams decimal.Decimal `json:"grams" binding:"required"` // Grams to sell
}

// SellHandler sells gold from the caller's wallet
func SellHandler(svc *movement.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			return
		}
		var req SellRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Execute the sell flow
		res, err := svc.Sell(c.Request.Context(), movement.SellInput{
			OwnerID: userID,    // Authenticated caller
			Grams:   req.Grams, // Grams to sell
		})
		if err != nil {
			respondError(c, err)
			return
		}
		// Return the completed transaction and updated wallet
		c.JSON(http.StatusCreated, gin.H{
			"transaction": toTransactionResponse(*res.Transaction),
			"wallet":      toWalletResponse(*res.Wallet),
		})
	}
}

// WithdrawCashRequest is a cash-out order
type WithdrawCashRequest struct {
	Grams      decimal.Decimal `json:"grams" binding:"required"` // Grams to liquidate
	FiatAmount decimal.Decimal `json:"fiat_amount"`              // Agreed payout amount
}

// WithdrawCashHandler converts gold to a fiat payout obligation
func WithdrawCashHandler(svc *movement.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			return
		}
		var req WithdrawCashRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Execute the cash withdrawal flow
		res, err := svc.WithdrawCash(c.Request.Context(), movement.WithdrawCashInput{
			OwnerID:    userID,         // Authenticated caller
			Grams:      req.Grams,      // Grams to liquidate
			FiatAmount: req.FiatAmount, // Agreed payout
		})
		if err != nil {
			respondError(c, err)
			return
		}
		// Return the completed transaction and updated wallet
		c.JSON(http.StatusCreated, gin.H{
			"transaction": toTransactionResponse(*res.Transaction),
			"wallet":      toWalletResponse(*res.Wallet),
		})
	}
}

// WithdrawPhysicalRequest orders coin delivery
type WithdrawPhysicalRequest struct {
	CoinSize       string            `json:"coin_size" binding:"required"`       // Coin denomination, e.g. "10g"
	Quantity       int               `json:"quantity" binding:"required"`        // Number of coins
	DeliveryMethod string            `json:"delivery_method" binding:"required"` // home, partner_pickup, vault_pickup
	Address        *movement.Address `json:"address"`                            // Required for home delivery
	LocationCode   string            `json:"location_code"`                      // Required for pickups
	RecipientName  string            `json:"recipient_name" binding:"required"`  // Who receives the coins
	RecipientPhone string            `json:"recipient_phone" binding:"required"` // Contact phone
}

// WithdrawPhysicalHandler opens a pending physical withdrawal
func WithdrawPhysicalHandler(svc *movement.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			return
		}
		var req WithdrawPhysicalRequest // Bind JSON request to struct
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return
		}
		// Execute the physical withdrawal flow
		res, err := svc.WithdrawPhysical(c.Request.Context(), movement.WithdrawPhysicalInput{
			OwnerID:        userID,             // Authenticated caller
			CoinSize:       req.CoinSize,       // Coin denomination
			Quantity:       req.Quantity,       // Number of coins
			DeliveryMethod: req.DeliveryMethod, // Delivery method
			Address:        req.Address,        // Delivery address
			LocationCode:   req.LocationCode,   // Pickup location
			RecipientName:  req.RecipientName,  // Recipient
			RecipientPhone: req.RecipientPhone, // Contact phone
		})
		if err != nil {
			respondError(c, err)
			return
		}
		// Return the pending transaction, fulfillment record and updated wallet
		c.JSON(http.StatusCreated, gin.H{
			"transaction": toTransactionResponse(*res.Transaction),
			"wallet":      toWalletResponse(*res.Wallet),
			"fulfillment": res.Fulfillment,
		})
	}
}

// parseIDParam parses a numeric path parameter
func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}
