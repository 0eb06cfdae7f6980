package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Cache TTLs

	"goldvault/internal/domain" // Domain models
	"goldvault/internal/ledger" // Wallet ledger
	"goldvault/internal/utils"  // Cache helpers

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library
)

// WalletResponse is the JSON shape of a wallet
type WalletResponse struct {
	ID        uint   `json:"id"`         // Wallet ID
	AssetType string `json:"asset_type"` // Asset held by the wallet
	Balance   string `json:"balance"`    // Total grams held
	Locked    string `json:"locked"`     // Grams reserved for pending withdrawals
	Available string `json:"available"`  // Balance minus locked
}

// toWalletResponse converts a domain wallet to its JSON shape
func toWalletResponse(w domain.Wallet) WalletResponse {
	return WalletResponse{
		ID:        w.ID,                   // Wallet ID
		AssetType: w.AssetType,            // Asset type
		Balance:   w.Balance.String(),     // Balance as string to avoid float drift
		Locked:    w.Locked.String(),      // Locked amount
		Available: w.Available().String(), // Spendable amount
	}
}

// GetWalletHandler returns the caller's gold wallet, creating it on first access
func GetWalletHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			return
		}
		cacheKey := utils.WalletCacheKey(userID) // Cache key for this user's wallet
		// Try the cache first
		if rdb != nil {
			var cached WalletResponse
			if hit, err := utils.GetCache(c.Request.Context(), rdb, cacheKey, &cached); err == nil && hit {
				c.JSON(http.StatusOK, cached) // Serve from cache
				return
			}
		}
		// Cache miss: load (or create) the wallet
		wallet, err := ledger.Ensure(db, userID, domain.AssetGold)
		if err != nil {
			respondError(c, err)
			return
		}
		resp := toWalletResponse(*wallet) // Build the response
		// Store in cache for subsequent reads
		if rdb != nil {
			_ = utils.SetCache(c.Request.Context(), rdb, cacheKey, resp, 5*time.Minute)
		}
		c.JSON(http.StatusOK, resp) // Return the wallet
	}
}

// TransactionResponse is the JSON shape of a ledger transaction
type TransactionResponse struct {
	ID            uint   `json:"id"`                     // Transaction ID
	Kind          string `json:"kind"`                   // Movement kind
	Status        string `json:"status"`                 // Lifecycle status
	GoldGrams     string `json:"gold_grams"`             // Signed gram delta
	FiatAmount    string `json:"fiat_amount"`            // Fiat leg of the movement
	FeeAmount     string `json:"fee_amount"`             // Fee charged
	Currency      string `json:"currency"`               // Fiat currency code
	ReferenceCode string `json:"reference_code"`         // Human-facing reference
	CompletedAt   *int64 `json:"completed_at,omitempty"` // Completion timestamp (ms)
	CreatedAt     int64  `json:"created_at"`             // Creation timestamp (ms)
}

// toTransactionResponse converts a domain transaction to its JSON shape
func toTransactionResponse(t domain.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:            t.ID,                  // Transaction ID
		Kind:          t.Kind,                // Movement kind
		Status:        t.Status,              // Status
		GoldGrams:     t.GoldGrams.String(),  // Gram delta
		FiatAmount:    t.FiatAmount.String(), // Fiat amount
		FeeAmount:     t.FeeAmount.String(),  // Fee
		Currency:      t.Currency,            // Currency
		ReferenceCode: t.ReferenceCode,       // Reference code
		CompletedAt:   t.CompletedAt,         // Completion time
		CreatedAt:     t.CreatedAt,           // Creation time
	}
}

// HistoryResponse is one page of a user's transaction history
type HistoryResponse struct {
	Transactions []TransactionResponse `json:"transactions"` // Page of transactions
	Page         int                   `json:"page"`         // Current page
	Limit        int                   `json:"limit"`        // Page size
	Total        int64                 `json:"total"`        // Total matching rows
}

// GetTransactionHistoryHandler returns the caller's transactions, newest first
func GetTransactionHistoryHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := currentUserID(c) // Get userID from context
		if !ok {
			return
		}
		// Parse pagination parameters with defaults
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))    // Page number
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20")) // Page size
		if page < 1 {
			page = 1 // Minimum page is 1
		}
		if limit < 1 || limit > 100 {
			limit = 20 // Clamp page size
		}
		kind := c.Query("kind") // Optional kind filter

		cacheKey := utils.TxHistoryCacheKey(userID, page, limit, kind) // Cache key for this query
		// Try the cache first
		if rdb != nil {
			var cached HistoryResponse
			if hit, err := utils.GetCache(c.Request.Context(), rdb, cacheKey, &cached); err == nil && hit {
				c.JSON(http.StatusOK, cached) // Serve from cache
				return
			}
		}

		// Build the query scoped to the caller
		query := db.Model(&domain.Transaction{}).Where("owner_id = ?", userID)
		if kind != "" {
			query = query.Where("kind = ?", kind) // Apply kind filter
		}
		var total int64 // Total matching rows
		if err := query.Count(&total).Error; err != nil {
			respondError(c, err)
			return
		}
		var transactions []domain.Transaction // Fetch the page
		if err := query.Order("created_at DESC, id DESC").
			Offset((page - 1) * limit).
			Limit(limit).
			Find(&transactions).Error; err != nil {
			respondError(c, err)
			return
		}
		// Convert to response shapes
		items := make([]TransactionResponse, 0, len(transactions))
		for _, t := range transactions {
			items = append(items, toTransactionResponse(t))
		}
		resp := HistoryResponse{
			Transactions: items, // Page of transactions
			Page:         page,  // Current page
			Limit:        limit, // Page size
			Total:        total, // Total matching rows
		}
		// Store in cache for subsequent reads
		if rdb != nil {
			_ = utils.SetCache(c.Request.Context(), rdb, cacheKey, resp, time.Minute)
		}
		c.JSON(http.StatusOK, resp) // Return the page
	}
}
