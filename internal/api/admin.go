package api

import (
	"net/http" // HTTP status codes
	"strconv"  // String conversion
	"time"     // Cache TTLs

	"goldvault/internal/domain"    // Domain models
	"goldvault/internal/movement"  // Movement flows
	"goldvault/internal/recurring" // Recurring plan scheduler
	"goldvault/internal/utils"     // Cache helpers

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"gorm.io/gorm"                 // GORM ORM library
)

// UserAdminResponse is the admin view of a user
type UserAdminResponse struct {
	ID       uint   `json:"id"`       // User ID
	Username string `json:"username"` // Username
	FullName string `json:"full_name"` // Display name
	Phone    string `json:"phone"`    // Contact phone
	Role     string `json:"role"`     // user or admin
}

// ListUsersHandler returns all users, paginated and cached
func ListUsersHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Parse pagination parameters with defaults
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))        // Page number
		pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20")) // Page size
		if page < 1 {
			page = 1 // Minimum page is 1
		}
		if pageSize < 1 || pageSize > 100 {
			pageSize = 20 // Clamp page size
		}
		// Create a cache key based on pagination parameters
		cacheKey := "admin:users:page=" + strconv.Itoa(page) + ":size=" + strconv.Itoa(pageSize)
		var cached struct {
			Users      []UserAdminResponse `json:"users"`       // List of users
			Page       int                 `json:"page"`        // Current page
			PageSize   int                 `json:"page_size"`   // Page size
			Total      int64               `json:"total"`       // Total number of users
			TotalPages int                 `json:"total_pages"` // Total pages
		}
		// If cached data found, return it
		if rdb != nil {
			if found, err := utils.GetCache(c.Request.Context(), rdb, cacheKey, &cached); err == nil && found {
				c.JSON(http.StatusOK, cached)
				return
			}
		}
		var total int64 // Total number of users
		if err := db.Model(&domain.User{}).Count(&total).Error; err != nil {
			respondError(c, err)
			return
		}
		var users []domain.User // Fetch the page of users
		if err := db.Order("id ASC").
			Offset((page - 1) * pageSize).
			Limit(pageSize).
			Find(&users).Error; err != nil {
			respondError(c, err)
			return
		}
		// Convert to admin response shapes
		cached.Users = make([]UserAdminResponse, 0, len(users))
		for _, u := range users {
			cached.Users = append(cached.Users, UserAdminResponse{
				ID:       u.ID,       // User ID
				Username: u.Username, // Username
				FullName: u.FullName, // Display name
				Phone:    u.Phone,    // Contact phone
				Role:     u.Role,     // Role
			})
		}
		cached.Page = page                                             // Current page
		cached.PageSize = pageSize                                     // Page size
		cached.Total = total                                           // Total users
		cached.TotalPages = int((total + int64(pageSize) - 1) / int64(pageSize)) // Ceiling division
		// Store in cache for subsequent reads
		if rdb != nil {
			_ = utils.SetCache(c.Request.Context(), rdb, cacheKey, cached, time.Minute)
		}
		c.JSON(http.StatusOK, cached) // Return the page
	}
}

// ListTransactionsHandler returns all transactions with optional owner and
// kind filters, paginated
func ListTransactionsHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Parse pagination parameters with defaults
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))        // Page number
		pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20")) // Page size
		if page < 1 {
			page = 1 // Minimum page is 1
		}
		if pageSize < 1 || pageSize > 100 {
			pageSize = 20 // Clamp page size
		}
		// Build the query with optional filters
		query := db.Model(&domain.Transaction{})
		if owner := c.Query("owner_id"); owner != "" {
			if id, err := strconv.ParseUint(owner, 10, 64); err == nil {
				query = query.Where("owner_id = ?", id) // Filter by owner
			}
		}
		if kind := c.Query("kind"); kind != "" {
			query = query.Where("kind = ?", kind) // Filter by movement kind
		}
		if status := c.Query("status"); status != "" {
			query = query.Where("status = ?", status) // Filter by lifecycle status
		}
		var total int64 // Total matching rows
		if err := query.Count(&total).Error; err != nil {
			respondError(c, err)
			return
		}
		var transactions []domain.Transaction // Fetch the page
		if err := query.Order("created_at DESC, id DESC").
			Offset((page - 1) * pageSize).
			Limit(pageSize).
			Find(&transactions).Error; err != nil {
			respondError(c, err)
			return
		}
		// Convert to response shapes
		items := make([]TransactionResponse, 0, len(transactions))
		for _, t := range transactions {
			items = append(items, toTransactionResponse(t))
		}
		// Return the page with pagination metadata
		c.JSON(http.StatusOK, gin.H{
			"transactions": items,    // Page of transactions
			"page":         page,     // Current page
			"page_size":    pageSize, // Page size
			"total":        total,    // Total matching rows
		})
	}
}

// CompleteWithdrawalRequest confirms delivery of a physical withdrawal
type CompleteWithdrawalRequest struct {
	TrackingNumber string `json:"tracking_number"` // Carrier tracking number; empty for pickups
}

// CompleteWithdrawalHandler transitions a pending physical withdrawal to
// completed once delivery is confirmed
func CompleteWithdrawalHandler(svc *movement.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		transactionID, ok := parseIDParam(c, "id") // Parse transaction ID from path
		if !ok {
			return
		}
		var req CompleteWithdrawalRequest // Bind JSON request to struct
		_ = c.ShouldBindJSON(&req)        // Body is optional for pickups
		// Complete the withdrawal
		t, err := svc.CompletePhysical(c.Request.Context(), transactionID, req.TrackingNumber)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, toTransactionResponse(*t)) // Return the completed transaction
	}
}

// RunSchedulerHandler triggers a recurring-plan scheduler pass on demand,
// independent of the background ticker
func RunSchedulerHandler(sched *recurring.Scheduler) gin.HandlerFunc {
	return func(c *gin.Context) {
		executed, failed, err := sched.RunDue(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		// Report the pass outcome
		c.JSON(http.StatusOK, gin.H{
			"executed": executed, // Plans that bought gold this pass
			"failed":   failed,   // Plans whose occurrence failed
		})
	}
}
