package main

import (
	"context" // context package is needed for Redis operations
	"log"     // log package is needed for logging
	"time"    // Scheduler ticker

	"goldvault/internal/api"        // Custom package for API handlers
	"goldvault/internal/config"     // Custom package for configuration
	"goldvault/internal/kitty"      // Rotating pool engine
	"goldvault/internal/ledger"     // Wallet ledger and recorder
	"goldvault/internal/metrics"    // Prometheus metrics
	"goldvault/internal/middleware" // Custom package for middleware
	"goldvault/internal/movement"   // Movement flows
	"goldvault/internal/payment"    // Payment gateway interface
	"goldvault/internal/pricing"    // Price oracle
	"goldvault/internal/recurring"  // Recurring plan scheduler

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"gorm.io/driver/mysql"         // MySQL driver for GORM
	"gorm.io/gorm"                 // GORM ORM library
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Setup Data Source Name (DSN) and connect to the database
	dsn := cfg.DBUser + ":" + cfg.DBPassword + "@tcp(" + cfg.DBHost + ":" + cfg.DBPort + ")/" + cfg.DBName + "?parseTime=true"
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Wire the domain services
	oracle := pricing.NewOracle(db, redisClient)                                       // Effective price resolution
	recorder := ledger.NewRecorder(db)                                                 // Atomic movement recording
	movements := movement.NewService(db, oracle, recorder, redisClient, cfg.DefaultCurrency) // Buy/sell/withdraw flows
	scheduler := recurring.NewScheduler(db, movements, payment.NoopCharger{}, redisClient)   // Recurring plan execution
	kittyEngine := kitty.NewEngine(db, recorder)                                       // Rotating savings pools

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	// Auth routes
	r.POST("/user", api.RegisterHandler(db))            // Registration endpoint
	r.GET("/user", api.LoginHandler(db, cfg.JWTSecret)) // Login endpoint

	// Public price endpoint
	r.GET("/gold/price", api.GetPriceHandler(oracle)) // Effective quote endpoint

	// Prometheus metrics endpoint
	r.GET("/metrics", gin.WrapH(metrics.Handler())) // Metrics scrape endpoint

	// Wallet routes (protected by JWT)
	walletGroup := r.Group("/wallet")
	walletGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret)) // Protect wallet routes with JWT
	walletGroup.GET("", api.GetWalletHandler(db, redisClient))   // Get wallet endpoint
	walletGroup.GET("/transactions", api.GetTransactionHistoryHandler(db, redisClient)) // Transaction history endpoint

	// Gold movement routes (protected by JWT)
	goldGroup := r.Group("/gold")
	goldGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))               // Protect movement routes with JWT
	goldGroup.POST("/buy", api.BuyHandler(movements))                        // Buy endpoint
	goldGroup.POST("/sell", api.SellHandler(movements))                      // Sell endpoint
	goldGroup.POST("/withdraw/cash", api.WithdrawCashHandler(movements))     // Cash withdrawal endpoint
	goldGroup.POST("/withdraw/physical", api.WithdrawPhysicalHandler(movements)) // Physical withdrawal endpoint

	// Recurring plan routes (protected by JWT)
	planGroup := r.Group("/plans")
	planGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))        // Protect plan routes with JWT
	planGroup.POST("", api.CreatePlanHandler(scheduler))              // Create plan endpoint
	planGroup.GET("", api.ListPlansHandler(scheduler))                // List plans endpoint
	planGroup.POST("/:id/pause", api.PausePlanHandler(scheduler))     // Pause plan endpoint
	planGroup.POST("/:id/resume", api.ResumePlanHandler(scheduler))   // Resume plan endpoint
	planGroup.POST("/:id/cancel", api.CancelPlanHandler(scheduler))   // Cancel plan endpoint
	planGroup.POST("/:id/complete", api.CompletePlanHandler(scheduler)) // Complete plan endpoint
	planGroup.GET("/:id/progress", api.PlanProgressHandler(scheduler)) // Plan progress endpoint

	// Kitty routes (protected by JWT)
	kittyGroup := r.Group("/kitty")
	kittyGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))                         // Protect kitty routes with JWT
	kittyGroup.POST("", api.CreateKittyHandler(kittyEngine))                            // Create kitty endpoint
	kittyGroup.GET("/:id", api.GetKittyHandler(kittyEngine))                            // Get kitty endpoint
	kittyGroup.POST("/:id/members", api.AddKittyMemberHandler(kittyEngine))             // Add member endpoint
	kittyGroup.DELETE("/:id/members/:memberID", api.RemoveKittyMemberHandler(kittyEngine)) // Remove member endpoint
	kittyGroup.POST("/:id/contributions", api.RecordContributionHandler(kittyEngine))   // Record contribution endpoint
	kittyGroup.POST("/:id/allocate", api.AllocatePotHandler(kittyEngine))               // Allocate pot endpoint

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), middleware.AdminOnlyMiddleware())
	adminGroup.GET("/users", api.ListUsersHandler(db, redisClient))          // List users endpoint
	adminGroup.GET("/transactions", api.ListTransactionsHandler(db))         // List transactions endpoint
	adminGroup.POST("/price/snapshots", api.RecordSnapshotHandler(oracle))   // Record snapshot endpoint
	adminGroup.POST("/price/overrides", api.AddOverrideHandler(oracle))      // Add override endpoint
	adminGroup.POST("/withdrawals/:id/complete", api.CompleteWithdrawalHandler(movements)) // Complete withdrawal endpoint
	adminGroup.POST("/scheduler/run", api.RunSchedulerHandler(scheduler))    // Manual scheduler trigger endpoint

	// Background recurring-plan scheduler
	if cfg.SchedulerEnabled {
		go func() {
			ticker := time.NewTicker(cfg.SchedulerInterval) // Periodic scan for due plans
			defer ticker.Stop()
			for range ticker.C {
				if _, _, err := scheduler.RunDue(context.Background()); err != nil {
					logrus.Errorf("scheduler run failed: %v", err) // Log and keep ticking
				}
			}
		}()
		logrus.Infof("Recurring scheduler enabled, interval %s", cfg.SchedulerInterval)
	}

	log.Println("Server running on " + cfg.AppPort) // Log server start
	r.Run(":" + cfg.AppPort)                        // Start the server on port cfg.AppPort
}
