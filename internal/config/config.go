package config

import (
	"os"      // For environment variables
	"strconv" // For string to int conversion
	"time"    // For interval parsing

	"github.com/joho/godotenv" // For loading .env files
)

// Config holds the application configuration
type Config struct {
	AppPort           string        // Application port
	DBUser            string        // Database user
	DBPassword        string        // Database password
	DBHost            string        // Database host
	DBPort            string        // Database port
	DBName            string        // Database name
	JWTSecret         string        // JWT secret key
	RedisAddr         string        // Redis server address
	RedisPass         string        // Redis password
	RedisDB           int           // Redis database number
	IsProd            bool          // Is production environment
	DefaultCurrency   string        // Currency recorded when no quote applies
	SchedulerEnabled  bool          // Run the recurring-plan scheduler in-process
	SchedulerInterval time.Duration // How often the scheduler scans for due plans
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	_ = godotenv.Load() // Load .env file if present
	redisDB, _ := strconv.Atoi(os.Getenv("REDIS_DB"))
	// Scheduler interval defaults to an hourly scan; execution dates are
	// day-granular so anything below a day only affects catch-up latency
	interval := time.Hour
	if v := os.Getenv("SCHEDULER_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			interval = d
		}
	}
	currency := os.Getenv("DEFAULT_CURRENCY")
	if currency == "" {
		currency = "USD" // Fallback currency
	}
	return &Config{
		AppPort:           os.Getenv("APP_PORT"),                    // Application port
		DBUser:            os.Getenv("DB_USER"),                     // Database user
		DBPassword:        os.Getenv("DB_PASSWORD"),                 // Database password
		DBHost:            os.Getenv("DB_HOST"),                     // Database host
		DBPort:            os.Getenv("DB_PORT"),                     // Database port
		DBName:            os.Getenv("DB_NAME"),                     // Database name
		JWTSecret:         os.Getenv("JWT_SECRET"),                  // JWT secret key
		RedisAddr:         os.Getenv("REDIS_ADDR"),                  // Redis server address
		RedisPass:         os.Getenv("REDIS_PASS"),                  // Redis password
		RedisDB:           redisDB,                                  // Redis database number
		IsProd:            os.Getenv("IS_PROD") == "true",           // Is production environment
		DefaultCurrency:   currency,                                 // Default fiat currency
		SchedulerEnabled:  os.Getenv("SCHEDULER_ENABLED") != "false", // Enabled unless explicitly off
		SchedulerInterval: interval,                                 // Scheduler scan interval
	}
}
