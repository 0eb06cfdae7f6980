package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"strconv"       // Cache key formatting
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

// WalletCacheKey returns the cache key for a user's wallet view.
func WalletCacheKey(ownerID uint) string {
	return "wallet:user:" + strconv.Itoa(int(ownerID))
}

// TxHistoryCacheKey returns the cache key for one page of a user's
// transaction history. Kind may be empty for the unfiltered view.
func TxHistoryCacheKey(ownerID uint, page, pageSize int, kind string) string {
	return "txhistory:user:" + strconv.Itoa(int(ownerID)) +
		":page:" + strconv.Itoa(page) + ":size:" + strconv.Itoa(pageSize) +
		":kind:" + kind
}

// PlanLockKey returns the per-plan execution lock key for the scheduler.
func PlanLockKey(planID uint) string {
	return "recurring:plan:" + strconv.Itoa(int(planID)) + ":lock"
}

// GetCache retrieves a value from Redis and unmarshals it into dest
func GetCache(ctx context.Context, rdb *redis.Client, key string, dest any) (bool, error) {
	val, err := rdb.Get(ctx, key).Result() // Get value from Redis
	if err == redis.Nil {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal([]byte(val), dest) // Unmarshal JSON into dest
}

// SetCache sets a value in Redis with a specified TTL
func SetCache(ctx context.Context, rdb *redis.Client, key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return rdb.Set(ctx, key, b, ttl).Err() // Set value in Redis with TTL
}

// DeleteCache deletes a key from Redis
func DeleteCache(ctx context.Context, rdb *redis.Client, key string) error {
	return rdb.Del(ctx, key).Err() // Delete key from Redis
}

// AcquireLock takes a best-effort mutex via SETNX. Returns false when the
// lock is already held. The TTL bounds how long a crashed holder can wedge
// the resource.
func AcquireLock(ctx context.Context, rdb *redis.Client, key string, ttl time.Duration) (bool, error) {
	return rdb.SetNX(ctx, key, "1", ttl).Result()
}

// ReleaseLock releases a lock taken with AcquireLock.
func ReleaseLock(ctx context.Context, rdb *redis.Client, key string) error {
	return rdb.Del(ctx, key).Err()
}
