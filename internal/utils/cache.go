package utils

import (
	"context"       // Context for Redis operations
	"encoding/json" // JSON encoding/decoding
	"errors"        // redis.Nil matching
	"strconv"       // Key formatting
	"time"          // Time durations

	"github.com/redis/go-redis/v9" // Redis client
)

// Default TTL for read-through caches
const CacheTTL = 60 * time.Second

// AccountKey is the cache key of an account snapshot
func AccountKey(accountID uint) string {
	return "account:" + strconv.FormatUint(uint64(accountID), 10)
}

// HistoryPrefix is the key prefix of an account's paginated transaction history
func HistoryPrefix(accountID uint) string {
	return "txhistory:account:" + strconv.FormatUint(uint64(accountID), 10)
}

// HistoryKey is the cache key of one history page
func HistoryKey(accountID uint, page, size int) string {
	return HistoryPrefix(accountID) + ":page:" + strconv.Itoa(page) + ":size:" + strconv.Itoa(size)
}

// CatalogPrefix namespaces every cached catalog listing
const CatalogPrefix = "catalog:"

// CatalogKey is the cache key of one catalog listing, e.g. CatalogKey("tasks", "daily")
func CatalogKey(parts ...string) string {
	key := CatalogPrefix
	for i, p := range parts {
		if i > 0 {
			key += ":"
		}
		key += p
	}
	return key
}

// GetCache retrieves a value from Redis and unmarshals it into dest. A nil client is always a miss.
func GetCache(ctx context.Context, rdb *redis.Client, key string, dest any) (bool, error) {
	if rdb == nil {
		return false, nil // Caching disabled
	}
	val, err := rdb.Get(ctx, key).Result() // Get value from Redis
	if errors.Is(err, redis.Nil) {
		return false, nil // Key does not exist
	} else if err != nil {
		return false, err // Other Redis error
	}
	return true, json.Unmarshal([]byte(val), dest) // Unmarshal JSON into dest
}

// SetCache sets a value in Redis with a specified TTL
func SetCache(ctx context.Context, rdb *redis.Client, key string, value any, ttl time.Duration) error {
	if rdb == nil {
		return nil
	}
	b, err := json.Marshal(value) // Marshal value to JSON
	if err != nil {
		return err // Return error if marshaling fails
	}
	return rdb.Set(ctx, key, b, ttl).Err() // Set value in Redis with TTL
}

// DeleteCache deletes keys from Redis
func DeleteCache(ctx context.Context, rdb *redis.Client, keys ...string) error {
	if rdb == nil || len(keys) == 0 {
		return nil
	}
	return rdb.Del(ctx, keys...).Err() // Delete keys from Redis
}

// DeletePrefix deletes every key starting with prefix, walking the keyspace with SCAN
func DeletePrefix(ctx context.Context, rdb *redis.Client, prefix string) error {
	if rdb == nil {
		return nil
	}
	iter := rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := rdb.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return DeleteCache(ctx, rdb, batch...)
}
