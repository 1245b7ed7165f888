package db

import (
	"context" // Ping timeout
	"fmt"     // Error wrapping
	"time"    // Ping timeout

	"rewards_system/internal/config" // Custom package for configuration

	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging
)

// OpenRedis connects to the configured redis. With no address it returns a nil client:
// caching and realtime events are then disabled and every read goes to the database.
func OpenRedis(cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		logrus.Warn("REDIS_ADDR is empty, caching and realtime updates are disabled")
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return rdb, nil
}
