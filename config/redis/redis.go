package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/joy095/booking/logger"
	"github.com/redis/go-redis/v9"
)

var (
	redisClient *redis.Client
	redisOnce   sync.Once
	redisErr    error
)

// GetRedisClient returns a singleton Redis client for redisURL. Only the
// first call's URL is used.
func GetRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	redisOnce.Do(func() {
		if redisURL == "" {
			redisErr = fmt.Errorf("REDIS_URL not set")
			return
		}

		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			redisErr = fmt.Errorf("invalid REDIS_URL: %w", err)
			return
		}

		client := redis.NewClient(opt)

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			redisErr = fmt.Errorf("failed to connect to Redis: %w", err)
			return
		}

		redisClient = client
		logger.InfoLogger.Info("Connected to Redis")
	})

	if redisClient == nil {
		return nil, redisErr
	}
	return redisClient, nil
}

// CloseRedis closes the Redis connection
func CloseRedis() {
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.ErrorLogger.Errorf("Error closing Redis connection: %v", err)
		}
		logger.InfoLogger.Info("Redis connection closed")
	}
}
