package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to Redis, retrying the ping up to maxRetries times.
func NewRedisClient(ctx context.Context, addr, password string, db, maxRetries int, log *logger.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if maxRetries < 1 {
		maxRetries = 1
	}

	var lastErr error
	for i := 1; i <= maxRetries; i++ {
		if lastErr = rdb.Ping(ctx).Err(); lastErr == nil {
			log.Info().Str("addr", addr).Msg("connected to Redis")
			return rdb, nil
		}

		log.Warn().Err(lastErr).Int("attempt", i).Int("max_retries", maxRetries).Msg("redis ping failed")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Second):
		}
	}

	rdb.Close()
	return nil, fmt.Errorf("failed to connect redis after %d attempts: %w", maxRetries, lastErr)
}
