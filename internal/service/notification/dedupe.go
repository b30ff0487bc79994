package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-payroll-go/internal/domain/notification"
	"github.com/redis/go-redis/v9"
)

const dedupeKeyPrefix = "notif:dedupe:"

// RedisDeduper claims dedupe keys with SET NX so only the first sender of a
// key within the TTL gets through.
type RedisDeduper struct {
	rdb *redis.Client
}

func NewRedisDeduper(rdb *redis.Client) notification.Deduper {
	return &RedisDeduper{rdb: rdb}
}

// DedupeKey builds the redis key for a claim.
func DedupeKey(key string) string {
	return dedupeKeyPrefix + key
}

func (d *RedisDeduper) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := d.rdb.SetNX(ctx, DedupeKey(key), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim dedupe key: %w", err)
	}
	return ok, nil
}
