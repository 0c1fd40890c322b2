package notify

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupeKeyPrefix = "notify:event:"

// RedisDeduper records claimed event ids with SETNX and a TTL.
type RedisDeduper struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisDeduper(client redis.Cmdable, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisDeduper{client: client, ttl: ttl}
}

func (d *RedisDeduper) Claim(ctx context.Context, eventID string) (bool, error) {
	return d.client.SetNX(ctx, dedupeKeyPrefix+eventID, 1, d.ttl).Result()
}

func (d *RedisDeduper) Release(ctx context.Context, eventID string) error {
	return d.client.Del(ctx, dedupeKeyPrefix+eventID).Err()
}
