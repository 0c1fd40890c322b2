package notify

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func TestRedisDeduper(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}

	d := NewRedisDeduper(client, time.Minute)
	id := uuid.NewString()
	ok, err := d.Claim(ctx, id)
	if err != nil || !ok {
		t.Fatalf("first claim: %v %v", ok, err)
	}
	ok, err = d.Claim(ctx, id)
	if err != nil || ok {
		t.Fatalf("second claim should fail: %v %v", ok, err)
	}
	if err := d.Release(ctx, id); err != nil {
		t.Fatalf("Release: %v", err)
	}
	ok, err = d.Claim(ctx, id)
	if err != nil || !ok {
		t.Fatalf("claim after release: %v %v", ok, err)
	}
	_ = d.Release(ctx, id)
}
