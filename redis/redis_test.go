package redis

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"

	"github.com/tomatotech/respcache/test"
)

func TestRedisKV(t *testing.T) {
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})

	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("skipping test; no redis server running at localhost:6379")
	}
	_ = client.FlushAll(ctx)

	test.KV(t, NewWithClient(client))
}
