// Package redis provides a Redis implementation of respcache.KV using
// github.com/redis/go-redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/tomatotech/respcache"
)

// keyPrefix namespaces cache keys to avoid collision with other data stored
// in redis.
const keyPrefix = "respcache:"

// KV is an implementation of respcache.KV that stores entries in a Redis
// server.
type KV struct {
	client redis.UniversalClient
}

var _ respcache.KV = (*KV)(nil)

// New returns a KV connected to the given address.
func New(addr string) *KV {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr}))
}

// NewWithClient returns a KV over an existing go-redis client.
func NewWithClient(client redis.UniversalClient) *KV {
	return &KV{client: client}
}

func cacheKey(key string) string {
	return keyPrefix + key
}

// Get returns the stored bytes for key if present.
func (c *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := c.client.Get(ctx, cacheKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get failed for key %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key with no expiration; staleness is a policy
// concept, not a TTL.
func (c *KV) Set(ctx context.Context, key string, value []byte) error {
	if err := c.client.Set(ctx, cacheKey(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis set failed for key %q: %w", key, err)
	}
	return nil
}

// Delete removes the entry with the given key.
func (c *KV) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, cacheKey(key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed for key %q: %w", key, err)
	}
	return nil
}

// Keys enumerates the stored keys with SCAN.
func (c *KV) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	it := c.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for it.Next(ctx) {
		keys = append(keys, strings.TrimPrefix(it.Val(), keyPrefix))
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("redis key scan failed: %w", err)
	}
	return keys, nil
}
