// Package memcache provides an implementation of respcache.KV that uses
// gomemcache to store cached entries.
package memcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/tomatotech/respcache"
)

// KV is an implementation of respcache.KV that stores entries in a
// memcached server.
type KV struct {
	client *memcache.Client
}

var _ respcache.KV = (*KV)(nil)

// New returns a KV talking to the memcached servers at the given addresses.
func New(servers ...string) *KV {
	return NewWithClient(memcache.New(servers...))
}

// NewWithClient returns a KV over an existing gomemcache client.
func NewWithClient(client *memcache.Client) *KV {
	return &KV{client: client}
}

// cacheKey digests the key: memcached keys are limited to 250 bytes with no
// whitespace, which request URIs regularly violate.
func cacheKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return "respcache:" + hex.EncodeToString(h[:])
}

// Get returns the stored bytes for key if present.
// The context parameter is accepted for interface compliance but not used
// due to library limitations.
func (c *KV) Get(_ context.Context, key string) ([]byte, bool, error) {
	item, err := c.client.Get(cacheKey(key))
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("memcache get failed for key %q: %w", key, err)
	}
	return item.Value, true, nil
}

// Set stores value under key.
func (c *KV) Set(_ context.Context, key string, value []byte) error {
	item := &memcache.Item{Key: cacheKey(key), Value: value}
	if err := c.client.Set(item); err != nil {
		return fmt.Errorf("memcache set failed for key %q: %w", key, err)
	}
	return nil
}

// Delete removes the entry with the given key.
func (c *KV) Delete(_ context.Context, key string) error {
	err := c.client.Delete(cacheKey(key))
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return fmt.Errorf("memcache delete failed for key %q: %w", key, err)
	}
	return nil
}

// Keys is unsupported: the memcached protocol has no key enumeration.
func (c *KV) Keys(_ context.Context) ([]string, error) {
	return nil, respcache.ErrKeysUnsupported
}
