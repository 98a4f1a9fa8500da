// Package freecache provides a high-performance, zero-GC overhead
// implementation of respcache.KV using github.com/coocood/freecache as the
// underlying storage.
//
// This backend is suitable for applications that need to cache many entries
// with minimal GC overhead and automatic LRU eviction.
//
// Example usage:
//
//	kv := freecache.New(100 * 1024 * 1024) // 100MB cache
//	cache := respcache.New(respcache.WithKV(kv))
package freecache

import (
	"context"
	"fmt"

	"github.com/coocood/freecache"

	"github.com/tomatotech/respcache"
)

// KV is an implementation of respcache.KV that uses freecache for storage.
// Entries may be evicted under memory pressure; eviction behaves as a miss.
type KV struct {
	cache *freecache.Cache
}

var _ respcache.KV = (*KV)(nil)

// New creates a new KV with the specified size in bytes. freecache enforces
// a 512KB minimum.
func New(size int) *KV {
	return &KV{cache: freecache.NewCache(size)}
}

// Get returns the stored bytes for key if present.
// The context parameter is accepted for interface compliance but not used
// for in-memory operations.
func (c *KV) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, err := c.cache.Get([]byte(key))
	if err != nil {
		if err == freecache.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("freecache get failed for key %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key with no expiration; entries are only evicted
// when the cache is full.
func (c *KV) Set(_ context.Context, key string, value []byte) error {
	if err := c.cache.Set([]byte(key), value, 0); err != nil {
		return fmt.Errorf("freecache set failed for key %q: %w", key, err)
	}
	return nil
}

// Delete removes the entry with the given key.
func (c *KV) Delete(_ context.Context, key string) error {
	c.cache.Del([]byte(key))
	return nil
}

// Keys enumerates the stored keys via the freecache iterator.
func (c *KV) Keys(_ context.Context) ([]string, error) {
	var keys []string
	it := c.cache.NewIterator()
	for entry := it.Next(); entry != nil; entry = it.Next() {
		keys = append(keys, string(entry.Key))
	}
	return keys, nil
}

// Clear removes all entries from the cache.
func (c *KV) Clear() {
	c.cache.Clear()
}

// EntryCount returns the number of entries currently in the cache.
func (c *KV) EntryCount() int64 {
	return c.cache.EntryCount()
}

// HitRate returns the ratio of cache hits to total lookups.
func (c *KV) HitRate() float64 {
	return c.cache.HitRate()
}
