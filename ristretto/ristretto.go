// Package ristretto provides a fast, concurrent implementation of
// respcache.KV using github.com/dgraph-io/ristretto as the underlying
// storage.
//
// This backend suits high-throughput processes with many goroutines hitting
// the cache concurrently. Ristretto is an admission-based cache: a Set may
// be dropped under pressure, which simply behaves as a miss on the next
// lookup.
package ristretto

import (
	"context"
	"fmt"
	"io"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/tomatotech/respcache"
)

// Config mirrors the ristretto knobs that matter for response caching.
type Config struct {
	// NumCounters is the number of keys to track frequency of (10x the
	// expected number of entries is a good default).
	NumCounters int64
	// MaxCost is the maximum total cost of the cache; with the default cost
	// function this is bytes of stored entries.
	MaxCost int64
	// BufferItems is the number of keys per Get buffer (64 is a good
	// default).
	BufferItems int64
}

// KV is an implementation of respcache.KV over a ristretto cache.
type KV struct {
	cache *ristretto.Cache[string, []byte]
}

var _ respcache.KV = (*KV)(nil)
var _ io.Closer = (*KV)(nil)

// New creates a ristretto-backed KV with the given configuration.
func New(cfg Config) (*KV, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Cost: func(value []byte) int64 {
			return int64(len(value))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ristretto: creating cache: %w", err)
	}
	return &KV{cache: cache}, nil
}

// Get returns the stored bytes for key if present.
// The context parameter is accepted for interface compliance but not used
// for in-memory operations.
func (c *KV) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, ok := c.cache.Get(key)
	return value, ok, nil
}

// Set stores value under key. Ristretto may drop the write under admission
// pressure; a dropped write behaves as a miss.
func (c *KV) Set(_ context.Context, key string, value []byte) error {
	c.cache.Set(key, value, 0)
	return nil
}

// Delete removes the entry with the given key.
func (c *KV) Delete(_ context.Context, key string) error {
	c.cache.Del(key)
	return nil
}

// Keys is unsupported: ristretto does not expose iteration.
func (c *KV) Keys(_ context.Context) ([]string, error) {
	return nil, respcache.ErrKeysUnsupported
}

// Wait blocks until all buffered writes have been applied, making a prior
// Set visible to Get. Intended for tests.
func (c *KV) Wait() {
	c.cache.Wait()
}

// Close stops the cache's goroutines. Implements io.Closer.
func (c *KV) Close() error {
	c.cache.Close()
	return nil
}
