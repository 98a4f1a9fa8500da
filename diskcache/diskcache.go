// Package diskcache provides an implementation of respcache.KV that uses
// the diskv package to supplement an in-memory map with persistent storage.
package diskcache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/peterbourgon/diskv"

	"github.com/tomatotech/respcache"
)

// KV is an implementation of respcache.KV that supplements the in-memory
// map with persistent storage.
type KV struct {
	d *diskv.Diskv
}

var _ respcache.KV = (*KV)(nil)

// New returns a KV rooted at basePath, with a 100MB in-memory read cache.
func New(basePath string) *KV {
	return NewWithDiskv(diskv.New(diskv.Options{
		BasePath:     basePath,
		CacheSizeMax: 100 * 1024 * 1024,
	}))
}

// NewWithDiskv returns a KV using the provided Diskv store.
func NewWithDiskv(d *diskv.Diskv) *KV {
	return &KV{d: d}
}

// Get returns the stored bytes for key if present.
// The context parameter is accepted for interface compliance but not used
// for disk operations.
func (c *KV) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, err := c.d.Read(keyToFilename(key))
	if err != nil {
		// A missing file is a miss, not an error.
		return nil, false, nil
	}
	return value, true, nil
}

// Set stores value under key.
func (c *KV) Set(_ context.Context, key string, value []byte) error {
	if err := c.d.WriteStream(keyToFilename(key), bytes.NewReader(value), true); err != nil {
		return fmt.Errorf("diskcache set failed: %w", err)
	}
	return nil
}

// Delete removes the entry with the given key.
func (c *KV) Delete(_ context.Context, key string) error {
	// Erase errors on absent files are not real errors.
	_ = c.d.Erase(keyToFilename(key)) //nolint:errcheck // file not found is acceptable
	return nil
}

// Keys is unsupported: keys are stored as digests of the URI, so the
// original URIs cannot be recovered from disk.
func (c *KV) Keys(_ context.Context) ([]string, error) {
	return nil, respcache.ErrKeysUnsupported
}

// keyToFilename digests the key into a filesystem-safe name.
func keyToFilename(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}
