// Package leveldbcache provides an implementation of respcache.KV that
// uses github.com/syndtr/goleveldb/leveldb for persistent storage.
package leveldbcache

import (
	"context"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/tomatotech/respcache"
)

// KV is an implementation of respcache.KV with leveldb storage.
type KV struct {
	db *leveldb.DB
}

var _ respcache.KV = (*KV)(nil)

// New returns a KV backed by a leveldb database at the given path. The
// database is created if it does not exist.
func New(path string) (*KV, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("leveldbcache: opening %q: %w", path, err)
	}
	return &KV{db: db}, nil
}

// NewWithDB returns a KV over an already-open leveldb database.
func NewWithDB(db *leveldb.DB) *KV {
	return &KV{db: db}
}

// Get returns the stored bytes for key if present.
// The context parameter is accepted for interface compliance but not used
// for LevelDB operations.
func (c *KV) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, err := c.db.Get([]byte(key), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("leveldb get failed for key %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key.
func (c *KV) Set(_ context.Context, key string, value []byte) error {
	if err := c.db.Put([]byte(key), value, nil); err != nil {
		return fmt.Errorf("leveldb set failed for key %q: %w", key, err)
	}
	return nil
}

// Delete removes the entry with the given key.
func (c *KV) Delete(_ context.Context, key string) error {
	if err := c.db.Delete([]byte(key), nil); err != nil {
		return fmt.Errorf("leveldb delete failed for key %q: %w", key, err)
	}
	return nil
}

// Keys enumerates the stored keys.
func (c *KV) Keys(_ context.Context) ([]string, error) {
	var keys []string
	it := c.db.NewIterator(nil, nil)
	defer it.Release()
	for it.Next() {
		keys = append(keys, string(it.Key()))
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("leveldb key iteration failed: %w", err)
	}
	return keys, nil
}

// Close closes the underlying database.
func (c *KV) Close() error {
	return c.db.Close()
}
