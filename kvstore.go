package respcache

import (
	"context"
	"fmt"
)

// A KV is a byte-oriented key/value backend. The subpackages of this module
// provide implementations over freecache, LevelDB, diskv, Redis, memcached,
// NATS JetStream K/V, MongoDB, PostgreSQL, Hazelcast, gocloud blob buckets
// and ristretto; the wrapper subpackages add compression and encryption by
// composition.
type KV interface {
	// Get returns the value for key. Returns (nil, false, nil) when absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set stores the value for key.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes the value for key. Deleting an absent key is not an
	// error.
	Delete(ctx context.Context, key string) error
	// Keys enumerates the stored keys, or returns ErrKeysUnsupported.
	Keys(ctx context.Context) ([]string, error)
}

// kvStore adapts a byte-oriented KV backend into a Store by serializing
// entries through the wire codec. Entries are keyed by the request URI
// verbatim.
type kvStore struct {
	kv KV
}

// NewKVStore returns a Store backed by the given byte-oriented KV.
func NewKVStore(kv KV) Store {
	return &kvStore{kv: kv}
}

func (s *kvStore) Get(ctx context.Context, uri string) (*Entry, bool, error) {
	data, ok, err := s.kv.Get(ctx, uri)
	if err != nil || !ok {
		return nil, false, err
	}
	e, err := DecodeEntry(uri, data)
	if err != nil {
		// A corrupt stored value behaves as a miss; the next admission
		// overwrites it.
		GetLogger().Warn("discarding undecodable cache entry", "uri", uri, "error", err)
		return nil, false, nil
	}
	return e, true, nil
}

func (s *kvStore) Set(ctx context.Context, uri string, e *Entry) error {
	data, err := EncodeEntry(e)
	if err != nil {
		return fmt.Errorf("respcache: encoding entry for %q: %w", uri, err)
	}
	return s.kv.Set(ctx, uri, data)
}

func (s *kvStore) Delete(ctx context.Context, uri string) error {
	return s.kv.Delete(ctx, uri)
}

func (s *kvStore) Keys(ctx context.Context) ([]string, error) {
	return s.kv.Keys(ctx)
}
