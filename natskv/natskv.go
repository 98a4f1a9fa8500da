// Package natskv provides a NATS JetStream Key/Value implementation of
// respcache.KV.
package natskv

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomatotech/respcache"
)

// keyPrefix namespaces cache keys inside the bucket.
const keyPrefix = "respcache."

// Config holds the configuration for creating a NATS K/V cache.
type Config struct {
	// NATSUrl is the URL of the NATS server (e.g., "nats://localhost:4222").
	// If empty, defaults to nats.DefaultURL.
	NATSUrl string

	// Bucket is the name of the K/V bucket to use. Required.
	Bucket string

	// Description is an optional description for the K/V bucket.
	Description string

	// TTL is the time-to-live for bucket entries. Zero means entries do not
	// expire.
	TTL time.Duration

	// NATSOptions are additional options to pass to nats.Connect.
	NATSOptions []nats.Option
}

// KV is an implementation of respcache.KV that stores entries in a NATS
// JetStream Key/Value bucket.
type KV struct {
	kv jetstream.KeyValue
	nc *nats.Conn
}

var _ respcache.KV = (*KV)(nil)

// New connects to NATS and creates (or binds to) the configured bucket.
func New(ctx context.Context, cfg Config) (*KV, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("natskv: bucket name is required")
	}

	url := cfg.NATSUrl
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url, cfg.NATSOptions...)
	if err != nil {
		return nil, fmt.Errorf("natskv: connecting to %q: %w", url, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("natskv: creating JetStream context: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      cfg.Bucket,
		Description: cfg.Description,
		TTL:         cfg.TTL,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("natskv: creating bucket %q: %w", cfg.Bucket, err)
	}

	return &KV{kv: kv, nc: nc}, nil
}

// NewWithKeyValue returns a KV over an existing JetStream KeyValue bucket.
// Close is a no-op in this mode; the caller owns the connection.
func NewWithKeyValue(kv jetstream.KeyValue) *KV {
	return &KV{kv: kv}
}

// cacheKey encodes the key into the restricted NATS K/V key charset.
func cacheKey(key string) string {
	return keyPrefix + base64.RawURLEncoding.EncodeToString([]byte(key))
}

// Get returns the stored bytes for key if present.
func (c *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := c.kv.Get(ctx, cacheKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("natskv get failed for key %q: %w", key, err)
	}
	return entry.Value(), true, nil
}

// Set stores value under key.
func (c *KV) Set(ctx context.Context, key string, value []byte) error {
	if _, err := c.kv.Put(ctx, cacheKey(key), value); err != nil {
		return fmt.Errorf("natskv set failed for key %q: %w", key, err)
	}
	return nil
}

// Delete removes the entry with the given key.
func (c *KV) Delete(ctx context.Context, key string) error {
	err := c.kv.Delete(ctx, cacheKey(key))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("natskv delete failed for key %q: %w", key, err)
	}
	return nil
}

// Keys enumerates the stored keys.
func (c *KV) Keys(ctx context.Context) ([]string, error) {
	lister, err := c.kv.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("natskv key listing failed: %w", err)
	}
	var keys []string
	for encoded := range lister.Keys() {
		if !strings.HasPrefix(encoded, keyPrefix) {
			continue
		}
		decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(encoded, keyPrefix))
		if err != nil {
			respcache.GetLogger().Warn("skipping undecodable NATS K/V key", "key", encoded, "error", err)
			continue
		}
		keys = append(keys, string(decoded))
	}
	return keys, nil
}

// Close closes the NATS connection owned by this KV, if any.
func (c *KV) Close() {
	if c.nc != nil {
		c.nc.Close()
	}
}
