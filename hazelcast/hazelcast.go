// Package hazelcast provides a Hazelcast implementation of respcache.KV.
package hazelcast

import (
	"context"
	"fmt"

	"github.com/hazelcast/hazelcast-go-client"

	"github.com/tomatotech/respcache"
)

// keyPrefix namespaces cache keys to avoid collision with other data stored
// in the map.
const keyPrefix = "respcache:"

// KV is an implementation of respcache.KV that stores entries in a
// Hazelcast distributed map.
type KV struct {
	m *hazelcast.Map
}

var _ respcache.KV = (*KV)(nil)

// New connects a Hazelcast client with the given configuration and returns
// a KV over the named map.
func New(ctx context.Context, cfg hazelcast.Config, mapName string) (*KV, error) {
	client, err := hazelcast.StartNewClientWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("hazelcast: starting client: %w", err)
	}
	m, err := client.GetMap(ctx, mapName)
	if err != nil {
		return nil, fmt.Errorf("hazelcast: getting map %q: %w", mapName, err)
	}
	return &KV{m: m}, nil
}

// NewWithMap returns a KV over an existing Hazelcast map.
func NewWithMap(m *hazelcast.Map) *KV {
	return &KV{m: m}
}

func cacheKey(key string) string {
	return keyPrefix + key
}

// Get returns the stored bytes for key if present.
func (c *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.m.Get(ctx, cacheKey(key))
	if err != nil {
		return nil, false, fmt.Errorf("hazelcast get failed for key %q: %w", key, err)
	}
	if val == nil {
		return nil, false, nil
	}
	data, ok := val.([]byte)
	if !ok {
		return nil, false, nil
	}
	return data, true, nil
}

// Set stores value under key.
func (c *KV) Set(ctx context.Context, key string, value []byte) error {
	if err := c.m.Set(ctx, cacheKey(key), value); err != nil {
		return fmt.Errorf("hazelcast set failed for key %q: %w", key, err)
	}
	return nil
}

// Delete removes the entry with the given key.
func (c *KV) Delete(ctx context.Context, key string) error {
	if err := c.m.Delete(ctx, cacheKey(key)); err != nil {
		return fmt.Errorf("hazelcast delete failed for key %q: %w", key, err)
	}
	return nil
}

// Keys enumerates the stored keys.
func (c *KV) Keys(ctx context.Context) ([]string, error) {
	keySet, err := c.m.GetKeySet(ctx)
	if err != nil {
		return nil, fmt.Errorf("hazelcast key listing failed: %w", err)
	}
	var keys []string
	for _, k := range keySet {
		s, ok := k.(string)
		if !ok || len(s) < len(keyPrefix) || s[:len(keyPrefix)] != keyPrefix {
			continue
		}
		keys = append(keys, s[len(keyPrefix):])
	}
	return keys, nil
}
