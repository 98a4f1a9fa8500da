package ristretto

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomatotech/respcache"
)

func newTestKV(t *testing.T) *KV {
	t.Helper()
	kv, err := New(Config{
		NumCounters: 1e4,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() }) //nolint:errcheck // test cleanup
	return kv
}

func TestRistrettoKV(t *testing.T) {
	// Ristretto applies writes asynchronously, so the shared harness (which
	// expects read-your-writes) is replaced by an explicit Wait between
	// operations.
	ctx := context.Background()
	kv := newTestKV(t)
	key := "https://example.com/resource"

	_, ok, err := kv.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.Set(ctx, key, []byte("some bytes")))
	kv.Wait()

	value, ok, err := kv.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("some bytes"), value)

	require.NoError(t, kv.Delete(ctx, key))
	kv.Wait()

	_, ok, err = kv.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRistrettoKeysUnsupported(t *testing.T) {
	kv := newTestKV(t)
	_, err := kv.Keys(context.Background())
	assert.ErrorIs(t, err, respcache.ErrKeysUnsupported)
}
