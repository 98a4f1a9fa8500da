package memcache

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tomatotech/respcache"
	"github.com/tomatotech/respcache/test"
)

const testServer = "localhost:11211"

func TestMemcacheKV(t *testing.T) {
	conn, err := net.Dial("tcp", testServer)
	if err != nil {
		t.Skipf("skipping test; no memcached server running at %s", testServer)
	}
	_ = conn.Close()

	test.KV(t, New(testServer))
}

func TestMemcacheKeysUnsupported(t *testing.T) {
	kv := New(testServer)
	_, err := kv.Keys(context.Background())
	assert.ErrorIs(t, err, respcache.ErrKeysUnsupported)
}
