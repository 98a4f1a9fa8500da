package respcache

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedEntry runs a full miss-put-commit cycle for uri with the given
// response headers and body.
func seedEntry(t *testing.T, c *Cache, uri, body string, headers ...[2]string) {
	t.Helper()
	ctx := context.Background()
	req := testRequest(t, "GET", uri)

	resp, err := c.Get(ctx, req)
	require.NoError(t, err)
	require.Nil(t, resp)

	info := testResponseInfo(200, headers...)
	info.ContentLength = int64(len(body))
	w, err := c.Put(ctx, req, info)
	require.NoError(t, err)
	require.NotNil(t, w)
	_, err = w.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, w.Commit())
}

func TestCacheMissThenHit(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := New(WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	seedEntry(t, c, "http://example.com/doc", "ABCDE",
		[2]string{"Date", FormatHTTPDate(fixed)},
		[2]string{"Cache-Control", "max-age=60"},
		[2]string{"X-Origin", "yes"})

	req := testRequest(t, "GET", "http://example.com/doc")
	resp, err := c.Get(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Nil(t, resp.Conditional)

	assert.Equal(t, "HTTP/1.1 200 OK", resp.StatusLine())
	assert.Equal(t, 200, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "ABCDE", string(body))
	assert.Equal(t, "yes", resp.Header.Get("X-Origin"))
	assert.Equal(t, "max-age=60", resp.Header.Get("Cache-Control"))
	assert.Empty(t, resp.Header.Values("Warning"))

	stats := c.Stats()
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)
	assert.EqualValues(t, 1, stats.Successes)
	assert.EqualValues(t, 0, stats.Aborts)
}

func TestCacheRoundTripWithinLifetime(t *testing.T) {
	served := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	now := served
	c := New(WithClock(func() time.Time { return now }))
	ctx := context.Background()

	seedEntry(t, c, "http://example.com/doc", "payload",
		[2]string{"Date", FormatHTTPDate(served)},
		[2]string{"Cache-Control", "max-age=100"})

	now = served.Add(99 * time.Second)
	resp, err := c.Get(ctx, testRequest(t, "GET", "http://example.com/doc"))
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Nil(t, resp.Conditional)

	now = served.Add(101 * time.Second)
	resp, err = c.Get(ctx, testRequest(t, "GET", "http://example.com/doc"))
	require.NoError(t, err)
	assert.Nil(t, resp)
}

func TestCacheRevalidateThen304Merge(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := New(WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	lastModified := FormatHTTPDate(fixed.Add(-time.Hour))
	seedEntry(t, c, "http://example.com/doc", "A",
		[2]string{"Date", FormatHTTPDate(fixed)},
		[2]string{"Cache-Control", "max-age=0"},
		[2]string{"Last-Modified", lastModified})

	req := testRequest(t, "GET", "http://example.com/doc")
	resp, err := c.Get(ctx, req)
	require.NoError(t, err)
	require.NotNil(t, resp)
	require.NotNil(t, resp.Conditional)
	assert.Equal(t, lastModified, resp.Conditional.Get("If-Modified-Since"))

	// Origin answered 304; the facade merges and serves the stored body.
	info := testResponseInfo(304, [2]string{"Date", FormatHTTPDate(fixed.Add(time.Second))})
	merged, err := c.Update(ctx, req, info)
	require.NoError(t, err)
	require.NotNil(t, merged)
	body, err := io.ReadAll(merged.Body)
	require.NoError(t, err)
	assert.Equal(t, "A", string(body))
	assert.Equal(t, FormatHTTPDate(fixed.Add(time.Second)), merged.Header.Get("Date"))

	stats := c.Stats()
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)
}

func TestCacheUpdateNon304CountsMiss(t *testing.T) {
	c := New()
	ctx := context.Background()
	req := testRequest(t, "GET", "http://example.com/doc")

	resp, err := c.Update(ctx, req, testResponseInfo(200))
	require.NoError(t, err)
	assert.Nil(t, resp)
	assert.EqualValues(t, 1, c.Stats().Misses)
}

func TestCacheUpdate304WithoutEntryFallsThrough(t *testing.T) {
	c := New()
	ctx := context.Background()
	req := testRequest(t, "GET", "http://example.com/doc")

	resp, err := c.Update(ctx, req, testResponseInfo(304))
	require.NoError(t, err)
	assert.Nil(t, resp)
	stats := c.Stats()
	assert.EqualValues(t, 0, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)
}

func TestCachePutRejectsUnstorable(t *testing.T) {
	c := New()
	ctx := context.Background()
	req := testRequest(t, "GET", "http://example.com/doc")

	w, err := c.Put(ctx, req, testResponseInfo(500))
	require.NoError(t, err)
	assert.Nil(t, w)

	uris, err := c.URIs(ctx)
	require.NoError(t, err)
	assert.Empty(t, uris)
}

func TestCacheMutatingMethodInvalidates(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := New(WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	for _, method := range []string{"POST", "PUT", "DELETE"} {
		seedEntry(t, c, "http://example.com/doc", "A",
			[2]string{"Date", FormatHTTPDate(fixed)},
			[2]string{"Cache-Control", "max-age=3600"})

		req := testRequest(t, method, "http://example.com/doc")
		w, err := c.Put(ctx, req, testResponseInfo(200))
		require.NoError(t, err)
		assert.Nil(t, w, method)

		uris, err := c.URIs(ctx)
		require.NoError(t, err)
		assert.Empty(t, uris, method)
	}
}

func TestCacheUseCachesDisabled(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := New(WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	seedEntry(t, c, "http://example.com/doc", "A",
		[2]string{"Date", FormatHTTPDate(fixed)},
		[2]string{"Cache-Control", "max-age=3600"})

	req := testRequest(t, "GET", "http://example.com/doc")
	req.UseCaches = false

	resp, err := c.Get(ctx, req)
	require.NoError(t, err)
	assert.Nil(t, resp)

	w, err := c.Put(ctx, req, testResponseInfo(200, [2]string{"Cache-Control", "max-age=60"}))
	require.NoError(t, err)
	assert.Nil(t, w)
}

func TestDefaultUseCachesSnapshot(t *testing.T) {
	defer SetDefaultUseCaches(true)

	before := testRequest(t, "GET", "http://example.com/")
	assert.True(t, before.UseCaches)

	SetDefaultUseCaches(false)
	after := testRequest(t, "GET", "http://example.com/")
	assert.False(t, after.UseCaches)

	// Requests created before the flip keep the default they were born
	// with.
	assert.True(t, before.UseCaches)
}

func TestCacheTLSMetadataPreservedAcrossHit(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := New(WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	req := testRequest(t, "GET", "https://example.com/doc")
	resp, err := c.Get(ctx, req)
	require.NoError(t, err)
	require.Nil(t, resp)

	info := testResponseInfo(200,
		[2]string{"Date", FormatHTTPDate(fixed)},
		[2]string{"Cache-Control", "max-age=60"})
	info.TLS = &TLSInfo{CipherSuite: 0x1302, PeerPrincipal: "CN=example.com"}
	w, err := c.Put(ctx, req, info)
	require.NoError(t, err)
	require.NotNil(t, w)
	require.NoError(t, w.Commit())

	hit, err := c.Get(ctx, testRequest(t, "GET", "https://example.com/doc"))
	require.NoError(t, err)
	require.NotNil(t, hit)
	require.NotNil(t, hit.TLS)
	assert.EqualValues(t, 0x1302, hit.TLS.CipherSuite)
	assert.Equal(t, "CN=example.com", hit.TLS.PeerPrincipal)

	// The plain-HTTP URI is a distinct cache key and finds no entry.
	miss, err := c.Get(ctx, testRequest(t, "GET", "http://example.com/doc"))
	require.NoError(t, err)
	assert.Nil(t, miss)
}

func TestInsecureCacheAllowsPlainEntryForSecureRequest(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := New(WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	// Plain-HTTP and https URIs are distinct cache keys; store the entry
	// under the https URI but without TLS metadata, as an interposer that
	// terminated TLS upstream would.
	req := testRequest(t, "GET", "https://example.com/doc")
	_, err := c.Get(ctx, req)
	require.NoError(t, err)
	info := testResponseInfo(200,
		[2]string{"Date", FormatHTTPDate(fixed)},
		[2]string{"Cache-Control", "max-age=60"})
	w, err := c.Put(ctx, req, info)
	require.NoError(t, err)
	require.NotNil(t, w)
	require.NoError(t, w.Commit())

	// The strict facade refuses the insecure entry.
	resp, err := c.Get(ctx, testRequest(t, "GET", "https://example.com/doc"))
	require.NoError(t, err)
	assert.Nil(t, resp)

	// The insecure-allowing decorator serves it.
	insecure := NewInsecureCache(c)
	resp, err = insecure.Get(ctx, testRequest(t, "GET", "https://example.com/doc"))
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.Nil(t, resp.TLS)
}

func TestCacheCounterIdentity(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := New(WithClock(func() time.Time { return fixed }))
	ctx := context.Background()

	// Two misses, one hit: resolved consults equal hits+misses.
	seedEntry(t, c, "http://example.com/a", "A",
		[2]string{"Date", FormatHTTPDate(fixed)},
		[2]string{"Cache-Control", "max-age=60"})
	_, err := c.Get(ctx, testRequest(t, "GET", "http://example.com/a"))
	require.NoError(t, err)
	_, err = c.Get(ctx, testRequest(t, "GET", "http://example.com/b"))
	require.NoError(t, err)

	stats := c.Stats()
	assert.EqualValues(t, 1, stats.Hits)
	assert.EqualValues(t, 2, stats.Misses)
	assert.True(t, stats.Successes+stats.Aborts <= stats.Misses)
}

func TestCacheGatewayTimeoutCountsMiss(t *testing.T) {
	c := New()
	req := testRequest(t, "GET", "http://example.com/absent")
	req.Header.Set("Cache-Control", "only-if-cached")

	resp, err := c.Get(context.Background(), req)
	require.NoError(t, err)
	assert.Nil(t, resp)
	assert.EqualValues(t, 1, c.Stats().Misses)
}

var _ http.RoundTripper = (*Transport)(nil)
