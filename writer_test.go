package respcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWriter(t *testing.T, c *Cache, declared int64) *EntryWriter {
	t.Helper()
	req := testRequest(t, "GET", "http://example.com/doc")
	info := testResponseInfo(200, [2]string{"Cache-Control", "max-age=60"})
	info.ContentLength = declared
	w, err := c.Put(context.Background(), req, info)
	require.NoError(t, err)
	require.NotNil(t, w)
	return w
}

func TestWriterCommitStoresEntry(t *testing.T) {
	c := New()
	w := newTestWriter(t, c, 5)

	n, err := w.Write([]byte("he"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, err = w.Write([]byte("llo"))
	require.NoError(t, err)

	require.NoError(t, w.Commit())

	e, ok, err := c.store.Get(context.Background(), "http://example.com/doc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), e.Body)

	stats := c.Stats()
	assert.EqualValues(t, 1, stats.Successes)
	assert.EqualValues(t, 0, stats.Aborts)
}

func TestWriterCommitUnknownLength(t *testing.T) {
	c := New()
	w := newTestWriter(t, c, -1)
	_, err := w.Write([]byte("anything"))
	require.NoError(t, err)
	assert.NoError(t, w.Commit())
	assert.EqualValues(t, 1, c.Stats().Successes)
}

func TestWriterLengthMismatchAborts(t *testing.T) {
	c := New()
	w := newTestWriter(t, c, 31)
	_, err := w.Write([]byte("short"))
	require.NoError(t, err)

	assert.Error(t, w.Commit())

	_, ok, err := c.store.Get(context.Background(), "http://example.com/doc")
	require.NoError(t, err)
	assert.False(t, ok)

	stats := c.Stats()
	assert.EqualValues(t, 0, stats.Successes)
	assert.EqualValues(t, 1, stats.Aborts)
}

func TestWriterAbortDiscardsBuffer(t *testing.T) {
	c := New()
	w := newTestWriter(t, c, 5)
	_, err := w.Write([]byte("hel"))
	require.NoError(t, err)

	w.Abort()

	_, ok, err := c.store.Get(context.Background(), "http://example.com/doc")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.EqualValues(t, 1, c.Stats().Aborts)

	// Terminal: further writes and commits are refused, and a second abort
	// does not double count.
	_, err = w.Write([]byte("lo"))
	assert.ErrorIs(t, err, ErrWriterClosed)
	assert.ErrorIs(t, w.Commit(), ErrWriterClosed)
	w.Abort()
	assert.EqualValues(t, 1, c.Stats().Aborts)
}

func TestWriterCommitIsExactlyOnce(t *testing.T) {
	c := New()
	w := newTestWriter(t, c, -1)
	_, err := w.Write([]byte("x"))
	require.NoError(t, err)
	require.NoError(t, w.Commit())

	assert.ErrorIs(t, w.Commit(), ErrWriterClosed)
	w.Abort()

	stats := c.Stats()
	assert.EqualValues(t, 1, stats.Successes)
	assert.EqualValues(t, 0, stats.Aborts)
}

func TestWriterCloseAborts(t *testing.T) {
	c := New()
	w := newTestWriter(t, c, 10)
	_, err := w.Write([]byte("partial"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	assert.EqualValues(t, 1, c.Stats().Aborts)
}

func TestWriterCommitReplacesExistingEntry(t *testing.T) {
	c := New()
	ctx := context.Background()

	first := newTestWriter(t, c, -1)
	_, err := first.Write([]byte("old"))
	require.NoError(t, err)
	require.NoError(t, first.Commit())

	second := newTestWriter(t, c, -1)
	_, err = second.Write([]byte("new"))
	require.NoError(t, err)
	require.NoError(t, second.Commit())

	e, ok, err := c.store.Get(ctx, "http://example.com/doc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("new"), e.Body)

	uris, err := c.URIs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://example.com/doc"}, uris)
}

func TestWriterEntryCarriesReceiptTime(t *testing.T) {
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := New(WithClock(func() time.Time { return fixed }))
	w := newTestWriter(t, c, -1)
	require.NoError(t, w.Commit())

	e, ok, err := c.store.Get(context.Background(), "http://example.com/doc")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, fixed, e.ReceivedAt)
}
