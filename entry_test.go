package respcache

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMergeNotModifiedOverwritesFields(t *testing.T) {
	received := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	e := freshnessEntry("http://example.com/", received,
		[2]string{"Date", "Mon, 01 Jan 2024 00:00:00 GMT"},
		[2]string{"Cache-Control", "max-age=0"},
		[2]string{"Etag", `"v1"`})
	e.Body = []byte("A")

	notModified := http.Header{}
	notModified.Set("Date", "Tue, 02 Jan 2024 00:00:00 GMT")
	notModified.Set("Etag", `"v2"`)
	notModified.Set("Cache-Control", "max-age=60")

	later := received.Add(time.Hour)
	merged := e.mergeNotModified(notModified, later)

	assert.Equal(t, "Tue, 02 Jan 2024 00:00:00 GMT", merged.Header.Get("Date"))
	assert.Equal(t, `"v2"`, merged.Header.Get("Etag"))
	assert.Equal(t, "max-age=60", merged.Header.Get("Cache-Control"))
	assert.Equal(t, []byte("A"), merged.Body)
	assert.Equal(t, later, merged.ReceivedAt)

	// The original entry is untouched.
	assert.Equal(t, `"v1"`, e.Header.Get("Etag"))
	assert.Equal(t, received, e.ReceivedAt)
}

func TestMergeNotModifiedPreservesContentHeaders(t *testing.T) {
	e := freshnessEntry("http://example.com/", time.Now(),
		[2]string{"Content-Type", "text/plain"},
		[2]string{"Content-Encoding", "gzip"},
		[2]string{"Content-Length", "5"},
		[2]string{"Etag", `"v1"`})
	e.Body = []byte("AAAAA")

	notModified := http.Header{}
	notModified.Set("Content-Type", "application/json")
	notModified.Set("Content-Length", "999")
	notModified.Set("Etag", `"v2"`)

	merged := e.mergeNotModified(notModified, time.Now())

	assert.Equal(t, "text/plain", merged.Header.Get("Content-Type"))
	assert.Equal(t, "gzip", merged.Header.Get("Content-Encoding"))
	assert.Equal(t, "5", merged.Header.Get("Content-Length"))
	assert.Equal(t, `"v2"`, merged.Header.Get("Etag"))
}

func TestEntryStatusLine(t *testing.T) {
	e := &Entry{Proto: "HTTP/1.1", Status: "410 Gone"}
	assert.Equal(t, "HTTP/1.1 410 Gone", e.StatusLine())
}

func TestEntryValidators(t *testing.T) {
	e := freshnessEntry("http://example.com/", time.Now())
	assert.False(t, e.hasValidator())

	e.Header.Set("Etag", `"x"`)
	assert.True(t, e.hasValidator())

	cond := validators(e)
	assert.Equal(t, `"x"`, cond.Get("If-None-Match"))
	assert.Empty(t, cond.Get("If-Modified-Since"))
}
