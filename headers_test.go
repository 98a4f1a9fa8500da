package respcache

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderMapCaseInsensitiveLookup(t *testing.T) {
	m := NewHeaderMap("HTTP/1.1 200 OK")
	m.Add("Content-Type", "text/plain")
	m.Add("x-custom", "one")
	m.Add("X-Custom", "two")

	assert.Equal(t, "text/plain", m.Get("content-type"))
	assert.Equal(t, "text/plain", m.Get("CONTENT-TYPE"))
	assert.Equal(t, []string{"one", "two"}, m.Values("X-CUSTOM"))
	assert.True(t, m.Has("X-Custom"))
	assert.False(t, m.Has("X-Missing"))
	assert.Equal(t, "", m.Get("X-Missing"))
}

func TestHeaderMapPreservesOrder(t *testing.T) {
	m := NewHeaderMap("HTTP/1.1 200 OK")
	m.Add("B-Header", "1")
	m.Add("A-Header", "2")
	m.Add("B-Header", "3")

	var got []string
	m.Range(func(name, value string) bool {
		got = append(got, name+"="+value)
		return true
	})
	assert.Equal(t, []string{"B-Header=1", "A-Header=2", "B-Header=3"}, got)
}

func TestHeaderMapSetReplacesInPlace(t *testing.T) {
	m := NewHeaderMap("HTTP/1.1 200 OK")
	m.Add("A", "1")
	m.Add("B", "2")
	m.Add("A", "3")
	m.Set("A", "9")

	var got []string
	m.Range(func(name, value string) bool {
		got = append(got, name+"="+value)
		return true
	})
	assert.Equal(t, []string{"A=9", "B=2"}, got)

	m.Set("C", "new")
	assert.Equal(t, "new", m.Get("C"))
	assert.Equal(t, 3, m.Len())
}

func TestHeaderMapDel(t *testing.T) {
	m := NewHeaderMap("HTTP/1.1 200 OK")
	m.Add("A", "1")
	m.Add("a", "2")
	m.Add("B", "3")
	m.Del("A")

	assert.False(t, m.Has("A"))
	assert.Equal(t, 1, m.Len())
}

func TestHeaderMapStatusLineInMap(t *testing.T) {
	m := NewHeaderMap("HTTP/1.1 301 Moved Permanently")
	m.Add("Location", "https://example.com/new")

	out := m.Map()
	require.Contains(t, out, "")
	assert.Equal(t, []string{"HTTP/1.1 301 Moved Permanently"}, out[""])
	assert.Equal(t, []string{"https://example.com/new"}, out["Location"])
}

func TestHeaderMapFromHTTPDeterministic(t *testing.T) {
	h := http.Header{}
	h.Add("Zulu", "z")
	h.Add("Alpha", "a1")
	h.Add("Alpha", "a2")

	m := HeaderMapFromHTTP("HTTP/1.1 200 OK", h)
	var got []string
	m.Range(func(name, value string) bool {
		got = append(got, name+"="+value)
		return true
	})
	assert.Equal(t, []string{"Alpha=a1", "Alpha=a2", "Zulu=z"}, got)
}

func TestHeaderMapCloneIsIndependent(t *testing.T) {
	m := NewHeaderMap("HTTP/1.1 200 OK")
	m.Add("A", "1")
	c := m.Clone()
	c.Set("A", "changed")
	c.SetStatusLine("HTTP/1.1 500 Internal Server Error")

	assert.Equal(t, "1", m.Get("A"))
	assert.Equal(t, "HTTP/1.1 200 OK", m.StatusLine())
}

func TestIsContentHeader(t *testing.T) {
	assert.True(t, isContentHeader("Content-Length"))
	assert.True(t, isContentHeader("content-encoding"))
	assert.True(t, isContentHeader("Content-Range"))
	assert.False(t, isContentHeader("Etag"))
	assert.False(t, isContentHeader("Date"))
}
