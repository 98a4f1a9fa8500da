package respcache

import (
	"net/http"
	"net/textproto"
	"sort"
	"strings"
)

// headerField is one field line of a stored response.
type headerField struct {
	name  string // canonical MIME form
	value string
}

// HeaderMap is an ordered, case-insensitive multimap of HTTP header fields
// together with the response status line. Field order is preserved across
// storage and read-back; lookups are case-insensitive. The status line is a
// tagged member of the map rather than a field under a magic key.
type HeaderMap struct {
	statusLine string
	fields     []headerField
}

// NewHeaderMap returns an empty HeaderMap with the given status line.
func NewHeaderMap(statusLine string) *HeaderMap {
	return &HeaderMap{statusLine: statusLine}
}

// HeaderMapFromHTTP builds a HeaderMap from an http.Header. Since http.Header
// is unordered, fields are emitted in sorted name order for determinism;
// values under the same name keep their slice order.
func HeaderMapFromHTTP(statusLine string, h http.Header) *HeaderMap {
	m := NewHeaderMap(statusLine)
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, v := range h[name] {
			m.Add(name, v)
		}
	}
	return m
}

// StatusLine returns the stored status line, e.g. "HTTP/1.1 200 OK".
func (m *HeaderMap) StatusLine() string { return m.statusLine }

// SetStatusLine replaces the stored status line.
func (m *HeaderMap) SetStatusLine(line string) { m.statusLine = line }

// Len returns the number of field lines, not counting the status line.
func (m *HeaderMap) Len() int { return len(m.fields) }

// Get returns the first value for name, or "" if absent.
func (m *HeaderMap) Get(name string) string {
	name = textproto.CanonicalMIMEHeaderKey(name)
	for _, f := range m.fields {
		if f.name == name {
			return f.value
		}
	}
	return ""
}

// Values returns all values for name in field order.
func (m *HeaderMap) Values(name string) []string {
	name = textproto.CanonicalMIMEHeaderKey(name)
	var out []string
	for _, f := range m.fields {
		if f.name == name {
			out = append(out, f.value)
		}
	}
	return out
}

// Has reports whether at least one field with the given name is present.
func (m *HeaderMap) Has(name string) bool {
	name = textproto.CanonicalMIMEHeaderKey(name)
	for _, f := range m.fields {
		if f.name == name {
			return true
		}
	}
	return false
}

// Add appends a field line, preserving any existing fields with the same name.
func (m *HeaderMap) Add(name, value string) {
	m.fields = append(m.fields, headerField{textproto.CanonicalMIMEHeaderKey(name), value})
}

// Set replaces all fields with the given name by a single field. The new
// field takes the position of the first replaced one, or is appended if the
// name was absent.
func (m *HeaderMap) Set(name, value string) {
	name = textproto.CanonicalMIMEHeaderKey(name)
	out := m.fields[:0]
	placed := false
	for _, f := range m.fields {
		if f.name != name {
			out = append(out, f)
			continue
		}
		if !placed {
			out = append(out, headerField{name, value})
			placed = true
		}
	}
	if !placed {
		out = append(out, headerField{name, value})
	}
	m.fields = out
}

// Del removes all fields with the given name.
func (m *HeaderMap) Del(name string) {
	name = textproto.CanonicalMIMEHeaderKey(name)
	out := m.fields[:0]
	for _, f := range m.fields {
		if f.name != name {
			out = append(out, f)
		}
	}
	m.fields = out
}

// Range calls fn for every field line in order. fn returning false stops the
// iteration.
func (m *HeaderMap) Range(fn func(name, value string) bool) {
	for _, f := range m.fields {
		if !fn(f.name, f.value) {
			return
		}
	}
}

// HTTPHeader renders the fields as an http.Header. Order within a name is
// preserved; order across names is not representable in http.Header.
func (m *HeaderMap) HTTPHeader() http.Header {
	h := make(http.Header, len(m.fields))
	for _, f := range m.fields {
		h[f.name] = append(h[f.name], f.value)
	}
	return h
}

// Map renders the header map in the engine interop shape: header names map
// to value lists, and the "" key carries the status line by convention.
func (m *HeaderMap) Map() map[string][]string {
	out := make(map[string][]string, len(m.fields)+1)
	if m.statusLine != "" {
		out[""] = []string{m.statusLine}
	}
	for _, f := range m.fields {
		out[f.name] = append(out[f.name], f.value)
	}
	return out
}

// Clone returns a deep copy.
func (m *HeaderMap) Clone() *HeaderMap {
	c := &HeaderMap{statusLine: m.statusLine}
	c.fields = make([]headerField, len(m.fields))
	copy(c.fields, m.fields)
	return c
}

// headerValues is the read surface shared by http.Header and HeaderMap, so
// directive parsing works on live requests and stored entries alike.
type headerValues interface {
	Values(name string) []string
}

// isContentHeader reports whether name is a content-defining header
// (Content-Length, Content-Encoding, Content-Type, Content-Range, and the
// rest of the Content-* family). These are sticky across 304 merges.
func isContentHeader(name string) bool {
	return strings.HasPrefix(textproto.CanonicalMIMEHeaderKey(name), "Content-")
}
