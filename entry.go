package respcache

import (
	"crypto/tls"
	"crypto/x509"
	"net/http"
	"time"
)

// TLSInfo captures the secure-channel metadata of a response received over
// TLS. An entry carrying TLSInfo may only satisfy https requests; an entry
// without it may not, unless the facade explicitly allows insecure hits.
type TLSInfo struct {
	CipherSuite       uint16
	PeerCertificates  []*x509.Certificate
	LocalCertificates []*x509.Certificate
	PeerPrincipal     string
	LocalPrincipal    string
}

// TLSInfoFromState extracts TLSInfo from a connection state, as exposed on
// http.Response.TLS.
func TLSInfoFromState(state *tls.ConnectionState) *TLSInfo {
	if state == nil {
		return nil
	}
	info := &TLSInfo{
		CipherSuite:      state.CipherSuite,
		PeerCertificates: state.PeerCertificates,
	}
	if len(state.PeerCertificates) > 0 {
		info.PeerPrincipal = state.PeerCertificates[0].Subject.String()
	}
	return info
}

// connectionState rebuilds a tls.ConnectionState carrying the stored
// metadata, for engines that surface hits through http.Response.TLS.
func (i *TLSInfo) connectionState() *tls.ConnectionState {
	if i == nil {
		return nil
	}
	return &tls.ConnectionState{
		CipherSuite:      i.CipherSuite,
		PeerCertificates: i.PeerCertificates,
	}
}

// Entry is one cached response. Entries are immutable once committed to a
// Store; the 304 merge path produces a replacement rather than mutating in
// place.
type Entry struct {
	URI        string
	Method     string
	Proto      string // e.g. "HTTP/1.1"
	StatusCode int
	Status     string // e.g. "200 OK"
	Header     *HeaderMap
	Body       []byte
	TLS        *TLSInfo
	ReceivedAt time.Time
}

// StatusLine renders the stored status line, e.g. "HTTP/1.1 200 OK".
func (e *Entry) StatusLine() string {
	return e.Proto + " " + e.Status
}

// etag returns the entry's ETag validator, or "".
func (e *Entry) etag() string { return e.Header.Get("Etag") }

// lastModified returns the entry's Last-Modified validator, or "".
func (e *Entry) lastModified() string { return e.Header.Get("Last-Modified") }

// hasValidator reports whether the entry can be revalidated conditionally.
func (e *Entry) hasValidator() bool {
	return e.etag() != "" || e.lastModified() != ""
}

// clone returns a deep-enough copy: header map copied, body shared (bodies
// are never mutated after commit).
func (e *Entry) clone() *Entry {
	c := *e
	c.Header = e.Header.Clone()
	return &c
}

// mergeNotModified builds the replacement entry for a 304 revalidation hit.
// Every field of the 304 overwrites the stored field of the same name,
// except the content-defining Content-* family, which is preserved from the
// original so that e.g. gzip transparency survives revalidation. The body
// and TLS metadata are carried over unchanged; receivedAt restarts the age
// calculation from the revalidation.
func (e *Entry) mergeNotModified(notModified http.Header, receivedAt time.Time) *Entry {
	merged := e.clone()
	for name, values := range notModified {
		if isContentHeader(name) {
			continue
		}
		merged.Header.Del(name)
		for _, v := range values {
			merged.Header.Add(name, v)
		}
	}
	merged.ReceivedAt = receivedAt
	return merged
}
