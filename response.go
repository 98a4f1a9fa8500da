package respcache

import (
	"bytes"
	"io"
	"net/http"
	"time"
)

// ResponseInfo is the immutable snapshot of a network response's metadata
// handed to Put and Update. It deliberately carries no body reader: the put
// path may inspect status, headers and length, but the body flows only
// through the EntryWriter.
type ResponseInfo struct {
	Proto      string // e.g. "HTTP/1.1"
	StatusCode int
	Status     string // e.g. "200 OK"
	Header     http.Header
	// ContentLength is the declared body length, -1 when unknown.
	ContentLength int64
	// ReceivedAt is when the engine received the response headers. The zero
	// value means "now".
	ReceivedAt time.Time
	TLS        *TLSInfo
}

// ResponseInfoFromHTTP snapshots an *http.Response. The header map is
// cloned so later mutations of the live response do not leak into the
// stored entry.
func ResponseInfoFromHTTP(resp *http.Response) *ResponseInfo {
	status := resp.Status
	if len(status) > len(resp.Proto) && status[:len(resp.Proto)] == resp.Proto {
		// http.Response.Status is "200 OK"; guard against engines that
		// prepend the protocol.
		status = status[len(resp.Proto)+1:]
	}
	return &ResponseInfo{
		Proto:         resp.Proto,
		StatusCode:    resp.StatusCode,
		Status:        status,
		Header:        resp.Header.Clone(),
		ContentLength: resp.ContentLength,
		TLS:           TLSInfoFromState(resp.TLS),
	}
}

// Response is what Get and Update hand back to the engine: the stored
// status line and headers, a fresh body reader, TLS metadata when the entry
// was received over TLS, and — for revalidation — the conditional headers
// the engine must attach to its outgoing request.
type Response struct {
	Proto         string
	StatusCode    int
	Status        string
	Header        *HeaderMap
	Body          io.ReadCloser
	ContentLength int64
	TLS           *TLSInfo

	// Conditional is non-nil when the entry requires revalidation before
	// use. It holds the conditional headers to inject into the outgoing
	// request; it is empty (but non-nil) when the client supplied its own
	// preconditions.
	Conditional http.Header
}

// StatusLine returns the stored status line, e.g. "HTTP/1.1 200 OK".
func (r *Response) StatusLine() string {
	return r.Proto + " " + r.Status
}

// entryResponse renders a served response from an entry, applying the
// cache-inserted warnings.
func entryResponse(e *Entry, warnings []string, conditional http.Header) *Response {
	header := e.Header.Clone()
	for _, w := range warnings {
		header.Add("Warning", w)
	}
	return &Response{
		Proto:         e.Proto,
		StatusCode:    e.StatusCode,
		Status:        e.Status,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		TLS:           e.TLS,
		Conditional:   conditional,
	}
}
