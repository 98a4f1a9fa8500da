package respcache

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Transport is the reference HTTP engine adapter: an http.RoundTripper that
// consults a ResponseCache before the network, feeds admitted response
// bodies through the cache's entry writer as the caller reads them, and
// resolves revalidations through Update.
type Transport struct {
	// Transport is the RoundTripper used for network fetches. If nil,
	// http.DefaultTransport is used.
	Transport http.RoundTripper
	Cache     ResponseCache

	resilience *ResilienceConfig
}

// TransportOption configures a Transport.
type TransportOption func(*Transport) error

// WithHTTPTransport sets the underlying RoundTripper used for network
// fetches.
func WithHTTPTransport(rt http.RoundTripper) TransportOption {
	return func(t *Transport) error {
		t.Transport = rt
		return nil
	}
}

// WithResilience applies retry and circuit-breaker policies to network
// fetches.
func WithResilience(cfg *ResilienceConfig) TransportOption {
	return func(t *Transport) error {
		if cfg == nil {
			return fmt.Errorf("resilience config cannot be nil")
		}
		t.resilience = cfg
		return nil
	}
}

// NewTransport returns a Transport over the given cache.
func NewTransport(cache ResponseCache, opts ...TransportOption) *Transport {
	t := &Transport{Cache: cache}
	for _, opt := range opts {
		if err := opt(t); err != nil {
			GetLogger().Error("failed to apply transport option", "error", err)
		}
	}
	return t
}

// Client returns an *http.Client that caches responses.
func (t *Transport) Client() *http.Client {
	return &http.Client{Transport: t}
}

// RoundTrip serves the request from the cache when the stored entry is
// fresh, revalidates it when the policy demands, and otherwise fetches from
// the network, streaming any storable response into the cache.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	creq := NewRequestFromHTTP(req)

	if isMutating(req.Method) {
		resp, err := t.fetch(req)
		if err != nil {
			return nil, err
		}
		// The facade invalidates the URI and refuses storage.
		if _, err := t.Cache.Put(ctx, creq, ResponseInfoFromHTTP(resp)); err != nil {
			GetLogger().Warn("cache put failed", "uri", creq.URI, "error", err)
		}
		return resp, nil
	}

	cached, err := t.Cache.Get(ctx, creq)
	if err != nil {
		GetLogger().Warn("cache lookup failed", "uri", creq.URI, "error", err)
		cached = nil
	}

	if cached != nil && cached.Conditional == nil {
		return cachedHTTPResponse(req, cached), nil
	}

	if cached == nil && parseCacheControl(req.Header).has("only-if-cached") {
		return newGatewayTimeoutResponse(req), nil
	}

	outReq := req
	if cached != nil && len(cached.Conditional) > 0 {
		outReq = cloneRequest(req)
		for name, values := range cached.Conditional {
			if outReq.Header.Get(name) == "" {
				outReq.Header[name] = values
			}
		}
	}

	resp, err := t.fetch(outReq)
	if err != nil {
		return nil, err
	}
	info := ResponseInfoFromHTTP(resp)

	if cached != nil {
		merged, err := t.Cache.Update(ctx, creq, info)
		if err != nil {
			GetLogger().Warn("cache update failed", "uri", creq.URI, "error", err)
		}
		if merged != nil {
			if drainErr := drainDiscardedBody(resp.Body); drainErr != nil {
				GetLogger().Warn("error draining revalidation response body", "error", drainErr)
			}
			return cachedHTTPResponse(req, merged), nil
		}
		if resp.StatusCode == http.StatusNotModified {
			// No stored entry to merge; the 304 surfaces to the caller
			// as-is.
			return resp, nil
		}
	}

	writer, err := t.Cache.Put(ctx, creq, info)
	if err != nil {
		GetLogger().Warn("cache put failed", "uri", creq.URI, "error", err)
	}
	if writer != nil {
		resp.Body = &cachingBody{rc: resp.Body, w: writer}
	}
	return resp, nil
}

// fetch performs the network round trip, applying resilience policies when
// configured.
func (t *Transport) fetch(req *http.Request) (*http.Response, error) {
	transport := t.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	return t.executeWithResilience(func() (*http.Response, error) {
		return transport.RoundTrip(req)
	})
}

// cachingBody tees the response body into the entry writer as the caller
// reads it. The writer observes every byte the origin serves, including
// bytes the caller skips over, so the stored body matches the origin's.
// Clean end-of-stream commits; a read error or an early close aborts.
type cachingBody struct {
	rc     io.ReadCloser
	w      *EntryWriter
	sawEOF bool
}

func (b *cachingBody) Read(p []byte) (int, error) {
	n, err := b.rc.Read(p)
	if n > 0 {
		if _, werr := b.w.Write(p[:n]); werr != nil && werr != ErrWriterClosed {
			GetLogger().Warn("entry writer rejected body bytes", "error", werr)
		}
	}
	switch {
	case err == io.EOF:
		if !b.sawEOF {
			b.sawEOF = true
			if cerr := b.w.Commit(); cerr != nil && cerr != ErrWriterClosed {
				GetLogger().Warn("entry commit failed", "error", cerr)
			}
		}
	case err != nil:
		b.w.Abort()
	}
	return n, err
}

func (b *cachingBody) Close() error {
	if !b.sawEOF {
		b.w.Abort()
	}
	return b.rc.Close()
}

// cachedHTTPResponse renders a stored Response as an *http.Response for the
// engine's caller.
func cachedHTTPResponse(req *http.Request, cached *Response) *http.Response {
	major, minor, ok := http.ParseHTTPVersion(cached.Proto)
	if !ok {
		major, minor = 1, 1
	}
	return &http.Response{
		Status:        cached.Status,
		StatusCode:    cached.StatusCode,
		Proto:         cached.Proto,
		ProtoMajor:    major,
		ProtoMinor:    minor,
		Header:        cached.Header.HTTPHeader(),
		Body:          cached.Body,
		ContentLength: cached.ContentLength,
		Request:       req,
		TLS:           cached.TLS.connectionState(),
	}
}

// newGatewayTimeoutResponse synthesizes the 504 for an only-if-cached
// request with no usable entry. Its body is at EOF immediately.
func newGatewayTimeoutResponse(req *http.Request) *http.Response {
	return &http.Response{
		Status:     "504 Gateway Timeout",
		StatusCode: http.StatusGatewayTimeout,
		Proto:      "HTTP/1.1",
		ProtoMajor: 1,
		ProtoMinor: 1,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader("")),
		Request:    req,
	}
}

// cloneRequest returns a shallow copy of req with a deep copy of its
// headers, so conditional headers never mutate the caller's request.
func cloneRequest(req *http.Request) *http.Request {
	r2 := new(http.Request)
	*r2 = *req
	r2.Header = req.Header.Clone()
	return r2
}

// drainDiscardedBody consumes and closes a response body the engine is not
// returning, keeping the underlying connection reusable.
func drainDiscardedBody(body io.ReadCloser) error {
	if body == nil {
		return nil
	}
	_, copyErr := io.Copy(io.Discard, body)
	closeErr := body.Close()
	if copyErr != nil {
		return copyErr
	}
	return closeErr
}
