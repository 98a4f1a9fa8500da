package respcache

import (
	"net/http"
	"net/url"
	"sync/atomic"
)

// defaultUseCaches is the process-wide default for the per-request UseCaches
// flag. It is captured at request construction; flipping it later affects
// only requests created after the change.
var defaultUseCaches atomic.Bool

func init() {
	defaultUseCaches.Store(true)
}

// SetDefaultUseCaches changes the process-wide default for the UseCaches
// flag of subsequently created requests.
func SetDefaultUseCaches(use bool) {
	defaultUseCaches.Store(use)
}

// DefaultUseCaches reports the current process-wide default.
func DefaultUseCaches() bool {
	return defaultUseCaches.Load()
}

// conditionHeaders are the request preconditions a client may supply itself.
// When any is present the stored entry's own validators are suppressed.
var conditionHeaders = []string{
	"If-Modified-Since",
	"If-None-Match",
	"If-Match",
	"If-Unmodified-Since",
	"If-Range",
}

// Request is the cache's view of one HTTP request.
type Request struct {
	// URI is the absolute request URI as presented by the engine. It is the
	// cache key.
	URI    string
	Method string
	Header http.Header

	// UseCaches disables both reading and writing the cache for this
	// request when false. Initialized from the process-wide default at
	// construction.
	UseCaches bool

	url *url.URL
}

// NewRequest builds a Request, snapshotting the process-wide UseCaches
// default.
func NewRequest(method, uri string, header http.Header) (*Request, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, err
	}
	if header == nil {
		header = http.Header{}
	}
	return &Request{
		URI:       uri,
		Method:    method,
		Header:    header,
		UseCaches: DefaultUseCaches(),
		url:       u,
	}, nil
}

// NewRequestFromHTTP builds a Request from an *http.Request.
func NewRequestFromHTTP(req *http.Request) *Request {
	return &Request{
		URI:       req.URL.String(),
		Method:    req.Method,
		Header:    req.Header,
		UseCaches: DefaultUseCaches(),
		url:       req.URL,
	}
}

// secure reports whether the request travels over TLS.
func (r *Request) secure() bool {
	return r.url != nil && r.url.Scheme == "https"
}

// hasConditions reports whether the client supplied its own preconditions.
func (r *Request) hasConditions() bool {
	for _, name := range conditionHeaders {
		if r.Header.Get(name) != "" {
			return true
		}
	}
	return false
}

// isMutating reports whether the method invalidates a cached entry for the
// request URI.
func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}
