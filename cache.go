package respcache

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/tomatotech/respcache/metrics"
)

// ResponseCache is the capability surface the HTTP engine talks to. The
// default implementation is Cache; decorators such as InsecureCache wrap a
// ResponseCache and delegate.
type ResponseCache interface {
	// Get consults the cache before a network fetch. It returns nil when
	// the request must go to the network unassisted; a Response with a nil
	// Conditional field that can be served directly; or a Response with a
	// non-nil Conditional field that the engine must revalidate.
	Get(ctx context.Context, req *Request) (*Response, error)

	// Put offers a response for admission after the engine has received its
	// headers. A non-nil EntryWriter is the sink the engine streams the
	// body into; nil means the response is not storable and the engine
	// streams nothing.
	Put(ctx context.Context, req *Request, info *ResponseInfo) (*EntryWriter, error)

	// Update resolves a revalidation. On a 304 with a matching stored entry
	// it merges headers and returns the refreshed stored response; any
	// other outcome returns nil and the engine proceeds with the network
	// response (feeding Put as usual).
	Update(ctx context.Context, req *Request, info *ResponseInfo) (*Response, error)

	// Invalidate removes any stored entry for uri.
	Invalidate(ctx context.Context, uri string) error
}

// Stats is a snapshot of the cache's monotonic counters.
type Stats struct {
	// Hits counts fresh returns that required no network revalidation,
	// including stored responses returned after a successful 304.
	Hits int64
	// Misses counts consults resolved against the network.
	Misses int64
	// Successes counts entry writers that committed.
	Successes int64
	// Aborts counts entry writers that aborted.
	Aborts int64
}

// Cache is the response cache core: admission policy, lookup policy, entry
// lifecycle and counters over a pluggable Store.
type Cache struct {
	store     Store
	clock     clock
	collector metrics.Collector

	hits      atomic.Int64
	misses    atomic.Int64
	successes atomic.Int64
	aborts    atomic.Int64
}

var _ ResponseCache = (*Cache)(nil)

// New returns a Cache backed by an in-memory store unless configured
// otherwise.
func New(opts ...Option) *Cache {
	c := &Cache{
		store:     NewMemoryStore(),
		clock:     realClock{},
		collector: metrics.DefaultCollector,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			GetLogger().Error("failed to apply cache option", "error", err)
		}
	}
	return c
}

// Get consults the cache for req. See ResponseCache.
func (c *Cache) Get(ctx context.Context, req *Request) (*Response, error) {
	return c.get(ctx, req, false)
}

func (c *Cache) get(ctx context.Context, req *Request, allowInsecure bool) (*Response, error) {
	var entry *Entry
	if req.Method == http.MethodGet && req.UseCaches {
		e, ok, err := c.store.Get(ctx, req.URI)
		if err != nil {
			return nil, err
		}
		if ok {
			entry = e
		}
	}

	d := lookup(c.clock.now(), req, entry, allowInsecure)
	switch d.Action {
	case ActionFresh:
		c.hits.Add(1)
		c.collector.RecordLookup("hit")
		return entryResponse(d.Entry, d.Warnings, nil), nil

	case ActionRevalidate:
		// Neither a hit nor a miss yet; Update or the replacement fetch
		// resolves the count.
		c.collector.RecordLookup("revalidate")
		return entryResponse(d.Entry, d.Warnings, d.Conditional), nil

	case ActionGatewayTimeout:
		c.misses.Add(1)
		c.collector.RecordLookup("gateway-timeout")
		return nil, nil

	default:
		c.misses.Add(1)
		c.collector.RecordLookup("miss")
		return nil, nil
	}
}

// Put offers a response for admission. Mutating methods invalidate the
// stored entry for the request URI and are themselves never stored.
func (c *Cache) Put(ctx context.Context, req *Request, info *ResponseInfo) (*EntryWriter, error) {
	if isMutating(req.Method) {
		if err := c.Invalidate(ctx, req.URI); err != nil {
			return nil, err
		}
		c.collector.RecordAdmission(false, "method")
		return nil, nil
	}

	ok, reason := storable(req, info)
	c.collector.RecordAdmission(ok, reason)
	if !ok {
		GetLogger().Debug("response not storable", "uri", req.URI, "reason", reason)
		return nil, nil
	}

	receivedAt := info.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = c.clock.now()
	}
	statusLine := info.Proto + " " + info.Status
	entry := &Entry{
		URI:        req.URI,
		Method:     req.Method,
		Proto:      info.Proto,
		StatusCode: info.StatusCode,
		Status:     info.Status,
		Header:     HeaderMapFromHTTP(statusLine, info.Header),
		TLS:        info.TLS,
		ReceivedAt: receivedAt,
	}
	return newEntryWriter(c, entry, info.ContentLength), nil
}

// Update resolves a revalidation attempt. See ResponseCache.
func (c *Cache) Update(ctx context.Context, req *Request, info *ResponseInfo) (*Response, error) {
	if info.StatusCode != http.StatusNotModified {
		c.misses.Add(1)
		c.collector.RecordLookup("miss")
		return nil, nil
	}

	entry, ok, err := c.store.Get(ctx, req.URI)
	if err != nil {
		return nil, err
	}
	if !ok {
		// A 304 with nothing to merge falls through as a regular miss; the
		// engine surfaces the 304 to its caller as-is.
		c.misses.Add(1)
		c.collector.RecordLookup("miss")
		return nil, nil
	}

	merged := entry.mergeNotModified(info.Header, c.clock.now())
	if err := c.store.Set(ctx, req.URI, merged); err != nil {
		return nil, err
	}

	c.hits.Add(1)
	c.collector.RecordLookup("hit")
	return entryResponse(merged, nil, nil), nil
}

// Invalidate removes any stored entry for uri.
func (c *Cache) Invalidate(ctx context.Context, uri string) error {
	return c.store.Delete(ctx, uri)
}

// URIs returns the request URIs currently cached. Intended for tests and
// introspection.
func (c *Cache) URIs(ctx context.Context) ([]string, error) {
	return c.store.Keys(ctx)
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Successes: c.successes.Load(),
		Aborts:    c.aborts.Load(),
	}
}
