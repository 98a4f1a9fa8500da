package respcache

import "context"

// InsecureCache is a decorator that lets entries stored from plain-HTTP
// responses satisfy https requests. Entries carrying TLS metadata still
// never satisfy plain requests. All other behaviour delegates to the
// wrapped Cache.
type InsecureCache struct {
	cache *Cache
}

var _ ResponseCache = (*InsecureCache)(nil)

// NewInsecureCache wraps c with the insecure-allow lookup policy.
func NewInsecureCache(c *Cache) *InsecureCache {
	return &InsecureCache{cache: c}
}

// Get consults the wrapped cache, permitting insecure hits.
func (i *InsecureCache) Get(ctx context.Context, req *Request) (*Response, error) {
	return i.cache.get(ctx, req, true)
}

// Put delegates to the wrapped cache.
func (i *InsecureCache) Put(ctx context.Context, req *Request, info *ResponseInfo) (*EntryWriter, error) {
	return i.cache.Put(ctx, req, info)
}

// Update delegates to the wrapped cache.
func (i *InsecureCache) Update(ctx context.Context, req *Request, info *ResponseInfo) (*Response, error) {
	return i.cache.Update(ctx, req, info)
}

// Invalidate delegates to the wrapped cache.
func (i *InsecureCache) Invalidate(ctx context.Context, uri string) error {
	return i.cache.Invalidate(ctx, uri)
}

// Stats returns the wrapped cache's counters.
func (i *InsecureCache) Stats() Stats { return i.cache.Stats() }
