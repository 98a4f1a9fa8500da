package respcache

// Warning header values inserted by the cache, per RFC 2616 Section 14.46.
// The warn-agent names the interposed connection layer.
const (
	// WarningResponseIsStale is added when a stale entry is served under the
	// client's max-stale allowance.
	WarningResponseIsStale = `110 HttpURLConnection "Response is stale"`

	// WarningHeuristicExpiration is added when an entry is served under a
	// heuristic freshness lifetime of a day or more.
	WarningHeuristicExpiration = `113 HttpURLConnection "Heuristic expiration"`
)
