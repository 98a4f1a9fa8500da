package respcache

import (
	"net/http"
	"time"
)

// Action is the outcome of a lookup against a stored entry.
type Action int

const (
	// ActionMiss means the request must go to the network and the entry (if
	// any) is ignored.
	ActionMiss Action = iota
	// ActionFresh means the stored entry satisfies the request as-is.
	ActionFresh
	// ActionRevalidate means the stored entry is usable only after a
	// successful conditional request.
	ActionRevalidate
	// ActionGatewayTimeout means the request demanded only-if-cached and no
	// usable entry exists; the engine must synthesize a 504.
	ActionGatewayTimeout
)

// String implements fmt.Stringer for logging.
func (a Action) String() string {
	switch a {
	case ActionMiss:
		return "miss"
	case ActionFresh:
		return "fresh"
	case ActionRevalidate:
		return "revalidate"
	case ActionGatewayTimeout:
		return "gateway-timeout"
	default:
		return "unknown"
	}
}

// Decision is the full result of a lookup: the action, the entry it applies
// to, conditional headers to attach when revalidating, and any Warning
// values the cache must insert into a served response.
type Decision struct {
	Action      Action
	Entry       *Entry
	Conditional http.Header
	Warnings    []string
}

// cacheableStatusCodes are the response codes admitted to the cache. 301 is
// the only cached redirect; partial content is always refused.
var cacheableStatusCodes = map[int]bool{
	http.StatusOK:                   true, // 200
	http.StatusNonAuthoritativeInfo: true, // 203
	http.StatusMultipleChoices:      true, // 300
	http.StatusMovedPermanently:     true, // 301
	http.StatusGone:                 true, // 410
}

// storable decides whether a response may be stored for the given request.
// The second result names the refusal for logging and metrics.
func storable(req *Request, info *ResponseInfo) (bool, string) {
	if !req.UseCaches {
		return false, "use-caches-disabled"
	}
	if req.Method != http.MethodGet {
		return false, "method"
	}
	if !cacheableStatusCodes[info.StatusCode] {
		return false, "status"
	}
	if info.Header.Get("Content-Range") != "" {
		return false, "partial-content"
	}

	respCC := parseCacheControl(info.Header)
	reqCC := parseCacheControl(req.Header)
	if respCC.has("no-store") || reqCC.has("no-store") {
		return false, "no-store"
	}

	if vary := info.Header.Get("Vary"); vary != "" {
		// Variants are not negotiated; refusing all of them avoids
		// cross-variant collisions.
		return false, "vary"
	}

	if req.Header.Get("Authorization") != "" {
		if !respCC.has("s-maxage") && !respCC.has("public") && !respCC.has("must-revalidate") {
			return false, "authorization"
		}
	}

	if !contentLocationMatches(req, info.Header.Get("Content-Location")) {
		return false, "content-location"
	}

	return true, ""
}

// contentLocationMatches reports whether the Content-Location header, if
// present, names the request URI itself. Responses advertising an alternate
// location are not stored against the request URI.
func contentLocationMatches(req *Request, contentLocation string) bool {
	if contentLocation == "" {
		return true
	}
	if req.url == nil {
		return false
	}
	resolved, err := req.url.Parse(contentLocation)
	if err != nil {
		return false
	}
	return resolved.String() == req.url.String()
}

// lookup decides what to do with the stored entry (possibly nil) for the
// given request. allowInsecure permits a plain entry to satisfy an https
// request; it is enabled by the insecure-allowing facade decorator.
func lookup(now time.Time, req *Request, e *Entry, allowInsecure bool) Decision {
	reqCC := parseCacheControl(req.Header)
	onlyIfCached := reqCC.has("only-if-cached")

	unusable := func() Decision {
		if onlyIfCached {
			return Decision{Action: ActionGatewayTimeout}
		}
		return Decision{Action: ActionMiss}
	}
	revalidate := func(cond http.Header) Decision {
		if onlyIfCached {
			return Decision{Action: ActionGatewayTimeout}
		}
		return Decision{Action: ActionRevalidate, Entry: e, Conditional: cond}
	}

	if req.Method != http.MethodGet {
		return unusable()
	}
	if !req.UseCaches {
		return unusable()
	}
	if e == nil {
		return unusable()
	}

	if e.TLS != nil && !req.secure() {
		return unusable()
	}
	if e.TLS == nil && req.secure() && !allowInsecure {
		return unusable()
	}

	if reqCC.has("no-store") {
		return unusable()
	}

	if req.hasConditions() {
		// The client brought its own preconditions; the entry's validators
		// are suppressed and the engine revalidates with the client's
		// conditions as-is.
		return revalidate(http.Header{})
	}

	respCC := parseCacheControl(e.Header)
	f := computeFreshness(now, e, respCC)

	if respCC.has("no-cache") || reqCC.has("no-cache") {
		return revalidate(validators(e))
	}

	var warnings []string
	if f.needsHeuristicWarning() {
		warnings = append(warnings, WarningHeuristicExpiration)
	}

	minFresh := time.Duration(0)
	if n, ok := reqCC.seconds("min-fresh"); ok {
		minFresh = time.Duration(n) * time.Second
	}
	withinLifetime := f.lifetime > 0 && f.age <= f.lifetime-minFresh
	if maxAge, ok := reqCC.seconds("max-age"); ok && f.age > time.Duration(maxAge)*time.Second {
		withinLifetime = false
	}
	if withinLifetime {
		return Decision{Action: ActionFresh, Entry: e, Warnings: warnings}
	}

	if limit, wildcard, ok := reqCC.maxStale(); ok && !respCC.has("must-revalidate") {
		if wildcard || f.staleness() <= time.Duration(limit)*time.Second {
			return Decision{
				Action:   ActionFresh,
				Entry:    e,
				Warnings: append(warnings, WarningResponseIsStale),
			}
		}
	}

	if e.hasValidator() {
		return revalidate(validators(e))
	}

	return unusable()
}

// validators synthesizes the conditional headers for revalidating an entry.
// Both If-None-Match and If-Modified-Since are emitted when both validators
// exist.
func validators(e *Entry) http.Header {
	cond := http.Header{}
	if etag := e.etag(); etag != "" {
		cond.Set("If-None-Match", etag)
	}
	if lm := e.lastModified(); lm != "" {
		cond.Set("If-Modified-Since", lm)
	}
	return cond
}
