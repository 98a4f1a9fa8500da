package respcache

import (
	"net/url"
	"strings"
	"time"
)

// clock abstracts the wall clock for freshness math, allowing tests to pin
// time.
type clock interface {
	now() time.Time
}

type realClock struct{}

func (realClock) now() time.Time { return time.Now() }

// heuristicWarningThreshold is the heuristic lifetime at or above which a
// served response must carry Warning 113.
const heuristicWarningThreshold = 24 * time.Hour

// freshness is the result of applying RFC 2616 Section 13.2 math to a stored
// entry at lookup time.
type freshness struct {
	age       time.Duration
	lifetime  time.Duration
	heuristic bool
}

// stale reports whether the entry's age has exceeded its freshness lifetime.
// An entry without a positive lifetime is stale even at age zero.
func (f freshness) stale() bool { return f.lifetime <= 0 || f.age > f.lifetime }

// staleness returns how far past its lifetime the entry is, zero when fresh.
func (f freshness) staleness() time.Duration {
	if !f.stale() {
		return 0
	}
	return f.age - f.lifetime
}

// needsHeuristicWarning reports whether serving this entry requires
// Warning 113 (heuristic lifetime of a day or more).
func (f freshness) needsHeuristicWarning() bool {
	return f.heuristic && f.lifetime >= heuristicWarningThreshold
}

// computeFreshness derives the entry's current age and freshness lifetime.
//
// The served moment is the response's Date header when present, else the
// time the response was received. Lifetime comes from, in order of
// precedence: the response max-age directive, the Expires header relative to
// the Date value, or the 10% last-modified heuristic. The heuristic never
// fires for URIs carrying a query string. With none of the three, the
// lifetime is zero and the entry is immediately stale.
func computeFreshness(now time.Time, e *Entry, respCC cacheControl) freshness {
	served := e.ReceivedAt
	if dateHeader := e.Header.Get("Date"); dateHeader != "" {
		if date, err := ParseHTTPDate(dateHeader); err == nil {
			served = date
		} else {
			GetLogger().Warn("unparseable Date header on stored entry", "uri", e.URI, "value", dateHeader)
		}
	}

	f := freshness{age: secondsBetween(served, now)}

	if maxAge, ok := respCC.seconds("max-age"); ok {
		f.lifetime = time.Duration(maxAge) * time.Second
		return f
	}

	if expiresHeader := e.Header.Get("Expires"); expiresHeader != "" {
		expires, err := ParseHTTPDate(expiresHeader)
		if err != nil {
			// Per RFC 2616 Section 14.21 an invalid Expires date means
			// already expired.
			GetLogger().Warn("unparseable Expires header, treating entry as expired",
				"uri", e.URI, "value", expiresHeader)
			return f
		}
		// May be negative: stale on arrival, but still revalidatable when a
		// validator is present.
		f.lifetime = expires.Sub(served).Truncate(time.Second)
		return f
	}

	if lastModified := e.Header.Get("Last-Modified"); lastModified != "" && !uriHasQuery(e.URI) {
		if lm, err := ParseHTTPDate(lastModified); err == nil {
			f.lifetime = secondsBetween(lm, served) / 10
			f.heuristic = true
			return f
		}
	}

	return f
}

// uriHasQuery reports whether the URI carries a query string. Such URIs are
// denied heuristic freshness.
func uriHasQuery(uri string) bool {
	u, err := url.Parse(uri)
	if err != nil {
		return strings.Contains(uri, "?")
	}
	return u.RawQuery != ""
}
