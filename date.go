// Package respcache implements a client-side HTTP/1.1 response cache: it
// stores responses on behalf of an HTTP client and on later requests serves
// them directly, revalidates them with conditional requests, or lets the
// request go to the network, following the freshness and invalidation rules
// of RFC 2616 Section 13.
package respcache

import (
	"errors"
	"net/http"
	"time"
)

// httpDateLayout is the preferred RFC 1123 date format with the GMT zone
// designator required on the wire.
const httpDateLayout = "Mon, 02 Jan 2006 15:04:05 GMT"

// ErrNoDateHeader indicates that the HTTP headers contained no Date header.
var ErrNoDateHeader = errors.New("respcache: no Date header")

// ParseHTTPDate parses an RFC 1123 date header value.
func ParseHTTPDate(value string) (time.Time, error) {
	return time.Parse(time.RFC1123, value)
}

// FormatHTTPDate formats t as an RFC 1123 date in GMT, the only zone
// designator HTTP permits.
func FormatHTTPDate(t time.Time) string {
	return t.UTC().Format(httpDateLayout)
}

// Date parses and returns the value of the Date header.
func Date(respHeaders http.Header) (date time.Time, err error) {
	dateHeader := respHeaders.Get("Date")
	if dateHeader == "" {
		err = ErrNoDateHeader
		return
	}
	return ParseHTTPDate(dateHeader)
}

// secondsBetween returns the duration from earlier to later truncated to
// whole seconds, never negative. Freshness math works in integer seconds.
func secondsBetween(earlier, later time.Time) time.Duration {
	d := later.Sub(earlier)
	if d < 0 {
		return 0
	}
	return d.Truncate(time.Second)
}
