package respcache

import (
	"strconv"
	"strings"
)

// cacheControl is a map of Cache-Control directive names to their values.
// A directive present without a value maps to the empty string.
type cacheControl map[string]string

// parseCacheControl tokenizes the comma-separated directive list from every
// Cache-Control header occurrence. A Pragma: no-cache header is folded in as
// the no-cache directive for HTTP/1.0 compatibility, on requests and
// responses alike.
//
// Duplicate directives keep the first occurrence; malformed values are
// dropped. Both conditions are logged.
func parseCacheControl(headers headerValues) cacheControl {
	cc := cacheControl{}

	for _, ccHeader := range headers.Values("Cache-Control") {
		for _, part := range strings.Split(ccHeader, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}

			directive, value, hasValue := strings.Cut(part, "=")
			directive = strings.ToLower(strings.TrimSpace(directive))
			if hasValue {
				value = strings.Trim(strings.TrimSpace(value), `"`)
			}

			if _, seen := cc[directive]; seen {
				GetLogger().Warn("duplicate Cache-Control directive, using first value",
					"directive", directive,
					"ignored_value", value)
				continue
			}
			cc[directive] = value
		}
	}

	for _, pragma := range headers.Values("Pragma") {
		if strings.EqualFold(strings.TrimSpace(pragma), "no-cache") {
			if _, ok := cc["no-cache"]; !ok {
				cc["no-cache"] = ""
			}
		}
	}

	return cc
}

// has reports whether the directive is present, with or without a value.
func (cc cacheControl) has(directive string) bool {
	_, ok := cc[directive]
	return ok
}

// seconds returns the integer-second value of a delta-seconds directive.
// The second result is false when the directive is absent or its value does
// not parse as a non-negative integer.
func (cc cacheControl) seconds(directive string) (int64, bool) {
	value, ok := cc[directive]
	if !ok || value == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		GetLogger().Warn("invalid Cache-Control delta-seconds value, ignoring directive",
			"directive", directive,
			"value", value)
		return 0, false
	}
	return n, true
}

// maxStale interprets the request max-stale directive. wildcard is true when
// the directive is present with no value, meaning any amount of staleness is
// acceptable.
func (cc cacheControl) maxStale() (limit int64, wildcard, ok bool) {
	value, present := cc["max-stale"]
	if !present {
		return 0, false, false
	}
	if value == "" {
		return 0, true, true
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		GetLogger().Warn("invalid max-stale value, treating as absent", "value", value)
		return 0, false, false
	}
	return n, false, true
}
