// Package metrics defines the interface for collecting response-cache
// metrics. The interface keeps the core free of any particular metrics
// system; the prometheus subpackage provides a real implementation.
package metrics

// Collector receives cache policy and lifecycle events.
type Collector interface {
	// RecordLookup records the resolution of one cache consult.
	// result is one of "hit", "miss", "revalidate" or "gateway-timeout".
	RecordLookup(result string)

	// RecordAdmission records an admission decision at put time. reason is
	// empty when stored is true, otherwise it names the refusing rule
	// (e.g. "status", "no-store", "vary", "authorization").
	RecordAdmission(stored bool, reason string)

	// RecordWriter records an entry writer reaching its terminal state.
	// outcome is "commit" or "abort"; sizeBytes is the body size observed.
	RecordWriter(outcome string, sizeBytes int64)
}

// NoOpCollector implements Collector with no-op operations. It is the
// default when metrics are not enabled.
type NoOpCollector struct{}

// RecordLookup does nothing.
func (NoOpCollector) RecordLookup(result string) {}

// RecordAdmission does nothing.
func (NoOpCollector) RecordAdmission(stored bool, reason string) {}

// RecordWriter does nothing.
func (NoOpCollector) RecordWriter(outcome string, sizeBytes int64) {}

// DefaultCollector is the default no-op collector.
var DefaultCollector Collector = NoOpCollector{}

var _ Collector = (*NoOpCollector)(nil)
