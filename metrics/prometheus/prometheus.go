// Package prometheus provides a Prometheus implementation of the
// metrics.Collector interface. It is optional and only imported when
// Prometheus metrics are needed.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tomatotech/respcache/metrics"
)

// Collector implements metrics.Collector for Prometheus.
type Collector struct {
	lookups    *prometheus.CounterVec
	admissions *prometheus.CounterVec
	writers    *prometheus.CounterVec
	bodyBytes  *prometheus.CounterVec
}

// CollectorConfig provides configuration options for the Prometheus
// collector.
type CollectorConfig struct {
	// Registry is the Prometheus registry to use. If nil, uses
	// prometheus.DefaultRegisterer.
	Registry prometheus.Registerer

	// Namespace for metrics (default: "respcache").
	Namespace string

	// Subsystem for metrics (optional).
	Subsystem string

	// ConstLabels are labels added to all metrics.
	ConstLabels prometheus.Labels
}

// NewCollector creates a collector on the default registry.
func NewCollector() *Collector {
	return NewCollectorWithConfig(CollectorConfig{})
}

// NewCollectorWithRegistry creates a collector on a custom registry.
func NewCollectorWithRegistry(reg prometheus.Registerer) *Collector {
	return NewCollectorWithConfig(CollectorConfig{Registry: reg})
}

// NewCollectorWithConfig creates a collector with custom configuration.
func NewCollectorWithConfig(config CollectorConfig) *Collector {
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}
	if config.Namespace == "" {
		config.Namespace = "respcache"
	}

	factory := promauto.With(config.Registry)

	return &Collector{
		lookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   config.Namespace,
				Subsystem:   config.Subsystem,
				Name:        "lookups_total",
				Help:        "Total number of cache consults by resolution",
				ConstLabels: config.ConstLabels,
			},
			[]string{"result"},
		),
		admissions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   config.Namespace,
				Subsystem:   config.Subsystem,
				Name:        "admissions_total",
				Help:        "Total number of admission decisions at put time",
				ConstLabels: config.ConstLabels,
			},
			[]string{"stored", "reason"},
		),
		writers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   config.Namespace,
				Subsystem:   config.Subsystem,
				Name:        "writers_total",
				Help:        "Total number of entry writers by terminal state",
				ConstLabels: config.ConstLabels,
			},
			[]string{"outcome"},
		),
		bodyBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   config.Namespace,
				Subsystem:   config.Subsystem,
				Name:        "writer_body_bytes_total",
				Help:        "Total body bytes observed by entry writers",
				ConstLabels: config.ConstLabels,
			},
			[]string{"outcome"},
		),
	}
}

// RecordLookup implements metrics.Collector.
func (c *Collector) RecordLookup(result string) {
	c.lookups.WithLabelValues(result).Inc()
}

// RecordAdmission implements metrics.Collector.
func (c *Collector) RecordAdmission(stored bool, reason string) {
	storedLabel := "false"
	if stored {
		storedLabel = "true"
	}
	c.admissions.WithLabelValues(storedLabel, reason).Inc()
}

// RecordWriter implements metrics.Collector.
func (c *Collector) RecordWriter(outcome string, sizeBytes int64) {
	c.writers.WithLabelValues(outcome).Inc()
	c.bodyBytes.WithLabelValues(outcome).Add(float64(sizeBytes))
}

var _ metrics.Collector = (*Collector)(nil)
