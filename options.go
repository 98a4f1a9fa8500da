package respcache

import (
	"fmt"
	"time"

	"github.com/tomatotech/respcache/metrics"
)

// Option configures a Cache. Use the With* functions to create Options.
type Option func(*Cache) error

// WithStore sets the backing Store. The default is an in-memory store.
func WithStore(s Store) Option {
	return func(c *Cache) error {
		if s == nil {
			return fmt.Errorf("store cannot be nil")
		}
		c.store = s
		return nil
	}
}

// WithKV sets the backing store to a byte-oriented KV backend, serialized
// through the wire codec.
func WithKV(kv KV) Option {
	return func(c *Cache) error {
		if kv == nil {
			return fmt.Errorf("kv backend cannot be nil")
		}
		c.store = NewKVStore(kv)
		return nil
	}
}

// WithCollector sets the metrics collector. The default collects nothing.
func WithCollector(col metrics.Collector) Option {
	return func(c *Cache) error {
		if col == nil {
			return fmt.Errorf("collector cannot be nil")
		}
		c.collector = col
		return nil
	}
}

// WithClock overrides the wall clock used by freshness math. Tests inject a
// fixed clock for determinism.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) error {
		if now == nil {
			return fmt.Errorf("clock cannot be nil")
		}
		c.clock = clockFunc(now)
		return nil
	}
}

// clockFunc adapts a plain function to the clock interface.
type clockFunc func() time.Time

func (f clockFunc) now() time.Time { return f() }
