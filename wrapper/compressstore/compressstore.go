// Package compressstore provides KV wrappers that transparently compress
// stored entries to reduce storage requirements. Gzip, brotli and snappy
// are supported.
package compressstore

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/andybalholm/brotli"
	"github.com/golang/snappy"

	"github.com/tomatotech/respcache"
)

// Algorithm represents the compression algorithm in use.
type Algorithm int

const (
	// Gzip offers a good balance of compression and speed.
	Gzip Algorithm = iota
	// Brotli offers the best compression ratio, slower.
	Brotli
	// Snappy is the fastest, with a lower compression ratio.
	Snappy
)

// String returns the algorithm name.
func (a Algorithm) String() string {
	switch a {
	case Gzip:
		return "gzip"
	case Brotli:
		return "brotli"
	case Snappy:
		return "snappy"
	default:
		return "unknown"
	}
}

// Stats holds compression statistics.
type Stats struct {
	CompressedBytes   int64   // total bytes after compression
	UncompressedBytes int64   // total bytes before compression
	Entries           int64   // number of compressed entries written
	SavingsPercent    float64 // space savings percentage
}

// KV wraps a respcache.KV with transparent compression of stored values.
type KV struct {
	kv         respcache.KV
	algorithm  Algorithm
	level      int
	compress   func([]byte) ([]byte, error)
	decompress func([]byte) ([]byte, error)

	compressedBytes   atomic.Int64
	uncompressedBytes atomic.Int64
	entries           atomic.Int64
}

var _ respcache.KV = (*KV)(nil)

// NewGzip wraps kv with gzip compression at the given level
// (gzip.DefaultCompression when 0).
func NewGzip(kv respcache.KV, level int) (*KV, error) {
	if kv == nil {
		return nil, fmt.Errorf("kv cannot be nil")
	}
	if level == 0 {
		level = gzip.DefaultCompression
	}
	if level < gzip.HuffmanOnly || level > gzip.BestCompression {
		return nil, fmt.Errorf("invalid gzip compression level: %d", level)
	}
	c := &KV{kv: kv, algorithm: Gzip, level: level}
	c.compress = c.gzipCompress
	c.decompress = gzipDecompress
	return c, nil
}

// NewBrotli wraps kv with brotli compression at the given level (6 when 0).
func NewBrotli(kv respcache.KV, level int) (*KV, error) {
	if kv == nil {
		return nil, fmt.Errorf("kv cannot be nil")
	}
	if level == 0 {
		level = 6
	}
	if level < brotli.BestSpeed || level > brotli.BestCompression {
		return nil, fmt.Errorf("invalid brotli compression level: %d", level)
	}
	c := &KV{kv: kv, algorithm: Brotli, level: level}
	c.compress = c.brotliCompress
	c.decompress = brotliDecompress
	return c, nil
}

// NewSnappy wraps kv with snappy compression.
func NewSnappy(kv respcache.KV) (*KV, error) {
	if kv == nil {
		return nil, fmt.Errorf("kv cannot be nil")
	}
	c := &KV{kv: kv, algorithm: Snappy}
	c.compress = snappyCompress
	c.decompress = snappyDecompress
	return c, nil
}

// Get retrieves and decompresses the value for key.
func (c *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	compressed, ok, err := c.kv.Get(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	value, err := c.decompress(compressed)
	if err != nil {
		return nil, false, fmt.Errorf("compressstore: %s decompression failed for key %q: %w", c.algorithm, key, err)
	}
	return value, true, nil
}

// Set compresses and stores value under key.
func (c *KV) Set(ctx context.Context, key string, value []byte) error {
	compressed, err := c.compress(value)
	if err != nil {
		return fmt.Errorf("compressstore: %s compression failed for key %q: %w", c.algorithm, key, err)
	}
	c.uncompressedBytes.Add(int64(len(value)))
	c.compressedBytes.Add(int64(len(compressed)))
	c.entries.Add(1)
	return c.kv.Set(ctx, key, compressed)
}

// Delete removes the entry with the given key.
func (c *KV) Delete(ctx context.Context, key string) error {
	return c.kv.Delete(ctx, key)
}

// Keys delegates to the wrapped KV.
func (c *KV) Keys(ctx context.Context) ([]string, error) {
	return c.kv.Keys(ctx)
}

// Stats returns a snapshot of the compression statistics.
func (c *KV) Stats() Stats {
	s := Stats{
		CompressedBytes:   c.compressedBytes.Load(),
		UncompressedBytes: c.uncompressedBytes.Load(),
		Entries:           c.entries.Load(),
	}
	if s.UncompressedBytes > 0 {
		s.SavingsPercent = 100 * (1 - float64(s.CompressedBytes)/float64(s.UncompressedBytes))
	}
	return s
}

func (c *KV) gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := gzip.NewWriterLevel(&buf, c.level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gzipDecompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close() //nolint:errcheck // best effort cleanup
	return io.ReadAll(r)
}

func (c *KV) brotliCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := brotli.NewWriterLevel(&buf, c.level)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func brotliDecompress(data []byte) ([]byte, error) {
	return io.ReadAll(brotli.NewReader(bytes.NewReader(data)))
}

func snappyCompress(data []byte) ([]byte, error) {
	return snappy.Encode(nil, data), nil
}

func snappyDecompress(data []byte) ([]byte, error) {
	return snappy.Decode(nil, data)
}
