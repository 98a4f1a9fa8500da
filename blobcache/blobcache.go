// Package blobcache provides a respcache.KV implementation over Go Cloud
// Development Kit blob storage, for cloud-agnostic cache persistence.
//
// Supported providers follow from the drivers imported by the caller:
// Amazon S3, Google Cloud Storage, Azure Blob Storage, the local
// filesystem, and in-memory buckets for tests.
//
// Example usage with the filesystem driver:
//
//	import (
//	    _ "gocloud.dev/blob/fileblob"
//	    "github.com/tomatotech/respcache/blobcache"
//	)
//
//	kv, err := blobcache.New(ctx, blobcache.Config{
//	    BucketURL: "file:///var/cache/respcache",
//	})
package blobcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	"github.com/tomatotech/respcache"
)

// Config holds the configuration for the blob cache.
type Config struct {
	// BucketURL is the Go Cloud blob URL (e.g., "s3://bucket?region=us-west-2").
	// Ignored when Bucket is set.
	BucketURL string

	// KeyPrefix is prepended to all stored object names (default: "cache/").
	KeyPrefix string

	// Timeout bounds blob operations when the caller's context carries no
	// deadline (default: 30s).
	Timeout time.Duration

	// Bucket is an optional pre-opened bucket (if nil, BucketURL is used).
	Bucket *blob.Bucket
}

// KV is an implementation of respcache.KV over a blob bucket, one object
// per key.
type KV struct {
	bucket    *blob.Bucket
	keyPrefix string
	timeout   time.Duration
	ownBucket bool
}

var _ respcache.KV = (*KV)(nil)

// New opens the configured bucket and returns a KV over it.
func New(ctx context.Context, cfg Config) (*KV, error) {
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "cache/"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	bucket := cfg.Bucket
	ownBucket := false
	if bucket == nil {
		var err error
		bucket, err = blob.OpenBucket(ctx, cfg.BucketURL)
		if err != nil {
			return nil, fmt.Errorf("blobcache: opening bucket %q: %w", cfg.BucketURL, err)
		}
		ownBucket = true
	}

	return &KV{
		bucket:    bucket,
		keyPrefix: cfg.KeyPrefix,
		timeout:   cfg.Timeout,
		ownBucket: ownBucket,
	}, nil
}

// blobKey digests the key into an object name valid for every provider.
func (c *KV) blobKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return c.keyPrefix + hex.EncodeToString(h[:])
}

func (c *KV) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// Get returns the stored bytes for key if present.
func (c *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	r, err := c.bucket.NewReader(ctx, c.blobKey(key), nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("blobcache get failed for key %q: %w", key, err)
	}
	defer r.Close() //nolint:errcheck // best effort cleanup

	value, err := io.ReadAll(r)
	if err != nil {
		return nil, false, fmt.Errorf("blobcache read failed for key %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key.
func (c *KV) Set(ctx context.Context, key string, value []byte) error {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	if err := c.bucket.WriteAll(ctx, c.blobKey(key), value, nil); err != nil {
		return fmt.Errorf("blobcache set failed for key %q: %w", key, err)
	}
	return nil
}

// Delete removes the entry with the given key.
func (c *KV) Delete(ctx context.Context, key string) error {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	err := c.bucket.Delete(ctx, c.blobKey(key))
	if err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return fmt.Errorf("blobcache delete failed for key %q: %w", key, err)
	}
	return nil
}

// Keys is unsupported: object names are digests of the URI, so the original
// URIs cannot be recovered from the bucket listing.
func (c *KV) Keys(_ context.Context) ([]string, error) {
	return nil, respcache.ErrKeysUnsupported
}

// Close releases the bucket if this KV opened it.
func (c *KV) Close() error {
	if c.ownBucket {
		return c.bucket.Close()
	}
	return nil
}
