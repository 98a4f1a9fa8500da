// Package mongodb provides a MongoDB implementation of respcache.KV using
// the official mongo-driver.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// DefaultDatabase is the database used when none is configured.
	DefaultDatabase = "respcache"
	// DefaultCollection is the collection used when none is configured.
	DefaultCollection = "entries"
	// defaultTimeout bounds operations when the caller's context has no
	// deadline.
	defaultTimeout = 5 * time.Second
)

// Config holds the configuration for the MongoDB cache.
type Config struct {
	// Database is the database name (default: "respcache").
	Database string
	// Collection is the collection name (default: "entries").
	Collection string
	// Timeout bounds each operation when the caller's context carries no
	// deadline (default: 5s).
	Timeout time.Duration
}

// KV is an implementation of respcache.KV that stores entries in a MongoDB
// collection, one document per key.
type KV struct {
	coll    *mongo.Collection
	timeout time.Duration
}

// document is the stored shape: the cache key is the document id.
type document struct {
	Key   string `bson:"_id"`
	Value []byte `bson:"value"`
}

// New returns a KV over the given client.
func New(client *mongo.Client, cfg Config) (*KV, error) {
	if client == nil {
		return nil, errors.New("mongodb: client cannot be nil")
	}
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &KV{
		coll:    client.Database(cfg.Database).Collection(cfg.Collection),
		timeout: cfg.Timeout,
	}, nil
}

// opContext applies the fallback timeout when ctx carries no deadline.
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

	var doc document
	err := c.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("mongodb get failed for key %q: %w", key, err)
	}
	return doc.Value, true, nil
}

// Set stores value under key, replacing any existing document.
func (c *KV) Set(ctx context.Context, key string, value []byte) error {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	_, err := c.coll.ReplaceOne(ctx,
		bson.M{"_id": key},
		document{Key: key, Value: value},
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongodb set failed for key %q: %w", key, err)
	}
	return nil
}

// Delete removes the entry with the given key.
func (c *KV) Delete(ctx context.Context, key string) error {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	if _, err := c.coll.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("mongodb delete failed for key %q: %w", key, err)
	}
	return nil
}

// Keys enumerates the stored keys.
func (c *KV) Keys(ctx context.Context) ([]string, error) {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	values, err := c.coll.Distinct(ctx, "_id", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("mongodb key listing failed: %w", err)
	}
	keys := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			keys = append(keys, s)
		}
	}
	return keys, nil
}
