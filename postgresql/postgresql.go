// Package postgresql provides a PostgreSQL implementation of respcache.KV
// using pgx.
package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNilPool is returned when a nil pool is provided.
var ErrNilPool = errors.New("postgresql: pool cannot be nil")

const (
	// DefaultTableName is the default table name for cache storage.
	DefaultTableName = "respcache"
	// defaultTimeout bounds operations when the caller's context has no
	// deadline.
	defaultTimeout = 5 * time.Second
)

// Config holds the configuration for the PostgreSQL cache.
type Config struct {
	// TableName is the table cache entries live in (default: "respcache").
	TableName string
	// Timeout bounds each operation when the caller's context carries no
	// deadline (default: 5s).
	Timeout time.Duration
}

// KV is an implementation of respcache.KV that stores entries in a
// PostgreSQL table with a TEXT key and BYTEA value.
type KV struct {
	pool      *pgxpool.Pool
	tableName string
	timeout   time.Duration
}

// New returns a KV over the given pool, creating the cache table if it does
// not exist.
func New(ctx context.Context, pool *pgxpool.Pool, cfg Config) (*KV, error) {
	if pool == nil {
		return nil, ErrNilPool
	}
	if cfg.TableName == "" {
		cfg.TableName = DefaultTableName
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	c := &KV{pool: pool, tableName: cfg.TableName, timeout: cfg.Timeout}

	ctx, cancel := c.opContext(ctx)
	defer cancel()
	_, err := pool.Exec(ctx, fmt.Sprintf(
		`CREATE TABLE IF NOT EXISTS %q (key TEXT PRIMARY KEY, value BYTEA NOT NULL, updated_at TIMESTAMPTZ NOT NULL DEFAULT now())`,
		cfg.TableName))
	if err != nil {
		return nil, fmt.Errorf("postgresql: creating table %q: %w", cfg.TableName, err)
	}
	return c, nil
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

	var value []byte
	query := fmt.Sprintf(`SELECT value FROM %q WHERE key = $1`, c.tableName)
	err := c.pool.QueryRow(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("postgresql get failed for key %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key.
func (c *KV) Set(ctx context.Context, key string, value []byte) error {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	query := fmt.Sprintf(
		`INSERT INTO %q (key, value, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		c.tableName)
	if _, err := c.pool.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("postgresql set failed for key %q: %w", key, err)
	}
	return nil
}

// Delete removes the entry with the given key.
func (c *KV) Delete(ctx context.Context, key string) error {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	query := fmt.Sprintf(`DELETE FROM %q WHERE key = $1`, c.tableName)
	if _, err := c.pool.Exec(ctx, query, key); err != nil {
		return fmt.Errorf("postgresql delete failed for key %q: %w", key, err)
	}
	return nil
}

// Keys enumerates the stored keys.
func (c *KV) Keys(ctx context.Context) ([]string, error) {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	query := fmt.Sprintf(`SELECT key FROM %q ORDER BY key`, c.tableName)
	rows, err := c.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("postgresql key listing failed: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("postgresql key scan failed: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgresql key listing failed: %w", err)
	}
	return keys, nil
}
