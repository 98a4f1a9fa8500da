// Package test provides a conformance harness for respcache.KV
// implementations. Backend packages call test.KV from their tests.
package test

import (
	"bytes"
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/tomatotech/respcache"
)

// KV exercises a respcache.KV implementation.
func KV(t *testing.T, kv respcache.KV) {
	t.Helper()
	ctx := context.Background()
	key := "https://example.com/resource"

	_, ok, err := kv.Get(ctx, key)
	if err != nil {
		t.Fatalf("error getting key: %v", err)
	}
	if ok {
		t.Fatal("retrieved key before adding it")
	}

	val := []byte("some bytes")
	if err := kv.Set(ctx, key, val); err != nil {
		t.Fatalf("error setting key: %v", err)
	}

	retVal, ok, err := kv.Get(ctx, key)
	if err != nil {
		t.Fatalf("error getting key: %v", err)
	}
	if !ok {
		t.Fatal("could not retrieve an element we just added")
	}
	if !bytes.Equal(retVal, val) {
		t.Fatal("retrieved a different value than what we put in")
	}

	keys, err := kv.Keys(ctx)
	switch {
	case errors.Is(err, respcache.ErrKeysUnsupported):
		// Backends without enumeration are conforming.
	case err != nil:
		t.Fatalf("error listing keys: %v", err)
	case !slices.Contains(keys, key):
		t.Fatalf("key listing %v does not contain %q", keys, key)
	}

	if err := kv.Delete(ctx, key); err != nil {
		t.Fatalf("error deleting key: %v", err)
	}

	_, ok, err = kv.Get(ctx, key)
	if err != nil {
		t.Fatalf("error getting key: %v", err)
	}
	if ok {
		t.Fatal("deleted key still present")
	}

	if err := kv.Delete(ctx, key); err != nil {
		t.Fatalf("deleting an absent key should not error: %v", err)
	}
}
