package respcache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
)

// ErrWriterClosed is returned by EntryWriter operations after the writer has
// already committed or aborted.
var ErrWriterClosed = errors.New("respcache: entry writer already closed")

const (
	writerOpen = iota
	writerCommitted
	writerAborted
)

// EntryWriter streams a response body into a pending Entry while the engine
// delivers it to the caller. The writer transitions exactly once: Commit on
// clean end-of-stream places the entry in the Store, anything else discards
// the buffer. A writer that is garbage collected while still open aborts by
// omission.
type EntryWriter struct {
	cache    *Cache
	entry    *Entry
	declared int64 // Content-Length, -1 when unknown

	mu    sync.Mutex
	state int
	buf   bytes.Buffer
}

func newEntryWriter(c *Cache, entry *Entry, declared int64) *EntryWriter {
	w := &EntryWriter{cache: c, entry: entry, declared: declared}
	runtime.SetFinalizer(w, (*EntryWriter).finalize)
	return w
}

// Write appends body bytes to the pending entry. The engine must pass every
// byte the origin serves through the writer, including bytes the caller
// skips over.
func (w *EntryWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != writerOpen {
		return 0, ErrWriterClosed
	}
	return w.buf.Write(p)
}

// Commit finalizes the entry on clean end-of-stream and places it in the
// Store, replacing any prior entry for the URI atomically. If the body
// length does not match the declared Content-Length the writer aborts
// instead and an error is returned.
func (w *EntryWriter) Commit() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != writerOpen {
		return ErrWriterClosed
	}

	if w.declared >= 0 && int64(w.buf.Len()) != w.declared {
		err := fmt.Errorf("respcache: body length %d does not match declared length %d", w.buf.Len(), w.declared)
		w.abortLocked()
		return err
	}

	w.entry.Body = w.buf.Bytes()
	if err := w.cache.store.Set(context.Background(), w.entry.URI, w.entry); err != nil {
		GetLogger().Warn("failed to store committed entry", "uri", w.entry.URI, "error", err)
		w.abortLocked()
		return err
	}

	w.state = writerCommitted
	runtime.SetFinalizer(w, nil)
	w.cache.successes.Add(1)
	w.cache.collector.RecordWriter("commit", int64(len(w.entry.Body)))
	return nil
}

// Abort discards the buffered body. Aborting a writer that already committed
// or aborted is a no-op.
func (w *EntryWriter) Abort() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state != writerOpen {
		return
	}
	w.abortLocked()
}

// Close implements io.Closer: closing an open writer before end-of-stream
// aborts it.
func (w *EntryWriter) Close() error {
	w.Abort()
	return nil
}

func (w *EntryWriter) abortLocked() {
	size := int64(w.buf.Len())
	w.state = writerAborted
	w.buf.Reset()
	runtime.SetFinalizer(w, nil)
	w.cache.aborts.Add(1)
	w.cache.collector.RecordWriter("abort", size)
}

// finalize aborts a writer abandoned without a terminal transition.
func (w *EntryWriter) finalize() {
	w.Abort()
}
