package kvstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

// DefaultCacheSize bounds the number of keys a Cached store holds.
const DefaultCacheSize = 4096

type cacheEntry struct {
	value   []byte
	deleted bool
}

// Cached fronts a backend with a bounded LRU.
//
// Writes land in the cache before the backend. When the backend write fails the value moves
// to a pending set that is never evicted and is served to later reads, so the process keeps
// working in memory while persistence is unavailable; the error is still returned for
// logging. Pending writes are retried after the next successful backend write and on Close.
// Successful writes are only retained (and reads only cached) while Watch is active, because
// only then can external writes invalidate entries.
type Cached struct {
	inner Store
	cache *lru.Cache

	mu       sync.RWMutex
	watching bool
	pending  map[string]cacheEntry
}

// NewCached wraps inner. size <= 0 uses DefaultCacheSize.
func NewCached(inner Store, size int) (*Cached, error) {
	if inner == nil {
		return nil, errors.New("cached store requires a backend")
	}
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, fmt.Errorf("create lru: %w", err)
	}
	return &Cached{inner: inner, cache: cache, pending: make(map[string]cacheEntry)}, nil
}

func (c *Cached) isWatching() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.watching
}

func (c *Cached) Get(ctx context.Context, key string) ([]byte, error) {
	if entry, ok := c.pendingEntry(key); ok {
		if entry.deleted {
			return nil, ErrNotFound
		}
		return clone(entry.value), nil
	}
	if raw, ok := c.cache.Get(key); ok {
		entry := raw.(cacheEntry)
		if entry.deleted {
			return nil, ErrNotFound
		}
		return clone(entry.value), nil
	}

	value, err := c.inner.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if c.isWatching() {
		c.cache.Add(key, cacheEntry{value: clone(value)})
	}
	return value, nil
}

func (c *Cached) Set(ctx context.Context, key string, value []byte) error {
	return c.write(ctx, key, cacheEntry{value: clone(value)})
}

func (c *Cached) Delete(ctx context.Context, key string) error {
	return c.write(ctx, key, cacheEntry{deleted: true})
}

func (c *Cached) write(ctx context.Context, key string, entry cacheEntry) error {
	c.cache.Add(key, entry)
	if err := c.apply(ctx, key, entry); err != nil {
		c.mu.Lock()
		c.pending[key] = entry
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	delete(c.pending, key)
	retry := len(c.pending) > 0
	c.mu.Unlock()

	if !c.isWatching() {
		c.cache.Remove(key)
	}
	if retry {
		_ = c.Flush(ctx)
	}
	return nil
}

func (c *Cached) apply(ctx context.Context, key string, entry cacheEntry) error {
	if entry.deleted {
		return c.inner.Delete(ctx, key)
	}
	return c.inner.Set(ctx, key, entry.value)
}

func (c *Cached) pendingEntry(key string) (cacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.pending[key]
	return entry, ok
}

// Pending is the number of keys whose latest write has not reached the backend.
func (c *Cached) Pending() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.pending)
}

// Flush retries every pending write. Entries that still fail stay pending.
func (c *Cached) Flush(ctx context.Context) error {
	c.mu.RLock()
	snapshot := make(map[string]cacheEntry, len(c.pending))
	for key, entry := range c.pending {
		snapshot[key] = entry
	}
	c.mu.RUnlock()

	var errs []error
	for key, entry := range snapshot {
		if err := c.apply(ctx, key, entry); err != nil {
			errs = append(errs, fmt.Errorf("flush %s: %w", key, err))
			continue
		}
		c.mu.Lock()
		// A newer write may have replaced the entry while the backend call ran.
		if current, ok := c.pending[key]; ok && sameEntry(current, entry) {
			delete(c.pending, key)
		}
		c.mu.Unlock()
	}
	return errors.Join(errs...)
}

// Close makes a last attempt to persist pending writes before closing the backend.
func (c *Cached) Close() error {
	flushErr := c.Flush(context.Background())
	c.cache.Purge()
	return errors.Join(flushErr, c.inner.Close())
}

// Watch forwards backend changes that differ from what this process last wrote and
// invalidates the affected cache entries. Echoes of this process's own writes are dropped.
// When the backend cannot watch, Watch is a no-op.
func (c *Cached) Watch(ctx context.Context, fn func(Change)) error {
	watcher, ok := c.inner.(Watcher)
	if !ok {
		return nil
	}

	err := watcher.Watch(ctx, func(change Change) {
		if c.isEcho(change) {
			return
		}
		c.cache.Remove(change.Key)
		if fn != nil {
			fn(change)
		}
	})
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.watching = true
	c.mu.Unlock()
	return nil
}

func (c *Cached) isEcho(change Change) bool {
	entry, ok := c.pendingEntry(change.Key)
	if !ok {
		raw, found := c.cache.Peek(change.Key)
		if !found {
			return false
		}
		entry = raw.(cacheEntry)
	}
	switch change.Op {
	case OpDelete:
		return entry.deleted
	case OpSet:
		return !entry.deleted && change.Value != nil && bytes.Equal(entry.value, change.Value)
	default:
		return false
	}
}

func sameEntry(a, b cacheEntry) bool {
	return a.deleted == b.deleted && bytes.Equal(a.value, b.value)
}
