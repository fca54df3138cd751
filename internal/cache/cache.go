// Package cache holds a time-boxed snapshot of the full piece collection in
// the richer local persistent store. Every access is routed through the
// operation queue and any underlying failure degrades to a safe fallback,
// nil for reads, a silent no-op for writes, instead of propagating.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"piececore/internal/opqueue"
	"piececore/pkg/domain"
)

// Key is the fixed local-store key holding the snapshot.
const Key = "pieces_cache"

// Expiry bounds snapshot staleness. An entry older than this is treated as
// absent and purged.
const Expiry = 5 * time.Minute

// entry wraps a snapshot with the write time in epoch milliseconds.
type entry struct {
	Data      []domain.Piece `json:"data"`
	Timestamp int64          `json:"timestamp"`
}

// Cache is the local snapshot store. Construct with New.
type Cache struct {
	kv     domain.KeyValueStore
	queue  *opqueue.Queue
	logger domain.Logger
	now    func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger wires a logger for degradation warnings.
func WithLogger(l domain.Logger) Option { return func(c *Cache) { c.logger = l } }

// WithClock overrides the time source. Test hook.
func WithClock(now func() time.Time) Option { return func(c *Cache) { c.now = now } }

// New builds a cache over the given local store and operation queue.
func New(kv domain.KeyValueStore, queue *opqueue.Queue, opts ...Option) *Cache {
	c := &Cache{
		kv:     kv,
		queue:  queue,
		logger: domain.NopLogger{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached snapshot, or nil when the cache is absent, stale,
// malformed, or unreadable. A stale entry is removed asynchronously without
// blocking the read. Legacy unwrapped snapshots (a bare array) are returned
// as-is for backward compatibility.
func (c *Cache) Get() []domain.Piece {
	val, err := c.queue.Enqueue(func(ctx context.Context) (any, error) {
		raw, ok, err := c.kv.GetItem(ctx, Key)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		return raw, nil
	})
	if err != nil {
		c.logger.Warn("cache read failed", "error", err)
		return nil
	}
	raw, _ := val.([]byte)
	if len(raw) == 0 {
		return nil
	}

	if legacy := bytes.HasPrefix(bytes.TrimSpace(raw), []byte("[")); legacy {
		var data []domain.Piece
		if err := json.Unmarshal(raw, &data); err != nil {
			c.logger.Warn("cache entry malformed", "error", err)
			return nil
		}
		return data
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		c.logger.Warn("cache entry malformed", "error", err)
		return nil
	}
	age := c.now().UnixMilli() - e.Timestamp
	if age >= Expiry.Milliseconds() {
		// Stale: purge in the background, never block the read on it.
		go c.Invalidate()
		return nil
	}
	return e.Data
}

// Set stores a fresh snapshot. A nil slice is rejected silently; storage
// failures are logged and swallowed.
func (c *Cache) Set(data []domain.Piece) {
	if data == nil {
		return
	}
	payload, err := json.Marshal(entry{Data: data, Timestamp: c.now().UnixMilli()})
	if err != nil {
		c.logger.Warn("cache encode failed", "error", err)
		return
	}
	if _, err := c.queue.Enqueue(func(ctx context.Context) (any, error) {
		return nil, c.kv.SetItem(ctx, Key, payload)
	}); err != nil {
		c.logger.Warn("cache write failed", "error", err)
	}
}

// Invalidate removes the snapshot so the next read repopulates from the
// remote service. Mutations always invalidate; the cache is never patched
// in place.
func (c *Cache) Invalidate() {
	if _, err := c.queue.Enqueue(func(ctx context.Context) (any, error) {
		return nil, c.kv.RemoveItem(ctx, Key)
	}); err != nil {
		c.logger.Warn("cache invalidation failed", "error", err)
	}
}
