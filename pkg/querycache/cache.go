package querycache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Status describes the fetch state of a cache entry.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSuccess
	StatusError
)

// Class selects the staleness window applied to an entry. Volatile entries
// (product and search lists) expire quickly and are additionally invalidated
// by mutations; reference entries (categories, brands, cities) live for a
// long window and ignore user mutations.
type Class int

const (
	ClassVolatile Class = iota
	ClassReference
)

// Entry is one cached query result. Entries are owned exclusively by the
// cache; callers receive copies of the metadata and the shared value.
type Entry struct {
	Key     Key
	Value   any
	Status  Status
	Err     error
	StaleAt time.Time
	Stale   bool
}

// Fresh reports whether the entry can be served without refetching.
func (e Entry) Fresh(now time.Time) bool {
	return e.Status == StatusSuccess && !e.Stale && now.Before(e.StaleAt)
}

type entry struct {
	key     Key
	class   Class
	value   any
	status  Status
	err     error
	staleAt time.Time
	stale   bool

	// inflight is non-nil while a fetch for this key is running; later
	// readers attach to it instead of issuing their own request.
	inflight *inflight
}

type inflight struct {
	done  chan struct{}
	value any
	err   error
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the clock used for staleness bookkeeping (useful in tests).
func WithClock(fn func() time.Time) Option {
	return func(c *Cache) {
		if fn != nil {
			c.now = fn
		}
	}
}

// WithTTL overrides the staleness window for a class.
func WithTTL(class Class, ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttls[class] = ttl
		}
	}
}

// Cache is the normalized query cache: key-addressed entries, per-key
// in-flight deduplication and shape-predicate invalidation. One instance is
// created per application session and cleared on logout.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttls    map[Class]time.Duration
	now     func() time.Time
}

// New creates an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]*entry),
		ttls: map[Class]time.Duration{
			ClassVolatile:  time.Minute,
			ClassReference: 30 * time.Minute,
		},
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Read returns a snapshot of the entry stored under key, if any.
func (c *Cache) Read(key Key) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key.canonical()]
	if !ok {
		return Entry{}, false
	}
	return e.snapshot(), true
}

// GetOrFetch returns the cached value under key when it is fresh, attaches
// to an in-flight fetch when one exists, and otherwise runs fetch and
// records its outcome. At most one fetch is ever in flight per key.
func (c *Cache) GetOrFetch(ctx context.Context, key Key, class Class, fetch func(context.Context) (any, error)) (any, error) {
	c.mu.Lock()
	canon := key.canonical()
	e, ok := c.entries[canon]
	if ok {
		if e.inflight != nil {
			fl := e.inflight
			c.mu.Unlock()
			return awaitInflight(ctx, fl)
		}
		if e.snapshot().Fresh(c.now()) {
			value := e.value
			c.mu.Unlock()
			return value, nil
		}
	} else {
		e = &entry{key: key.clone(), class: class}
		c.entries[canon] = e
	}

	fl := &inflight{done: make(chan struct{})}
	e.class = class
	e.status = StatusLoading
	e.inflight = fl
	c.mu.Unlock()

	value, err := fetch(ctx)

	c.mu.Lock()
	fl.value = value
	fl.err = err
	if current, ok := c.entries[canon]; ok && current == e {
		e.inflight = nil
		if err != nil {
			e.status = StatusError
			e.err = err
		} else {
			e.status = StatusSuccess
			e.err = nil
			e.value = value
			e.stale = false
			e.staleAt = c.now().Add(c.ttls[e.class])
		}
	}
	c.mu.Unlock()
	close(fl.done)

	return value, err
}

func awaitInflight(ctx context.Context, fl *inflight) (any, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-fl.done:
		return fl.value, fl.err
	}
}

// Invalidate marks every entry whose key matches the predicate as stale.
// Running is synchronous and idempotent: marking an already-stale entry is a
// no-op. A matching entry whose fetch is still in flight is detached: the
// superseded result is handed to readers already waiting on it but never
// recorded, and any read after the invalidation starts a fresh fetch.
func (c *Cache) Invalidate(pred Predicate) int {
	if pred == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	marked := 0
	for canon, e := range c.entries {
		if e.inflight != nil {
			if pred(e.key) {
				delete(c.entries, canon)
				marked++
			}
			continue
		}
		if e.status != StatusSuccess || e.stale {
			continue
		}
		if pred(e.key) {
			e.stale = true
			marked++
		}
	}
	return marked
}

// Clear removes every entry. Called on logout to tear the session down.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

// Len reports the number of entries currently held.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (e *entry) snapshot() Entry {
	return Entry{
		Key:     e.key.clone(),
		Value:   e.value,
		Status:  e.status,
		Err:     e.err,
		StaleAt: e.staleAt,
		Stale:   e.stale,
	}
}

// Fetch is the typed convenience wrapper over GetOrFetch.
func Fetch[T any](ctx context.Context, c *Cache, key Key, class Class, fetch func(context.Context) (T, error)) (T, error) {
	value, err := c.GetOrFetch(ctx, key, class, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := value.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("querycache: value under key %v is %T, not %T", key, value, zero)
	}
	return typed, nil
}
