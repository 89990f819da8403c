package cache

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/postboard/observe"
	"github.com/jonwraymond/postboard/tags"
)

// Cache runs Queries against a Store.
//
// Contract:
// - Concurrency: safe for concurrent use; at most one fetch per key and
//   invalidation generation is in flight at a time.
// - Errors: fetch errors are returned unchanged and never cached.
// - Invalidation: a result fetched before an invalidation is never stored
//   after it, and readers arriving after it never share that fetch.
type Cache struct {
	store  Store
	policy Policy
	mw     *observe.Middleware
	log    observe.Logger
	group  singleflight.Group

	// mu is held exclusively while gen advances and tags are dropped, and
	// shared while a writer compares gen and stores.
	mu  sync.RWMutex
	gen atomic.Uint64
}

// New creates a Cache. A nil mw records nothing.
func New(store Store, policy Policy, mw *observe.Middleware) *Cache {
	if mw == nil {
		mw = observe.NopMiddleware()
	}
	return &Cache{
		store:  store,
		policy: policy,
		mw:     mw,
		log:    mw.Logger().With("cache"),
	}
}

// Store returns the underlying store.
func (c *Cache) Store() Store { return c.store }

// Invalidator returns an Invalidator for the same store. Results fetched
// before one of its calls finishes are returned but not stored.
func (c *Cache) Invalidator() *Invalidator {
	inv := NewInvalidator(c.store, c.mw)
	inv.exclusive = c.exclusive
	return inv
}

// Generation returns the current invalidation generation. Pass it to
// SetIfCurrent after computing a value outside of Query.
func (c *Cache) Generation() uint64 { return c.gen.Load() }

// SetIfCurrent stores value unless an invalidation started after gen was
// read. It reports whether the value was stored.
func (c *Cache) SetIfCurrent(ctx context.Context, gen uint64, key string, value []byte, ttl time.Duration, ts []tags.Tag) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.gen.Load() != gen {
		return false, nil
	}
	if err := c.store.Set(ctx, key, value, ttl, ts); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Cache) exclusive(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen.Add(1)
	fn()
}

// FetchFunc loads the value a Query caches.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Query is a cached read: a key, the tags the entry is created with, a
// revalidate duration and the fetch function used on a miss.
type Query[T any] struct {
	cache      *Cache
	name       string
	key        Key
	tags       []tags.Tag
	revalidate time.Duration
	fetch      FetchFunc[T]
}

// NewQuery binds fetch to c under key. revalidate <= 0 uses the policy default.
func NewQuery[T any](c *Cache, key Key, ts []tags.Tag, revalidate time.Duration, fetch FetchFunc[T]) *Query[T] {
	return &Query[T]{
		cache:      c,
		name:       key.Name(),
		key:        key,
		tags:       tags.Set(ts...),
		revalidate: revalidate,
		fetch:      fetch,
	}
}

// Named sets the label used for metrics and spans. It defaults to the first
// key segment; set it when that segment embeds an id.
func (q *Query[T]) Named(name string) *Query[T] {
	q.name = name
	return q
}

// Name returns the metrics label.
func (q *Query[T]) Name() string { return q.name }

// Key returns the query's cache key.
func (q *Query[T]) Key() Key { return q.key }

// Tags returns the tags the entry is stored with.
func (q *Query[T]) Tags() []tags.Tag { return q.tags }

// Revalidate returns the configured revalidate duration.
func (q *Query[T]) Revalidate() time.Duration { return q.revalidate }

type flightResult[T any] struct {
	value T
	raw   []byte
}

// Get returns the cached value if fresh, otherwise fetches, stores and
// returns it. Every caller receives its own decoded copy.
func (q *Query[T]) Get(ctx context.Context) (T, error) {
	c := q.cache
	if c == nil || c.store == nil {
		return q.fetch(ctx)
	}

	ttl := c.policy.EffectiveTTL(q.revalidate)
	key := q.key.String()
	if ttl <= 0 || ValidateKey(key) != nil {
		return q.fetch(ctx)
	}

	name := q.name
	if raw, ok := c.store.Get(ctx, key); ok {
		var v T
		err := json.Unmarshal(raw, &v)
		if err == nil {
			c.mw.Metrics().RecordCacheLookup(ctx, name, true)
			return v, nil
		}
		c.log.Warn(ctx, "dropping undecodable cache entry", observe.F("key", key), observe.Err(err))
		_ = c.store.Delete(ctx, key)
	}
	c.mw.Metrics().RecordCacheLookup(ctx, name, false)

	gen := c.gen.Load()
	flight := key + "#" + strconv.FormatUint(gen, 10)
	ch := c.group.DoChan(flight, func() (any, error) {
		return q.load(ctx, key, name, ttl, gen)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
	if res.Err != nil {
		var zero T
		return zero, res.Err
	}

	fr := res.Val.(flightResult[T])
	if !res.Shared || fr.raw == nil {
		return fr.value, nil
	}
	var v T
	if err := json.Unmarshal(fr.raw, &v); err != nil {
		return fr.value, nil
	}
	return v, nil
}

func (q *Query[T]) load(ctx context.Context, key, name string, ttl time.Duration, gen uint64) (flightResult[T], error) {
	c := q.cache
	var out flightResult[T]

	op := observe.Operation{Kind: "query", Name: name, Key: key, Tags: tags.Strings(q.tags)}
	start := time.Now()
	err := c.mw.Run(ctx, op, func(ctx context.Context) error {
		v, err := q.fetch(ctx)
		if err != nil {
			return err
		}
		out.value = v
		return nil
	})
	c.mw.Metrics().RecordFetch(ctx, name, time.Since(start), err)
	if err != nil {
		return out, err
	}

	raw, err := json.Marshal(out.value)
	if err != nil {
		c.log.Warn(ctx, "result not cacheable", observe.F("key", key), observe.Err(err))
		return out, nil
	}
	out.raw = raw

	stored, err := c.SetIfCurrent(ctx, gen, key, raw, ttl, q.tags)
	switch {
	case err != nil:
		c.log.Warn(ctx, "cache write failed", observe.F("key", key), observe.Err(err))
	case !stored:
		c.log.Debug(ctx, "skipping cache write after concurrent invalidation", observe.F("key", key))
	}
	return out, nil
}
