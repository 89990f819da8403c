package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/jonwraymond/postboard/tags"
)

// MemoryConfig configures a MemoryCache.
type MemoryConfig struct {
	// MaxEntries bounds the cache; the least recently used entry is evicted
	// first. Zero means unbounded.
	MaxEntries int

	// Now overrides the clock. Defaults to time.Now.
	Now func() time.Time
}

// MemoryCache is an in-memory Store with a tag->keys secondary index.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	byTag   map[tags.Tag]map[string]struct{}
	lru     *list.List // front is most recently used
	max     int
	now     func() time.Time
}

type cacheEntry struct {
	key       string
	value     []byte
	tags      []tags.Tag
	expiresAt time.Time
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache(cfg MemoryConfig) *MemoryCache {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	max := cfg.MaxEntries
	if max < 0 {
		max = 0
	}
	return &MemoryCache{
		entries: make(map[string]*list.Element),
		byTag:   make(map[tags.Tag]map[string]struct{}),
		lru:     list.New(),
		max:     max,
		now:     now,
	}
}

// Get returns the value stored under key. Expired entries are removed lazily.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*cacheEntry)
	if c.now().After(entry.expiresAt) {
		c.removeLocked(el)
		return nil, false
	}
	c.lru.MoveToFront(el)
	return entry.value, true
}

// Set stores value under key with the given tags. A non-positive ttl stores
// nothing. Replacing a key also replaces its tags.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration, ts []tags.Tag) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if ttl <= 0 {
		return nil
	}

	entry := &cacheEntry{
		key:       key,
		value:     value,
		tags:      tags.Set(ts...),
		expiresAt: c.now().Add(ttl),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.removeLocked(el)
	}
	c.entries[key] = c.lru.PushFront(entry)
	for _, t := range entry.tags {
		keys := c.byTag[t]
		if keys == nil {
			keys = make(map[string]struct{})
			c.byTag[t] = keys
		}
		keys[key] = struct{}{}
	}

	for c.max > 0 && c.lru.Len() > c.max {
		c.removeLocked(c.lru.Back())
	}
	return nil
}

// Delete removes key. Idempotent.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	if el, ok := c.entries[key]; ok {
		c.removeLocked(el)
	}
	c.mu.Unlock()
	return nil
}

// InvalidateTag removes every entry tagged with tag.
func (c *MemoryCache) InvalidateTag(_ context.Context, tag tags.Tag) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.byTag[tag] {
		if el, ok := c.entries[key]; ok {
			c.removeLocked(el)
		}
	}
	delete(c.byTag, tag)
	return nil
}

// Purge drops all expired entries and returns how many were removed.
func (c *MemoryCache) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for el := c.lru.Back(); el != nil; {
		prev := el.Prev()
		if now.After(el.Value.(*cacheEntry).expiresAt) {
			c.removeLocked(el)
			removed++
		}
		el = prev
	}
	return removed
}

// Len returns the number of entries, including expired ones not yet purged.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Tagged reports how many live keys carry tag.
func (c *MemoryCache) Tagged(tag tags.Tag) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byTag[tag])
}

func (c *MemoryCache) removeLocked(el *list.Element) {
	entry := el.Value.(*cacheEntry)
	c.lru.Remove(el)
	delete(c.entries, entry.key)
	for _, t := range entry.tags {
		keys := c.byTag[t]
		delete(keys, entry.key)
		if len(keys) == 0 {
			delete(c.byTag, t)
		}
	}
}

var _ Store = (*MemoryCache)(nil)
