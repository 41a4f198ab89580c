// Package image renders fetched pictures into terminal escape strings. It
// crops pictures to cover a cell region, renders them with half-blocks or a
// graphics protocol, and keeps recent frames in an LRU cache.
package image

import (
	"container/list"
	"fmt"
	"sync"
	"sync/atomic"
)

// CacheKey identifies one rendered frame: the picture's source link, the
// protocol, and the target cell dimensions.
type CacheKey struct {
	Source   string
	Protocol string
	Width    int
	Height   int
}

// String returns a human-readable key for debugging.
func (k CacheKey) String() string {
	return fmt.Sprintf("%s:%dx%d:%s", k.Protocol, k.Width, k.Height, k.Source)
}

// CacheStats reports hit/miss counts for observability.
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Entries   int
	SizeBytes int64
}

type cacheEntry struct {
	key       CacheKey
	rendered  string
	sizeBytes int64
}

// Cache is a thread-safe LRU cache for rendered frames, bounded by the total
// byte size of the stored strings.
type Cache struct {
	mu        sync.Mutex
	items     map[CacheKey]*list.Element
	order     *list.List // front = most recent
	maxBytes  int64
	usedBytes int64

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// NewCache creates a cache holding at most maxMB megabytes. If maxMB is <= 0,
// 16 MB is used.
func NewCache(maxMB int) *Cache {
	if maxMB <= 0 {
		maxMB = 16
	}
	return &Cache{
		items:    make(map[CacheKey]*list.Element),
		order:    list.New(),
		maxBytes: int64(maxMB) * 1024 * 1024,
	}
}

// Get returns the cached frame for key and promotes it.
func (c *Cache) Get(key CacheKey) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.misses.Add(1)
		return "", false
	}
	c.order.MoveToFront(elem)
	c.hits.Add(1)
	return elem.Value.(*cacheEntry).rendered, true
}

// Put stores a frame, evicting least recently used frames until the cache is
// within its size bound. A frame larger than the whole cache is not stored.
func (c *Cache) Put(key CacheKey, rendered string) {
	size := int64(len(rendered))

	c.mu.Lock()
	defer c.mu.Unlock()

	if size > c.maxBytes {
		return
	}

	if elem, ok := c.items[key]; ok {
		old := elem.Value.(*cacheEntry)
		c.usedBytes += size - old.sizeBytes
		old.rendered = rendered
		old.sizeBytes = size
		c.order.MoveToFront(elem)
		c.evictLocked()
		return
	}

	for c.usedBytes+size > c.maxBytes && c.order.Len() > 0 {
		c.evictBackLocked()
	}

	c.items[key] = c.order.PushFront(&cacheEntry{key: key, rendered: rendered, sizeBytes: size})
	c.usedBytes += size
}

// Invalidate clears all cache entries.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[CacheKey]*list.Element)
	c.order.Init()
	c.usedBytes = 0
}

// Stats returns current cache statistics.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return CacheStats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Entries:   c.order.Len(),
		SizeBytes: c.usedBytes,
	}
}

// evictLocked evicts from the back until under maxBytes. Caller holds c.mu.
func (c *Cache) evictLocked() {
	for c.usedBytes > c.maxBytes && c.order.Len() > 0 {
		c.evictBackLocked()
	}
}

// evictBackLocked removes the least recently used entry. Caller holds c.mu.
func (c *Cache) evictBackLocked() {
	back := c.order.Back()
	if back == nil {
		return
	}
	entry := c.order.Remove(back).(*cacheEntry)
	delete(c.items, entry.key)
	c.usedBytes -= entry.sizeBytes
	c.evictions.Add(1)
}
