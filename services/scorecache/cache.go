// Package scorecache memoizes computed review results per
// (symbol, window, data-version) key with TTL expiry, bounded-capacity
// LRU eviction and cache-stampede protection.
package scorecache

import (
	"container/list"
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"trendlotto_backend/metrics"
	"trendlotto_backend/models"
)

// ComputeFunc produces the value for a key on a cache miss. A result with
// Status == ReviewUnavailable is cached under the short negative TTL; any
// returned error is treated as "do not cache".
type ComputeFunc func(ctx context.Context) (*models.ReviewResult, error)

type entry struct {
	key       string
	value     *models.ReviewResult
	expiresAt time.Time
}

// Cache is safe for concurrent use. Concurrent misses for the same key
// collapse into a single computation; late callers wait for and receive
// the in-flight result.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]*list.Element
	lru      *list.List // front = most recently used
	capacity int

	ttl         time.Duration
	negativeTTL time.Duration
	version     string

	group singleflight.Group
	now   func() time.Time
}

// New creates a cache bounded to capacity entries.
func New(capacity int, ttl, negativeTTL time.Duration, version string) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	return &Cache{
		entries:     make(map[string]*list.Element),
		lru:         list.New(),
		capacity:    capacity,
		ttl:         ttl,
		negativeTTL: negativeTTL,
		version:     version,
		now:         time.Now,
	}
}

func (c *Cache) key(symbol string, window models.Window) string {
	c.mu.Lock()
	v := c.version
	c.mu.Unlock()
	return fmt.Sprintf("%s|%s|%s", v, symbol, window)
}

// GetOrCompute returns the cached value for (symbol, window) or runs
// compute exactly once per key. The computation is detached from the
// caller's context so a disconnecting caller cannot strand other waiters;
// if ctx ends first the caller gets ctx.Err() while the computation
// finishes and populates the cache.
func (c *Cache) GetOrCompute(ctx context.Context, symbol string, window models.Window, compute ComputeFunc) (*models.ReviewResult, error) {
	key := c.key(symbol, window)

	if value, ok := c.lookup(key); ok {
		metrics.CacheHits.Inc()
		return value, nil
	}
	metrics.CacheMisses.Inc()

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		// Re-check: another caller may have stored the value between our
		// lookup and joining the flight.
		if value, ok := c.lookup(key); ok {
			return value, nil
		}
		value, err := compute(detached)
		if err != nil {
			return nil, err
		}
		c.store(key, value)
		return value, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			metrics.CacheCollapsed.Inc()
		}
		return res.Val.(*models.ReviewResult), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Get returns the cached value without computing.
func (c *Cache) Get(symbol string, window models.Window) (*models.ReviewResult, bool) {
	return c.lookup(c.key(symbol, window))
}

// Put stores a precomputed value, used by the background warm-up job so
// the request path cannot tell a warmed entry from a just-in-time one.
func (c *Cache) Put(symbol string, window models.Window, value *models.ReviewResult) {
	c.store(c.key(symbol, window), value)
}

// Invalidate drops one key. Returns whether an entry existed.
func (c *Cache) Invalidate(symbol string, window models.Window) bool {
	key := c.key(symbol, window)
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeLocked(elem)
	return true
}

// BumpVersion invalidates every cached key by switching to a new
// data-source version. Old entries age out of the LRU.
func (c *Cache) BumpVersion(version string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.version = version
}

// Flush drops all entries.
func (c *Cache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.lru.Init()
}

// PurgeExpired removes expired entries, returning how many were dropped.
func (c *Cache) PurgeExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	purged := 0
	for elem := c.lru.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*entry).expiresAt.Before(now) {
			c.removeLocked(elem)
			purged++
		}
		elem = prev
	}
	return purged
}

// Len returns the current entry count.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *Cache) lookup(key string) (*models.ReviewResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	e := elem.Value.(*entry)
	if e.expiresAt.Before(c.now()) {
		c.removeLocked(elem)
		return nil, false
	}
	c.lru.MoveToFront(elem)
	return e.value, true
}

func (c *Cache) store(key string, value *models.ReviewResult) {
	ttl := c.ttl
	if value.Status == models.ReviewUnavailable {
		// Negative result: keep it just long enough to stop a dead
		// provider from being hammered.
		ttl = c.negativeTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		e := elem.Value.(*entry)
		e.value = value
		e.expiresAt = c.now().Add(ttl)
		c.lru.MoveToFront(elem)
		return
	}
	elem := c.lru.PushFront(&entry{key: key, value: value, expiresAt: c.now().Add(ttl)})
	c.entries[key] = elem
	for c.lru.Len() > c.capacity {
		metrics.CacheEvictions.Inc()
		c.removeLocked(c.lru.Back())
	}
}

// removeLocked requires c.mu held.
func (c *Cache) removeLocked(elem *list.Element) {
	e := elem.Value.(*entry)
	delete(c.entries, e.key)
	c.lru.Remove(elem)
}
