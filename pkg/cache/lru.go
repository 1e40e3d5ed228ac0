package cache

import (
	"container/list"
	"sync"

	"github.com/c360/graphrag/errors"
)

type lruEntry[V any] struct {
	key   string
	value V
}

// lruCache evicts the least recently used entry once maxSize is exceeded.
type lruCache[V any] struct {
	mu      sync.Mutex
	maxSize int
	items   map[string]*list.Element
	order   *list.List // front = most recently used
	stats   *Statistics
	metrics *cacheMetrics
	evictFn EvictCallback[V]
}

func newLRUCache[V any](maxSize int, opts *cacheOptions[V]) (*lruCache[V], error) {
	var metrics *cacheMetrics
	if opts.metricsReg != nil {
		var err error
		metrics, err = newCacheMetrics(opts.metricsReg, opts.metricsPrefix)
		if err != nil {
			return nil, errors.Wrap(err, "cache", "newLRUCache", "metrics registration")
		}
	}

	return &lruCache[V]{
		maxSize: maxSize,
		items:   make(map[string]*list.Element),
		order:   list.New(),
		stats:   NewStatistics(),
		metrics: metrics,
		evictFn: opts.evictCallback,
	}, nil
}

func (c *lruCache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.items[key]
	if !ok {
		c.stats.misses.Add(1)
		c.metrics.record(opMiss)
		var zero V
		return zero, false
	}

	c.order.MoveToFront(element)
	c.stats.hits.Add(1)
	c.metrics.record(opHit)
	return element.Value.(*lruEntry[V]).value, true
}

func (c *lruCache[V]) Set(key string, value V) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	var evicted []lruEntry[V]

	c.mu.Lock()
	created := true
	if element, ok := c.items[key]; ok {
		element.Value.(*lruEntry[V]).value = value
		c.order.MoveToFront(element)
		created = false
	} else {
		c.items[key] = c.order.PushFront(&lruEntry[V]{key: key, value: value})
		for len(c.items) > c.maxSize {
			evicted = append(evicted, c.removeOldest())
		}
	}
	c.stats.sets.Add(1)
	c.metrics.record(opSet)
	c.syncSize()
	c.mu.Unlock()

	c.notify(evicted)
	return created, nil
}

func (c *lruCache[V]) Delete(key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	c.mu.Lock()
	element, ok := c.items[key]
	if !ok {
		c.mu.Unlock()
		return false, nil
	}
	entry := *element.Value.(*lruEntry[V])
	delete(c.items, key)
	c.order.Remove(element)
	c.stats.deletes.Add(1)
	c.metrics.record(opDelete)
	c.syncSize()
	c.mu.Unlock()

	c.notify([]lruEntry[V]{entry})
	return true, nil
}

func (c *lruCache[V]) Clear() error {
	var removed []lruEntry[V]

	c.mu.Lock()
	if c.evictFn != nil {
		removed = make([]lruEntry[V], 0, len(c.items))
		for e := c.order.Back(); e != nil; e = e.Prev() {
			removed = append(removed, *e.Value.(*lruEntry[V]))
		}
	}
	c.items = make(map[string]*list.Element)
	c.order.Init()
	c.syncSize()
	c.mu.Unlock()

	c.notify(removed)
	return nil
}

func (c *lruCache[V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *lruCache[V]) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.items))
	for e := c.order.Front(); e != nil; e = e.Next() {
		keys = append(keys, e.Value.(*lruEntry[V]).key)
	}
	return keys
}

func (c *lruCache[V]) Stats() *Statistics {
	return c.stats
}

// Close is a no-op; the LRU owns no goroutines.
func (c *lruCache[V]) Close() error {
	return nil
}

// removeOldest must be called with mu held.
func (c *lruCache[V]) removeOldest() lruEntry[V] {
	element := c.order.Back()
	entry := *element.Value.(*lruEntry[V])
	delete(c.items, entry.key)
	c.order.Remove(element)
	c.stats.evictions.Add(1)
	c.metrics.record(opEviction)
	return entry
}

// syncSize must be called with mu held.
func (c *lruCache[V]) syncSize() {
	c.stats.updateSize(int64(len(c.items)))
	c.metrics.setSize(len(c.items))
}

// notify runs eviction callbacks outside the lock so callbacks may touch the cache.
func (c *lruCache[V]) notify(entries []lruEntry[V]) {
	if c.evictFn == nil {
		return
	}
	for _, e := range entries {
		c.evictFn(e.key, e.value)
	}
}
