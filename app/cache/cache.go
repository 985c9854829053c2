// Package cache implements the bounded in-memory response cache used by the
// metadata extractor: TTL-based expiry with LRU eviction under capacity
// pressure, keyed by normalized target URL.
package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// Cache is a fixed-capacity LRU cache with absolute per-entry TTL. A hit
// moves the entry to the most-recently-used position but does not extend
// its TTL; an expired entry is evicted on access. Safe for concurrent use.
type Cache[V any] struct {
	capacity int
	ttl      time.Duration
	mu       sync.Mutex
	order    *list.List // front = LRU, back = MRU
	entries  map[string]*list.Element
	now      func() time.Time
}

const defaultCapacity = 500

func New[V any](capacity int, ttl time.Duration) *Cache[V] {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Cache[V]{
		capacity: capacity,
		ttl:      ttl,
		order:    list.New(),
		entries:  make(map[string]*list.Element),
		now:      time.Now,
	}
}

func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V

	elem, ok := c.entries[key]
	if !ok {
		return zero, false
	}

	ent := elem.Value.(*entry[V])
	if !ent.expiresAt.After(c.now()) {
		c.order.Remove(elem)
		delete(c.entries, key)
		return zero, false
	}

	c.order.MoveToBack(elem)
	return ent.value, true
}

func (c *Cache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)

	if elem, ok := c.entries[key]; ok {
		ent := elem.Value.(*entry[V])
		ent.value = value
		ent.expiresAt = expiresAt
		c.order.MoveToBack(elem)
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Front()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*entry[V]).key)
		}
	}

	c.entries[key] = c.order.PushBack(&entry[V]{key: key, value: value, expiresAt: expiresAt})
}

func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
