// Package cache provides a small thread-safe LRU cache used by the geocoder
// and the shapefile upload handler.
package cache

import "sync"

// LRU is a fixed-capacity least recently used cache. The zero value is not
// usable; create one with NewLRU.
type LRU[K comparable, V any] struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[K]*entry[K, V]
	head       *entry[K, V] // most recently used
	tail       *entry[K, V] // least recently used
}

type entry[K comparable, V any] struct {
	key   K
	value V
	prev  *entry[K, V]
	next  *entry[K, V]
}

// NewLRU creates a cache holding at most maxEntries values. A non-positive
// size is treated as one.
func NewLRU[K comparable, V any](maxEntries int) *LRU[K, V] {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &LRU[K, V]{
		maxEntries: maxEntries,
		entries:    make(map[K]*entry[K, V]),
	}
}

// Get returns the value for key and marks it as recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.moveToFront(e)
	return e.value, true
}

// Put stores value under key, evicting the least recently used entry when
// the cache is full.
func (c *LRU[K, V]) Put(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry[K, V]{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

// Len returns the number of cached entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *LRU[K, V]) moveToFront(e *entry[K, V]) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *LRU[K, V]) addToFront(e *entry[K, V]) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *LRU[K, V]) remove(e *entry[K, V]) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *LRU[K, V]) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
