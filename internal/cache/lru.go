// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package cache provides a bounded LRU cache for native objects that must
// be released when they leave the cache.
package cache

import (
	"sync"
	"sync/atomic"
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 256

// LRU is a thread-safe least recently used cache. Every value that leaves
// the cache, by eviction, Delete, DeleteFunc or Purge, is passed to the
// release function given to New.
//
// LRU must not be copied after creation.
type LRU[K comparable, V any] struct {
	mu       sync.Mutex
	entries  map[K]*node[K, V]
	list     list[K, V]
	capacity int
	release  func(K, V)

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// New creates a cache holding at most capacity entries. release may be
// nil. It is called with the cache lock held and must not use the cache.
func New[K comparable, V any](capacity int, release func(K, V)) *LRU[K, V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &LRU[K, V]{
		entries:  make(map[K]*node[K, V]),
		capacity: capacity,
		release:  release,
	}
}

// Get returns the value for key and marks it most recently used.
func (c *LRU[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)
		var zero V
		return zero, false
	}
	c.list.moveToFront(n)
	c.hits.Add(1)
	return n.value, true
}

// Add stores value under key, releasing any value it replaces and the
// least recently used entries beyond capacity.
func (c *LRU[K, V]) Add(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n, ok := c.entries[key]; ok {
		old := n.value
		n.value = value
		c.list.moveToFront(n)
		c.drop(key, old)
		return
	}
	for c.list.len >= c.capacity {
		oldest := c.list.tail
		c.list.unlink(oldest)
		delete(c.entries, oldest.key)
		c.evictions.Add(1)
		c.drop(oldest.key, oldest.value)
	}
	n := &node[K, V]{key: key, value: value}
	c.list.pushFront(n)
	c.entries[key] = n
}

// GetOrCreate returns the cached value for key or stores the result of
// create. Errors from create are returned and nothing is stored.
func (c *LRU[K, V]) GetOrCreate(key K, create func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := create()
	if err != nil {
		return v, err
	}
	c.Add(key, v)
	return v, nil
}

// Delete removes and releases key. It reports whether key was present.
func (c *LRU[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.entries[key]
	if !ok {
		return false
	}
	c.list.unlink(n)
	delete(c.entries, key)
	c.drop(key, n.value)
	return true
}

// DeleteFunc removes and releases every entry for which match returns
// true, and returns how many were removed.
func (c *LRU[K, V]) DeleteFunc(match func(K, V) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for n := c.list.head; n != nil; {
		next := n.next
		if match(n.key, n.value) {
			c.list.unlink(n)
			delete(c.entries, n.key)
			c.drop(n.key, n.value)
			removed++
		}
		n = next
	}
	return removed
}

// Purge releases every entry.
func (c *LRU[K, V]) Purge() {
	c.DeleteFunc(func(K, V) bool { return true })
}

// Len returns the number of entries.
func (c *LRU[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.list.len
}

// Stats returns a snapshot of the cache counters.
func (c *LRU[K, V]) Stats() Stats {
	s := Stats{
		Len:       c.Len(),
		Capacity:  c.capacity,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}

func (c *LRU[K, V]) drop(key K, v V) {
	if c.release != nil {
		c.release(key, v)
	}
}

// Stats are the counters of an LRU.
type Stats struct {
	Len       int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
	// HitRate is Hits over all lookups, or zero before the first lookup.
	HitRate float64
}

// node is an entry of the recency list.
type node[K comparable, V any] struct {
	key        K
	value      V
	prev, next *node[K, V]
}

// list is a doubly linked list with the most recently used node at the
// head. It is not safe for concurrent use.
type list[K comparable, V any] struct {
	head, tail *node[K, V]
	len        int
}

func (l *list[K, V]) pushFront(n *node[K, V]) {
	n.prev, n.next = nil, l.head
	if l.head != nil {
		l.head.prev = n
	} else {
		l.tail = n
	}
	l.head = n
	l.len++
}

func (l *list[K, V]) moveToFront(n *node[K, V]) {
	if n == l.head {
		return
	}
	l.unlink(n)
	l.pushFront(n)
}

func (l *list[K, V]) unlink(n *node[K, V]) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		l.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		l.tail = n.prev
	}
	n.prev, n.next = nil, nil
	l.len--
}
