package adapters

import (
	"container/list"
	"context"
	"sync"
	"time"

	ports "github.com/ZanzyTHEbar/soundware/sndw/recommend/ports"
)

// LRUCache memoizes lookup links by query. Entries expire after their TTL and the
// least recently read entry is dropped once capacity is reached.
type LRUCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front is most recent
	entries  map[string]*list.Element
	now      func() time.Time
}

type lruEntry struct {
	key     string
	link    []byte
	expires time.Time
}

// NewLRUCache returns a cache holding at most capacity entries (minimum 1).
func NewLRUCache(capacity int) *LRUCache {
	return &LRUCache{
		capacity: max(capacity, 1),
		order:    list.New(),
		entries:  make(map[string]*list.Element, max(capacity, 1)),
		now:      time.Now,
	}
}

// Get returns the cached value and marks it most recently used. Expired entries
// are dropped on read.
func (c *LRUCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*lruEntry)
	if c.now().After(e.expires) {
		c.drop(el)
		return nil, false
	}
	c.order.MoveToFront(el)
	return e.link, true
}

// Set stores value for ttlSeconds, replacing any previous entry for key.
func (c *LRUCache) Set(_ context.Context, key string, value []byte, ttlSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	expires := c.now().Add(time.Duration(ttlSeconds) * time.Second)
	if el, ok := c.entries[key]; ok {
		e := el.Value.(*lruEntry)
		e.link, e.expires = value, expires
		c.order.MoveToFront(el)
		return nil
	}

	c.entries[key] = c.order.PushFront(&lruEntry{key: key, link: value, expires: expires})
	for c.order.Len() > c.capacity {
		c.drop(c.order.Back())
	}
	return nil
}

// Delete removes key. Missing keys are not an error.
func (c *LRUCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.drop(el)
	}
	return nil
}

// Len reports the number of entries, including expired ones not yet read.
func (c *LRUCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *LRUCache) drop(el *list.Element) {
	c.order.Remove(el)
	delete(c.entries, el.Value.(*lruEntry).key)
}

var _ ports.Cache = (*LRUCache)(nil)
