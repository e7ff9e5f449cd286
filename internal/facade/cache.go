package facade

import (
	"container/list"
	"sync"

	"github.com/systmms/vaultdoor/pkg/store"
)

// lruCache is a fixed-capacity cache keyed by secret name. The list front
// holds the most recently used entry; inserting past capacity drops the
// back. All methods are safe for concurrent use.
type lruCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	entries  map[string]*list.Element
}

type cacheEntry struct {
	name  string
	value store.SecretValue
}

func newLRUCache(capacity int) *lruCache {
	return &lruCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element, capacity),
	}
}

// get returns the cached value for name and marks it most recently used.
func (c *lruCache) get(name string) (store.SecretValue, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[name]
	if !ok {
		return store.SecretValue{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).value, true
}

// put inserts or refreshes the entry for name. It reports whether the
// insert evicted the least recently used entry, and the resulting size.
func (c *lruCache) put(name string, value store.SecretValue) (evicted bool, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[name]; ok {
		el.Value.(*cacheEntry).value = value
		c.order.MoveToFront(el)
		return false, len(c.entries)
	}

	c.entries[name] = c.order.PushFront(&cacheEntry{name: name, value: value})
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*cacheEntry).name)
		evicted = true
	}
	return evicted, len(c.entries)
}

// remove drops the entry for name if present and returns the resulting size.
func (c *lruCache) remove(name string) (removed bool, size int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[name]
	if !ok {
		return false, len(c.entries)
	}
	c.order.Remove(el)
	delete(c.entries, name)
	return true, len(c.entries)
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
