package filter

import (
	"container/list"
	"sync"
)

// DefaultCacheSize is the default AST cache capacity.
const DefaultCacheSize = 256

// Cache is a bounded LRU keyed by exact filter string, returning a shared
// immutable AST. A single mutex guards a map + doubly linked list; hits
// never observe a partially constructed entry because Parse completes
// before Put is called.
type Cache struct {
	mu       sync.Mutex
	capacity int
	ll       *list.List // front = most recently used
	items    map[string]*list.Element
}

type cacheEntry struct {
	key  string
	node *Node
}

// NewCache creates an AST cache with the given capacity. A capacity <= 0
// falls back to DefaultCacheSize.
func NewCache(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCacheSize
	}
	return &Cache{
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[string]*list.Element, capacity),
	}
}

// Get returns the cached AST for s, moving it to most-recently-used on hit.
func (c *Cache) Get(s string) (*Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[s]
	if !ok {
		return nil, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*cacheEntry).node, true
}

// Put inserts node under key s, evicting the single least-recently-used
// entry if the cache is at capacity.
func (c *Cache) Put(s string, node *Node) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[s]; ok {
		el.Value.(*cacheEntry).node = node
		c.ll.MoveToFront(el)
		return
	}

	el := c.ll.PushFront(&cacheEntry{key: s, node: node})
	c.items[s] = el

	if c.ll.Len() > c.capacity {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.items, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// ParseCached parses s, consulting and populating cache. Equivalent calls
// with an unchanged cache snapshot return the identical *Node pointer.
func ParseCached(cache *Cache, s string) (*Node, error) {
	if cache != nil {
		if node, ok := cache.Get(s); ok {
			return node, nil
		}
	}
	node, err := Parse(s)
	if err != nil {
		return nil, err
	}
	if cache != nil {
		cache.Put(s, node)
	}
	return node, nil
}
