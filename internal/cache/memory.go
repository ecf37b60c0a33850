package cache

import (
	"container/list"
	"sync"
	"time"
)

// memoryCache is a byte-bounded LRU kept in front of the database so a clip
// spoken twice in one session is not read back and decompressed again.
type memoryCache struct {
	capacity int64
	size     int64

	items    map[string]*list.Element
	eviction *list.List

	mu sync.Mutex
}

type memoryEntry struct {
	key    string
	value  []byte
	stored time.Time
}

func newMemoryCache(capacity int64) *memoryCache {
	return &memoryCache{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
	}
}

// get returns the clip and the time it was originally stored.
func (c *memoryCache) get(key string) ([]byte, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, time.Time{}, false
	}
	c.eviction.MoveToFront(elem)
	entry := elem.Value.(*memoryEntry)
	return entry.value, entry.stored, true
}

// put stores value unless it alone exceeds the capacity.
func (c *memoryCache) put(key string, value []byte, stored time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
	size := int64(len(value))
	if size > c.capacity {
		return
	}
	for c.size+size > c.capacity && c.eviction.Len() > 0 {
		c.removeElement(c.eviction.Back())
	}
	c.items[key] = c.eviction.PushFront(&memoryEntry{key: key, value: value, stored: stored})
	c.size += size
}

// prune drops entries stored before cutoff and reports how many went.
func (c *memoryCache) prune(cutoff time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	pruned := 0
	for elem := c.eviction.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*memoryEntry).stored.Before(cutoff) {
			c.removeElement(elem)
			pruned++
		}
		elem = prev
	}
	return pruned
}

func (c *memoryCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]*list.Element)
	c.eviction.Init()
	c.size = 0
}

func (c *memoryCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// removeElement must be called with the lock held.
func (c *memoryCache) removeElement(elem *list.Element) {
	c.eviction.Remove(elem)
	entry := elem.Value.(*memoryEntry)
	delete(c.items, entry.key)
	c.size -= int64(len(entry.value))
}
