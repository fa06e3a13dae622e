package cache

import (
	"math"
	"sync"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

// MemoryCache is an LRU bounded by the total size of its values rather
// than the number of entries.
type MemoryCache struct {
	capacity int64
	size     int64

	lru *simplelru.LRU[string, []byte]

	mu    sync.Mutex
	stats Stats
}

// NewMemoryCache creates an LRU holding at most capacity bytes.
func NewMemoryCache(capacity int64) *MemoryCache {
	c := &MemoryCache{
		capacity: capacity,
		stats:    Stats{Level: LevelMemory, Capacity: capacity},
	}
	// The entry count is never the limit; bytes are.
	lru, err := simplelru.NewLRU[string, []byte](math.MaxInt32, c.onEvict)
	if err != nil {
		panic(err)
	}
	c.lru = lru
	return c
}

// onEvict runs under the lock for every entry leaving the LRU.
func (c *MemoryCache) onEvict(_ string, value []byte) {
	c.size -= int64(len(value))
}

// Get returns the value for key and marks it recently used.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	value, ok := c.lru.Get(key)
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	return value, true
}

// Put stores value, evicting the least recently used entries to fit.
func (c *MemoryCache) Put(key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := int64(len(value))
	if n > c.capacity {
		return ErrItemTooLarge
	}
	c.lru.Remove(key)
	for c.size+n > c.capacity && c.lru.Len() > 0 {
		c.lru.RemoveOldest()
		c.stats.Evictions++
	}

	c.lru.Add(key, value)
	c.size += n
	return nil
}

// Delete removes key if present.
func (c *MemoryCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Remove(key)
	return nil
}

// Clear removes every entry.
func (c *MemoryCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Purge()
	c.size = 0
	return nil
}

// Stats returns a copy of the counters.
func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.stats
	s.Size = c.size
	s.Items = int64(c.lru.Len())
	return s
}
