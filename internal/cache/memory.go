package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache holds responses for the lifetime of the process. Values are
// copied in and out so callers cannot alter a cached response.
type MemoryCache struct {
	items *gocache.Cache
}

// NewMemoryCache creates a memory cache; a zero ttl passed to Set selects defaultTTL
func NewMemoryCache(defaultTTL time.Duration, cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{
		items: gocache.New(defaultTTL, cleanupInterval),
	}
}

func (c *MemoryCache) Get(key string) ([]byte, bool) {
	val, found := c.items.Get(key)
	if !found {
		return nil, false
	}
	data, ok := val.([]byte)
	if !ok {
		c.items.Delete(key)
		return nil, false
	}
	return append([]byte(nil), data...), true
}

func (c *MemoryCache) Set(key string, value []byte, ttl time.Duration) error {
	c.items.Set(key, append([]byte(nil), value...), ttl)
	return nil
}

func (c *MemoryCache) Delete(key string) error {
	c.items.Delete(key)
	return nil
}

// Clear drops every entry
func (c *MemoryCache) Clear() error {
	c.items.Flush()
	return nil
}

// Len counts the unexpired entries
func (c *MemoryCache) Len() int {
	return c.items.ItemCount()
}
