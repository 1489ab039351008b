package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache is an in-process Cache used when no Valkey server is configured
type MemoryCache struct {
	mu       sync.RWMutex
	items    map[string]cacheItem
	maxItems int
}

// NewMemoryCache creates a cache holding at most maxItems entries
func NewMemoryCache(maxItems int) *MemoryCache {
	if maxItems <= 0 {
		maxItems = 1000
	}
	return &MemoryCache{
		items:    make(map[string]cacheItem),
		maxItems: maxItems,
	}
}

func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	item, ok := c.items[key]
	c.mu.RUnlock()
	if !ok || item.expired(time.Now()) {
		return nil, nil
	}
	return item.data, nil
}

func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxItems {
		evictOne(c.items)
	}
	item := cacheItem{data: value}
	if expiration > 0 {
		item.expiresAt = time.Now().Add(expiration)
	}
	c.items[key] = item
	return nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	data, err := c.Get(ctx, key)
	return data != nil, err
}

func (c *MemoryCache) Close() error {
	c.mu.Lock()
	c.items = make(map[string]cacheItem)
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Health(ctx context.Context) error {
	return nil
}

type cacheItem struct {
	data      []byte
	expiresAt time.Time // zero means no expiry
}

func (i cacheItem) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && !now.Before(i.expiresAt)
}

// evictOne drops an expired entry if there is one, otherwise the entry
// closest to expiry
func evictOne(items map[string]cacheItem) {
	now := time.Now()
	victim := ""
	var soonest time.Time
	for k, item := range items {
		if item.expired(now) {
			delete(items, k)
			return
		}
		if victim == "" || (!item.expiresAt.IsZero() && (soonest.IsZero() || item.expiresAt.Before(soonest))) {
			victim = k
			soonest = item.expiresAt
		}
	}
	if victim != "" {
		delete(items, victim)
	}
}
