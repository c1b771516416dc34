package storage

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/hyperjump/pillbox/internal/models"
)

// MemoryCache is an in-process LRU cache with optional per-entry expiry.
type MemoryCache struct {
	capacity int
	entries  map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
	now      func() time.Time
}

type memoryEntry struct {
	key       string
	info      models.DrugInfo
	expiresAt time.Time
}

// NewMemoryCache creates a cache holding at most capacity entries.
func NewMemoryCache(capacity int) *MemoryCache {
	if capacity <= 0 {
		capacity = 256
	}
	return &MemoryCache{
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
		now:      time.Now,
	}
}

// Get returns a copy of the cached info for key.
func (c *MemoryCache) Get(_ context.Context, key string) (*models.DrugInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	entry := elem.Value.(*memoryEntry)
	if expired(c.now(), entry.expiresAt) {
		c.lru.Remove(elem)
		delete(c.entries, key)
		return nil, ErrCacheMiss
	}
	c.lru.MoveToFront(elem)
	info := entry.info
	return &info, nil
}

// Set stores info for key, evicting the least recently used entry if at capacity.
func (c *MemoryCache) Set(_ context.Context, key string, info *models.DrugInfo, ttl time.Duration) error {
	if info == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	exp := expiry(c.now(), ttl)
	if elem, ok := c.entries[key]; ok {
		c.lru.MoveToFront(elem)
		entry := elem.Value.(*memoryEntry)
		entry.info = *info
		entry.expiresAt = exp
		return nil
	}

	elem := c.lru.PushFront(&memoryEntry{key: key, info: *info, expiresAt: exp})
	c.entries[key] = elem

	if c.lru.Len() > c.capacity {
		if oldest := c.lru.Back(); oldest != nil {
			c.lru.Remove(oldest)
			delete(c.entries, oldest.Value.(*memoryEntry).key)
		}
	}
	return nil
}

// Delete removes key if present.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.lru.Remove(elem)
		delete(c.entries, key)
	}
	return nil
}

// Len reports the number of stored entries, expired ones included until touched.
func (c *MemoryCache) Len(context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len(), nil
}

// Close is a no-op.
func (c *MemoryCache) Close() error { return nil }
