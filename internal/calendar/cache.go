package calendar

import (
	"sync"
	"time"

	"feastsched/internal/model"
)

// Cache stores decoded feast years. A published calendar year does not
// change, so entries may be kept indefinitely.
type Cache interface {
	Get(year int) ([]model.Feast, bool)
	Put(year int, feasts []model.Feast)
}

type memoryEntry struct {
	feasts    []model.Feast
	updatedAt time.Time
}

// MemoryCache is an in-process Cache with an optional TTL.
type MemoryCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[int]memoryEntry
}

// NewMemoryCache returns a cache whose entries expire after ttl; ttl <= 0
// keeps them forever.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[int]memoryEntry),
	}
}

func (c *MemoryCache) Get(year int) ([]model.Feast, bool) {
	c.mu.RLock()
	e, ok := c.entries[year]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(e.updatedAt) >= c.ttl {
		c.mu.Lock()
		delete(c.entries, year)
		c.mu.Unlock()
		return nil, false
	}
	return e.feasts, true
}

func (c *MemoryCache) Put(year int, feasts []model.Feast) {
	c.mu.Lock()
	c.entries[year] = memoryEntry{feasts: feasts, updatedAt: c.now()}
	c.mu.Unlock()
}
