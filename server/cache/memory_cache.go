package cache

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// MemoryCache is an in-process Cache with TTL expiry and least-recently-used
// eviction once the size bound is reached.
type MemoryCache struct {
	mu      sync.RWMutex
	items   map[string]*entry
	maxSize int
	ttl     time.Duration
	hits    int64
	misses  int64
	logger  *zap.Logger
	cleanup *time.Ticker
	stopCh  chan struct{}
}

type entry struct {
	value     any
	expiresAt time.Time
	lastUsed  time.Time
}

func NewMemoryCache(maxSize int, ttl time.Duration, logger *zap.Logger) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 256
	}
	c := &MemoryCache{
		items:   make(map[string]*entry),
		maxSize: maxSize,
		ttl:     ttl,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}

	c.cleanup = time.NewTicker(time.Minute)
	go c.cleanupExpired()

	return c
}

func (c *MemoryCache) Set(ctx context.Context, key string, value any) error {
	return c.SetWithTTL(ctx, key, value, c.ttl)
}

func (c *MemoryCache) SetWithTTL(ctx context.Context, key string, value any, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Updating an existing key never needs room for a new entry.
	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxSize {
		c.evictLRU()
	}

	now := time.Now()
	c.items[key] = &entry{
		value:     value,
		expiresAt: now.Add(ttl),
		lastUsed:  now,
	}
	return nil
}

func (c *MemoryCache) Get(ctx context.Context, key string) (any, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[key]
	if !ok || time.Now().After(item.expiresAt) {
		if ok {
			delete(c.items, key)
		}
		c.misses++
		return nil, ErrCacheMiss
	}

	item.lastUsed = time.Now()
	c.hits++
	return item.value, nil
}

func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

func (c *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[key]
	return ok && time.Now().Before(item.expiresAt), nil
}

func (c *MemoryCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Stats{Items: len(c.items), Hits: c.hits, Misses: c.misses}
}

func (c *MemoryCache) Close() error {
	c.cleanup.Stop()
	close(c.stopCh)
	return nil
}

// evictLRU removes the stalest entry. Callers hold the write lock.
func (c *MemoryCache) evictLRU() {
	var oldestKey string
	var oldestTime time.Time

	for key, item := range c.items {
		if oldestKey == "" || item.lastUsed.Before(oldestTime) {
			oldestKey = key
			oldestTime = item.lastUsed
		}
	}

	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}

func (c *MemoryCache) cleanupExpired() {
	for {
		select {
		case <-c.stopCh:
			return
		case <-c.cleanup.C:
			now := time.Now()
			removed := 0

			c.mu.Lock()
			for key, item := range c.items {
				if now.After(item.expiresAt) {
					delete(c.items, key)
					removed++
				}
			}
			c.mu.Unlock()

			if removed > 0 && c.logger != nil {
				c.logger.Debug("Evicted expired cache entries", zap.Int("count", removed))
			}
		}
	}
}
