package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

type cacheItem struct {
	value     []byte // serializado, igual que en Redis
	expiresAt time.Time
}

// InMemoryCache se usa cuando no hay Redis configurado y en tests.
type InMemoryCache struct {
	mu         sync.RWMutex
	store      map[string]cacheItem
	defaultTTL time.Duration
	now        func() time.Time
	stopOnce   sync.Once
	stop       chan struct{}
}

// NewInMemoryCache arranca una goroutine que purga las keys expiradas cada
// cleanupInterval; Stop la detiene.
func NewInMemoryCache(defaultTTL, cleanupInterval time.Duration) *InMemoryCache {
	c := &InMemoryCache{
		store:      make(map[string]cacheItem),
		defaultTTL: defaultTTL,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go c.cleanupLoop(cleanupInterval)
	}
	return c
}

func (c *InMemoryCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.RLock()
	item, ok := c.store[key]
	c.mu.RUnlock()

	if !ok || c.now().After(item.expiresAt) {
		return false, nil
	}
	if err := json.Unmarshal(item.value, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *InMemoryCache) Set(ctx context.Context, key string, val interface{}, ttl time.Duration) error {
	data, err := json.Marshal(val)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = cacheItem{value: data, expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *InMemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	return nil
}

func (c *InMemoryCache) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *InMemoryCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.purgeExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *InMemoryCache) purgeExpired() {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, item := range c.store {
		if now.After(item.expiresAt) {
			delete(c.store, key)
		}
	}
}

var _ Cache = (*InMemoryCache)(nil)
