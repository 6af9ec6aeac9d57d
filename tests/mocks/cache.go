package mocks

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	sharedCache "github.com/davicafu/habitflow/internal/shared/infra/platform/cache"
)

// DummyCache guarda JSON en memoria y anota los borrados para poder
// comprobar invalidaciones en los tests.
type DummyCache struct {
	mu      sync.RWMutex
	store   map[string][]byte
	Deleted []string
}

var _ sharedCache.Cache = (*DummyCache)(nil)

func NewDummyCache() *DummyCache {
	return &DummyCache{store: make(map[string][]byte)}
}

func (c *DummyCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, ok := c.store[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *DummyCache) Set(ctx context.Context, key string, val interface{}, ttl time.Duration) error {
	data, err := json.Marshal(val)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store[key] = data
	return nil
}

func (c *DummyCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.store, key)
	c.Deleted = append(c.Deleted, key)
	return nil
}

func (c *DummyCache) Has(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.store[key]
	return ok
}

func (c *DummyCache) DeletedKeys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.Deleted...)
}
