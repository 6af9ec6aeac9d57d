package notification

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

const ledgerPrefix = "notification:sent:"

// RedisLedger guarda las claves con TTL; debe superar la retención del outbox
// para cubrir cualquier reentrega posible.
type RedisLedger struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisLedger(client *redis.Client, ttl time.Duration) *RedisLedger {
	return &RedisLedger{client: client, ttl: ttl}
}

func (l *RedisLedger) Seen(ctx context.Context, key string) (bool, error) {
	n, err := l.client.Exists(ctx, ledgerPrefix+key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (l *RedisLedger) Mark(ctx context.Context, key string) error {
	return l.client.SetNX(ctx, ledgerPrefix+key, 1, l.ttl).Err()
}

// MemoryLedger no sobrevive a reinicios; sólo para desarrollo y tests.
type MemoryLedger struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{keys: make(map[string]struct{})}
}

func (l *MemoryLedger) Seen(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.keys[key]
	return ok, nil
}

func (l *MemoryLedger) Mark(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.keys[key] = struct{}{}
	return nil
}

var (
	_ Ledger = (*RedisLedger)(nil)
	_ Ledger = (*MemoryLedger)(nil)
)
