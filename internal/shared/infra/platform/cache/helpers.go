package cache

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// AsyncCacheSet rellena la caché en background sin bloquear la petición.
// Usa un contexto propio: la petición puede haber terminado ya.
func AsyncCacheSet(c Cache, key string, value interface{}, ttl time.Duration, log *zap.Logger) {
	if c == nil {
		return
	}

	go func() {
		cacheCtx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()

		if err := c.Set(cacheCtx, key, value, ttl); err != nil {
			log.Warn("Cache update failed",
				zap.String("key", key),
				zap.Error(err))
		}
	}()
}
