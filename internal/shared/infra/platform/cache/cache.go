package cache

import (
	"context"
	"time"
)

// Cache es el read-model de clave-valor. Los valores viajan serializados en JSON.
type Cache interface {
	// Get rellena dest (puntero) y devuelve (true, nil) en un hit, (false, nil) en un miss.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)

	// Set guarda val durante ttl; ttl <= 0 usa el TTL por defecto de la implementación.
	Set(ctx context.Context, key string, val interface{}, ttl time.Duration) error

	// Delete es idempotente: borrar una key inexistente no es un error.
	Delete(ctx context.Context, key string) error
}
