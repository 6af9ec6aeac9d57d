package utils

import (
	"context"
	"time"
)

// Retry ejecuta fn hasta attempts veces; el delay se dobla tras cada fallo.
// stop permite cortar en errores que no tiene sentido reintentar.
func Retry(ctx context.Context, attempts int, delay time.Duration, stop func(error) bool, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if stop != nil && stop(err) {
			return err
		}
		if i == attempts-1 {
			break
		}

		select {
		case <-time.After(delay):
			delay *= 2
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
