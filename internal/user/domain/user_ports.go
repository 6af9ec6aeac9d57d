package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ---------- Errores de dominio ----------
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrInvalidUser       = errors.New("invalid user")
)

// ---------- Interfaces (Ports) ----------

// UserRepository es sólo lectura; las escrituras pasan por el unit of work.
type UserRepository interface {
	// Debe devolver ErrUserNotFound si no existe o está borrado.
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

// CacheKeyByID forma una key consistente para cache usando ID.
func CacheKeyByID(id uuid.UUID) string {
	return fmt.Sprintf("user:id:%s", id.String())
}
