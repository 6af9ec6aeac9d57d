package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sharedDomain "github.com/davicafu/habitflow/internal/shared/domain"
	platformDB "github.com/davicafu/habitflow/internal/shared/infra/platform/db"
	"github.com/davicafu/habitflow/internal/user/domain"
	"github.com/google/uuid"
)

var schemas = map[platformDB.Dialect]string{
	platformDB.SQLite: `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	email      TEXT NOT NULL,
	nombre     TEXT NOT NULL,
	phone      TEXT NOT NULL DEFAULT '',
	birth_date TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NULL,
	deleted    BOOLEAN NOT NULL DEFAULT 0,
	deleted_at TEXT NULL
);
CREATE INDEX IF NOT EXISTS idx_users_email ON users (email);`,
	platformDB.Postgres: `
CREATE TABLE IF NOT EXISTS users (
	id         UUID PRIMARY KEY,
	email      TEXT NOT NULL,
	nombre     TEXT NOT NULL,
	phone      TEXT NOT NULL DEFAULT '',
	birth_date TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NULL,
	deleted    BOOLEAN NOT NULL DEFAULT FALSE,
	deleted_at TIMESTAMPTZ NULL
);
CREATE INDEX IF NOT EXISTS idx_users_email ON users (email);`,
}

// UserRepo lee usuarios y actúa como Persister del unit of work.
// Las lecturas excluyen siempre los borrados lógicos.
type UserRepo struct {
	db      *sql.DB
	dialect platformDB.Dialect
}

func NewUserRepo(db *sql.DB, dialect platformDB.Dialect) *UserRepo {
	return &UserRepo{db: db, dialect: dialect}
}

func (r *UserRepo) InitSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemas[r.dialect]); err != nil {
		return fmt.Errorf("failed to create users schema: %w", err)
	}
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind(
		`SELECT id, email, nombre, phone, birth_date, created_at, updated_at, deleted, deleted_at
		 FROM users WHERE id = ? AND deleted = ?`), id.String(), false)

	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (r *UserRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(
		`SELECT COUNT(*) FROM users WHERE email = ? AND deleted = ?`), email, false).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

// Persist escribe el usuario dentro de la transacción del commit.
func (r *UserRepo) Persist(ctx context.Context, tx *sql.Tx, e sharedDomain.Entity, state sharedDomain.EntityState) error {
	u, ok := e.(*domain.User)
	if !ok {
		return fmt.Errorf("user repo cannot persist %T", e)
	}
	d := r.dialect

	switch state {
	case sharedDomain.Added:
		_, err := tx.ExecContext(ctx, d.Rebind(
			`INSERT INTO users (id, email, nombre, phone, birth_date, created_at, updated_at, deleted, deleted_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			u.ID.String(), u.Email, u.Nombre, u.Phone,
			d.TimeArg(u.BirthDate), d.TimeArg(u.CreatedAt), d.NullTimeArg(u.UpdatedAt),
			u.Deleted, d.NullTimeArg(u.DeletedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert user: %w", err)
		}
		return nil

	case sharedDomain.Modified:
		// un usuario ya borrado no admite cambios: evita un segundo UserDeleted
		res, err := tx.ExecContext(ctx, d.Rebind(
			`UPDATE users SET email = ?, nombre = ?, phone = ?, birth_date = ?, updated_at = ?, deleted = ?, deleted_at = ?
			 WHERE id = ? AND deleted = ?`),
			u.Email, u.Nombre, u.Phone, d.TimeArg(u.BirthDate), d.NullTimeArg(u.UpdatedAt),
			u.Deleted, d.NullTimeArg(u.DeletedAt), u.ID.String(), false,
		)
		if err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		return expectRow(res)

	case sharedDomain.Deleted:
		res, err := tx.ExecContext(ctx, d.Rebind(`DELETE FROM users WHERE id = ?`), u.ID.String())
		if err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return expectRow(res)
	}
	return nil
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var (
		u                              domain.User
		idStr                          string
		birth, created, updated, delAt platformDB.Timestamp
	)
	if err := row.Scan(&idStr, &u.Email, &u.Nombre, &u.Phone, &birth, &created, &updated, &u.Deleted, &delAt); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("invalid UUID in DB: %w", err)
	}
	u.ID = id
	u.BirthDate = birth.Time
	u.CreatedAt = created.Time
	u.UpdatedAt = updated.Ptr()
	u.DeletedAt = delAt.Ptr()
	return &u, nil
}

func expectRow(res sql.Result) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get RowsAffected: %w", err)
	}
	if rows == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// Verificación en tiempo de compilación.
var _ domain.UserRepository = (*UserRepo)(nil)
