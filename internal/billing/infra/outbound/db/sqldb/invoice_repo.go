package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/davicafu/habitflow/internal/billing/domain"
	sharedDomain "github.com/davicafu/habitflow/internal/shared/domain"
	platformDB "github.com/davicafu/habitflow/internal/shared/infra/platform/db"
	"github.com/google/uuid"
)

var schemas = map[platformDB.Dialect]string{
	platformDB.SQLite: `
CREATE TABLE IF NOT EXISTS invoices (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL,
	billing_email TEXT NOT NULL,
	amount        TEXT NOT NULL,
	currency      TEXT NOT NULL,
	status        TEXT NOT NULL,
	paid_at       TEXT NULL,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NULL
);
CREATE INDEX IF NOT EXISTS idx_invoices_user ON invoices (user_id);`,
	platformDB.Postgres: `
CREATE TABLE IF NOT EXISTS invoices (
	id            UUID PRIMARY KEY,
	user_id       UUID NOT NULL,
	billing_email TEXT NOT NULL,
	amount        NUMERIC(14,2) NOT NULL,
	currency      CHAR(3) NOT NULL,
	status        TEXT NOT NULL,
	paid_at       TIMESTAMPTZ NULL,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NULL
);
CREATE INDEX IF NOT EXISTS idx_invoices_user ON invoices (user_id);`,
}

// InvoiceRepo lee facturas y actúa como Persister del unit of work.
type InvoiceRepo struct {
	db      *sql.DB
	dialect platformDB.Dialect
}

func NewInvoiceRepo(db *sql.DB, dialect platformDB.Dialect) *InvoiceRepo {
	return &InvoiceRepo{db: db, dialect: dialect}
}

func (r *InvoiceRepo) InitSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schemas[r.dialect]); err != nil {
		return fmt.Errorf("failed to create invoices schema: %w", err)
	}
	return nil
}

func (r *InvoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Invoice, error) {
	row := r.db.QueryRowContext(ctx, r.dialect.Rebind(
		`SELECT id, user_id, billing_email, amount, currency, status, paid_at, created_at, updated_at
		 FROM invoices WHERE id = ?`), id.String())

	var (
		inv                    domain.Invoice
		idStr, userStr         string
		paid, created, updated platformDB.Timestamp
	)
	err := row.Scan(&idStr, &userStr, &inv.BillingEmail, &inv.Amount, &inv.Currency, &inv.Status, &paid, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrInvoiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	if inv.ID, err = uuid.Parse(idStr); err != nil {
		return nil, fmt.Errorf("invalid UUID in DB: %w", err)
	}
	if inv.UserID, err = uuid.Parse(userStr); err != nil {
		return nil, fmt.Errorf("invalid UUID in DB: %w", err)
	}
	inv.PaidAt = paid.Ptr()
	inv.CreatedAt = created.Time
	inv.UpdatedAt = updated.Ptr()
	return &inv, nil
}

// Persist escribe la factura dentro de la transacción del commit.
// Las facturas no se borran: un Deleted llega aquí como error.
func (r *InvoiceRepo) Persist(ctx context.Context, tx *sql.Tx, e sharedDomain.Entity, state sharedDomain.EntityState) error {
	inv, ok := e.(*domain.Invoice)
	if !ok {
		return fmt.Errorf("invoice repo cannot persist %T", e)
	}
	d := r.dialect

	switch state {
	case sharedDomain.Added:
		_, err := tx.ExecContext(ctx, d.Rebind(
			`INSERT INTO invoices (id, user_id, billing_email, amount, currency, status, paid_at, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			inv.ID.String(), inv.UserID.String(), inv.BillingEmail, inv.Amount.StringFixed(2),
			inv.Currency, string(inv.Status), d.NullTimeArg(inv.PaidAt),
			d.TimeArg(inv.CreatedAt), d.NullTimeArg(inv.UpdatedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to insert invoice: %w", err)
		}
		return nil

	case sharedDomain.Modified:
		// la única transición es issued -> paid; si otra sesión ya la cobró
		// no se toca nada y el evento de esta sesión se descarta con el rollback
		res, err := tx.ExecContext(ctx, d.Rebind(
			`UPDATE invoices SET status = ?, paid_at = ?, updated_at = ? WHERE id = ? AND status = ?`),
			string(inv.Status), d.NullTimeArg(inv.PaidAt), d.NullTimeArg(inv.UpdatedAt), inv.ID.String(),
			string(domain.StatusIssued),
		)
		if err != nil {
			return fmt.Errorf("failed to update invoice: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get RowsAffected: %w", err)
		}
		if rows == 0 {
			return domain.ErrInvoiceAlreadyPaid
		}
		return nil

	case sharedDomain.Deleted:
		return fmt.Errorf("invoice %s: invoices cannot be deleted", inv.ID)
	}
	return nil
}

var _ domain.InvoiceRepository = (*InvoiceRepo)(nil)
