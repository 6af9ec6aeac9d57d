package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sharedDomain "github.com/davicafu/habitflow/internal/shared/domain"
	"github.com/google/uuid"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const outboxSchema = `
CREATE TABLE IF NOT EXISTS outbox_messages (
	id           UUID PRIMARY KEY,
	type         TEXT NOT NULL,
	content      TEXT NOT NULL,
	occurred_on  TIMESTAMPTZ NOT NULL,
	processed_on TIMESTAMPTZ NULL,
	error        TEXT NULL
);
CREATE INDEX IF NOT EXISTS idx_outbox_messages_processed_on ON outbox_messages (processed_on);
`

// InitSchema crea la tabla outbox si no existe.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, outboxSchema); err != nil {
		return fmt.Errorf("failed to create outbox schema: %w", err)
	}
	return nil
}

// OutboxRepoPostgres implementa sharedDomain.OutboxRepository y uow.OutboxWriter.
type OutboxRepoPostgres struct {
	db *sql.DB
}

func NewOutboxRepoPostgres(db *sql.DB) *OutboxRepoPostgres {
	return &OutboxRepoPostgres{db: db}
}

func (r *OutboxRepoPostgres) InsertOutbox(ctx context.Context, tx *sql.Tx, msgs []sharedDomain.OutboxMessage) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO outbox_messages (id, type, content, occurred_on) VALUES ($1, $2, $3, $4)`)
	if err != nil {
		return fmt.Errorf("prepare outbox insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range msgs {
		if _, err := stmt.ExecContext(ctx, m.ID, m.Type, m.Content, m.OccurredOn.UTC()); err != nil {
			return fmt.Errorf("failed to insert outbox message %s: %w", m.ID, err)
		}
	}
	return nil
}

// FetchPending obtiene los mensajes no procesados para Postgres; false
// ordena antes que true, así los que nunca fallaron salen primero.
func (r *OutboxRepoPostgres) FetchPending(ctx context.Context, limit int) ([]sharedDomain.OutboxMessage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, type, content, occurred_on, processed_on, error
		 FROM outbox_messages WHERE processed_on IS NULL
		 ORDER BY (error IS NOT NULL), occurred_on LIMIT $1`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []sharedDomain.OutboxMessage
	for rows.Next() {
		var (
			m           sharedDomain.OutboxMessage
			processedOn sql.NullTime
			errText     sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.Type, &m.Content, &m.OccurredOn, &processedOn, &errText); err != nil {
			return nil, err
		}
		if processedOn.Valid {
			t := processedOn.Time.UTC()
			m.ProcessedOn = &t
		}
		if errText.Valid {
			e := errText.String
			m.Error = &e
		}
		m.OccurredOn = m.OccurredOn.UTC()
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *OutboxRepoPostgres) MarkProcessed(ctx context.Context, id uuid.UUID, processedOn time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE outbox_messages SET processed_on=$1 WHERE id=$2`, processedOn.UTC(), id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res, id)
}

func (r *OutboxRepoPostgres) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE outbox_messages SET error=$1 WHERE id=$2`, errMsg, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res, id)
}

// DeleteProcessedBefore borra un lote acotado; el ORDER BY + LIMIT va en la
// subconsulta porque DELETE en Postgres no admite LIMIT.
func (r *OutboxRepoPostgres) DeleteProcessedBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM outbox_messages
		 WHERE id IN (
			SELECT id FROM outbox_messages
			WHERE processed_on IS NOT NULL AND processed_on < $1
			ORDER BY processed_on
			LIMIT $2
		 )`, cutoff.UTC(), limit,
	)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}

func (r *OutboxRepoPostgres) Stats(ctx context.Context) (sharedDomain.OutboxStats, error) {
	var s sharedDomain.OutboxStats
	err := r.db.QueryRowContext(ctx,
		`SELECT
			COUNT(*) FILTER (WHERE processed_on IS NULL),
			COUNT(*) FILTER (WHERE processed_on IS NULL AND error IS NOT NULL),
			COUNT(*) FILTER (WHERE processed_on IS NOT NULL)
		 FROM outbox_messages`,
	).Scan(&s.Pending, &s.Failed, &s.Processed)
	return s, err
}

func expectOneRow(res sql.Result, id uuid.UUID) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get RowsAffected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", sharedDomain.ErrOutboxMessageNotFound, id)
	}
	return nil
}

// Verificación en tiempo de compilación.
var _ sharedDomain.OutboxRepository = (*OutboxRepoPostgres)(nil)
