package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sharedDomain "github.com/davicafu/habitflow/internal/shared/domain"
	platformDB "github.com/davicafu/habitflow/internal/shared/infra/platform/db"
	"github.com/google/uuid"
)

// las fechas van como TEXT con el formato del dialecto SQLite
const dialect = platformDB.SQLite

// OutboxRepoSQLite implementa sharedDomain.OutboxRepository y uow.OutboxWriter.
type OutboxRepoSQLite struct {
	db *sql.DB
}

func NewOutboxRepoSQLite(db *sql.DB) *OutboxRepoSQLite {
	return &OutboxRepoSQLite{db: db}
}

// InsertOutbox inserta los mensajes dentro de la transacción del negocio.
func (r *OutboxRepoSQLite) InsertOutbox(ctx context.Context, tx *sql.Tx, msgs []sharedDomain.OutboxMessage) error {
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO outbox_messages (id, type, content, occurred_on, processed_on, error)
		 VALUES (?, ?, ?, ?, NULL, NULL)`)
	if err != nil {
		return fmt.Errorf("prepare outbox insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range msgs {
		if _, err := stmt.ExecContext(ctx, m.ID.String(), m.Type, m.Content, dialect.TimeArg(m.OccurredOn)); err != nil {
			return fmt.Errorf("failed to insert outbox message %s: %w", m.ID, err)
		}
	}
	return nil
}

// FetchPending obtiene los mensajes no procesados, los más antiguos primero.
// Los que ya fallaron van detrás para que no acaparen el lote.
func (r *OutboxRepoSQLite) FetchPending(ctx context.Context, limit int) ([]sharedDomain.OutboxMessage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, type, content, occurred_on, processed_on, error
		 FROM outbox_messages
		 WHERE processed_on IS NULL
		 ORDER BY (error IS NOT NULL), occurred_on
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []sharedDomain.OutboxMessage
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return msgs, nil
}

// GetByID se usa en tests y diagnósticos.
func (r *OutboxRepoSQLite) GetByID(ctx context.Context, id uuid.UUID) (sharedDomain.OutboxMessage, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, type, content, occurred_on, processed_on, error FROM outbox_messages WHERE id = ?`, id.String())
	m, err := scanMessage(row)
	if err == sql.ErrNoRows {
		return sharedDomain.OutboxMessage{}, sharedDomain.ErrOutboxMessageNotFound
	}
	return m, err
}

func (r *OutboxRepoSQLite) MarkProcessed(ctx context.Context, id uuid.UUID, processedOn time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE outbox_messages SET processed_on = ? WHERE id = ?`, dialect.TimeArg(processedOn), id.String())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res, id)
}

func (r *OutboxRepoSQLite) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE outbox_messages SET error = ? WHERE id = ?`, errMsg, id.String())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return expectOneRow(res, id)
}

// DeleteProcessedBefore borra como mucho limit mensajes procesados antes de cutoff.
func (r *OutboxRepoSQLite) DeleteProcessedBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM outbox_messages
		 WHERE id IN (
			SELECT id FROM outbox_messages
			WHERE processed_on IS NOT NULL AND processed_on < ?
			ORDER BY processed_on
			LIMIT ?
		 )`, dialect.TimeArg(cutoff), limit,
	)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}

func (r *OutboxRepoSQLite) Stats(ctx context.Context) (sharedDomain.OutboxStats, error) {
	var s sharedDomain.OutboxStats
	err := r.db.QueryRowContext(ctx,
		`SELECT
			COALESCE(SUM(CASE WHEN processed_on IS NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN processed_on IS NULL AND error IS NOT NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN processed_on IS NOT NULL THEN 1 ELSE 0 END), 0)
		 FROM outbox_messages`,
	).Scan(&s.Pending, &s.Failed, &s.Processed)
	return s, err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMessage(s scanner) (sharedDomain.OutboxMessage, error) {
	var (
		m                       sharedDomain.OutboxMessage
		idStr                   string
		occurredOn, processedOn platformDB.Timestamp
		errText                 sql.NullString
	)
	if err := s.Scan(&idStr, &m.Type, &m.Content, &occurredOn, &processedOn, &errText); err != nil {
		return m, err
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return m, fmt.Errorf("invalid UUID in outbox row: %w", err)
	}
	m.ID = id
	m.OccurredOn = occurredOn.Time
	m.ProcessedOn = processedOn.Ptr()
	if errText.Valid {
		e := errText.String
		m.Error = &e
	}
	return m, nil
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
var _ sharedDomain.OutboxRepository = (*OutboxRepoSQLite)(nil)
