package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const outboxSchema = `
CREATE TABLE IF NOT EXISTS outbox_messages (
	id           TEXT PRIMARY KEY,
	type         TEXT NOT NULL,
	content      TEXT NOT NULL,
	occurred_on  TEXT NOT NULL,
	processed_on TEXT NULL,
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
