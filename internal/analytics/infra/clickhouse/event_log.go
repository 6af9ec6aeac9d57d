package clickhouse

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	sharedDomain "github.com/davicafu/habitflow/internal/shared/domain"
	sharedEvents "github.com/davicafu/habitflow/internal/shared/domain/events"
)

// ReplacingMergeTree colapsa las filas con el mismo (event_type, message_id):
// una reentrega del outbox no duplica el histórico.
const schema = `
CREATE TABLE IF NOT EXISTS outbox_event_log (
	message_id  UUID,
	event_type  LowCardinality(String),
	occurred_on DateTime64(3, 'UTC'),
	recorded_at DateTime64(3, 'UTC'),
	payload     String
) ENGINE = ReplacingMergeTree(recorded_at)
PARTITION BY toYYYYMM(occurred_on)
ORDER BY (event_type, message_id)`

const insertQuery = `INSERT INTO outbox_event_log (message_id, event_type, occurred_on, recorded_at, payload) VALUES (?, ?, ?, ?, ?)`

// EventLog guarda cada evento entregado en ClickHouse para analítica.
type EventLog struct {
	db    *sql.DB
	clock func() time.Time
	log   *zap.Logger
}

// Open abre la conexión a ClickHouse y comprueba que responde.
func Open(ctx context.Context, addr, dbName string) (*sql.DB, error) {
	conn := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: dbName,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout: 5 * time.Second,
	})

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("could not ping clickhouse: %w", err)
	}
	return conn, nil
}

func NewEventLog(db *sql.DB, log *zap.Logger) *EventLog {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventLog{db: db, clock: time.Now, log: log}
}

func (l *EventLog) InitSchema(ctx context.Context) error {
	if _, err := l.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create outbox_event_log: %w", err)
	}
	return nil
}

// Handle es un observer del registro: inserta una fila por mensaje.
func (l *EventLog) Handle(ctx context.Context, messageID uuid.UUID, evt sharedDomain.DomainEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", sharedDomain.ErrEventEncoding, evt.EventType(), err)
	}

	_, err = l.db.ExecContext(ctx, insertQuery,
		messageID.String(),
		evt.EventType(),
		evt.OccurredOn().UTC(),
		l.clock().UTC(),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("event log insert %s: %w", messageID, err)
	}

	l.log.Debug("Evento registrado en ClickHouse",
		zap.String("message_id", messageID.String()),
		zap.String("event_type", evt.EventType()))
	return nil
}

func (l *EventLog) Register(r *sharedEvents.Registry) error {
	return r.Observe(l.Handle)
}
