package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEventEncoding         = errors.New("domain event could not be encoded")
	ErrOutboxMessageNotFound = errors.New("outbox message not found")
)

// OutboxMessage es la unidad durable de entrega at-least-once.
// ProcessedOn == nil significa pendiente; Error guarda el último fallo.
type OutboxMessage struct {
	ID          uuid.UUID  `json:"id"`
	Type        string     `json:"type"`
	Content     string     `json:"content"`
	OccurredOn  time.Time  `json:"occurred_on"`
	ProcessedOn *time.Time `json:"processed_on,omitempty"`
	Error       *string    `json:"error,omitempty"`
}

// NewOutboxMessage serializa evt en un mensaje pendiente.
func NewOutboxMessage(evt DomainEvent, now time.Time) (OutboxMessage, error) {
	if evt == nil {
		return OutboxMessage{}, fmt.Errorf("%w: nil event", ErrEventEncoding)
	}
	eventType := evt.EventType()
	if eventType == "" {
		return OutboxMessage{}, fmt.Errorf("%w: empty event type", ErrEventEncoding)
	}

	content, err := json.Marshal(evt)
	if err != nil {
		return OutboxMessage{}, fmt.Errorf("%w: %s: %v", ErrEventEncoding, eventType, err)
	}

	return OutboxMessage{
		ID:         uuid.New(),
		Type:       eventType,
		Content:    string(content),
		OccurredOn: now.UTC(),
	}, nil
}

func (m OutboxMessage) IsPending() bool {
	return m.ProcessedOn == nil
}

// OutboxStats es una foto de la tabla outbox.
type OutboxStats struct {
	Pending   int64 `json:"pending"`
	Failed    int64 `json:"failed"` // pendientes con error registrado
	Processed int64 `json:"processed"`
}

// OutboxRepository define el contrato para acceder a la tabla outbox.
// La inserción vive en el unit of work; aquí sólo lo que usan dispatcher y cleanup.
type OutboxRepository interface {
	FetchPending(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, processedOn time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error
	DeleteProcessedBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error)
	Stats(ctx context.Context) (OutboxStats, error)
}
