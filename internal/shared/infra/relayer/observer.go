package relayer

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	sharedDomain "github.com/davicafu/habitflow/internal/shared/domain"
	sharedEvents "github.com/davicafu/habitflow/internal/shared/domain/events"
)

// DeliveryLogger es el observer mínimo: deja traza de cada entrega.
// Con él, un tipo registrado sin consumidores se marca procesado en vez de
// quedarse pendiente para siempre.
func DeliveryLogger(log *zap.Logger) sharedEvents.AnyHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(ctx context.Context, messageID uuid.UUID, evt sharedDomain.DomainEvent) error {
		log.Debug("📬 Evento entregado",
			zap.String("message_id", messageID.String()),
			zap.String("event_type", evt.EventType()),
			zap.Time("occurred_on", evt.OccurredOn()),
		)
		return nil
	}
}
