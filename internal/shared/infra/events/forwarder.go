package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	sharedDomain "github.com/davicafu/habitflow/internal/shared/domain"
	sharedEvents "github.com/davicafu/habitflow/internal/shared/domain/events"
	sharedBus "github.com/davicafu/habitflow/internal/shared/infra/platform/bus"
)

// Forwarder reenvía cada evento del outbox a un Publisher externo.
// Se registra como observer: corre para todos los tipos conocidos.
type Forwarder struct {
	publisher sharedBus.Publisher
}

func NewForwarder(publisher sharedBus.Publisher) *Forwarder {
	return &Forwarder{publisher: publisher}
}

func (f *Forwarder) Handle(ctx context.Context, messageID uuid.UUID, evt sharedDomain.DomainEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", sharedDomain.ErrEventEncoding, evt.EventType(), err)
	}

	ie := sharedEvents.IntegrationEvent{
		ID:        messageID.String(),
		Type:      evt.EventType(),
		Timestamp: evt.OccurredOn(),
		Data:      data,
	}
	if k, ok := evt.(sharedBus.Keyer); ok {
		ie.Key = k.PartitionKey()
	}

	if err := f.publisher.Publish(ctx, ie); err != nil {
		return fmt.Errorf("forward %s: %w", ie.Type, err)
	}
	return nil
}

// Register engancha el forwarder en el registro.
func (f *Forwarder) Register(r *sharedEvents.Registry) error {
	return r.Observe(f.Handle)
}
