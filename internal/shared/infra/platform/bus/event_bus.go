package bus

import (
	"context"

	sharedEvents "github.com/davicafu/habitflow/internal/shared/domain/events"
)

// Keyer lo implementan los eventos que quieren fijar partición en el broker.
type Keyer interface {
	PartitionKey() string
}

// Publisher entrega eventos de integración fuera del proceso.
// La semántica de topic y formato la deciden los adapters.
type Publisher interface {
	Publish(ctx context.Context, evt sharedEvents.IntegrationEvent) error
}
