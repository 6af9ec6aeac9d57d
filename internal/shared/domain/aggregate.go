package domain

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent describe un hecho que ya ocurrió dentro de un agregado.
// EventType es el discriminador que se guarda en el outbox y que el
// dispatcher usa para elegir decoder y handlers.
type DomainEvent interface {
	EventType() string
	OccurredOn() time.Time
}

// EventBase se embebe en los eventos concretos.
type EventBase struct {
	Occurred time.Time `json:"occurredOn"`
}

func NewEventBase(now time.Time) EventBase {
	return EventBase{Occurred: now.UTC()}
}

func (b EventBase) OccurredOn() time.Time {
	return b.Occurred
}

// EventSource es lo único que la captura necesita de un agregado.
type EventSource interface {
	PendingEvents() []DomainEvent
	ClearEvents()
}

// Entity es cualquier cosa que el unit of work puede rastrear y persistir.
type Entity interface {
	EntityName() string
	EntityID() uuid.UUID
}

// AggregateRoot es dueño del buffer de eventos que registran sus métodos.
// Sólo la captura del outbox lo vacía.
type AggregateRoot struct {
	events []DomainEvent
}

// Record añade un evento al buffer pendiente.
func (a *AggregateRoot) Record(evt DomainEvent) {
	a.events = append(a.events, evt)
}

// PendingEvents devuelve una copia; el buffer no se toca desde fuera.
func (a *AggregateRoot) PendingEvents() []DomainEvent {
	if len(a.events) == 0 {
		return nil
	}
	out := make([]DomainEvent, len(a.events))
	copy(out, a.events)
	return out
}

func (a *AggregateRoot) ClearEvents() {
	a.events = nil
}

// Verificación estática
var _ EventSource = (*AggregateRoot)(nil)
