package domain

import (
	sharedDomain "github.com/davicafu/habitflow/internal/shared/domain"
	sharedEvents "github.com/davicafu/habitflow/internal/shared/domain/events"
	"github.com/google/uuid"
)

// Los tags se guardan en outbox_messages.type; no se pueden renombrar sin migrar.
const (
	UserRegistered   = "UserRegisteredEvent"
	UserEmailChanged = "UserEmailChangedEvent"
	UserDeleted      = "UserDeletedEvent"
)

const UserTopic = "user"

type UserRegisteredEvent struct {
	sharedDomain.EventBase
	UserID uuid.UUID `json:"userId"`
	Email  string    `json:"email"`
	Nombre string    `json:"nombre"`
	Phone  string    `json:"phone,omitempty"`
}

func (UserRegisteredEvent) EventType() string      { return UserRegistered }
func (e UserRegisteredEvent) PartitionKey() string { return e.UserID.String() }

type UserEmailChangedEvent struct {
	sharedDomain.EventBase
	UserID   uuid.UUID `json:"userId"`
	OldEmail string    `json:"oldEmail"`
	NewEmail string    `json:"newEmail"`
}

func (UserEmailChangedEvent) EventType() string      { return UserEmailChanged }
func (e UserEmailChangedEvent) PartitionKey() string { return e.UserID.String() }

type UserDeletedEvent struct {
	sharedDomain.EventBase
	UserID uuid.UUID `json:"userId"`
	Email  string    `json:"email"`
}

func (UserDeletedEvent) EventType() string      { return UserDeleted }
func (e UserDeletedEvent) PartitionKey() string { return e.UserID.String() }

// RegisterEvents da de alta el conjunto cerrado de eventos de usuario.
func RegisterEvents(r *sharedEvents.Registry) {
	sharedEvents.RegisterType[UserRegisteredEvent](r)
	sharedEvents.RegisterType[UserEmailChangedEvent](r)
	sharedEvents.RegisterType[UserDeletedEvent](r)
}
