package events

import (
	"encoding/json"
	"time"
)

// IntegrationEvent es el sobre con el que un evento de dominio sale del
// proceso. ID es el id del mensaje outbox: los consumidores externos lo usan
// para deduplicar reentregas.
type IntegrationEvent struct {
	ID        string          `json:"id"`
	Key       string          `json:"-"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"` // contenido específico del evento
}
