package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	sharedDomain "github.com/davicafu/habitflow/internal/shared/domain"
	"github.com/google/uuid"
)

var (
	ErrHandlerNotRegistered = errors.New("no handler registered for event type")
	ErrEventDecoding        = errors.New("event content could not be decoded")
	ErrEventTypeRequired    = errors.New("event type is required")
	ErrHandlerRequired      = errors.New("event handler is required")
)

// Handler recibe el evento ya decodificado junto al id del mensaje outbox,
// que sirve como clave de idempotencia.
type Handler[T sharedDomain.DomainEvent] func(ctx context.Context, messageID uuid.UUID, evt T) error

// AnyHandler se ejecuta para cualquier tipo registrado.
type AnyHandler func(ctx context.Context, messageID uuid.UUID, evt sharedDomain.DomainEvent) error

type entry struct {
	decode   func(content []byte) (sharedDomain.DomainEvent, error)
	handlers []AnyHandler
}

// Registry es el conjunto cerrado de eventos conocidos:
// tag -> decoder -> handlers. No usa reflexión.
type Registry struct {
	mu        sync.RWMutex
	entries   map[string]*entry
	observers []AnyHandler
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// RegisterType da de alta el decoder de T sin handler. Se llama al arrancar
// con tipos fijos, así que un tag vacío es un fallo de programación: panic.
func RegisterType[T sharedDomain.DomainEvent](r *Registry) string {
	var zero T
	tag := zero.EventType()
	if tag == "" {
		panic(fmt.Errorf("%w: %T", ErrEventTypeRequired, zero))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ensure(tag, decoderFor[T]())
	return tag
}

// Register añade un handler para T. Varios handlers por tipo se ejecutan en
// orden de registro y todos deben ser idempotentes.
func Register[T sharedDomain.DomainEvent](r *Registry, handler Handler[T]) error {
	if handler == nil {
		return ErrHandlerRequired
	}
	var zero T
	tag := zero.EventType()
	if tag == "" {
		return ErrEventTypeRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.ensure(tag, decoderFor[T]())
	e.handlers = append(e.handlers, func(ctx context.Context, id uuid.UUID, evt sharedDomain.DomainEvent) error {
		typed, ok := evt.(T)
		if !ok {
			return fmt.Errorf("%w: %s: unexpected %T", ErrEventDecoding, tag, evt)
		}
		return handler(ctx, id, typed)
	})
	return nil
}

// Observe registra un handler que corre para todos los tipos, después de los tipados.
func (r *Registry) Observe(handler AnyHandler) error {
	if handler == nil {
		return ErrHandlerRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, handler)
	return nil
}

// Types devuelve los tags registrados, ordenados.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.entries))
	for tag := range r.entries {
		types = append(types, tag)
	}
	sort.Strings(types)
	return types
}

// Decode convierte el contenido de un mensaje outbox en su evento concreto.
func (r *Registry) Decode(msg sharedDomain.OutboxMessage) (sharedDomain.DomainEvent, error) {
	r.mu.RLock()
	e, ok := r.entries[msg.Type]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrHandlerNotRegistered, msg.Type)
	}
	return e.decode([]byte(msg.Content))
}

// Dispatch decodifica msg e invoca sus handlers y luego los observers.
// El primer error corta la cadena; el mensaje se reintentará completo.
func (r *Registry) Dispatch(ctx context.Context, msg sharedDomain.OutboxMessage) error {
	r.mu.RLock()
	var handlers []AnyHandler
	if e, ok := r.entries[msg.Type]; ok {
		handlers = make([]AnyHandler, 0, len(e.handlers)+len(r.observers))
		handlers = append(handlers, e.handlers...)
		handlers = append(handlers, r.observers...)
	}
	r.mu.RUnlock()

	if len(handlers) == 0 {
		return fmt.Errorf("%w: %s", ErrHandlerNotRegistered, msg.Type)
	}

	evt, err := r.Decode(msg)
	if err != nil {
		return err
	}

	for _, h := range handlers {
		if err := h(ctx, msg.ID, evt); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) ensure(tag string, decode func([]byte) (sharedDomain.DomainEvent, error)) *entry {
	if e, ok := r.entries[tag]; ok {
		return e
	}
	e := &entry{decode: decode}
	r.entries[tag] = e
	return e
}

func decoderFor[T sharedDomain.DomainEvent]() func([]byte) (sharedDomain.DomainEvent, error) {
	return func(content []byte) (sharedDomain.DomainEvent, error) {
		var evt T
		if err := json.Unmarshal(content, &evt); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrEventDecoding, evt.EventType(), err)
		}
		return evt, nil
	}
}
