package mocks

import (
	"context"
	"sort"
	"sync"
	"time"

	sharedDomain "github.com/davicafu/habitflow/internal/shared/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockOutboxRepository es un mock de testify para sharedDomain.OutboxRepository.
type MockOutboxRepository struct {
	mock.Mock
}

func (m *MockOutboxRepository) FetchPending(ctx context.Context, limit int) ([]sharedDomain.OutboxMessage, error) {
	args := m.Called(ctx, limit)
	msgs, _ := args.Get(0).([]sharedDomain.OutboxMessage)
	return msgs, args.Error(1)
}

func (m *MockOutboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID, processedOn time.Time) error {
	args := m.Called(ctx, id, processedOn)
	return args.Error(0)
}

func (m *MockOutboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	args := m.Called(ctx, id, errMsg)
	return args.Error(0)
}

func (m *MockOutboxRepository) DeleteProcessedBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	args := m.Called(ctx, cutoff, limit)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOutboxRepository) Stats(ctx context.Context) (sharedDomain.OutboxStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(sharedDomain.OutboxStats), args.Error(1)
}

// InMemoryOutbox es un outbox en memoria seguro para concurrencia.
type InMemoryOutbox struct {
	mu   sync.Mutex
	msgs map[uuid.UUID]sharedDomain.OutboxMessage
}

func NewInMemoryOutbox(msgs ...sharedDomain.OutboxMessage) *InMemoryOutbox {
	o := &InMemoryOutbox{msgs: make(map[uuid.UUID]sharedDomain.OutboxMessage)}
	o.Seed(msgs...)
	return o
}

func (o *InMemoryOutbox) Seed(msgs ...sharedDomain.OutboxMessage) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, m := range msgs {
		o.msgs[m.ID] = m
	}
}

// Get devuelve una copia del mensaje.
func (o *InMemoryOutbox) Get(id uuid.UUID) (sharedDomain.OutboxMessage, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	m, ok := o.msgs[id]
	return m, ok
}

func (o *InMemoryOutbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.msgs)
}

func (o *InMemoryOutbox) FetchPending(ctx context.Context, limit int) ([]sharedDomain.OutboxMessage, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var pending []sharedDomain.OutboxMessage
	for _, m := range o.msgs {
		if m.IsPending() {
			pending = append(pending, m)
		}
	}
	// mismo orden que los repos SQL: primero los que nunca fallaron
	sort.Slice(pending, func(i, j int) bool {
		fi, fj := pending[i].Error != nil, pending[j].Error != nil
		if fi != fj {
			return !fi
		}
		return pending[i].OccurredOn.Before(pending[j].OccurredOn)
	})
	if limit < len(pending) {
		pending = pending[:limit]
	}
	return pending, nil
}

func (o *InMemoryOutbox) MarkProcessed(ctx context.Context, id uuid.UUID, processedOn time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	m, ok := o.msgs[id]
	if !ok {
		return sharedDomain.ErrOutboxMessageNotFound
	}
	t := processedOn.UTC()
	m.ProcessedOn = &t
	o.msgs[id] = m
	return nil
}

func (o *InMemoryOutbox) MarkFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	m, ok := o.msgs[id]
	if !ok {
		return sharedDomain.ErrOutboxMessageNotFound
	}
	m.Error = &errMsg
	o.msgs[id] = m
	return nil
}

func (o *InMemoryOutbox) DeleteProcessedBefore(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var candidates []sharedDomain.OutboxMessage
	for _, m := range o.msgs {
		if m.ProcessedOn != nil && m.ProcessedOn.Before(cutoff) {
			candidates = append(candidates, m)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ProcessedOn.Before(*candidates[j].ProcessedOn)
	})
	if limit < len(candidates) {
		candidates = candidates[:limit]
	}
	for _, m := range candidates {
		delete(o.msgs, m.ID)
	}
	return int64(len(candidates)), nil
}

func (o *InMemoryOutbox) Stats(ctx context.Context) (sharedDomain.OutboxStats, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var s sharedDomain.OutboxStats
	for _, m := range o.msgs {
		switch {
		case m.ProcessedOn != nil:
			s.Processed++
		case m.Error != nil:
			s.Pending++
			s.Failed++
		default:
			s.Pending++
		}
	}
	return s, nil
}

// Verificación estática
var (
	_ sharedDomain.OutboxRepository = (*MockOutboxRepository)(nil)
	_ sharedDomain.OutboxRepository = (*InMemoryOutbox)(nil)
)
