package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	sharedEvents "github.com/davicafu/habitflow/internal/shared/domain/events"
)

// MockPublisher es un mock de bus.Publisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, evt sharedEvents.IntegrationEvent) error {
	args := m.Called(ctx, evt)
	return args.Error(0)
}
