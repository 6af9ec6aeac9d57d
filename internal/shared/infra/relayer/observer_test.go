package relayer

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	sharedDomain "github.com/davicafu/habitflow/internal/shared/domain"
	sharedDomainEvents "github.com/davicafu/habitflow/internal/shared/domain/events"
	"github.com/davicafu/habitflow/tests/mocks"
)

func TestDeliveryLogger_TypeWithoutConsumersIsDelivered(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	r := sharedDomainEvents.NewRegistry()
	sharedDomainEvents.RegisterType[pinged](r)
	require.NoError(t, r.Observe(DeliveryLogger(zap.New(core))))

	repo := new(mocks.MockOutboxRepository)
	msg := newPing(t, 7, fixedNow)
	repo.On("FetchPending", mock.Anything, 10).Return([]sharedDomain.OutboxMessage{msg}, nil).Once()
	repo.On("MarkProcessed", mock.Anything, msg.ID, fixedNow).Return(nil).Once()

	res := NewDispatcher(repo, r, zap.NewNop(), WithBatchSize(10), WithClock(clock)).ProcessBatch(context.Background())

	assert.Equal(t, DispatchResult{Fetched: 1, Delivered: 1}, res)
	require.Equal(t, 1, logs.FilterField(zap.String("message_id", msg.ID.String())).Len())
	repo.AssertExpectations(t)
}

func TestDeliveryLogger_NilLogger(t *testing.T) {
	h := DeliveryLogger(nil)
	assert.NoError(t, h(context.Background(), uuid.New(), pinged{}))
}
