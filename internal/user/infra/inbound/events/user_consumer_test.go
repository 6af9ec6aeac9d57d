package events

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/davicafu/habitflow/internal/notification"
	sharedDomain "github.com/davicafu/habitflow/internal/shared/domain"
	sharedEvents "github.com/davicafu/habitflow/internal/shared/domain/events"
	userDomain "github.com/davicafu/habitflow/internal/user/domain"
	"github.com/davicafu/habitflow/tests/mocks"
)

type recordingSender struct {
	sent []notification.Message
}

func (s *recordingSender) Send(ctx context.Context, msg notification.Message) error {
	s.sent = append(s.sent, msg)
	return nil
}

func setup() (*UserConsumer, *recordingSender, *mocks.DummyCache) {
	sender := &recordingSender{}
	cache := mocks.NewDummyCache()
	notifier := notification.NewNotifier(sender, notification.NewMemoryLedger(), zap.NewNop())
	return NewUserConsumer(notifier, cache, zap.NewNop()), sender, cache
}

func TestSendWelcomeSMS_RedeliveryIsHarmless(t *testing.T) {
	consumer, sender, _ := setup()
	ctx := context.Background()
	msgID := uuid.New()
	evt := userDomain.UserRegisteredEvent{UserID: uuid.New(), Nombre: "Ana", Phone: "+34600000000"}

	require.NoError(t, consumer.SendWelcomeSMS(ctx, msgID, evt))
	require.NoError(t, consumer.SendWelcomeSMS(ctx, msgID, evt))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, notification.SMS, sender.sent[0].Channel)
	assert.Contains(t, sender.sent[0].Body, "Ana")
}

func TestSendWelcomeSMS_NoPhone(t *testing.T) {
	consumer, sender, _ := setup()

	require.NoError(t, consumer.SendWelcomeSMS(context.Background(), uuid.New(), userDomain.UserRegisteredEvent{UserID: uuid.New()}))
	assert.Empty(t, sender.sent)
}

func TestInvalidateOnEmailChange_RedeliveryIsHarmless(t *testing.T) {
	consumer, _, cache := setup()
	ctx := context.Background()
	userID := uuid.New()
	key := userDomain.CacheKeyByID(userID)
	require.NoError(t, cache.Set(ctx, key, map[string]string{"email": "old@example.com"}, time.Minute))

	evt := userDomain.UserEmailChangedEvent{UserID: userID, OldEmail: "old@example.com", NewEmail: "new@example.com"}
	require.NoError(t, consumer.InvalidateOnEmailChange(ctx, uuid.New(), evt))
	require.NoError(t, consumer.InvalidateOnEmailChange(ctx, uuid.New(), evt))

	assert.False(t, cache.Has(key))
	assert.Equal(t, []string{key, key}, cache.DeletedKeys())
}

func TestUserConsumer_RegisteredHandlersRunThroughRegistry(t *testing.T) {
	consumer, sender, cache := setup()
	registry := sharedEvents.NewRegistry()
	userDomain.RegisterEvents(registry)
	require.NoError(t, consumer.Register(registry))

	userID := uuid.New()
	evt := userDomain.UserEmailChangedEvent{
		EventBase: sharedDomain.NewEventBase(time.Now()),
		UserID:    userID,
		OldEmail:  "old@example.com",
		NewEmail:  "new@example.com",
	}
	msg, err := sharedDomain.NewOutboxMessage(evt, time.Now())
	require.NoError(t, err)

	require.NoError(t, registry.Dispatch(context.Background(), msg))
	require.NoError(t, registry.Dispatch(context.Background(), msg))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "old@example.com", sender.sent[0].To)
	assert.Contains(t, cache.DeletedKeys(), userDomain.CacheKeyByID(userID))
}
