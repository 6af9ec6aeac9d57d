package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, msg Message) error {
	return m.Called(ctx, msg).Error(0)
}

func TestNotifier_SendOnce_Deduplicates(t *testing.T) {
	sender := new(mockSender)
	msg := Message{Channel: SMS, To: "+34600000000", Body: "hola"}
	sender.On("Send", mock.Anything, msg).Return(nil).Once()

	n := NewNotifier(sender, NewMemoryLedger(), zap.NewNop())

	require.NoError(t, n.SendOnce(context.Background(), "k1", msg))
	require.NoError(t, n.SendOnce(context.Background(), "k1", msg))

	sender.AssertExpectations(t)
	sender.AssertNumberOfCalls(t, "Send", 1)
}

func TestNotifier_SendOnce_FailureIsNotMarked(t *testing.T) {
	sender := new(mockSender)
	msg := Message{Channel: Email, To: "ana@example.com"}
	sender.On("Send", mock.Anything, msg).Return(errors.New("smtp down")).Once()
	sender.On("Send", mock.Anything, msg).Return(nil).Once()

	ledger := NewMemoryLedger()
	n := NewNotifier(sender, ledger, nil)

	assert.Error(t, n.SendOnce(context.Background(), "k1", msg))
	seen, _ := ledger.Seen(context.Background(), "k1")
	assert.False(t, seen)

	// la reentrega vuelve a intentarlo
	require.NoError(t, n.SendOnce(context.Background(), "k1", msg))
	seen, _ = ledger.Seen(context.Background(), "k1")
	assert.True(t, seen)
}

func TestNotifier_SendOnce_NoRecipient(t *testing.T) {
	n := NewNotifier(new(mockSender), NewMemoryLedger(), nil)
	assert.ErrorIs(t, n.SendOnce(context.Background(), "k", Message{Channel: SMS}), ErrNoRecipient)
}
