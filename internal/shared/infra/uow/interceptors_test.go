package uow

import (
	"context"
	"testing"
	"time"

	sharedDomain "github.com/davicafu/habitflow/internal/shared/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAuditInterceptor(t *testing.T) {
	modified := newWidget("a")
	deleted := newWidget("b")
	added := newWidget("c")
	hard := &plain{ID: uuid.New()}

	cs := &ChangeSet{
		Now: fixedNow,
		Entries: []*Entry{
			{Entity: modified, State: sharedDomain.Modified},
			{Entity: deleted, State: sharedDomain.Deleted},
			{Entity: added, State: sharedDomain.Added},
			{Entity: hard, State: sharedDomain.Deleted},
		},
	}

	require.NoError(t, NewAuditInterceptor().SavingChanges(context.Background(), cs))

	require.NotNil(t, modified.UpdatedAt)
	assert.False(t, modified.IsDeleted())

	assert.Equal(t, sharedDomain.Modified, cs.Entries[1].State)
	assert.True(t, deleted.IsDeleted())
	assert.NotNil(t, deleted.UpdatedAt)

	assert.Nil(t, added.UpdatedAt)
	assert.Equal(t, sharedDomain.Deleted, cs.Entries[3].State)
}

func TestOutboxCaptureInterceptor_StagesAndClearsAfterCommit(t *testing.T) {
	w := newWidget("a")
	w.Rename("b")
	other := newWidget("c")

	cs := &ChangeSet{
		Now: fixedNow,
		Entries: []*Entry{
			{Entity: w, State: sharedDomain.Added},
			{Entity: &plain{ID: uuid.New()}, State: sharedDomain.Added},
			{Entity: other, State: sharedDomain.Modified},
		},
	}
	capture := NewOutboxCaptureInterceptor(zap.NewNop())

	require.NoError(t, capture.SavingChanges(context.Background(), cs))
	require.Len(t, cs.Outbox, 3)
	for _, m := range cs.Outbox {
		assert.Equal(t, "WidgetNamed", m.Type)
		assert.True(t, m.OccurredOn.Equal(fixedNow))
		assert.True(t, m.IsPending())
		assert.NotEqual(t, uuid.Nil, m.ID)
	}
	assert.Contains(t, cs.Outbox[0].Content, `"name":"a"`)

	// hasta que la transacción confirma los eventos siguen en el agregado
	assert.Len(t, w.PendingEvents(), 2)
	assert.Len(t, other.PendingEvents(), 1)

	cs.committed()
	assert.Empty(t, w.PendingEvents())
	assert.Empty(t, other.PendingEvents())
}

func TestOutboxCaptureInterceptor_SerializationErrorKeepsEvents(t *testing.T) {
	ok := newWidget("a")
	broken := newWidget("b")
	broken.Record(brokenEvent{EventBase: sharedDomain.NewEventBase(time.Now()), Ch: make(chan int)})

	cs := &ChangeSet{
		Now: fixedNow,
		Entries: []*Entry{
			{Entity: ok, State: sharedDomain.Added},
			{Entity: broken, State: sharedDomain.Added},
		},
	}

	err := NewOutboxCaptureInterceptor(nil).SavingChanges(context.Background(), cs)

	assert.ErrorIs(t, err, sharedDomain.ErrEventEncoding)
	assert.Empty(t, cs.Outbox)
	assert.Len(t, ok.PendingEvents(), 1)
	assert.Len(t, broken.PendingEvents(), 2)
}
