package application

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/davicafu/habitflow/internal/billing/domain"
	"github.com/davicafu/habitflow/internal/billing/infra/outbound/db/sqldb"
	platformDB "github.com/davicafu/habitflow/internal/shared/infra/platform/db"
	sqliteStore "github.com/davicafu/habitflow/internal/shared/infra/platform/db/sqlite"
	"github.com/davicafu/habitflow/internal/shared/infra/uow"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedPayTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*InvoiceService, *sqliteStore.OutboxRepoSQLite) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	require.NoError(t, sqliteStore.InitSchema(ctx, db))
	repo := sqldb.NewInvoiceRepo(db, platformDB.SQLite)
	require.NoError(t, repo.InitSchema(ctx))

	outbox := sqliteStore.NewOutboxRepoSQLite(db)
	factory := uow.NewFactory(db, outbox, zap.NewNop(),
		uow.NewAuditInterceptor(),
		uow.NewOutboxCaptureInterceptor(zap.NewNop()),
	)
	factory.RegisterPersister(domain.EntityName, repo)
	return NewInvoiceService(repo, factory, zap.NewNop()), outbox
}

func TestIssueAndPayInvoice(t *testing.T) {
	service, outbox := newService(t)
	ctx := context.Background()
	userID := uuid.New()

	inv, err := service.IssueInvoice(ctx, userID, "Billing@Example.com", decimal.RequireFromString("19.999"), "eur")
	require.NoError(t, err)
	assert.Equal(t, "20.00", inv.Amount.StringFixed(2))
	assert.Equal(t, "EUR", inv.Currency)

	paid, err := service.PayInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, paid.Status)

	stored, err := service.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, stored.Status)
	assert.True(t, stored.Amount.Equal(decimal.RequireFromString("20")))
	assert.Equal(t, "billing@example.com", stored.BillingEmail)
	require.NotNil(t, stored.PaidAt)
	require.NotNil(t, stored.UpdatedAt, "el interceptor de auditoría sella la modificación")

	msgs, err := outbox.FetchPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.InvoiceIssued, msgs[0].Type)
	assert.Equal(t, domain.InvoicePaid, msgs[1].Type)

	var evt domain.InvoicePaidEvent
	require.NoError(t, json.Unmarshal([]byte(msgs[1].Content), &evt))
	assert.Equal(t, inv.ID, evt.InvoiceID)
	assert.True(t, evt.Amount.Equal(decimal.RequireFromString("20.00")))
}

func TestPayInvoice_Twice(t *testing.T) {
	service, outbox := newService(t)
	ctx := context.Background()

	inv, err := service.IssueInvoice(ctx, uuid.New(), "a@example.com", decimal.NewFromInt(5), "EUR")
	require.NoError(t, err)
	_, err = service.PayInvoice(ctx, inv.ID)
	require.NoError(t, err)

	_, err = service.PayInvoice(ctx, inv.ID)
	assert.ErrorIs(t, err, domain.ErrInvoiceAlreadyPaid)

	stats, err := outbox.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Pending)
}

func TestPayInvoice_ConcurrentSessionsEmitOnce(t *testing.T) {
	service, outbox := newService(t)
	ctx := context.Background()

	inv, err := service.IssueInvoice(ctx, uuid.New(), "a@example.com", decimal.NewFromInt(5), "EUR")
	require.NoError(t, err)

	// dos peticiones leen la factura antes de que ninguna confirme
	first, err := service.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	second, err := service.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	require.NoError(t, first.Pay(fixedPayTime))
	require.NoError(t, second.Pay(fixedPayTime))

	s1 := service.sessions.NewSession()
	s1.Update(first)
	require.NoError(t, s1.Commit(ctx))

	s2 := service.sessions.NewSession()
	s2.Update(second)
	assert.ErrorIs(t, s2.Commit(ctx), domain.ErrInvoiceAlreadyPaid)

	msgs, err := outbox.FetchPending(ctx, 10)
	require.NoError(t, err)
	paid := 0
	for _, m := range msgs {
		if m.Type == domain.InvoicePaid {
			paid++
		}
	}
	assert.Equal(t, 1, paid)
}

func TestPayInvoice_NotFound(t *testing.T) {
	service, _ := newService(t)

	_, err := service.PayInvoice(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrInvoiceNotFound)
}

func TestIssueInvoice_Invalid(t *testing.T) {
	service, outbox := newService(t)
	ctx := context.Background()

	_, err := service.IssueInvoice(ctx, uuid.New(), "a@example.com", decimal.Zero, "EUR")
	assert.ErrorIs(t, err, domain.ErrInvalidInvoice)
	_, err = service.IssueInvoice(ctx, uuid.New(), "a@example.com", decimal.NewFromInt(1), "EURO")
	assert.ErrorIs(t, err, domain.ErrInvalidInvoice)
	_, err = service.IssueInvoice(ctx, uuid.Nil, "a@example.com", decimal.NewFromInt(1), "EUR")
	assert.ErrorIs(t, err, domain.ErrInvalidInvoice)

	msgs, err := outbox.FetchPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
