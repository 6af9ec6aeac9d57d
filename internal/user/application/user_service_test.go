package application

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sharedDomain "github.com/davicafu/habitflow/internal/shared/domain"
	platformDB "github.com/davicafu/habitflow/internal/shared/infra/platform/db"
	sqliteStore "github.com/davicafu/habitflow/internal/shared/infra/platform/db/sqlite"
	"github.com/davicafu/habitflow/internal/shared/infra/uow"
	"github.com/davicafu/habitflow/internal/user/domain"
	"github.com/davicafu/habitflow/internal/user/infra/outbound/db/sqldb"
	"github.com/davicafu/habitflow/tests/mocks"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	db      *sql.DB
	outbox  *sqliteStore.OutboxRepoSQLite
	cache   *mocks.DummyCache
	service *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	require.NoError(t, sqliteStore.InitSchema(ctx, db))
	repo := sqldb.NewUserRepo(db, platformDB.SQLite)
	require.NoError(t, repo.InitSchema(ctx))

	outbox := sqliteStore.NewOutboxRepoSQLite(db)
	factory := uow.NewFactory(db, outbox, zap.NewNop(),
		uow.NewAuditInterceptor(),
		uow.NewOutboxCaptureInterceptor(zap.NewNop()),
	)
	factory.RegisterPersister(domain.EntityName, repo)

	cache := mocks.NewDummyCache()
	return &fixture{
		db:      db,
		outbox:  outbox,
		cache:   cache,
		service: NewUserService(repo, factory, cache, zap.NewNop()),
	}
}

func (f *fixture) pending(t *testing.T) []sharedDomain.OutboxMessage {
	t.Helper()
	msgs, err := f.outbox.FetchPending(context.Background(), 100)
	require.NoError(t, err)
	return msgs
}

func TestRegisterUser_Success(t *testing.T) {
	f := newFixture(t)

	user, err := f.service.RegisterUser(context.Background(), "test@example.com", "Pepe", "+34600000000", time.Date(1990, 5, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "test@example.com", user.Email)
	assert.Equal(t, "Pepe", user.Nombre)

	// ✅ el evento queda en el outbox en el mismo commit
	msgs := f.pending(t)
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.UserRegistered, msgs[0].Type)
	assert.Contains(t, msgs[0].Content, user.ID.String())
	assert.Empty(t, user.PendingEvents())
}

func TestRegisterUser_AlreadyExists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.service.RegisterUser(ctx, "dup@example.com", "Juan", "", time.Time{})
	require.NoError(t, err)

	_, err = f.service.RegisterUser(ctx, "DUP@example.com", "Juan", "", time.Time{})
	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
	assert.Len(t, f.pending(t), 1)
}

func TestRegisterUser_Invalid(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.RegisterUser(context.Background(), "nope", "Juan", "", time.Time{})
	assert.ErrorIs(t, err, domain.ErrInvalidUser)
	assert.Empty(t, f.pending(t))
}

func TestChangeEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, err := f.service.RegisterUser(ctx, "old@example.com", "Ana", "", time.Time{})
	require.NoError(t, err)

	updated, err := f.service.ChangeEmail(ctx, user.ID, "new@example.com")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", updated.Email)
	assert.NotNil(t, updated.UpdatedAt)

	msgs := f.pending(t)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.UserEmailChanged, msgs[1].Type)

	// sin cambios no hay commit ni evento
	_, err = f.service.ChangeEmail(ctx, user.ID, "new@example.com")
	require.NoError(t, err)
	assert.Len(t, f.pending(t), 2)
}

func TestDeleteUser_SoftDeletes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, err := f.service.RegisterUser(ctx, "ana@example.com", "Ana", "", time.Time{})
	require.NoError(t, err)

	require.NoError(t, f.service.DeleteUser(ctx, user.ID))

	_, err = f.service.GetUser(ctx, user.ID)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	var deleted bool
	require.NoError(t, f.db.QueryRow(`SELECT deleted FROM users WHERE id = ?`, user.ID.String()).Scan(&deleted))
	assert.True(t, deleted)

	msgs := f.pending(t)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.UserDeleted, msgs[1].Type)

	assert.ErrorIs(t, f.service.DeleteUser(ctx, user.ID), domain.ErrUserNotFound)
}

func TestDeleteUser_ConcurrentSessionsEmitOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user, err := f.service.RegisterUser(ctx, "ana@example.com", "Ana", "", time.Time{})
	require.NoError(t, err)

	first, err := f.service.repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	second, err := f.service.repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	now := time.Now()
	require.NoError(t, first.Delete(now))
	require.NoError(t, second.Delete(now))

	s1 := f.service.sessions.NewSession()
	s1.Remove(first)
	require.NoError(t, s1.Commit(ctx))

	s2 := f.service.sessions.NewSession()
	s2.Remove(second)
	assert.ErrorIs(t, s2.Commit(ctx), domain.ErrUserNotFound)

	deletes := 0
	for _, m := range f.pending(t) {
		if m.Type == domain.UserDeleted {
			deletes++
		}
	}
	assert.Equal(t, 1, deletes)
}

func TestGetUser_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.GetUser(context.Background(), uuid.New())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestGetUser_CacheHit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cached := domain.User{ID: uuid.New(), Email: "cached@example.com", Nombre: "Cache"}
	require.NoError(t, f.cache.Set(ctx, domain.CacheKeyByID(cached.ID), cached, time.Minute))

	got, err := f.service.GetUser(ctx, cached.ID)
	require.NoError(t, err)
	assert.Equal(t, "cached@example.com", got.Email)
}
