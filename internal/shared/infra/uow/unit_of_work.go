package uow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	sharedDomain "github.com/davicafu/habitflow/internal/shared/domain"
	"go.uber.org/zap"
)

var ErrNoPersister = errors.New("no persister registered for entity")

// Persister escribe una entidad dentro de la transacción abierta por el commit.
type Persister interface {
	Persist(ctx context.Context, tx *sql.Tx, entity sharedDomain.Entity, state sharedDomain.EntityState) error
}

// OutboxWriter inserta los mensajes capturados en la misma transacción.
type OutboxWriter interface {
	InsertOutbox(ctx context.Context, tx *sql.Tx, msgs []sharedDomain.OutboxMessage) error
}

// Entry es una entidad rastreada y su estado pendiente.
type Entry struct {
	Entity sharedDomain.Entity
	State  sharedDomain.EntityState
}

// ChangeSet es lo que ven los interceptores antes del commit.
type ChangeSet struct {
	Entries []*Entry
	Outbox  []sharedDomain.OutboxMessage
	Now     time.Time

	afterCommit []func()
}

// Stage añade mensajes al outbox pendiente de este commit.
func (cs *ChangeSet) Stage(msgs ...sharedDomain.OutboxMessage) {
	cs.Outbox = append(cs.Outbox, msgs...)
}

// AfterCommit encola fn para cuando la transacción haya confirmado. Si el
// commit falla no se ejecuta y la sesión puede reintentarse tal cual.
func (cs *ChangeSet) AfterCommit(fn func()) {
	cs.afterCommit = append(cs.afterCommit, fn)
}

func (cs *ChangeSet) committed() {
	for _, fn := range cs.afterCommit {
		fn()
	}
	cs.afterCommit = nil
}

// Interceptor es un paso previo al commit. Se ejecutan en el orden en que se
// pasan a la factory y cualquier error aborta la transacción.
type Interceptor interface {
	SavingChanges(ctx context.Context, cs *ChangeSet) error
}

// InterceptorFunc adapta una función a Interceptor.
type InterceptorFunc func(ctx context.Context, cs *ChangeSet) error

func (f InterceptorFunc) SavingChanges(ctx context.Context, cs *ChangeSet) error {
	return f(ctx, cs)
}

// Factory crea sesiones sobre una misma base de datos.
type Factory struct {
	db           *sql.DB
	outbox       OutboxWriter
	interceptors []Interceptor
	clock        func() time.Time
	log          *zap.Logger

	mu         sync.RWMutex
	persisters map[string]Persister
}

func NewFactory(db *sql.DB, outbox OutboxWriter, log *zap.Logger, interceptors ...Interceptor) *Factory {
	if log == nil {
		log = zap.NewNop()
	}
	return &Factory{
		db:           db,
		outbox:       outbox,
		interceptors: interceptors,
		clock:        time.Now,
		log:          log,
		persisters:   make(map[string]Persister),
	}
}

// WithClock reemplaza el reloj; pensado para tests.
func (f *Factory) WithClock(clock func() time.Time) *Factory {
	f.clock = clock
	return f
}

// RegisterPersister asocia un nombre de entidad con su repositorio.
func (f *Factory) RegisterPersister(entityName string, p Persister) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.persisters[entityName] = p
}

func (f *Factory) persisterFor(entityName string) (Persister, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.persisters[entityName]
	return p, ok
}

func (f *Factory) NewSession() sharedDomain.Session {
	return &Session{factory: f, index: make(map[string]*Entry)}
}

// Session no es segura para uso concurrente; vive lo que dura una operación.
type Session struct {
	factory *Factory
	entries []*Entry
	index   map[string]*Entry
}

func (s *Session) Add(e sharedDomain.Entity) {
	s.track(e, sharedDomain.Added)
}

func (s *Session) Update(e sharedDomain.Entity) {
	s.track(e, sharedDomain.Modified)
}

func (s *Session) Remove(e sharedDomain.Entity) {
	s.track(e, sharedDomain.Deleted)
}

func (s *Session) track(e sharedDomain.Entity, state sharedDomain.EntityState) {
	key := e.EntityName() + ":" + e.EntityID().String()
	if existing, ok := s.index[key]; ok {
		existing.Entity = e
		// una entidad nueva sigue siendo un insert aunque se modifique después
		if !(existing.State == sharedDomain.Added && state == sharedDomain.Modified) {
			existing.State = state
		}
		return
	}
	entry := &Entry{Entity: e, State: state}
	s.entries = append(s.entries, entry)
	s.index[key] = entry
}

// Commit ejecuta los interceptores, persiste las entidades y el outbox en una
// sola transacción. Si algo falla no queda nada escrito.
func (s *Session) Commit(ctx context.Context) (err error) {
	if len(s.entries) == 0 {
		return nil
	}

	f := s.factory
	cs := &ChangeSet{Entries: s.entries, Now: f.clock().UTC()}

	for _, ic := range f.interceptors {
		if err := ic.SavingChanges(ctx, cs); err != nil {
			return fmt.Errorf("saving changes: %w", err)
		}
	}

	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				f.log.Warn("rollback failed", zap.Error(rbErr))
			}
		}
	}()

	for _, entry := range cs.Entries {
		if entry.State == sharedDomain.Unchanged {
			continue
		}
		p, ok := f.persisterFor(entry.Entity.EntityName())
		if !ok {
			return fmt.Errorf("%w: %s", ErrNoPersister, entry.Entity.EntityName())
		}
		if err = p.Persist(ctx, tx, entry.Entity, entry.State); err != nil {
			return err
		}
	}

	if len(cs.Outbox) > 0 {
		if err = f.outbox.InsertOutbox(ctx, tx, cs.Outbox); err != nil {
			return fmt.Errorf("failed to insert outbox: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	cs.committed()

	f.log.Debug("unit of work committed",
		zap.Int("entities", len(cs.Entries)),
		zap.Int("outbox_messages", len(cs.Outbox)),
	)

	s.entries = nil
	s.index = make(map[string]*Entry)
	return nil
}

// Verificación en tiempo de compilación.
var (
	_ sharedDomain.SessionFactory = (*Factory)(nil)
	_ sharedDomain.Session        = (*Session)(nil)
)
