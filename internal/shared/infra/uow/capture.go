package uow

import (
	"context"
	"fmt"

	sharedDomain "github.com/davicafu/habitflow/internal/shared/domain"
	"go.uber.org/zap"
)

// OutboxCaptureInterceptor recoge los eventos pendientes de cada agregado
// rastreado y los deja preparados como mensajes outbox en el mismo commit.
// No hace I/O: la atomicidad la pone la transacción del store.
type OutboxCaptureInterceptor struct {
	log *zap.Logger
}

func NewOutboxCaptureInterceptor(log *zap.Logger) *OutboxCaptureInterceptor {
	if log == nil {
		log = zap.NewNop()
	}
	return &OutboxCaptureInterceptor{log: log}
}

func (i *OutboxCaptureInterceptor) SavingChanges(ctx context.Context, cs *ChangeSet) error {
	var (
		sources []sharedDomain.EventSource
		staged  []sharedDomain.OutboxMessage
	)

	for _, entry := range cs.Entries {
		src, ok := entry.Entity.(sharedDomain.EventSource)
		if !ok {
			continue
		}
		pending := src.PendingEvents()
		if len(pending) == 0 {
			continue
		}
		for _, evt := range pending {
			msg, err := sharedDomain.NewOutboxMessage(evt, cs.Now)
			if err != nil {
				// perder un evento es peor que perder la mutación
				return fmt.Errorf("capture %s %s: %w", entry.Entity.EntityName(), entry.Entity.EntityID(), err)
			}
			staged = append(staged, msg)
		}
		sources = append(sources, src)
	}

	// los buffers se vacían sólo si la transacción confirma
	for _, src := range sources {
		cs.AfterCommit(src.ClearEvents)
	}

	if len(staged) > 0 {
		cs.Stage(staged...)
		i.log.Debug("domain events captured", zap.Int("count", len(staged)))
	}
	return nil
}

var _ Interceptor = (*OutboxCaptureInterceptor)(nil)
