package uow

import (
	"context"

	sharedDomain "github.com/davicafu/habitflow/internal/shared/domain"
)

// AuditInterceptor sella UpdatedAt en las entidades modificadas y convierte
// los borrados de entidades SoftDeletable en updates del flag.
type AuditInterceptor struct{}

func NewAuditInterceptor() *AuditInterceptor {
	return &AuditInterceptor{}
}

func (AuditInterceptor) SavingChanges(ctx context.Context, cs *ChangeSet) error {
	for _, entry := range cs.Entries {
		switch entry.State {
		case sharedDomain.Modified:
			if a, ok := entry.Entity.(sharedDomain.Auditable); ok {
				a.Touch(cs.Now)
			}
		case sharedDomain.Deleted:
			sd, ok := entry.Entity.(sharedDomain.SoftDeletable)
			if !ok {
				continue // borrado físico
			}
			sd.MarkDeleted(cs.Now)
			entry.State = sharedDomain.Modified
			if a, ok := entry.Entity.(sharedDomain.Auditable); ok {
				a.Touch(cs.Now)
			}
		}
	}
	return nil
}

var _ Interceptor = AuditInterceptor{}
