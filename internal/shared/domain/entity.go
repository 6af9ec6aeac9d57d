package domain

import "time"

// EntityState es el estado de seguimiento de una entidad dentro del unit of work.
type EntityState int

const (
	Unchanged EntityState = iota
	Added
	Modified
	Deleted
)

func (s EntityState) String() string {
	switch s {
	case Added:
		return "added"
	case Modified:
		return "modified"
	case Deleted:
		return "deleted"
	default:
		return "unchanged"
	}
}

// Auditable: se le sella la fecha de modificación al hacer commit.
type Auditable interface {
	Touch(now time.Time)
}

// SoftDeletable: nunca se borra físicamente; el borrado se convierte en un
// update del flag. Las lecturas por defecto deben filtrarlas.
type SoftDeletable interface {
	MarkDeleted(now time.Time)
	IsDeleted() bool
}

// AuditFields implementa ambos comportamientos para embeber.
type AuditFields struct {
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
	Deleted   bool       `json:"-"`
	DeletedAt *time.Time `json:"-"`
}

func (f *AuditFields) Touch(now time.Time) {
	t := now.UTC()
	f.UpdatedAt = &t
}

func (f *AuditFields) MarkDeleted(now time.Time) {
	t := now.UTC()
	f.Deleted = true
	f.DeletedAt = &t
}

func (f *AuditFields) IsDeleted() bool {
	return f.Deleted
}

var (
	_ Auditable     = (*AuditFields)(nil)
	_ SoftDeletable = (*AuditFields)(nil)
)
