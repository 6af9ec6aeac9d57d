package domain

import "context"

// Session agrupa los cambios de una operación de negocio y los confirma de
// forma atómica junto con los eventos que hayan registrado los agregados.
type Session interface {
	Add(e Entity)
	Update(e Entity)
	Remove(e Entity)
	Commit(ctx context.Context) error
}

// SessionFactory abre una sesión nueva por operación.
type SessionFactory interface {
	NewSession() Session
}
