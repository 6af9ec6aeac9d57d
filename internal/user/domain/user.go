package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	sharedDomain "github.com/davicafu/habitflow/internal/shared/domain"
	"github.com/google/uuid"
)

const EntityName = "user"

// User es el agregado raíz de la cuenta. Sus cambios de estado registran
// eventos de dominio que el unit of work captura al hacer commit.
type User struct {
	sharedDomain.AggregateRoot `json:"-"`
	sharedDomain.AuditFields

	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Nombre    string    `json:"nombre"`
	Phone     string    `json:"phone"`
	BirthDate time.Time `json:"birth_date"`
}

// RegisterUser crea un usuario nuevo y registra UserRegisteredEvent.
func RegisterUser(email, nombre, phone string, birthDate, now time.Time) (*User, error) {
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if strings.TrimSpace(nombre) == "" {
		return nil, fmt.Errorf("%w: nombre is required", ErrInvalidUser)
	}

	u := &User{
		ID:        uuid.New(),
		Email:     email,
		Nombre:    strings.TrimSpace(nombre),
		Phone:     strings.TrimSpace(phone),
		BirthDate: birthDate.UTC(),
	}
	u.CreatedAt = now.UTC()

	u.Record(UserRegisteredEvent{
		EventBase: sharedDomain.NewEventBase(now),
		UserID:    u.ID,
		Email:     u.Email,
		Nombre:    u.Nombre,
		Phone:     u.Phone,
	})
	return u, nil
}

// ChangeEmail no registra nada si el email no cambia.
func (u *User) ChangeEmail(email string, now time.Time) error {
	if u.IsDeleted() {
		return ErrUserNotFound
	}
	email = normalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}
	if email == u.Email {
		return nil
	}

	old := u.Email
	u.Email = email
	u.Record(UserEmailChangedEvent{
		EventBase: sharedDomain.NewEventBase(now),
		UserID:    u.ID,
		OldEmail:  old,
		NewEmail:  email,
	})
	return nil
}

// Delete sólo registra el evento; el borrado lógico lo aplica el commit.
func (u *User) Delete(now time.Time) error {
	if u.IsDeleted() {
		return ErrUserNotFound
	}
	u.Record(UserDeletedEvent{
		EventBase: sharedDomain.NewEventBase(now),
		UserID:    u.ID,
		Email:     u.Email,
	})
	return nil
}

func (u *User) EntityName() string  { return EntityName }
func (u *User) EntityID() uuid.UUID { return u.ID }

// Age calcula la edad del usuario a partir de su fecha de nacimiento.
func (u *User) Age(now time.Time) int {
	years := now.Year() - u.BirthDate.Year()
	// se compara (mes, día): YearDay se desplaza uno tras el 29 de febrero
	if now.Month() < u.BirthDate.Month() ||
		(now.Month() == u.BirthDate.Month() && now.Day() < u.BirthDate.Day()) {
		years--
	}
	return years
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if _, err := mail.ParseAddress(email); err != nil || !strings.Contains(email, "@") {
		return fmt.Errorf("%w: invalid email %q", ErrInvalidUser, email)
	}
	return nil
}

// Verificación estática
var (
	_ sharedDomain.Entity        = (*User)(nil)
	_ sharedDomain.EventSource   = (*User)(nil)
	_ sharedDomain.SoftDeletable = (*User)(nil)
	_ sharedDomain.Auditable     = (*User)(nil)
)
