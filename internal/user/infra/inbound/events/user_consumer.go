package events

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/davicafu/habitflow/internal/notification"
	sharedEvents "github.com/davicafu/habitflow/internal/shared/domain/events"
	sharedCache "github.com/davicafu/habitflow/internal/shared/infra/platform/cache"
	userDomain "github.com/davicafu/habitflow/internal/user/domain"
)

// UserConsumer agrupa los handlers del outbox para eventos de usuario.
// Todos son idempotentes: el dispatcher puede entregar un mensaje más de una vez.
type UserConsumer struct {
	notifier *notification.Notifier
	cache    sharedCache.Cache
	log      *zap.Logger
}

func NewUserConsumer(notifier *notification.Notifier, cache sharedCache.Cache, logger *zap.Logger) *UserConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserConsumer{
		notifier: notifier,
		cache:    cache,
		log:      logger,
	}
}

// Register engancha los handlers en el registro de eventos.
func (c *UserConsumer) Register(r *sharedEvents.Registry) error {
	if err := sharedEvents.Register[userDomain.UserRegisteredEvent](r, c.SendWelcomeSMS); err != nil {
		return err
	}
	if err := sharedEvents.Register[userDomain.UserEmailChangedEvent](r, c.InvalidateOnEmailChange); err != nil {
		return err
	}
	if err := sharedEvents.Register[userDomain.UserEmailChangedEvent](r, c.NotifyEmailChange); err != nil {
		return err
	}
	return sharedEvents.Register[userDomain.UserDeletedEvent](r, c.InvalidateOnDelete)
}

func (c *UserConsumer) SendWelcomeSMS(ctx context.Context, messageID uuid.UUID, evt userDomain.UserRegisteredEvent) error {
	if evt.Phone == "" {
		c.log.Debug("Usuario sin teléfono, no se envía SMS", zap.String("user_id", evt.UserID.String()))
		return nil
	}
	return c.notifier.SendOnce(ctx, "welcome-sms:"+messageID.String(), notification.Message{
		Channel: notification.SMS,
		To:      evt.Phone,
		Body:    fmt.Sprintf("¡Bienvenido a HabitFlow, %s!", evt.Nombre),
	})
}

// NotifyEmailChange avisa a la dirección anterior.
func (c *UserConsumer) NotifyEmailChange(ctx context.Context, messageID uuid.UUID, evt userDomain.UserEmailChangedEvent) error {
	return c.notifier.SendOnce(ctx, "email-changed:"+messageID.String(), notification.Message{
		Channel: notification.Email,
		To:      evt.OldEmail,
		Subject: "Tu email ha cambiado",
		Body:    fmt.Sprintf("El email de tu cuenta es ahora %s.", evt.NewEmail),
	})
}

func (c *UserConsumer) InvalidateOnEmailChange(ctx context.Context, _ uuid.UUID, evt userDomain.UserEmailChangedEvent) error {
	return c.invalidate(ctx, evt.UserID)
}

func (c *UserConsumer) InvalidateOnDelete(ctx context.Context, _ uuid.UUID, evt userDomain.UserDeletedEvent) error {
	return c.invalidate(ctx, evt.UserID)
}

func (c *UserConsumer) invalidate(ctx context.Context, id uuid.UUID) error {
	if c.cache == nil {
		return nil
	}
	if err := c.cache.Delete(ctx, userDomain.CacheKeyByID(id)); err != nil {
		return fmt.Errorf("invalidate user %s: %w", id, err)
	}
	return nil
}
