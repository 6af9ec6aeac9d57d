package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	sharedDomain "github.com/davicafu/habitflow/internal/shared/domain"
	sharedCache "github.com/davicafu/habitflow/internal/shared/infra/platform/cache"
	sharedUtils "github.com/davicafu/habitflow/internal/shared/infra/utils"
	"github.com/davicafu/habitflow/internal/user/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// UserService define los casos de uso relacionados con User. Las escrituras
// pasan por una sesión del unit of work; los efectos secundarios (SMS,
// invalidación de caché) los hacen los consumidores del outbox.
type UserService struct {
	repo     domain.UserRepository
	sessions sharedDomain.SessionFactory
	cache    sharedCache.Cache
	cacheTTL time.Duration
	clock    func() time.Time
	log      *zap.Logger
}

func NewUserService(
	repo domain.UserRepository,
	sessions sharedDomain.SessionFactory,
	cache sharedCache.Cache,
	log *zap.Logger,
) *UserService {
	if log == nil {
		log = zap.NewNop()
	}
	return &UserService{
		repo:     repo,
		sessions: sessions,
		cache:    cache,
		cacheTTL: time.Minute,
		clock:    time.Now,
		log:      log,
	}
}

func (s *UserService) WithCacheTTL(ttl time.Duration) *UserService {
	s.cacheTTL = ttl
	return s
}

func (s *UserService) RegisterUser(ctx context.Context, email, nombre, phone string, birthDate time.Time) (*domain.User, error) {
	user, err := domain.RegisterUser(email, nombre, phone, birthDate, s.clock())
	if err != nil {
		return nil, err
	}

	exists, err := s.repo.ExistsByEmail(ctx, user.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrUserAlreadyExists, user.Email)
	}

	session := s.sessions.NewSession()
	session.Add(user)
	if err := session.Commit(ctx); err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}

	s.log.Info("Usuario registrado", zap.String("user_id", user.ID.String()))
	return user, nil
}

func (s *UserService) ChangeEmail(ctx context.Context, id uuid.UUID, email string) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := user.ChangeEmail(email, s.clock()); err != nil {
		return nil, err
	}
	if len(user.PendingEvents()) == 0 {
		return user, nil
	}

	exists, err := s.repo.ExistsByEmail(ctx, user.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrUserAlreadyExists, user.Email)
	}

	session := s.sessions.NewSession()
	session.Update(user)
	if err := session.Commit(ctx); err != nil {
		return nil, fmt.Errorf("change email: %w", err)
	}
	return user, nil
}

// DeleteUser hace un borrado lógico: la sesión convierte el Remove en update.
func (s *UserService) DeleteUser(ctx context.Context, id uuid.UUID) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := user.Delete(s.clock()); err != nil {
		return err
	}

	session := s.sessions.NewSession()
	session.Remove(user)
	if err := session.Commit(ctx); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// GetUser obtiene un usuario (primero intenta desde cache).
func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	key := domain.CacheKeyByID(id)

	if s.cache != nil {
		var u domain.User
		if ok, _ := s.cache.Get(ctx, key, &u); ok {
			return &u, nil
		}
	}

	var user *domain.User
	err := sharedUtils.Retry(ctx, 3, 100*time.Millisecond,
		func(err error) bool { return errors.Is(err, domain.ErrUserNotFound) },
		func() error {
			var err error
			user, err = s.repo.GetByID(ctx, id)
			return err
		},
	)
	if err != nil {
		return nil, err
	}

	sharedCache.AsyncCacheSet(s.cache, key, user, s.cacheTTL, s.log)
	return user, nil
}
