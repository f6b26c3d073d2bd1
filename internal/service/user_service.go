package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/tasknest/tasknest-api/internal/domain"
	"github.com/tasknest/tasknest-api/internal/platform/logger"
	"github.com/tasknest/tasknest-api/internal/store"
)

// UserService covers the admin-facing user management operations.
// Role checks happen at the gate in front of the handlers; this service
// only enforces the rules that depend on the acting subject.
type UserService struct {
	users store.UserStore
}

// NewUserService creates a UserService.
func NewUserService(users store.UserStore) *UserService {
	return &UserService{users: users}
}

// List returns all users, newest first.
func (s *UserService) List(ctx context.Context) ([]*domain.User, error) {
	return s.users.List(ctx)
}

// Get returns a single user by ID.
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// SetActive activates or deactivates an account. A deactivated account
// fails the active-account gate on its very next request; its tokens need
// no explicit revocation.
func (s *UserService) SetActive(ctx context.Context, id uuid.UUID, active bool) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	user.IsActive = active
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("user active flag changed",
		"user_id", id,
		"active", active)

	return user, nil
}

// Delete removes a user. The acting subject cannot delete themselves;
// that fails with ErrSelfDelete.
func (s *UserService) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	if actorID == id {
		return ErrSelfDelete
	}

	return s.users.Delete(ctx, id)
}
