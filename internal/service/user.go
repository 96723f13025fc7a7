package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkordes/travel-planner/backend/internal/domain"
)

// UserService exposes the caller's own user record.
type UserService struct {
	store Store
}

// NewUserService constructs a UserService.
func NewUserService(store Store) *UserService {
	return &UserService{store: store}
}

// Me returns the user record for email.
// Returns domain.ErrNotFound until the caller has generated a first plan.
func (s *UserService) Me(ctx context.Context, email string) (domain.User, error) {
	u, err := s.store.Users().FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return domain.User{}, fmt.Errorf("service.UserService.Me: %w", err)
	}
	return u, nil
}

// Purge deletes the user for email and every plan they own.
// Returns domain.ErrNotFound if there is no such user.
func (s *UserService) Purge(ctx context.Context, email string) error {
	u, err := s.store.Users().FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return fmt.Errorf("service.UserService.Purge: %w", err)
	}
	if err := s.store.Users().DeleteWithPlans(ctx, u.ID); err != nil {
		return fmt.Errorf("service.UserService.Purge: %w", err)
	}
	return nil
}
