package service

import (
	"context"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/domain"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/store"
)

type UserService struct {
	Store store.Store
}

// Active loads the user behind a session. Inactive users are refused so a
// deactivated account loses access even with an unexpired token.
func (s *UserService) Active(ctx context.Context, userID string) (domain.User, error) {
	u, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.User{}, notFound(err, ErrUserNotFound)
	}
	if !u.IsActive {
		return domain.User{}, ErrForbidden
	}
	return u, nil
}

// List returns every user, for administrators picking project members.
func (s *UserService) List(ctx context.Context, actor domain.User) ([]domain.User, error) {
	if err := requireSuperuser(actor); err != nil {
		return nil, err
	}
	return s.Store.Users().ListUsers(ctx)
}
