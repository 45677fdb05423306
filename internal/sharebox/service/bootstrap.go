package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/domain"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/store"
	"github.com/aussiebroadwan/sharebox/pkg/cryptox"
	"github.com/aussiebroadwan/sharebox/pkg/idx"
	"github.com/aussiebroadwan/sharebox/pkg/slogx"
)

var (
	ErrBootstrapAlready      = errors.New("system already bootstrapped")
	ErrBootstrapUnauthorized = errors.New("unauthorized bootstrap attempt")
	ErrBootstrapDisabled     = errors.New("bootstrap is disabled")
)

// BootstrapData describes the first superuser.
type BootstrapData struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
}

type BootstrapService struct {
	Store store.Store
	Token string // Pre-configured bootstrap token; empty disables bootstrap
	Clock Clock
}

func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	empty, err := s.Store.Users().IsEmpty(ctx)
	if err != nil {
		return false, err
	}
	return !empty, nil
}

// Bootstrap creates the first superuser. It only works while no users
// exist and token matches the configured one.
func (s *BootstrapService) Bootstrap(ctx context.Context, token string, req BootstrapData) (domain.User, error) {
	l := slogx.FromContext(ctx)

	// 1. Configured at all?
	if s.Token == "" {
		return domain.User{}, ErrBootstrapDisabled
	}

	// 2. Validate provided token
	if !cryptox.EqualTokens(token, s.Token) {
		l.Warn("unauthorized bootstrap attempt", slog.String("token_fp", cryptox.FingerprintToken(token)))
		return domain.User{}, ErrBootstrapUnauthorized
	}

	// 3. Validate the admin details
	v := &ValidationError{}
	if !usernamePattern.MatchString(req.Username) {
		v.add("username", "letters, digits and @/./+/-/_ only")
	}
	email, err := NormalizeEmail(req.Email)
	if err != nil {
		v.add("email", "enter a valid email address")
	}
	if len(req.Password) < minPasswordLength {
		v.add("password", "must be at least 8 characters")
	}
	if err := v.orNil(); err != nil {
		return domain.User{}, err
	}

	// 4. Hash password
	hash, err := cryptox.HashPassword(req.Password)
	if err != nil {
		l.Error("failed to hash admin password", slog.Any("error", err))
		return domain.User{}, err
	}

	now := nowFrom(s.Clock)
	admin := domain.User{
		ID:           idx.NewAt(now).String(),
		Username:     req.Username,
		Email:        email,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PasswordHash: hash,
		IsSuperuser:  true,
		IsActive:     true,
		CreatedAt:    now,
	}

	// 5. Emptiness check and insert under one transaction
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		empty, err := tx.Users().IsEmpty(ctx)
		if err != nil {
			return err
		}
		if !empty {
			return ErrBootstrapAlready
		}
		return tx.Users().CreateUser(ctx, admin)
	})
	if err != nil {
		if errors.Is(err, ErrBootstrapAlready) {
			l.Warn("attempted bootstrap on already-bootstrapped system")
		} else {
			l.Error("bootstrap failed", slog.Any("error", err))
		}
		return domain.User{}, err
	}

	l.Info("bootstrap completed", slog.String("admin_id", admin.ID), slog.String("username", admin.Username))
	return admin, nil
}
