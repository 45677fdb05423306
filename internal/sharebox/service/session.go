package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/domain"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/store"
	"github.com/aussiebroadwan/sharebox/pkg/cryptox"
	"github.com/aussiebroadwan/sharebox/pkg/idx"
	"github.com/aussiebroadwan/sharebox/pkg/jwtx"
	"github.com/aussiebroadwan/sharebox/pkg/slogx"
)

// IssuedSession is the result of a successful login.
type IssuedSession struct {
	Token     string
	ExpiresAt time.Time
	User      domain.User
}

// SessionService authenticates users and mints signed session tokens.
type SessionService struct {
	Store  store.Store
	Signer jwtx.Signer
	Issuer string
	TTL    time.Duration
	Clock  Clock
}

// Login checks username and password. Unknown users, wrong passwords and
// inactive accounts all yield ErrInvalidCredentials.
func (s *SessionService) Login(ctx context.Context, username, password string) (IssuedSession, error) {
	log := slogx.FromContext(ctx)

	user, err := s.Store.Users().GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Info("login failed, unknown user", slog.String("username", username))
			return IssuedSession{}, ErrInvalidCredentials
		}
		return IssuedSession{}, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		log.Info("login failed, bad password", slog.String("user_id", user.ID))
		return IssuedSession{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		log.Info("login refused, inactive user", slog.String("user_id", user.ID))
		return IssuedSession{}, ErrInvalidCredentials
	}

	ttl := s.TTL
	if ttl <= 0 {
		ttl = jwtx.DefaultSessionTTL
	}
	now := nowFrom(s.Clock)
	claims := jwtx.NewSessionClaims(user.ID, idx.NewAt(now).String(), user.Username, user.IsSuperuser, ttl, s.Issuer, now)

	token, err := s.Signer.Sign(claims)
	if err != nil {
		log.Error("failed to sign session", slog.Any("error", err))
		return IssuedSession{}, err
	}

	log.Info("login succeeded", slog.String("user_id", user.ID), slog.String("sid", claims.SID))
	return IssuedSession{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: user}, nil
}
