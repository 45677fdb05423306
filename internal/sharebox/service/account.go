package service

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/domain"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/store"
	"github.com/aussiebroadwan/sharebox/pkg/cryptox"
	"github.com/aussiebroadwan/sharebox/pkg/idx"
	"github.com/aussiebroadwan/sharebox/pkg/slogx"
	"github.com/google/uuid"
)

const (
	maxNameLen        = 150
	minPasswordLength = 8
	maxPasswordLength = 128
)

var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9@.+\-_]+$`)

// SessionState is the caller's view of the current authenticated session.
type SessionState interface {
	Active() bool
	End(ctx context.Context) error
}

// NoSession is a SessionState that is never active.
type NoSession struct{}

func (NoSession) Active() bool              { return false }
func (NoSession) End(context.Context) error { return nil }

// AccountDetails is what the invitee submits to create their account.
type AccountDetails struct {
	Username        string
	Email           string // shown read-only; only compared, never stored
	FirstName       string
	LastName        string
	Password        string
	PasswordConfirm string
	InvitationToken string
}

// ValidateAccountDetails checks field shapes only. Whether the token and
// email agree with the invitation is decided at redemption.
func ValidateAccountDetails(d AccountDetails) error {
	v := &ValidationError{}

	switch {
	case d.Username == "":
		v.add("username", "required")
	case utf8.RuneCountInString(d.Username) > maxNameLen:
		v.add("username", "too long")
	case !usernamePattern.MatchString(d.Username):
		v.add("username", "letters, digits and @/./+/-/_ only")
	}

	if strings.TrimSpace(d.Email) == "" {
		v.add("email", "required")
	}
	if utf8.RuneCountInString(d.FirstName) > maxNameLen {
		v.add("first_name", "too long")
	}
	if utf8.RuneCountInString(d.LastName) > maxNameLen {
		v.add("last_name", "too long")
	}

	switch n := utf8.RuneCountInString(d.Password); {
	case n == 0:
		v.add("password1", "required")
	case n < minPasswordLength:
		v.add("password1", "must be at least 8 characters")
	case n > maxPasswordLength:
		v.add("password1", "too long")
	case d.Password != d.PasswordConfirm:
		v.add("password2", "passwords do not match")
	}

	if _, err := uuid.Parse(d.InvitationToken); err != nil {
		v.add("invitation_token", "invalid")
	}

	return v.orNil()
}

// AccountProvisioner turns a redeemed invitation into a user.
type AccountProvisioner struct {
	Store       store.Store
	Invitations *InvitationService
	Clock       Clock
}

// Begin starts the accept flow. An active session is ended and
// ErrSessionActive returned so the caller restarts the flow
// unauthenticated.
func (p *AccountProvisioner) Begin(ctx context.Context, token string, sess SessionState) (domain.Invitation, error) {
	if sess != nil && sess.Active() {
		if err := sess.End(ctx); err != nil {
			return domain.Invitation{}, err
		}
		slogx.FromContext(ctx).Info("ended active session before invitation acceptance")
		return domain.Invitation{}, ErrSessionActive
	}
	return p.Invitations.ValidateToken(ctx, token)
}

// AcceptInvitation validates the token, redeems it and creates the user in
// one transaction. The user's email is always the invitation's.
func (p *AccountProvisioner) AcceptInvitation(
	ctx context.Context,
	token string,
	details AccountDetails,
	sess SessionState,
) (domain.User, error) {
	log := slogx.FromContext(ctx)

	// 1. Never accept on behalf of another session
	if sess != nil && sess.Active() {
		return domain.User{}, ErrSessionActive
	}

	// 2. Field validation and hashing happen before the transaction
	if err := ValidateAccountDetails(details); err != nil {
		return domain.User{}, err
	}
	hash, err := cryptox.HashPassword(details.Password)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return domain.User{}, err
	}

	now := nowFrom(p.Clock)
	var user domain.User

	err = p.Store.WithTx(ctx, func(tx store.Tx) error {
		// 3. Token checks, then the conditional accept
		inv, err := redeem(ctx, tx.Invitations(), RedeemRequest{
			LookupToken:    token,
			SubmittedToken: details.InvitationToken,
			Email:          details.Email,
		}, now)
		if err != nil {
			return err
		}

		// 4. Identity checks
		if _, err := tx.Users().GetUserByEmail(ctx, inv.Email); err == nil {
			return ErrDuplicateEmail
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if _, err := tx.Users().GetUserByUsername(ctx, details.Username); err == nil {
			return ErrUsernameTaken
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		// 5. Create the user bound to the invited email
		user = domain.User{
			ID:           idx.NewAt(now).String(),
			Username:     details.Username,
			Email:        inv.Email,
			FirstName:    strings.TrimSpace(details.FirstName),
			LastName:     strings.TrimSpace(details.LastName),
			PasswordHash: hash,
			IsActive:     true,
			CreatedAt:    now,
		}
		if err := tx.Users().CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrUsernameTaken
			}
			return err
		}
		return nil
	})
	if err != nil {
		log.Info("invitation acceptance failed", slog.Any("error", err))
		return domain.User{}, err
	}

	log.Info("account created from invitation",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)
	return user, nil
}
