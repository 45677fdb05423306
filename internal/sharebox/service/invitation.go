package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/domain"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/store"
	"github.com/aussiebroadwan/sharebox/pkg/cryptox"
	"github.com/aussiebroadwan/sharebox/pkg/idx"
	"github.com/aussiebroadwan/sharebox/pkg/slogx"
)

// InvitationService manages the invitation lifecycle: issue, resend,
// cancel, validate and single-use redemption.
type InvitationService struct {
	Store  store.Store
	Tokens TokenSource
	Links  LinkBuilder
	Clock  Clock

	// TTL overrides domain.InvitationTTL when positive.
	TTL time.Duration
}

// InvitationLink pairs an invitation with the URL delivered to the invitee.
type InvitationLink struct {
	Invitation domain.Invitation
	URL        string
}

// CancelResult reports what Cancel did.
type CancelResult struct {
	// AlreadyAccepted is set when there was nothing to cancel.
	AlreadyAccepted bool
}

// RedeemRequest carries the two independently submitted copies of the
// token and the email the invitee submitted.
type RedeemRequest struct {
	LookupToken    string // from the URL path
	SubmittedToken string // from the form payload
	Email          string
}

func (s *InvitationService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return domain.InvitationTTL
}

func (s *InvitationService) tokens() TokenSource {
	if s.Tokens == nil {
		return UUIDTokens{}
	}
	return s.Tokens
}

// Link builds the delivery link for inv.
func (s *InvitationService) Link(inv domain.Invitation) InvitationLink {
	link := InvitationLink{Invitation: inv}
	if s.Links != nil {
		link.URL = s.Links.InvitationURL(inv.Token)
	}
	return link
}

// NormalizeEmail trims and syntax-checks an address and lower-cases its
// domain. The local part keeps its case. Display names are rejected.
func NormalizeEmail(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > 254 {
		return "", ErrInvalidRequest
	}
	addr, err := mail.ParseAddress(raw)
	if err != nil || addr.Address != raw || addr.Name != "" {
		return "", ErrInvalidRequest
	}
	at := strings.LastIndexByte(addr.Address, '@')
	return addr.Address[:at] + strings.ToLower(addr.Address[at:]), nil
}

// Issue creates an invitation for email. It fails with ErrDuplicateEmail,
// before anything is written, when the email already belongs to a user or
// to another invitation.
func (s *InvitationService) Issue(ctx context.Context, actor domain.User, email string) (domain.Invitation, error) {
	log := slogx.FromContext(ctx)

	// 1. Only administrators invite
	if err := requireSuperuser(actor); err != nil {
		log.Warn("non-superuser attempted to issue invitation", slog.String("actor_id", actor.ID))
		return domain.Invitation{}, err
	}

	// 2. Validate the address
	email, err := NormalizeEmail(email)
	if err != nil {
		return domain.Invitation{}, &ValidationError{Fields: map[string]string{"email": "enter a valid email address"}}
	}

	// 3. Generate the token up front so the transaction stays short
	token, err := s.tokens().NewToken()
	if err != nil {
		log.Error("failed to generate invitation token", slog.Any("error", err))
		return domain.Invitation{}, err
	}

	now := nowFrom(s.Clock)
	inv := domain.Invitation{
		ID:        idx.NewAt(now).String(),
		Email:     email,
		Token:     token,
		InvitedBy: actor.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl()),
	}

	// 4. Duplicate checks and insert in one transaction
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Users().GetUserByEmail(ctx, email); err == nil {
			return ErrDuplicateEmail
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if _, err := tx.Invitations().GetInvitationByEmail(ctx, email); err == nil {
			return ErrDuplicateEmail
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if err := tx.Invitations().CreateInvitation(ctx, inv); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrDuplicateEmail
			}
			return err
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			log.Info("invitation refused, email already registered", slog.String("email", email))
		} else {
			log.Error("failed to create invitation", slog.Any("error", err))
		}
		return domain.Invitation{}, err
	}

	log.Info("invitation issued",
		slog.String("invitation_id", inv.ID),
		slog.String("email", inv.Email),
		slog.String("token_fp", cryptox.FingerprintToken(inv.Token)),
		slog.Time("expires_at", inv.ExpiresAt),
	)
	return inv, nil
}

// Resend returns the delivery link for a pending invitation, pushing its
// expiry out by the TTL first if it has already lapsed. The token is never
// rotated.
func (s *InvitationService) Resend(ctx context.Context, actor domain.User, invitationID string) (InvitationLink, error) {
	log := slogx.FromContext(ctx)

	if err := requireSuperuser(actor); err != nil {
		return InvitationLink{}, err
	}

	now := nowFrom(s.Clock)
	var inv domain.Invitation
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		inv, err = tx.Invitations().GetInvitationByID(ctx, invitationID)
		if err != nil {
			return notFound(err, ErrInvitationNotFound)
		}
		if inv.IsAccepted {
			return ErrAlreadyAccepted
		}
		if !inv.IsExpired(now) {
			return nil
		}

		expires := now.Add(s.ttl())
		if err := tx.Invitations().ResetExpiry(ctx, inv.ID, expires); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return ErrAlreadyAccepted
			}
			return notFound(err, ErrInvitationNotFound)
		}
		inv.ExpiresAt = expires
		log.Info("invitation expiry reset",
			slog.String("invitation_id", inv.ID),
			slog.Time("expires_at", expires),
		)
		return nil
	})
	if err != nil {
		return InvitationLink{}, err
	}

	return s.Link(inv), nil
}

// Cancel deletes a pending invitation. Cancelling an accepted invitation is
// not an error; the result says there was nothing to do.
func (s *InvitationService) Cancel(ctx context.Context, actor domain.User, invitationID string) (CancelResult, error) {
	log := slogx.FromContext(ctx)

	if err := requireSuperuser(actor); err != nil {
		return CancelResult{}, err
	}

	err := s.Store.Invitations().DeletePendingInvitation(ctx, invitationID)
	switch {
	case err == nil:
		log.Info("invitation cancelled", slog.String("invitation_id", invitationID))
		return CancelResult{}, nil
	case errors.Is(err, store.ErrConflict):
		log.Info("invitation already accepted, nothing to cancel", slog.String("invitation_id", invitationID))
		return CancelResult{AlreadyAccepted: true}, nil
	default:
		return CancelResult{}, notFound(err, ErrInvitationNotFound)
	}
}

// List returns every invitation, newest first.
func (s *InvitationService) List(ctx context.Context, actor domain.User) ([]domain.Invitation, error) {
	if err := requireSuperuser(actor); err != nil {
		return nil, err
	}
	return s.Store.Invitations().ListInvitations(ctx)
}

// ValidateToken looks up an invitation by exact token and checks, in
// order, that it exists, is unaccepted and is unexpired.
func (s *InvitationService) ValidateToken(ctx context.Context, token string) (domain.Invitation, error) {
	return validateToken(ctx, s.Store.Invitations(), token, nowFrom(s.Clock))
}

func validateToken(ctx context.Context, invs store.Invitations, token string, now time.Time) (domain.Invitation, error) {
	if token == "" {
		return domain.Invitation{}, ErrInvitationNotFound
	}
	inv, err := invs.GetInvitationByToken(ctx, token)
	if err != nil {
		return domain.Invitation{}, notFound(err, ErrInvitationNotFound)
	}
	if inv.IsAccepted {
		return domain.Invitation{}, ErrAlreadyUsed
	}
	if inv.IsExpired(now) {
		return domain.Invitation{}, ErrExpired
	}
	return inv, nil
}

// Redeem consumes an invitation. The lookup token locates the row, the
// submitted token must equal it, and the email must equal the bound email.
// Acceptance is a conditional write so only one concurrent redemption wins;
// the others get ErrAlreadyUsed.
func (s *InvitationService) Redeem(ctx context.Context, req RedeemRequest) (domain.Invitation, error) {
	var inv domain.Invitation
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		inv, err = redeem(ctx, tx.Invitations(), req, nowFrom(s.Clock))
		return err
	})
	return inv, err
}

func redeem(ctx context.Context, invs store.Invitations, req RedeemRequest, now time.Time) (domain.Invitation, error) {
	log := slogx.FromContext(ctx)

	// 1. Locate by the path token
	inv, err := validateToken(ctx, invs, req.LookupToken, now)
	if err != nil {
		return domain.Invitation{}, err
	}

	// 2. The submitted email must be the bound one, exactly
	if req.Email != inv.Email {
		log.Warn("invitation redemption email mismatch", slog.String("invitation_id", inv.ID))
		return domain.Invitation{}, ErrEmailMismatch
	}

	// 3. The token in the payload must agree with the token in the path
	if !cryptox.EqualTokens(req.SubmittedToken, inv.Token) {
		log.Warn("invitation redemption token mismatch", slog.String("invitation_id", inv.ID))
		return domain.Invitation{}, ErrTokenTampered
	}

	// 4. Check-and-set on is_accepted
	if err := invs.MarkAccepted(ctx, inv.ID, now); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return domain.Invitation{}, ErrAlreadyUsed
		}
		return domain.Invitation{}, notFound(err, ErrInvitationNotFound)
	}

	inv.IsAccepted = true
	inv.AcceptedAt = &now
	log.Info("invitation redeemed", slog.String("invitation_id", inv.ID))
	return inv, nil
}
