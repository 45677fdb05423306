package service_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/service"
	"github.com/aussiebroadwan/sharebox/pkg/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func details(token, email string) service.AccountDetails {
	return service.AccountDetails{
		Username:        "newcomer",
		Email:           email,
		FirstName:       "New",
		LastName:        "Comer",
		Password:        "correct horse",
		PasswordConfirm: "correct horse",
		InvitationToken: token,
	}
}

func TestAcceptInvitation_BoundEmail(t *testing.T) {
	f := newFixture(t)
	inv := f.issue(t, "a@x.com")

	// Someone else's address is refused and nothing changes.
	_, err := f.accounts.AcceptInvitation(f.ctx, inv.Token, details(inv.Token, "b@x.com"), service.NoSession{})
	assert.ErrorIs(t, err, service.ErrEmailMismatch)

	stored, err := f.store.Invitations().GetInvitationByID(f.ctx, inv.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsAccepted)
	_, err = f.store.Users().GetUserByUsername(f.ctx, "newcomer")
	assert.Error(t, err)

	// The bound address succeeds and the account carries it.
	user, err := f.accounts.AcceptInvitation(f.ctx, inv.Token, details(inv.Token, "a@x.com"), service.NoSession{})
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", user.Email)
	assert.Equal(t, "newcomer", user.Username)
	assert.True(t, user.IsActive)
	assert.False(t, user.IsSuperuser)
	assert.NoError(t, cryptox.VerifyPassword("correct horse", user.PasswordHash))

	stored, err = f.store.Invitations().GetInvitationByID(f.ctx, inv.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsAccepted)

	// The link is spent.
	again := details(inv.Token, "a@x.com")
	again.Username = "someoneelse"
	_, err = f.accounts.AcceptInvitation(f.ctx, inv.Token, again, service.NoSession{})
	assert.ErrorIs(t, err, service.ErrAlreadyUsed)
}

func TestAcceptInvitation_TamperedToken(t *testing.T) {
	f := newFixture(t)
	inv := f.issue(t, "t@x.com")

	d := details("00000000-0000-4000-8000-000000000000", inv.Email)
	_, err := f.accounts.AcceptInvitation(f.ctx, inv.Token, d, service.NoSession{})
	assert.ErrorIs(t, err, service.ErrTokenTampered)

	_, err = f.invitations.ValidateToken(f.ctx, inv.Token)
	assert.NoError(t, err)
}

func TestAcceptInvitation_Expired(t *testing.T) {
	f := newFixture(t)
	inv := f.issue(t, "late@x.com")
	f.clock.Advance(11 * 24 * time.Hour)

	_, err := f.accounts.AcceptInvitation(f.ctx, inv.Token, details(inv.Token, inv.Email), service.NoSession{})
	assert.ErrorIs(t, err, service.ErrExpired)
}

func TestAcceptInvitation_UsernameTakenRollsBack(t *testing.T) {
	f := newFixture(t)
	f.user(t, "newcomer", false)
	inv := f.issue(t, "fresh@x.com")

	_, err := f.accounts.AcceptInvitation(f.ctx, inv.Token, details(inv.Token, inv.Email), service.NoSession{})
	assert.ErrorIs(t, err, service.ErrUsernameTaken)

	// The redemption was rolled back with the failed user insert.
	_, err = f.invitations.ValidateToken(f.ctx, inv.Token)
	assert.NoError(t, err)
}

func TestAcceptInvitation_ActiveSession(t *testing.T) {
	f := newFixture(t)
	inv := f.issue(t, "s@x.com")
	sess := &fakeSession{active: true}

	_, err := f.accounts.AcceptInvitation(f.ctx, inv.Token, details(inv.Token, inv.Email), sess)
	assert.ErrorIs(t, err, service.ErrSessionActive)

	_, err = f.invitations.ValidateToken(f.ctx, inv.Token)
	assert.NoError(t, err)
}

func TestAcceptInvitation_InvalidDetails(t *testing.T) {
	f := newFixture(t)
	inv := f.issue(t, "d@x.com")

	d := details(inv.Token, inv.Email)
	d.PasswordConfirm = "something else"
	_, err := f.accounts.AcceptInvitation(f.ctx, inv.Token, d, service.NoSession{})
	assert.ErrorIs(t, err, service.ErrInvalidRequest)

	_, err = f.invitations.ValidateToken(f.ctx, inv.Token)
	assert.NoError(t, err)
}

func TestBegin(t *testing.T) {
	f := newFixture(t)
	inv := f.issue(t, "begin@x.com")

	sess := &fakeSession{active: true}
	_, err := f.accounts.Begin(f.ctx, inv.Token, sess)
	assert.ErrorIs(t, err, service.ErrSessionActive)
	assert.True(t, sess.ended, "the existing session must be ended")

	got, err := f.accounts.Begin(f.ctx, inv.Token, sess)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, got.ID)

	_, err = f.accounts.Begin(f.ctx, "missing", service.NoSession{})
	assert.ErrorIs(t, err, service.ErrInvitationNotFound)
}

func TestValidateAccountDetails(t *testing.T) {
	const token = "0b6f1c4e-4c1f-4b8f-9d5e-8c2a7b3e6f10"
	valid := details(token, "v@x.com")

	tests := []struct {
		name   string
		mutate func(*service.AccountDetails)
		field  string
	}{
		{"missing username", func(d *service.AccountDetails) { d.Username = "" }, "username"},
		{"bad username", func(d *service.AccountDetails) { d.Username = "no spaces" }, "username"},
		{"missing email", func(d *service.AccountDetails) { d.Email = " " }, "email"},
		{"short password", func(d *service.AccountDetails) { d.Password, d.PasswordConfirm = "short", "short" }, "password1"},
		{"mismatched password", func(d *service.AccountDetails) { d.PasswordConfirm = "different!" }, "password2"},
		{"malformed token", func(d *service.AccountDetails) { d.InvitationToken = "abc" }, "invitation_token"},
	}

	require.NoError(t, service.ValidateAccountDetails(valid))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid
			tt.mutate(&d)

			err := service.ValidateAccountDetails(d)
			var verr *service.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
}
