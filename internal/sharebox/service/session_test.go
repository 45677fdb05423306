package service_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/domain"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/service"
	"github.com/aussiebroadwan/sharebox/pkg/cryptox"
	"github.com/aussiebroadwan/sharebox/pkg/idx"
	"github.com/aussiebroadwan/sharebox/pkg/jwtx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	f := newFixture(t)

	pemKey, err := jwtx.GenerateEd25519PEM()
	require.NoError(t, err)
	signer, err := jwtx.NewSignerEdDSA("k1", pemKey)
	require.NoError(t, err)
	verifier := jwtx.NewVerifierEdDSA("sharebox")
	verifier.AddKey("k1", signer.PublicKey())

	hash, err := cryptox.HashPassword("hunter22")
	require.NoError(t, err)
	user := domain.User{
		ID:           idx.New().String(),
		Username:     "dana",
		Email:        "dana@example.com",
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	require.NoError(t, f.store.Users().CreateUser(f.ctx, user))

	sessions := &service.SessionService{Store: f.store, Signer: signer, Issuer: "sharebox", TTL: time.Hour}

	t.Run("success", func(t *testing.T) {
		issued, err := sessions.Login(f.ctx, "dana", "hunter22")
		require.NoError(t, err)
		assert.Equal(t, user.ID, issued.User.ID)
		assert.WithinDuration(t, time.Now().Add(time.Hour), issued.ExpiresAt, 5*time.Second)

		claims, err := verifier.Verify(issued.Token)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.Subject)
		assert.Equal(t, "dana", claims.Username)
		assert.False(t, claims.Superuser)
		assert.NotEmpty(t, claims.SID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := sessions.Login(f.ctx, "dana", "wrong")
		assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := sessions.Login(f.ctx, "nobody", "hunter22")
		assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	})
}

func TestLogin_InactiveUser(t *testing.T) {
	f := newFixture(t)

	pemKey, err := jwtx.GenerateEd25519PEM()
	require.NoError(t, err)
	signer, err := jwtx.NewSignerEdDSA("k1", pemKey)
	require.NoError(t, err)

	hash, err := cryptox.HashPassword("hunter22")
	require.NoError(t, err)
	require.NoError(t, f.store.Users().CreateUser(f.ctx, domain.User{
		ID:           idx.New().String(),
		Username:     "gone",
		Email:        "gone@example.com",
		PasswordHash: hash,
		IsActive:     false,
		CreatedAt:    time.Now(),
	}))

	sessions := &service.SessionService{Store: f.store, Signer: signer, Issuer: "sharebox"}
	_, err = sessions.Login(f.ctx, "gone", "hunter22")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestUserService(t *testing.T) {
	f := newFixture(t)
	users := &service.UserService{Store: f.store}
	bob := f.user(t, "bob", false)

	got, err := users.Active(f.ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Username)

	_, err = users.Active(f.ctx, "missing")
	assert.ErrorIs(t, err, service.ErrUserNotFound)

	all, err := users.List(f.ctx, f.admin)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = users.List(f.ctx, bob)
	assert.ErrorIs(t, err, service.ErrForbidden)
}
