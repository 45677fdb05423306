package domain_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/domain"
	"github.com/stretchr/testify/require"
)

func TestInvitationValidity(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	inv := domain.Invitation{CreatedAt: now, ExpiresAt: now.Add(domain.InvitationTTL)}

	require.True(t, inv.IsValid(now))
	require.False(t, inv.IsExpired(inv.ExpiresAt), "expiry instant itself is still valid")
	require.True(t, inv.IsExpired(inv.ExpiresAt.Add(time.Nanosecond)))
	require.False(t, inv.IsValid(inv.ExpiresAt.Add(time.Second)))

	inv.IsAccepted = true
	require.False(t, inv.IsValid(now))
}

func TestUserFullName(t *testing.T) {
	require.Equal(t, "Ada Lovelace", domain.User{FirstName: "Ada", LastName: "Lovelace"}.FullName())
	require.Equal(t, "Ada", domain.User{FirstName: "Ada", Username: "ada"}.FullName())
	require.Equal(t, "ada", domain.User{Username: "ada"}.FullName())
}
