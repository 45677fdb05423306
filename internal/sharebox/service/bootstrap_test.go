package service_test

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/service"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/store/drivers/memory"
	"github.com/aussiebroadwan/sharebox/pkg/slogx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrap(t *testing.T) {
	ctx := slogx.WithContext(context.Background(), slogx.Discard())
	st := memory.NewStore()
	svc := &service.BootstrapService{Store: st, Token: "let-me-in"}

	admin := service.BootstrapData{
		Username: "root",
		Email:    "root@example.com",
		Password: "supersecret",
	}

	done, err := svc.IsBootstrapped(ctx)
	require.NoError(t, err)
	assert.False(t, done)

	_, err = svc.Bootstrap(ctx, "wrong", admin)
	assert.ErrorIs(t, err, service.ErrBootstrapUnauthorized)

	bad := admin
	bad.Password = "short"
	_, err = svc.Bootstrap(ctx, "let-me-in", bad)
	assert.ErrorIs(t, err, service.ErrInvalidRequest)

	user, err := svc.Bootstrap(ctx, "let-me-in", admin)
	require.NoError(t, err)
	assert.True(t, user.IsSuperuser)
	assert.True(t, user.IsActive)

	done, err = svc.IsBootstrapped(ctx)
	require.NoError(t, err)
	assert.True(t, done)

	again := admin
	again.Username = "root2"
	again.Email = "root2@example.com"
	_, err = svc.Bootstrap(ctx, "let-me-in", again)
	assert.ErrorIs(t, err, service.ErrBootstrapAlready)
}

func TestBootstrap_Disabled(t *testing.T) {
	svc := &service.BootstrapService{Store: memory.NewStore()}
	_, err := svc.Bootstrap(context.Background(), "", service.BootstrapData{})
	assert.ErrorIs(t, err, service.ErrBootstrapDisabled)
}
