package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/domain"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/store"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/store/drivers/sqlite"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/store/storetest"
	"github.com/aussiebroadwan/sharebox/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) store.Store {
	t.Helper()
	s, err := sqlite.NewStore(sqlite.DSN(":memory:"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())
	return s
}

func TestConformance(t *testing.T) {
	storetest.Run(t, newStore)
}

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sharebox.db")

	s, err := sqlite.NewStore(sqlite.DSN(path))
	require.NoError(t, err)
	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.Close())

	s, err = sqlite.NewStore(sqlite.DSN(path))
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.Ping(context.Background()))
}

func TestProjectDeleteCascades(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	u := domain.User{ID: idx.New().String(), Username: "u", Email: "u@example.com", CreatedAt: time.Now()}
	require.NoError(t, s.Users().CreateUser(ctx, u))
	p := domain.Project{ID: idx.New().String(), Name: "p", CreatedBy: u.ID, CreatedAt: time.Now()}
	require.NoError(t, s.Projects().CreateProject(ctx, p))
	_, err := s.Memberships().AddMembership(ctx, domain.Membership{ProjectID: p.ID, UserID: u.ID, AddedBy: u.ID, AddedAt: time.Now()})
	require.NoError(t, err)

	require.NoError(t, s.Projects().DeleteProject(ctx, p.ID))

	ok, err := s.Memberships().IsMember(ctx, p.ID, u.ID)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMembershipRequiresExistingUser(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	u := domain.User{ID: idx.New().String(), Username: "u", Email: "u@example.com", CreatedAt: time.Now()}
	require.NoError(t, s.Users().CreateUser(ctx, u))
	p := domain.Project{ID: idx.New().String(), Name: "p", CreatedBy: u.ID, CreatedAt: time.Now()}
	require.NoError(t, s.Projects().CreateProject(ctx, p))

	_, err := s.Memberships().AddMembership(ctx, domain.Membership{ProjectID: p.ID, UserID: "ghost", AddedBy: u.ID, AddedAt: time.Now()})
	require.ErrorIs(t, err, store.ErrNotFound, "foreign keys are enforced")
}
