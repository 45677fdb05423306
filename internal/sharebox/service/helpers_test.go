package service_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/blob"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/domain"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/service"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/store"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/store/drivers/memory"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/store/drivers/sqlite"
	"github.com/aussiebroadwan/sharebox/pkg/cryptox"
	"github.com/aussiebroadwan/sharebox/pkg/idx"
	"github.com/aussiebroadwan/sharebox/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "sharebox-service")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fixture struct {
	ctx   context.Context
	store store.Store
	blobs *blob.Memory
	clock *fakeClock

	invitations  *service.InvitationService
	accounts     *service.AccountProvisioner
	authority    *service.MembershipAuthority
	files        *service.FileRegistry
	housekeeping *service.HousekeepingService

	admin domain.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWith(t, memory.NewStore(), blob.NewMemory())
}

// newSQLiteFixture runs the services against a migrated sqlite database
// file, so conditional writes race for real.
func newSQLiteFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := sqlite.NewStore(sqlite.DSN(filepath.Join(t.TempDir(), "sharebox.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())
	return newFixtureWith(t, st, blob.NewMemory())
}

// drivers lists the fixtures that race-sensitive tests run against.
var drivers = []struct {
	name string
	new  func(*testing.T) *fixture
}{
	{"memory", newFixture},
	{"sqlite", newSQLiteFixture},
}

func newFixtureWith(t *testing.T, st store.Store, blobs *blob.Memory) *fixture {
	t.Helper()

	clock := &fakeClock{t: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)}

	f := &fixture{
		ctx:   slogx.WithContext(context.Background(), slogx.Discard()),
		store: st,
		blobs: blobs,
		clock: clock,
	}
	f.invitations = &service.InvitationService{
		Store:  st,
		Tokens: service.UUIDTokens{},
		Links:  service.BaseURLLinks{BaseURL: "https://share.example.com/"},
		Clock:  clock,
	}
	f.accounts = &service.AccountProvisioner{Store: st, Invitations: f.invitations, Clock: clock}
	f.authority = &service.MembershipAuthority{Store: st, Blobs: blobs, Clock: clock}
	f.files = &service.FileRegistry{Store: st, Blobs: blobs, Authority: f.authority, Clock: clock}
	f.housekeeping = service.NewHousekeepingService(st, blobs, slogx.Discard(), time.Hour)
	f.housekeeping.Clock = clock

	f.admin = f.user(t, "admin", true)
	return f
}

// user inserts an active user directly into the store.
func (f *fixture) user(t *testing.T, username string, superuser bool) domain.User {
	t.Helper()
	u := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "unused",
		IsSuperuser:  superuser,
		IsActive:     true,
		CreatedAt:    f.clock.Now(),
	}
	require.NoError(t, f.store.Users().CreateUser(f.ctx, u))
	return u
}

func (f *fixture) project(t *testing.T, members ...domain.User) domain.Project {
	t.Helper()
	p, err := f.authority.CreateProject(f.ctx, f.admin, "Project", "")
	require.NoError(t, err)
	if len(members) > 0 {
		ids := make([]string, len(members))
		for i, m := range members {
			ids[i] = m.ID
		}
		_, err := f.authority.AddMembers(f.ctx, f.admin, p.ID, ids)
		require.NoError(t, err)
	}
	return p
}

func (f *fixture) upload(t *testing.T, who domain.User, projectID, name string) domain.UploadedFile {
	t.Helper()
	file, err := f.files.Upload(f.ctx, who, projectID, service.FileUpload{
		Filename:    name,
		ContentType: "text/plain",
		Size:        int64(len(name)),
		Body:        strings.NewReader(name),
	})
	require.NoError(t, err)
	return file
}

func (f *fixture) issue(t *testing.T, email string) domain.Invitation {
	t.Helper()
	inv, err := f.invitations.Issue(f.ctx, f.admin, email)
	require.NoError(t, err)
	return inv
}

// fakeSession records whether it was ended.
type fakeSession struct {
	active bool
	ended  bool
}

func (s *fakeSession) Active() bool { return s.active }

func (s *fakeSession) End(context.Context) error {
	s.active = false
	s.ended = true
	return nil
}
