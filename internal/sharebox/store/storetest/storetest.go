// Package storetest is a conformance suite every store driver must pass.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/domain"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/store"
	"github.com/aussiebroadwan/sharebox/pkg/idx"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, migrated, empty store.
type Factory func(t *testing.T) store.Store

var base = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

// Run executes the suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("Invitations", func(t *testing.T) { testInvitations(t, newStore(t)) })
	t.Run("ProjectsAndMemberships", func(t *testing.T) { testProjects(t, newStore(t)) })
	t.Run("Files", func(t *testing.T) { testFiles(t, newStore(t)) })
	t.Run("BlobDeletions", func(t *testing.T) { testBlobDeletions(t, newStore(t)) })
	t.Run("Transactions", func(t *testing.T) { testTransactions(t, newStore(t)) })
}

func mkUser(t *testing.T, s store.Store, username string) domain.User {
	t.Helper()
	u := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		IsActive:     true,
		CreatedAt:    base,
	}
	require.NoError(t, s.Users().CreateUser(context.Background(), u))
	return u
}

func mkProject(t *testing.T, s store.Store, owner domain.User, at time.Time) domain.Project {
	t.Helper()
	p := domain.Project{ID: idx.NewAt(at).String(), Name: "p", CreatedBy: owner.ID, CreatedAt: at}
	require.NoError(t, s.Projects().CreateProject(context.Background(), p))
	return p
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()

	empty, err := s.Users().IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)

	alice := mkUser(t, s, "alice")

	empty, err = s.Users().IsEmpty(ctx)
	require.NoError(t, err)
	require.False(t, empty)

	got, err := s.Users().GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, alice, got)

	got, err = s.Users().GetUserByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err, "email lookup is case-insensitive")
	require.Equal(t, alice.ID, got.ID)

	got, err = s.Users().GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, alice.ID, got.ID)

	_, err = s.Users().GetUserByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	dupName := domain.User{ID: idx.New().String(), Username: "alice", Email: "other@example.com", CreatedAt: base}
	require.ErrorIs(t, s.Users().CreateUser(ctx, dupName), store.ErrAlreadyExists)

	dupEmail := domain.User{ID: idx.New().String(), Username: "alice2", Email: "Alice@Example.com", CreatedAt: base}
	require.ErrorIs(t, s.Users().CreateUser(ctx, dupEmail), store.ErrAlreadyExists)

	mkUser(t, s, "bob")
	all, err := s.Users().ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "alice", all[0].Username)
}

func testInvitations(t *testing.T, s store.Store) {
	ctx := context.Background()
	admin := mkUser(t, s, "admin")

	mk := func(email, token string, at time.Time) domain.Invitation {
		inv := domain.Invitation{
			ID:        idx.NewAt(at).String(),
			Email:     email,
			Token:     token,
			InvitedBy: admin.ID,
			CreatedAt: at,
			ExpiresAt: at.Add(domain.InvitationTTL),
		}
		require.NoError(t, s.Invitations().CreateInvitation(ctx, inv))
		return inv
	}

	first := mk("a@example.com", "tok-a", base)
	second := mk("b@example.com", "tok-b", base.Add(time.Minute))

	dup := first
	dup.ID, dup.Token = idx.New().String(), "tok-c"
	dup.Email = "A@EXAMPLE.COM"
	require.ErrorIs(t, s.Invitations().CreateInvitation(ctx, dup), store.ErrAlreadyExists)

	dupTok := second
	dupTok.ID, dupTok.Email = idx.New().String(), "c@example.com"
	require.ErrorIs(t, s.Invitations().CreateInvitation(ctx, dupTok), store.ErrAlreadyExists)

	got, err := s.Invitations().GetInvitationByToken(ctx, "tok-a")
	require.NoError(t, err)
	require.Equal(t, first, got)

	got, err = s.Invitations().GetInvitationByEmail(ctx, "B@example.com")
	require.NoError(t, err)
	require.Equal(t, second.ID, got.ID)

	_, err = s.Invitations().GetInvitationByToken(ctx, "nope")
	require.ErrorIs(t, err, store.ErrNotFound)

	list, err := s.Invitations().ListInvitations(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, second.ID, list[0].ID, "newest first")

	later := base.Add(48 * time.Hour)
	require.NoError(t, s.Invitations().ResetExpiry(ctx, first.ID, later))
	got, err = s.Invitations().GetInvitationByID(ctx, first.ID)
	require.NoError(t, err)
	require.True(t, got.ExpiresAt.Equal(later))

	acceptedAt := base.Add(time.Hour)
	require.NoError(t, s.Invitations().MarkAccepted(ctx, first.ID, acceptedAt))
	require.ErrorIs(t, s.Invitations().MarkAccepted(ctx, first.ID, acceptedAt), store.ErrConflict)
	require.ErrorIs(t, s.Invitations().ResetExpiry(ctx, first.ID, later), store.ErrConflict)
	require.ErrorIs(t, s.Invitations().DeletePendingInvitation(ctx, first.ID), store.ErrConflict)

	got, err = s.Invitations().GetInvitationByID(ctx, first.ID)
	require.NoError(t, err)
	require.True(t, got.IsAccepted)
	require.NotNil(t, got.AcceptedAt)
	require.True(t, got.AcceptedAt.Equal(acceptedAt))

	require.NoError(t, s.Invitations().DeletePendingInvitation(ctx, second.ID))
	require.ErrorIs(t, s.Invitations().DeletePendingInvitation(ctx, second.ID), store.ErrNotFound)
	require.ErrorIs(t, s.Invitations().MarkAccepted(ctx, "missing", acceptedAt), store.ErrNotFound)
}

func testProjects(t *testing.T, s store.Store) {
	ctx := context.Background()
	alice := mkUser(t, s, "alice")
	bob := mkUser(t, s, "bob")

	older := mkProject(t, s, alice, base)
	newer := mkProject(t, s, alice, base.Add(time.Hour))

	got, err := s.Projects().GetProjectByID(ctx, older.ID)
	require.NoError(t, err)
	require.Equal(t, older, got)

	all, err := s.Projects().ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, newer.ID, all[0].ID)

	m := domain.Membership{ProjectID: older.ID, UserID: bob.ID, AddedBy: alice.ID, AddedAt: base}
	added, err := s.Memberships().AddMembership(ctx, m)
	require.NoError(t, err)
	require.True(t, added)

	added, err = s.Memberships().AddMembership(ctx, m)
	require.NoError(t, err)
	require.False(t, added, "second insert is a no-op")

	_, err = s.Memberships().AddMembership(ctx, domain.Membership{ProjectID: idx.New().String(), UserID: bob.ID, AddedBy: alice.ID, AddedAt: base})
	require.ErrorIs(t, err, store.ErrNotFound, "project must exist")
	_, err = s.Memberships().AddMembership(ctx, domain.Membership{ProjectID: older.ID, UserID: idx.New().String(), AddedBy: alice.ID, AddedAt: base})
	require.ErrorIs(t, err, store.ErrNotFound, "user must exist")

	renamed := older
	renamed.Name = "Renamed"
	renamed.Description = "new description"
	require.NoError(t, s.Projects().UpdateProject(ctx, renamed))
	got, err = s.Projects().GetProjectByID(ctx, older.ID)
	require.NoError(t, err)
	require.Equal(t, renamed, got)

	missing := renamed
	missing.ID = idx.New().String()
	require.ErrorIs(t, s.Projects().UpdateProject(ctx, missing), store.ErrNotFound)

	ok, err := s.Memberships().IsMember(ctx, older.ID, bob.ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.Memberships().IsMember(ctx, newer.ID, bob.ID)
	require.NoError(t, err)
	require.False(t, ok)

	mine, err := s.Projects().ListProjectsForUser(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, older.ID, mine[0].ID)

	members, err := s.Memberships().ListMembers(ctx, older.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	require.Equal(t, bob.ID, members[0].UserID)

	require.NoError(t, s.Memberships().RemoveMembership(ctx, older.ID, bob.ID))
	require.ErrorIs(t, s.Memberships().RemoveMembership(ctx, older.ID, bob.ID), store.ErrNotFound)

	for _, u := range []domain.User{alice, bob} {
		_, err := s.Memberships().AddMembership(ctx, domain.Membership{ProjectID: newer.ID, UserID: u.ID, AddedBy: alice.ID, AddedAt: base})
		require.NoError(t, err)
	}
	n, err := s.Memberships().DeleteMembershipsForProject(ctx, newer.ID)
	require.NoError(t, err)
	require.Equal(t, 2, n)

	require.NoError(t, s.Projects().DeleteProject(ctx, newer.ID))
	require.ErrorIs(t, s.Projects().DeleteProject(ctx, newer.ID), store.ErrNotFound)
	_, err = s.Projects().GetProjectByID(ctx, newer.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testFiles(t *testing.T, s store.Store) {
	ctx := context.Background()
	alice := mkUser(t, s, "alice")
	bob := mkUser(t, s, "bob")
	p := mkProject(t, s, alice, base)

	mk := func(owner domain.User, at time.Time, name string) domain.UploadedFile {
		id := idx.NewAt(at).String()
		f := domain.UploadedFile{
			ID:          id,
			ProjectID:   p.ID,
			UserID:      owner.ID,
			Title:       name,
			Filename:    name,
			Handle:      "projects/" + p.ID + "/" + id + "_" + name,
			ContentType: "text/plain",
			Size:        3,
			UploadedAt:  at,
		}
		require.NoError(t, s.Files().CreateFile(ctx, f))
		return f
	}

	f1 := mk(alice, base, "a.txt")
	f2 := mk(bob, base, "b.txt") // same timestamp, later id
	f3 := mk(alice, base.Add(time.Second), "c.txt")

	dup := f1
	dup.ID = idx.New().String()
	require.ErrorIs(t, s.Files().CreateFile(ctx, dup), store.ErrAlreadyExists, "handles are unique")

	orphan := f1
	orphan.ID = idx.New().String()
	orphan.ProjectID = idx.New().String()
	orphan.Handle = "projects/" + orphan.ProjectID + "/" + orphan.ID + "_a.txt"
	require.ErrorIs(t, s.Files().CreateFile(ctx, orphan), store.ErrNotFound, "project must exist")

	got, err := s.Files().GetFileByID(ctx, f1.ID)
	require.NoError(t, err)
	require.Equal(t, f1, got)

	list, err := s.Files().ListFilesForProject(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, []string{f3.ID, f2.ID, f1.ID}, fileIDs(list))

	list, err = s.Files().ListFilesForUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, []string{f3.ID, f1.ID}, fileIDs(list))

	require.NoError(t, s.Files().DeleteFile(ctx, f1.ID))
	require.ErrorIs(t, s.Files().DeleteFile(ctx, f1.ID), store.ErrNotFound)

	n, err := s.Files().DeleteFilesForProject(ctx, p.ID)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func fileIDs(files []domain.UploadedFile) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.ID
	}
	return out
}

func testBlobDeletions(t *testing.T, s store.Store) {
	ctx := context.Background()

	d1 := domain.BlobDeletion{ID: idx.NewAt(base).String(), Handle: "h1", Reason: "boom", CreatedAt: base}
	d2 := domain.BlobDeletion{ID: idx.NewAt(base.Add(time.Second)).String(), Handle: "h2", CreatedAt: base.Add(time.Second)}
	require.NoError(t, s.BlobDeletions().CreateBlobDeletion(ctx, d1))
	require.NoError(t, s.BlobDeletions().CreateBlobDeletion(ctx, d2))

	list, err := s.BlobDeletions().ListBlobDeletions(ctx, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, d1, list[0])

	list, err = s.BlobDeletions().ListBlobDeletions(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)

	at := base.Add(time.Minute)
	require.NoError(t, s.BlobDeletions().RecordBlobDeletionAttempt(ctx, d1.ID, at))
	list, err = s.BlobDeletions().ListBlobDeletions(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 1, list[0].Attempts)
	require.NotNil(t, list[0].LastAttemptAt)
	require.True(t, list[0].LastAttemptAt.Equal(at))

	require.NoError(t, s.BlobDeletions().DeleteBlobDeletion(ctx, d1.ID))
	require.ErrorIs(t, s.BlobDeletions().DeleteBlobDeletion(ctx, d1.ID), store.ErrNotFound)
	require.ErrorIs(t, s.BlobDeletions().RecordBlobDeletionAttempt(ctx, d1.ID, at), store.ErrNotFound)
}

func testTransactions(t *testing.T, s store.Store) {
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx store.Tx) error {
		u := domain.User{ID: idx.New().String(), Username: "ghost", Email: "ghost@example.com", CreatedAt: base}
		require.NoError(t, tx.Users().CreateUser(ctx, u))
		_, err := tx.Users().GetUserByUsername(ctx, "ghost")
		require.NoError(t, err, "writes are visible inside the tx")
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Users().GetUserByUsername(ctx, "ghost")
	require.ErrorIs(t, err, store.ErrNotFound, "rolled back")

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		return tx.Users().CreateUser(ctx, domain.User{ID: idx.New().String(), Username: "kept", Email: "kept@example.com", CreatedAt: base})
	}))
	_, err = s.Users().GetUserByUsername(ctx, "kept")
	require.NoError(t, err)

	tx, err := s.Tx(ctx)
	require.NoError(t, err)
	_, err = tx.Tx(ctx)
	require.Error(t, err, "nested transactions are refused")
	require.NoError(t, tx.Rollback())
}
