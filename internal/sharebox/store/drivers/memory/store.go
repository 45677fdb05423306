// Package memory is an in-process store driver. Every repository call runs
// under one mutex; a transaction holds the mutex for its lifetime and works
// on a copy of the state that replaces the committed state on Commit.
package memory

import (
	"context"
	"database/sql"
	"maps"
	"sync"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/domain"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/store"
)

type memberKey struct {
	projectID string
	userID    string
}

type state struct {
	users         map[string]domain.User
	invitations   map[string]domain.Invitation
	projects      map[string]domain.Project
	members       map[memberKey]domain.Membership
	files         map[string]domain.UploadedFile
	blobDeletions map[string]domain.BlobDeletion
}

func newState() *state {
	return &state{
		users:         make(map[string]domain.User),
		invitations:   make(map[string]domain.Invitation),
		projects:      make(map[string]domain.Project),
		members:       make(map[memberKey]domain.Membership),
		files:         make(map[string]domain.UploadedFile),
		blobDeletions: make(map[string]domain.BlobDeletion),
	}
}

func (s *state) clone() *state {
	return &state{
		users:         maps.Clone(s.users),
		invitations:   maps.Clone(s.invitations),
		projects:      maps.Clone(s.projects),
		members:       maps.Clone(s.members),
		files:         maps.Clone(s.files),
		blobDeletions: maps.Clone(s.blobDeletions),
	}
}

// runner executes fn against some state while holding exclusive access.
type runner func(fn func(*state) error) error

type Store struct {
	mu sync.Mutex
	st *state
}

func NewStore() *Store {
	return &Store{st: newState()}
}

func (s *Store) run(fn func(*state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

func (s *Store) ApplyMigrations() error         { return nil }
func (s *Store) Close() error                   { return nil }
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Tx(ctx context.Context) (store.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	return &txStore{parent: s, work: s.st.clone()}, nil
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.Tx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Users() store.Users                 { return &usersRepo{run: s.run} }
func (s *Store) Invitations() store.Invitations     { return &invitationsRepo{run: s.run} }
func (s *Store) Projects() store.Projects           { return &projectsRepo{run: s.run} }
func (s *Store) Memberships() store.Memberships     { return &membershipsRepo{run: s.run} }
func (s *Store) Files() store.Files                 { return &filesRepo{run: s.run} }
func (s *Store) BlobDeletions() store.BlobDeletions { return &blobDeletionsRepo{run: s.run} }

type txStore struct {
	parent *Store
	work   *state
	done   bool
}

func (t *txStore) run(fn func(*state) error) error {
	if t.done {
		return sql.ErrTxDone
	}
	return fn(t.work)
}

func (t *txStore) Commit() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	t.parent.st = t.work
	t.parent.mu.Unlock()
	return nil
}

func (t *txStore) Rollback() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	t.parent.mu.Unlock()
	return nil
}

func (t *txStore) ApplyMigrations() error     { return nil }
func (t *txStore) Close() error               { return nil }
func (t *txStore) Ping(context.Context) error { return nil }

func (t *txStore) Tx(context.Context) (store.Tx, error) { return nil, sql.ErrTxDone }

func (t *txStore) WithTx(context.Context, func(store.Tx) error) error { return sql.ErrTxDone }

func (t *txStore) Users() store.Users                 { return &usersRepo{run: t.run} }
func (t *txStore) Invitations() store.Invitations     { return &invitationsRepo{run: t.run} }
func (t *txStore) Projects() store.Projects           { return &projectsRepo{run: t.run} }
func (t *txStore) Memberships() store.Memberships     { return &membershipsRepo{run: t.run} }
func (t *txStore) Files() store.Files                 { return &filesRepo{run: t.run} }
func (t *txStore) BlobDeletions() store.BlobDeletions { return &blobDeletionsRepo{run: t.run} }
