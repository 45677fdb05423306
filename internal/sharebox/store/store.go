package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrConflict is returned by conditional writes whose precondition no
	// longer holds (for example accepting an invitation that was already
	// accepted).
	ErrConflict = errors.New("store: conflict")
)

// Store is the root data access interface. Concrete drivers (sqlite, memory)
// implement this and hand out sub-repositories per concern. A Tx exposes the
// same repositories bound to one transaction; nested transactions are not
// supported.
type Store interface {
	Users() Users
	Invitations() Invitations
	Projects() Projects
	Memberships() Memberships
	Files() Files
	BlobDeletions() BlobDeletions

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn in a transaction, committing when fn returns nil and
	// rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)

	// GetUserByEmail matches case-insensitively.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser fails with ErrAlreadyExists on a username or email clash.
	CreateUser(ctx context.Context, u domain.User) error

	ListUsers(ctx context.Context) ([]domain.User, error)

	// IsEmpty returns true if there are no users.
	IsEmpty(ctx context.Context) (bool, error)
}

type Invitations interface {
	// CreateInvitation fails with ErrAlreadyExists when the email or token
	// is already bound to an invitation.
	CreateInvitation(ctx context.Context, inv domain.Invitation) error

	GetInvitationByID(ctx context.Context, id string) (domain.Invitation, error)
	GetInvitationByToken(ctx context.Context, token string) (domain.Invitation, error)
	GetInvitationByEmail(ctx context.Context, email string) (domain.Invitation, error)

	// ListInvitations returns every invitation, newest first.
	ListInvitations(ctx context.Context) ([]domain.Invitation, error)

	// ResetExpiry moves expires_at of a pending invitation. Returns
	// ErrConflict if it has been accepted.
	ResetExpiry(ctx context.Context, id string, expiresAt time.Time) error

	// MarkAccepted flips is_accepted only if it is still false. Returns
	// ErrConflict when another redemption won.
	MarkAccepted(ctx context.Context, id string, at time.Time) error

	// DeletePendingInvitation removes an invitation that has not been
	// accepted. Returns ErrConflict if it has been accepted.
	DeletePendingInvitation(ctx context.Context, id string) error
}

type Projects interface {
	CreateProject(ctx context.Context, p domain.Project) error
	GetProjectByID(ctx context.Context, id string) (domain.Project, error)

	// UpdateProject rewrites name and description. Returns ErrNotFound if
	// the project is gone.
	UpdateProject(ctx context.Context, p domain.Project) error

	// ListProjects returns every project, newest first.
	ListProjects(ctx context.Context) ([]domain.Project, error)

	// ListProjectsForUser returns the projects userID is a member of.
	ListProjectsForUser(ctx context.Context, userID string) ([]domain.Project, error)

	DeleteProject(ctx context.Context, id string) error
}

type Memberships interface {
	// AddMembership inserts the row unless it exists. The bool reports
	// whether a row was written.
	AddMembership(ctx context.Context, m domain.Membership) (bool, error)

	IsMember(ctx context.Context, projectID, userID string) (bool, error)
	ListMembers(ctx context.Context, projectID string) ([]domain.Membership, error)

	// RemoveMembership returns ErrNotFound if there was no such row.
	RemoveMembership(ctx context.Context, projectID, userID string) error

	DeleteMembershipsForProject(ctx context.Context, projectID string) (int, error)
}

type Files interface {
	CreateFile(ctx context.Context, f domain.UploadedFile) error
	GetFileByID(ctx context.Context, id string) (domain.UploadedFile, error)

	// ListFilesForProject and ListFilesForUser order newest first.
	ListFilesForProject(ctx context.Context, projectID string) ([]domain.UploadedFile, error)
	ListFilesForUser(ctx context.Context, userID string) ([]domain.UploadedFile, error)

	DeleteFile(ctx context.Context, id string) error
	DeleteFilesForProject(ctx context.Context, projectID string) (int, error)
}

type BlobDeletions interface {
	CreateBlobDeletion(ctx context.Context, d domain.BlobDeletion) error

	// ListBlobDeletions returns pending records, oldest first. limit <= 0
	// means no limit.
	ListBlobDeletions(ctx context.Context, limit int) ([]domain.BlobDeletion, error)

	RecordBlobDeletionAttempt(ctx context.Context, id string, at time.Time) error
	DeleteBlobDeletion(ctx context.Context, id string) error
}
