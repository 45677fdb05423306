package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/blob"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/domain"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/store"
	"github.com/aussiebroadwan/sharebox/pkg/idx"
	"github.com/aussiebroadwan/sharebox/pkg/slogx"
)

var errUploadedDuringDelete = errors.New("uploaded during project deletion")

// MembershipAuthority owns projects and their member lists and answers
// every "may this user touch this project" question.
type MembershipAuthority struct {
	Store store.Store
	Blobs blob.Storage
	Clock Clock
}

// IsMember is true for superusers and for users with a membership row.
func (a *MembershipAuthority) IsMember(ctx context.Context, user domain.User, projectID string) (bool, error) {
	if !user.IsActive {
		return false, nil
	}
	if user.IsSuperuser {
		return true, nil
	}
	return a.Store.Memberships().IsMember(ctx, projectID, user.ID)
}

// Authorize loads the project and checks user may access it.
func (a *MembershipAuthority) Authorize(ctx context.Context, user domain.User, projectID string) (domain.Project, error) {
	p, err := a.Store.Projects().GetProjectByID(ctx, projectID)
	if err != nil {
		return domain.Project{}, notFound(err, ErrProjectNotFound)
	}
	ok, err := a.IsMember(ctx, user, projectID)
	if err != nil {
		return domain.Project{}, err
	}
	if !ok {
		slogx.FromContext(ctx).Warn("project access denied",
			slog.String("user_id", user.ID),
			slog.String("project_id", projectID),
		)
		return domain.Project{}, ErrNotAMember
	}
	return p, nil
}

// manage loads the project and checks actor is a superuser or its creator.
func (a *MembershipAuthority) manage(ctx context.Context, actor domain.User, projectID string) (domain.Project, error) {
	p, err := a.Store.Projects().GetProjectByID(ctx, projectID)
	if err != nil {
		return domain.Project{}, notFound(err, ErrProjectNotFound)
	}
	if !canManage(actor, p) {
		return domain.Project{}, ErrForbidden
	}
	return p, nil
}

// GetProject returns a project the viewer may access.
func (a *MembershipAuthority) GetProject(ctx context.Context, viewer domain.User, projectID string) (domain.Project, error) {
	return a.Authorize(ctx, viewer, projectID)
}

// ListProjects returns every project for superusers, else the viewer's own.
func (a *MembershipAuthority) ListProjects(ctx context.Context, viewer domain.User) ([]domain.Project, error) {
	if !viewer.IsActive {
		return nil, ErrForbidden
	}
	if viewer.IsSuperuser {
		return a.Store.Projects().ListProjects(ctx)
	}
	return a.Store.Projects().ListProjectsForUser(ctx, viewer.ID)
}

// ListMembers returns the membership rows of a project the viewer may access.
func (a *MembershipAuthority) ListMembers(ctx context.Context, viewer domain.User, projectID string) ([]domain.Membership, error) {
	if _, err := a.Authorize(ctx, viewer, projectID); err != nil {
		return nil, err
	}
	return a.Store.Memberships().ListMembers(ctx, projectID)
}

// CreateProject creates the project and the creator's membership in one
// transaction.
func (a *MembershipAuthority) CreateProject(ctx context.Context, actor domain.User, name, description string) (domain.Project, error) {
	log := slogx.FromContext(ctx)

	if err := requireSuperuser(actor); err != nil {
		return domain.Project{}, err
	}

	name, description, err := validateProjectFields(name, description)
	if err != nil {
		return domain.Project{}, err
	}

	now := nowFrom(a.Clock)
	p := domain.Project{
		ID:          idx.NewAt(now).String(),
		Name:        name,
		Description: description,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
	}

	err = a.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Projects().CreateProject(ctx, p); err != nil {
			return err
		}
		_, err := tx.Memberships().AddMembership(ctx, domain.Membership{
			ProjectID: p.ID,
			UserID:    actor.ID,
			AddedBy:   actor.ID,
			AddedAt:   now,
		})
		return err
	})
	if err != nil {
		log.Error("failed to create project", slog.Any("error", err))
		return domain.Project{}, err
	}

	log.Info("project created", slog.String("project_id", p.ID), slog.String("name", p.Name))
	return p, nil
}

func validateProjectFields(name, description string) (string, string, error) {
	name = strings.TrimSpace(name)
	v := &ValidationError{}
	if name == "" {
		v.add("name", "required")
	} else if utf8.RuneCountInString(name) > 255 {
		v.add("name", "too long")
	}
	return name, strings.TrimSpace(description), v.orNil()
}

// UpdateProject renames a project and replaces its description. Only a
// superuser or the project's creator may edit it.
func (a *MembershipAuthority) UpdateProject(ctx context.Context, actor domain.User, projectID, name, description string) (domain.Project, error) {
	p, err := a.manage(ctx, actor, projectID)
	if err != nil {
		return domain.Project{}, err
	}

	if p.Name, p.Description, err = validateProjectFields(name, description); err != nil {
		return domain.Project{}, err
	}

	if err := a.Store.Projects().UpdateProject(ctx, p); err != nil {
		return domain.Project{}, notFound(err, ErrProjectNotFound)
	}

	slogx.FromContext(ctx).Info("project updated",
		slog.String("project_id", p.ID),
		slog.String("actor_id", actor.ID),
	)
	return p, nil
}

// AddMembers adds every listed user not already a member and returns how
// many rows were written. Repeats and existing members are skipped. An
// unknown user aborts the whole call with ErrUserNotFound.
func (a *MembershipAuthority) AddMembers(ctx context.Context, actor domain.User, projectID string, userIDs []string) (int, error) {
	log := slogx.FromContext(ctx)

	if _, err := a.manage(ctx, actor, projectID); err != nil {
		return 0, err
	}

	ids := slices.Clone(userIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	now := nowFrom(a.Clock)
	added := 0
	err := a.Store.WithTx(ctx, func(tx store.Tx) error {
		if _, err := tx.Projects().GetProjectByID(ctx, projectID); err != nil {
			return notFound(err, ErrProjectNotFound)
		}
		for _, id := range ids {
			if _, err := tx.Users().GetUserByID(ctx, id); err != nil {
				return notFound(err, ErrUserNotFound)
			}
		}
		for _, id := range ids {
			ok, err := tx.Memberships().AddMembership(ctx, domain.Membership{
				ProjectID: projectID,
				UserID:    id,
				AddedBy:   actor.ID,
				AddedAt:   now,
			})
			if err != nil {
				return err
			}
			if ok {
				added++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Info("project members added",
		slog.String("project_id", projectID),
		slog.Int("requested", len(ids)),
		slog.Int("added", added),
	)
	return added, nil
}

// RemoveMember removes userID from the project. The creator can never be
// removed.
func (a *MembershipAuthority) RemoveMember(ctx context.Context, actor domain.User, projectID, userID string) error {
	p, err := a.manage(ctx, actor, projectID)
	if err != nil {
		return err
	}
	if userID == p.CreatedBy {
		return ErrCannotRemoveCreator
	}
	if err := a.Store.Memberships().RemoveMembership(ctx, projectID, userID); err != nil {
		return notFound(err, ErrMembershipNotFound)
	}

	slogx.FromContext(ctx).Info("project member removed",
		slog.String("project_id", projectID),
		slog.String("user_id", userID),
	)
	return nil
}

// DeleteProject removes the project's blobs, then its file rows,
// memberships and the project itself in one transaction. Blob failures do
// not stop the deletion; they are logged, queued for housekeeping and
// returned in the report.
func (a *MembershipAuthority) DeleteProject(ctx context.Context, actor domain.User, projectID string) (DeleteReport, error) {
	log := slogx.FromContext(ctx)

	if _, err := a.manage(ctx, actor, projectID); err != nil {
		return DeleteReport{}, err
	}

	// 1. Physical objects first, every one attempted
	files, err := a.Store.Files().ListFilesForProject(ctx, projectID)
	if err != nil {
		return DeleteReport{}, err
	}
	var report DeleteReport
	attempted := make(map[string]bool, len(files))
	for _, f := range files {
		attempted[f.ID] = true
		if err := a.Blobs.Delete(ctx, f.Handle); err != nil {
			report.StorageFailures = append(report.StorageFailures, StorageFailure{FileID: f.ID, Handle: f.Handle, Err: err})
		}
	}

	// 2. Metadata in one transaction, children before parent
	now := nowFrom(a.Clock)
	err = a.Store.WithTx(ctx, func(tx store.Tx) error {
		// Files uploaded after the listing above still have blobs; hand
		// them to housekeeping rather than orphaning them.
		current, err := tx.Files().ListFilesForProject(ctx, projectID)
		if err != nil {
			return err
		}
		var late []StorageFailure
		for _, f := range current {
			if !attempted[f.ID] {
				late = append(late, StorageFailure{FileID: f.ID, Handle: f.Handle, Err: errUploadedDuringDelete})
			}
		}

		if report.FilesDeleted, err = tx.Files().DeleteFilesForProject(ctx, projectID); err != nil {
			return err
		}
		if report.MembershipsDeleted, err = tx.Memberships().DeleteMembershipsForProject(ctx, projectID); err != nil {
			return err
		}
		if err := tx.Projects().DeleteProject(ctx, projectID); err != nil {
			return notFound(err, ErrProjectNotFound)
		}
		if err := queueBlobDeletions(ctx, tx.BlobDeletions(), report.StorageFailures, now); err != nil {
			return err
		}
		return queueBlobDeletions(ctx, tx.BlobDeletions(), late, now)
	})
	if err != nil {
		log.Error("failed to delete project metadata",
			slog.String("project_id", projectID),
			slog.Any("error", err),
		)
		return DeleteReport{}, err
	}

	logStorageFailures(ctx, report.StorageFailures)
	log.Info("project deleted",
		slog.String("project_id", projectID),
		slog.Int("files", report.FilesDeleted),
		slog.Int("memberships", report.MembershipsDeleted),
		slog.Int("storage_failures", len(report.StorageFailures)),
	)
	return report, nil
}
