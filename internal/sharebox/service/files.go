package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/blob"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/domain"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/store"
	"github.com/aussiebroadwan/sharebox/pkg/idx"
	"github.com/aussiebroadwan/sharebox/pkg/slogx"
)

// FileUpload is an incoming file.
type FileUpload struct {
	Title       string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// FileRegistry keeps file metadata and blob storage in step.
type FileRegistry struct {
	Store     store.Store
	Blobs     blob.Storage
	Authority *MembershipAuthority
	Clock     Clock
}

// Upload stores the bytes under the project's prefix and records the file.
// The uploader must be a member of the project.
func (r *FileRegistry) Upload(ctx context.Context, uploader domain.User, projectID string, up FileUpload) (domain.UploadedFile, error) {
	log := slogx.FromContext(ctx)

	// 1. Membership
	if _, err := r.Authority.Authorize(ctx, uploader, projectID); err != nil {
		return domain.UploadedFile{}, err
	}

	// 2. Shape
	v := &ValidationError{}
	if strings.TrimSpace(up.Filename) == "" {
		v.add("file", "required")
	}
	if up.Body == nil {
		v.add("file", "required")
	}
	title := strings.TrimSpace(up.Title)
	if title == "" {
		title = up.Filename
	}
	if utf8.RuneCountInString(title) > 255 {
		v.add("title", "too long")
	}
	if err := v.orNil(); err != nil {
		return domain.UploadedFile{}, err
	}

	now := nowFrom(r.Clock)
	f := domain.UploadedFile{
		ID:          idx.NewAt(now).String(),
		ProjectID:   projectID,
		UserID:      uploader.ID,
		Title:       title,
		Filename:    up.Filename,
		ContentType: up.ContentType,
		Size:        up.Size,
		UploadedAt:  now,
	}
	f.Handle = blob.ObjectPath(projectID, f.ID, up.Filename)

	// 3. Bytes, then metadata; undo the bytes if the row cannot be written
	if err := r.Blobs.Put(ctx, f.Handle, up.Body, up.Size, up.ContentType); err != nil {
		log.Error("failed to store upload", slog.String("handle", f.Handle), slog.Any("error", err))
		return domain.UploadedFile{}, err
	}
	if err := r.Store.Files().CreateFile(ctx, f); err != nil {
		if derr := r.Blobs.Delete(ctx, f.Handle); derr != nil {
			log.Warn("failed to remove orphaned upload", slog.String("handle", f.Handle), slog.Any("error", derr))
		}
		if errors.Is(err, store.ErrNotFound) {
			return domain.UploadedFile{}, ErrProjectNotFound
		}
		return domain.UploadedFile{}, err
	}

	log.Info("file uploaded",
		slog.String("file_id", f.ID),
		slog.String("project_id", projectID),
		slog.Int64("size", f.Size),
	)
	return f, nil
}

// Get returns a file the viewer may see.
func (r *FileRegistry) Get(ctx context.Context, viewer domain.User, fileID string) (domain.UploadedFile, error) {
	f, err := r.Store.Files().GetFileByID(ctx, fileID)
	if err != nil {
		return domain.UploadedFile{}, notFound(err, ErrFileNotFound)
	}
	if f.UserID == viewer.ID && viewer.IsActive {
		return f, nil
	}
	if _, err := r.Authority.Authorize(ctx, viewer, f.ProjectID); err != nil {
		return domain.UploadedFile{}, err
	}
	return f, nil
}

// ListForProject returns the project's files, newest first.
func (r *FileRegistry) ListForProject(ctx context.Context, viewer domain.User, projectID string) ([]domain.UploadedFile, error) {
	if _, err := r.Authority.Authorize(ctx, viewer, projectID); err != nil {
		return nil, err
	}
	return r.Store.Files().ListFilesForProject(ctx, projectID)
}

// ListForUser returns the files user uploaded, newest first.
func (r *FileRegistry) ListForUser(ctx context.Context, user domain.User) ([]domain.UploadedFile, error) {
	if !user.IsActive {
		return nil, ErrForbidden
	}
	return r.Store.Files().ListFilesForUser(ctx, user.ID)
}

// Delete removes a file. Only its uploader or a superuser may do so. The
// blob goes first; if that fails the row is still removed and the failure
// is queued and reported.
func (r *FileRegistry) Delete(ctx context.Context, requester domain.User, fileID string) (DeleteReport, error) {
	log := slogx.FromContext(ctx)

	f, err := r.Store.Files().GetFileByID(ctx, fileID)
	if err != nil {
		return DeleteReport{}, notFound(err, ErrFileNotFound)
	}
	if !requester.IsActive || (requester.ID != f.UserID && !requester.IsSuperuser) {
		log.Warn("file delete denied",
			slog.String("file_id", f.ID),
			slog.String("requester_id", requester.ID),
		)
		return DeleteReport{}, ErrForbidden
	}

	var report DeleteReport
	if err := r.Blobs.Delete(ctx, f.Handle); err != nil {
		report.StorageFailures = append(report.StorageFailures, StorageFailure{FileID: f.ID, Handle: f.Handle, Err: err})
	}

	now := nowFrom(r.Clock)
	err = r.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Files().DeleteFile(ctx, f.ID); err != nil {
			return notFound(err, ErrFileNotFound)
		}
		return queueBlobDeletions(ctx, tx.BlobDeletions(), report.StorageFailures, now)
	})
	if err != nil {
		return DeleteReport{}, err
	}
	report.FilesDeleted = 1

	logStorageFailures(ctx, report.StorageFailures)
	log.Info("file deleted", slog.String("file_id", f.ID), slog.String("project_id", f.ProjectID))
	return report, nil
}
