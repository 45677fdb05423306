package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/domain"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/store"
	"github.com/aussiebroadwan/sharebox/pkg/idx"
	"github.com/aussiebroadwan/sharebox/pkg/slogx"
)

// StorageFailure is one blob that could not be removed.
type StorageFailure struct {
	FileID string
	Handle string
	Err    error
}

// DeleteReport describes a completed deletion. Metadata is gone even when
// StorageFailures is non-empty; those blobs are queued for housekeeping.
type DeleteReport struct {
	FilesDeleted       int
	MembershipsDeleted int
	StorageFailures    []StorageFailure
}

// Err returns nil, or an error wrapping ErrStorageDeleteFailed and every
// underlying failure.
func (r DeleteReport) Err() error {
	if len(r.StorageFailures) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.StorageFailures))
	for _, f := range r.StorageFailures {
		errs = append(errs, fmt.Errorf("%s: %w", f.Handle, f.Err))
	}
	return fmt.Errorf("%w: %w", ErrStorageDeleteFailed, errors.Join(errs...))
}

// Warnings renders the failures for API responses.
func (r DeleteReport) Warnings() []string {
	out := make([]string, 0, len(r.StorageFailures))
	for _, f := range r.StorageFailures {
		out = append(out, fmt.Sprintf("storage object %s could not be deleted and has been queued for cleanup", f.Handle))
	}
	return out
}

// queueBlobDeletions persists failed deletes for the housekeeping worker.
func queueBlobDeletions(ctx context.Context, repo store.BlobDeletions, failures []StorageFailure, now time.Time) error {
	for _, f := range failures {
		reason := ""
		if f.Err != nil {
			reason = f.Err.Error()
		}
		if err := repo.CreateBlobDeletion(ctx, domain.BlobDeletion{
			ID:        idx.NewAt(now).String(),
			Handle:    f.Handle,
			Reason:    reason,
			CreatedAt: now,
		}); err != nil {
			return err
		}
	}
	return nil
}

func logStorageFailures(ctx context.Context, failures []StorageFailure) {
	log := slogx.FromContext(ctx)
	for _, f := range failures {
		log.Warn("storage delete failed, queued for retry",
			slog.String("file_id", f.FileID),
			slog.String("handle", f.Handle),
			slog.Any("error", f.Err),
		)
	}
}
