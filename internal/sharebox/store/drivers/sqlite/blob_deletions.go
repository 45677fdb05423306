package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/domain"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/store"
)

type blobDeletionsRepo struct {
	db dbtx
}

func (r *blobDeletionsRepo) CreateBlobDeletion(ctx context.Context, d domain.BlobDeletion) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO blob_deletions (id, handle, reason, attempts, created_at, last_attempt_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.Handle, d.Reason, d.Attempts, toUnix(d.CreatedAt), toNullUnix(d.LastAttemptAt))
	return mapConstraint(err)
}

func (r *blobDeletionsRepo) ListBlobDeletions(ctx context.Context, limit int) ([]domain.BlobDeletion, error) {
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, handle, reason, attempts, created_at, last_attempt_at
		FROM blob_deletions
		ORDER BY created_at, id
		LIMIT ?`, limit)
	return collect(rows, err, func(row scanner) (domain.BlobDeletion, error) {
		var (
			d       domain.BlobDeletion
			created int64
			last    sql.NullInt64
		)
		if err := row.Scan(&d.ID, &d.Handle, &d.Reason, &d.Attempts, &created, &last); err != nil {
			return domain.BlobDeletion{}, err
		}
		d.CreatedAt = fromUnix(created)
		d.LastAttemptAt = fromNullUnix(last)
		return d, nil
	})
}

func (r *blobDeletionsRepo) RecordBlobDeletionAttempt(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE blob_deletions SET attempts = attempts + 1, last_attempt_at = ? WHERE id = ?`,
		toUnix(at), id)
	if err != nil {
		return err
	}
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrNotFound
	}
	return nil
}

func (r *blobDeletionsRepo) DeleteBlobDeletion(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM blob_deletions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	ok, err := affected(res)
	if err != nil {
		return err
	}
	if !ok {
		return store.ErrNotFound
	}
	return nil
}
