package sqlite

import (
	"context"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/domain"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/store"
)

type filesRepo struct {
	db dbtx
}

const fileColumns = `id, project_id, user_id, title, filename, handle, content_type, size, uploaded_at`

func scanFile(row scanner) (domain.UploadedFile, error) {
	var (
		f        domain.UploadedFile
		uploaded int64
	)
	err := row.Scan(&f.ID, &f.ProjectID, &f.UserID, &f.Title, &f.Filename,
		&f.Handle, &f.ContentType, &f.Size, &uploaded)
	if err != nil {
		return domain.UploadedFile{}, mapNotFound(err)
	}
	f.UploadedAt = fromUnix(uploaded)
	return f, nil
}

func (r *filesRepo) CreateFile(ctx context.Context, f domain.UploadedFile) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO files (`+fileColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.ProjectID, f.UserID, f.Title, f.Filename,
		f.Handle, f.ContentType, f.Size, toUnix(f.UploadedAt))
	return mapConstraint(err)
}

func (r *filesRepo) GetFileByID(ctx context.Context, id string) (domain.UploadedFile, error) {
	return scanFile(r.db.QueryRowContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE id = ?`, id))
}

func (r *filesRepo) ListFilesForProject(ctx context.Context, projectID string) ([]domain.UploadedFile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE project_id = ? ORDER BY uploaded_at DESC, id DESC`,
		projectID)
	return collect(rows, err, scanFile)
}

func (r *filesRepo) ListFilesForUser(ctx context.Context, userID string) ([]domain.UploadedFile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+fileColumns+` FROM files WHERE user_id = ? ORDER BY uploaded_at DESC, id DESC`,
		userID)
	return collect(rows, err, scanFile)
}

func (r *filesRepo) DeleteFile(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, id)
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

func (r *filesRepo) DeleteFilesForProject(ctx context.Context, projectID string) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE project_id = ?`, projectID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
