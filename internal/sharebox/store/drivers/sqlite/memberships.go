package sqlite

import (
	"context"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/domain"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/store"
)

type membershipsRepo struct {
	db dbtx
}

func (r *membershipsRepo) AddMembership(ctx context.Context, m domain.Membership) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO project_members (project_id, user_id, added_by, added_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (project_id, user_id) DO NOTHING`,
		m.ProjectID, m.UserID, m.AddedBy, toUnix(m.AddedAt))
	if err != nil {
		return false, mapConstraint(err)
	}
	return affected(res)
}

func (r *membershipsRepo) IsMember(ctx context.Context, projectID, userID string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM project_members WHERE project_id = ? AND user_id = ?)`,
		projectID, userID).Scan(&ok)
	return ok, err
}

func (r *membershipsRepo) ListMembers(ctx context.Context, projectID string) ([]domain.Membership, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT project_id, user_id, added_by, added_at
		FROM project_members
		WHERE project_id = ?
		ORDER BY added_at, user_id`, projectID)
	return collect(rows, err, func(row scanner) (domain.Membership, error) {
		var (
			m     domain.Membership
			added int64
		)
		if err := row.Scan(&m.ProjectID, &m.UserID, &m.AddedBy, &added); err != nil {
			return domain.Membership{}, err
		}
		m.AddedAt = fromUnix(added)
		return m, nil
	})
}

func (r *membershipsRepo) RemoveMembership(ctx context.Context, projectID, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM project_members WHERE project_id = ? AND user_id = ?`, projectID, userID)
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

func (r *membershipsRepo) DeleteMembershipsForProject(ctx context.Context, projectID string) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM project_members WHERE project_id = ?`, projectID)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}
