package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/domain"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/store"
)

type invitationsRepo struct {
	db dbtx
}

const invitationColumns = `id, email, token, invited_by, created_at, expires_at, is_accepted, accepted_at`

func scanInvitation(row scanner) (domain.Invitation, error) {
	var (
		inv              domain.Invitation
		created, expires int64
		accepted         sql.NullInt64
	)
	err := row.Scan(&inv.ID, &inv.Email, &inv.Token, &inv.InvitedBy,
		&created, &expires, &inv.IsAccepted, &accepted)
	if err != nil {
		return domain.Invitation{}, mapNotFound(err)
	}
	inv.CreatedAt = fromUnix(created)
	inv.ExpiresAt = fromUnix(expires)
	inv.AcceptedAt = fromNullUnix(accepted)
	return inv, nil
}

func (r *invitationsRepo) CreateInvitation(ctx context.Context, inv domain.Invitation) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO invitations (`+invitationColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.Email, inv.Token, inv.InvitedBy,
		toUnix(inv.CreatedAt), toUnix(inv.ExpiresAt), inv.IsAccepted, toNullUnix(inv.AcceptedAt),
	)
	return mapConstraint(err)
}

func (r *invitationsRepo) GetInvitationByID(ctx context.Context, id string) (domain.Invitation, error) {
	return scanInvitation(r.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE id = ?`, id))
}

func (r *invitationsRepo) GetInvitationByToken(ctx context.Context, token string) (domain.Invitation, error) {
	return scanInvitation(r.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE token = ?`, token))
}

func (r *invitationsRepo) GetInvitationByEmail(ctx context.Context, email string) (domain.Invitation, error) {
	return scanInvitation(r.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE email = ? COLLATE NOCASE`, email))
}

func (r *invitationsRepo) ListInvitations(ctx context.Context) ([]domain.Invitation, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations ORDER BY created_at DESC, id DESC`)
	return collect(rows, err, scanInvitation)
}

func (r *invitationsRepo) ResetExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE invitations SET expires_at = ? WHERE id = ? AND is_accepted = 0`,
		toUnix(expiresAt), id)
	if err != nil {
		return err
	}
	return r.conditional(ctx, res, id)
}

func (r *invitationsRepo) MarkAccepted(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE invitations SET is_accepted = 1, accepted_at = ? WHERE id = ? AND is_accepted = 0`,
		toUnix(at), id)
	if err != nil {
		return err
	}
	return r.conditional(ctx, res, id)
}

func (r *invitationsRepo) DeletePendingInvitation(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM invitations WHERE id = ? AND is_accepted = 0`, id)
	if err != nil {
		return err
	}
	return r.conditional(ctx, res, id)
}

// conditional resolves a guarded write that touched no rows into
// ErrNotFound (row missing) or ErrConflict (guard failed).
func (r *invitationsRepo) conditional(ctx context.Context, res sql.Result, id string) error {
	ok, err := affected(res)
	if err != nil || ok {
		return err
	}
	var exists bool
	if err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM invitations WHERE id = ?)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return store.ErrNotFound
	}
	return store.ErrConflict
}
