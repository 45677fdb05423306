package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/domain"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/store"
)

// newestFirst orders by timestamp descending with id as the tie-breaker.
func newestFirst[T any](items []T, at func(T) time.Time, id func(T) string) {
	slices.SortFunc(items, func(a, b T) int {
		if c := at(b).Compare(at(a)); c != 0 {
			return c
		}
		return cmp.Compare(id(b), id(a))
	})
}

type usersRepo struct{ run runner }

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (u domain.User, err error) {
	err = r.run(func(s *state) error {
		var ok bool
		if u, ok = s.users[id]; !ok {
			return store.ErrNotFound
		}
		return nil
	})
	return u, err
}

func (r *usersRepo) find(match func(domain.User) bool) (u domain.User, err error) {
	err = r.run(func(s *state) error {
		for _, cand := range s.users {
			if match(cand) {
				u = cand
				return nil
			}
		}
		return store.ErrNotFound
	})
	return u, err
}

func (r *usersRepo) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.find(func(u domain.User) bool { return u.Username == username })
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.find(func(u domain.User) bool { return strings.EqualFold(u.Email, email) })
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	return r.run(func(s *state) error {
		if _, ok := s.users[u.ID]; ok {
			return store.ErrAlreadyExists
		}
		for _, other := range s.users {
			if other.Username == u.Username || strings.EqualFold(other.Email, u.Email) {
				return store.ErrAlreadyExists
			}
		}
		s.users[u.ID] = u
		return nil
	})
}

func (r *usersRepo) ListUsers(ctx context.Context) (out []domain.User, err error) {
	err = r.run(func(s *state) error {
		for _, u := range s.users {
			out = append(out, u)
		}
		slices.SortFunc(out, func(a, b domain.User) int { return cmp.Compare(a.Username, b.Username) })
		return nil
	})
	return out, err
}

func (r *usersRepo) IsEmpty(ctx context.Context) (empty bool, err error) {
	err = r.run(func(s *state) error {
		empty = len(s.users) == 0
		return nil
	})
	return empty, err
}

type invitationsRepo struct{ run runner }

func (r *invitationsRepo) CreateInvitation(ctx context.Context, inv domain.Invitation) error {
	return r.run(func(s *state) error {
		if _, ok := s.users[inv.InvitedBy]; !ok {
			return store.ErrNotFound
		}
		if _, ok := s.invitations[inv.ID]; ok {
			return store.ErrAlreadyExists
		}
		for _, other := range s.invitations {
			if other.Token == inv.Token || strings.EqualFold(other.Email, inv.Email) {
				return store.ErrAlreadyExists
			}
		}
		s.invitations[inv.ID] = inv
		return nil
	})
}

func (r *invitationsRepo) find(match func(domain.Invitation) bool) (inv domain.Invitation, err error) {
	err = r.run(func(s *state) error {
		for _, cand := range s.invitations {
			if match(cand) {
				inv = cand
				return nil
			}
		}
		return store.ErrNotFound
	})
	return inv, err
}

func (r *invitationsRepo) GetInvitationByID(ctx context.Context, id string) (domain.Invitation, error) {
	return r.find(func(i domain.Invitation) bool { return i.ID == id })
}

func (r *invitationsRepo) GetInvitationByToken(ctx context.Context, token string) (domain.Invitation, error) {
	return r.find(func(i domain.Invitation) bool { return i.Token == token })
}

func (r *invitationsRepo) GetInvitationByEmail(ctx context.Context, email string) (domain.Invitation, error) {
	return r.find(func(i domain.Invitation) bool { return strings.EqualFold(i.Email, email) })
}

func (r *invitationsRepo) ListInvitations(ctx context.Context) (out []domain.Invitation, err error) {
	err = r.run(func(s *state) error {
		for _, inv := range s.invitations {
			out = append(out, inv)
		}
		newestFirst(out,
			func(i domain.Invitation) time.Time { return i.CreatedAt },
			func(i domain.Invitation) string { return i.ID })
		return nil
	})
	return out, err
}

// pending applies fn to a not-yet-accepted invitation.
func (r *invitationsRepo) pending(id string, fn func(s *state, inv domain.Invitation)) error {
	return r.run(func(s *state) error {
		inv, ok := s.invitations[id]
		if !ok {
			return store.ErrNotFound
		}
		if inv.IsAccepted {
			return store.ErrConflict
		}
		fn(s, inv)
		return nil
	})
}

func (r *invitationsRepo) ResetExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	return r.pending(id, func(s *state, inv domain.Invitation) {
		inv.ExpiresAt = expiresAt
		s.invitations[id] = inv
	})
}

func (r *invitationsRepo) MarkAccepted(ctx context.Context, id string, at time.Time) error {
	return r.pending(id, func(s *state, inv domain.Invitation) {
		inv.IsAccepted = true
		inv.AcceptedAt = &at
		s.invitations[id] = inv
	})
}

func (r *invitationsRepo) DeletePendingInvitation(ctx context.Context, id string) error {
	return r.pending(id, func(s *state, _ domain.Invitation) {
		delete(s.invitations, id)
	})
}

type projectsRepo struct{ run runner }

func (r *projectsRepo) CreateProject(ctx context.Context, p domain.Project) error {
	return r.run(func(s *state) error {
		if _, ok := s.users[p.CreatedBy]; !ok {
			return store.ErrNotFound
		}
		if _, ok := s.projects[p.ID]; ok {
			return store.ErrAlreadyExists
		}
		s.projects[p.ID] = p
		return nil
	})
}

func (r *projectsRepo) GetProjectByID(ctx context.Context, id string) (p domain.Project, err error) {
	err = r.run(func(s *state) error {
		var ok bool
		if p, ok = s.projects[id]; !ok {
			return store.ErrNotFound
		}
		return nil
	})
	return p, err
}

func (r *projectsRepo) UpdateProject(ctx context.Context, p domain.Project) error {
	return r.run(func(s *state) error {
		cur, ok := s.projects[p.ID]
		if !ok {
			return store.ErrNotFound
		}
		cur.Name, cur.Description = p.Name, p.Description
		s.projects[p.ID] = cur
		return nil
	})
}

func (r *projectsRepo) list(keep func(*state, domain.Project) bool) (out []domain.Project, err error) {
	err = r.run(func(s *state) error {
		for _, p := range s.projects {
			if keep(s, p) {
				out = append(out, p)
			}
		}
		newestFirst(out,
			func(p domain.Project) time.Time { return p.CreatedAt },
			func(p domain.Project) string { return p.ID })
		return nil
	})
	return out, err
}

func (r *projectsRepo) ListProjects(ctx context.Context) ([]domain.Project, error) {
	return r.list(func(*state, domain.Project) bool { return true })
}

func (r *projectsRepo) ListProjectsForUser(ctx context.Context, userID string) ([]domain.Project, error) {
	return r.list(func(s *state, p domain.Project) bool {
		_, ok := s.members[memberKey{p.ID, userID}]
		return ok
	})
}

// DeleteProject cascades to memberships and files like the sqlite schema.
func (r *projectsRepo) DeleteProject(ctx context.Context, id string) error {
	return r.run(func(s *state) error {
		if _, ok := s.projects[id]; !ok {
			return store.ErrNotFound
		}
		delete(s.projects, id)
		for k := range s.members {
			if k.projectID == id {
				delete(s.members, k)
			}
		}
		for fid, f := range s.files {
			if f.ProjectID == id {
				delete(s.files, fid)
			}
		}
		return nil
	})
}

type membershipsRepo struct{ run runner }

func (r *membershipsRepo) AddMembership(ctx context.Context, m domain.Membership) (added bool, err error) {
	err = r.run(func(s *state) error {
		if _, ok := s.projects[m.ProjectID]; !ok {
			return store.ErrNotFound
		}
		if _, ok := s.users[m.UserID]; !ok {
			return store.ErrNotFound
		}
		k := memberKey{m.ProjectID, m.UserID}
		if _, ok := s.members[k]; ok {
			return nil
		}
		s.members[k] = m
		added = true
		return nil
	})
	return added, err
}

func (r *membershipsRepo) IsMember(ctx context.Context, projectID, userID string) (ok bool, err error) {
	err = r.run(func(s *state) error {
		_, ok = s.members[memberKey{projectID, userID}]
		return nil
	})
	return ok, err
}

func (r *membershipsRepo) ListMembers(ctx context.Context, projectID string) (out []domain.Membership, err error) {
	err = r.run(func(s *state) error {
		for k, m := range s.members {
			if k.projectID == projectID {
				out = append(out, m)
			}
		}
		slices.SortFunc(out, func(a, b domain.Membership) int {
			if c := a.AddedAt.Compare(b.AddedAt); c != 0 {
				return c
			}
			return cmp.Compare(a.UserID, b.UserID)
		})
		return nil
	})
	return out, err
}

func (r *membershipsRepo) RemoveMembership(ctx context.Context, projectID, userID string) error {
	return r.run(func(s *state) error {
		k := memberKey{projectID, userID}
		if _, ok := s.members[k]; !ok {
			return store.ErrNotFound
		}
		delete(s.members, k)
		return nil
	})
}

func (r *membershipsRepo) DeleteMembershipsForProject(ctx context.Context, projectID string) (n int, err error) {
	err = r.run(func(s *state) error {
		for k := range s.members {
			if k.projectID == projectID {
				delete(s.members, k)
				n++
			}
		}
		return nil
	})
	return n, err
}

type filesRepo struct{ run runner }

func (r *filesRepo) CreateFile(ctx context.Context, f domain.UploadedFile) error {
	return r.run(func(s *state) error {
		if _, ok := s.projects[f.ProjectID]; !ok {
			return store.ErrNotFound
		}
		if _, ok := s.users[f.UserID]; !ok {
			return store.ErrNotFound
		}
		if _, ok := s.files[f.ID]; ok {
			return store.ErrAlreadyExists
		}
		for _, other := range s.files {
			if other.Handle == f.Handle {
				return store.ErrAlreadyExists
			}
		}
		s.files[f.ID] = f
		return nil
	})
}

func (r *filesRepo) GetFileByID(ctx context.Context, id string) (f domain.UploadedFile, err error) {
	err = r.run(func(s *state) error {
		var ok bool
		if f, ok = s.files[id]; !ok {
			return store.ErrNotFound
		}
		return nil
	})
	return f, err
}

func (r *filesRepo) list(keep func(domain.UploadedFile) bool) (out []domain.UploadedFile, err error) {
	err = r.run(func(s *state) error {
		for _, f := range s.files {
			if keep(f) {
				out = append(out, f)
			}
		}
		newestFirst(out,
			func(f domain.UploadedFile) time.Time { return f.UploadedAt },
			func(f domain.UploadedFile) string { return f.ID })
		return nil
	})
	return out, err
}

func (r *filesRepo) ListFilesForProject(ctx context.Context, projectID string) ([]domain.UploadedFile, error) {
	return r.list(func(f domain.UploadedFile) bool { return f.ProjectID == projectID })
}

func (r *filesRepo) ListFilesForUser(ctx context.Context, userID string) ([]domain.UploadedFile, error) {
	return r.list(func(f domain.UploadedFile) bool { return f.UserID == userID })
}

func (r *filesRepo) DeleteFile(ctx context.Context, id string) error {
	return r.run(func(s *state) error {
		if _, ok := s.files[id]; !ok {
			return store.ErrNotFound
		}
		delete(s.files, id)
		return nil
	})
}

func (r *filesRepo) DeleteFilesForProject(ctx context.Context, projectID string) (n int, err error) {
	err = r.run(func(s *state) error {
		for id, f := range s.files {
			if f.ProjectID == projectID {
				delete(s.files, id)
				n++
			}
		}
		return nil
	})
	return n, err
}

type blobDeletionsRepo struct{ run runner }

func (r *blobDeletionsRepo) CreateBlobDeletion(ctx context.Context, d domain.BlobDeletion) error {
	return r.run(func(s *state) error {
		if _, ok := s.blobDeletions[d.ID]; ok {
			return store.ErrAlreadyExists
		}
		s.blobDeletions[d.ID] = d
		return nil
	})
}

func (r *blobDeletionsRepo) ListBlobDeletions(ctx context.Context, limit int) (out []domain.BlobDeletion, err error) {
	err = r.run(func(s *state) error {
		for _, d := range s.blobDeletions {
			out = append(out, d)
		}
		slices.SortFunc(out, func(a, b domain.BlobDeletion) int {
			if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})
		if limit > 0 && len(out) > limit {
			out = out[:limit]
		}
		return nil
	})
	return out, err
}

func (r *blobDeletionsRepo) RecordBlobDeletionAttempt(ctx context.Context, id string, at time.Time) error {
	return r.run(func(s *state) error {
		d, ok := s.blobDeletions[id]
		if !ok {
			return store.ErrNotFound
		}
		d.Attempts++
		d.LastAttemptAt = &at
		s.blobDeletions[id] = d
		return nil
	})
}

func (r *blobDeletionsRepo) DeleteBlobDeletion(ctx context.Context, id string) error {
	return r.run(func(s *state) error {
		if _, ok := s.blobDeletions[id]; !ok {
			return store.ErrNotFound
		}
		delete(s.blobDeletions, id)
		return nil
	})
}
