package http

import (
	"time"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/domain"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/service"
)

// ValidationErrorResponse carries per-field problems.
type ValidationErrorResponse struct {
	Error            string            `json:"error"`
	ErrorDescription string            `json:"error_description,omitempty"`
	Fields           map[string]string `json:"fields"`
}

type HealthChecks struct {
	Database string `json:"database"`
	Storage  string `json:"storage"`
}

type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime"`
	Version string        `json:"version"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

type UserResponse struct {
	ID          string    `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name,omitempty"`
	LastName    string    `json:"last_name,omitempty"`
	IsSuperuser bool      `json:"is_superuser"`
	CreatedAt   time.Time `json:"created_at"`
}

func toUser(u domain.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		IsSuperuser: u.IsSuperuser,
		CreatedAt:   u.CreatedAt,
	}
}

type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   int64        `json:"expires_at"`
	User        UserResponse `json:"user"`
}

type BootstrapRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
}

type IssueInvitationRequest struct {
	Email string `json:"email"`
}

type InvitationResponse struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	InvitedBy  string     `json:"invited_by"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	IsAccepted bool       `json:"is_accepted"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	URL        string     `json:"url,omitempty"`
}

func toInvitation(inv domain.Invitation, url string) InvitationResponse {
	return InvitationResponse{
		ID:         inv.ID,
		Email:      inv.Email,
		InvitedBy:  inv.InvitedBy,
		CreatedAt:  inv.CreatedAt,
		ExpiresAt:  inv.ExpiresAt,
		IsAccepted: inv.IsAccepted,
		AcceptedAt: inv.AcceptedAt,
		URL:        url,
	}
}

type CancelInvitationResponse struct {
	Cancelled       bool `json:"cancelled"`
	AlreadyAccepted bool `json:"already_accepted"`
}

// AcceptInvitationResponse is shown before the invitee fills in the form.
type AcceptInvitationResponse struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateProjectRequest edits a project. Omitted fields keep their value.
type UpdateProjectRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

type ProjectResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedBy   string    `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

func toProject(p domain.Project) ProjectResponse {
	return ProjectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		CreatedBy:   p.CreatedBy,
		CreatedAt:   p.CreatedAt,
	}
}

type MemberResponse struct {
	UserID  string    `json:"user_id"`
	AddedBy string    `json:"added_by"`
	AddedAt time.Time `json:"added_at"`
}

type AddMembersRequest struct {
	UserIDs []string `json:"user_ids"`
}

type AddMembersResponse struct {
	Added int `json:"added"`
}

type FileResponse struct {
	ID          string    `json:"id"`
	ProjectID   string    `json:"project_id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type,omitempty"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

func toFile(f domain.UploadedFile) FileResponse {
	return FileResponse{
		ID:          f.ID,
		ProjectID:   f.ProjectID,
		UserID:      f.UserID,
		Title:       f.Title,
		Filename:    f.Filename,
		ContentType: f.ContentType,
		Size:        f.Size,
		UploadedAt:  f.UploadedAt,
	}
}

// DeleteResponse reports a deletion. Warnings lists storage objects that
// could not be removed; the deletion itself succeeded.
type DeleteResponse struct {
	FilesDeleted       int      `json:"files_deleted"`
	MembershipsDeleted int      `json:"memberships_deleted,omitempty"`
	Warnings           []string `json:"warnings,omitempty"`
}

func toDelete(r service.DeleteReport) DeleteResponse {
	return DeleteResponse{
		FilesDeleted:       r.FilesDeleted,
		MembershipsDeleted: r.MembershipsDeleted,
		Warnings:           r.Warnings(),
	}
}

type BlobDeletionResponse struct {
	ID            string     `json:"id"`
	Handle        string     `json:"handle"`
	Reason        string     `json:"reason,omitempty"`
	Attempts      int        `json:"attempts"`
	CreatedAt     time.Time  `json:"created_at"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
}

// mapSlice converts a slice element by element.
func mapSlice[T, R any](in []T, fn func(T) R) []R {
	out := make([]R, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}
