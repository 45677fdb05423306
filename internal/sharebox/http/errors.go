package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/service"
	"github.com/aussiebroadwan/sharebox/pkg/httpx"
	"github.com/aussiebroadwan/sharebox/pkg/slogx"
)

// writeServiceError maps a service error onto a status and error code.
// Anything unrecognised is logged and reported as a server error.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, action string) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		httpx.WriteJSON(w, http.StatusBadRequest, ValidationErrorResponse{
			Error:            "invalid_request",
			ErrorDescription: "validation failed for some fields",
			Fields:           verr.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		httpx.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid username or password")
	case errors.Is(err, service.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "You may not perform this action")
	case errors.Is(err, service.ErrNotAMember):
		httpx.WriteError(w, http.StatusForbidden, "not_a_member", "You are not a member of this project")
	case errors.Is(err, service.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, service.ErrDuplicateEmail):
		httpx.WriteError(w, http.StatusConflict, "duplicate_email", "A user or invitation with this email already exists")
	case errors.Is(err, service.ErrUsernameTaken):
		httpx.WriteError(w, http.StatusConflict, "username_taken", "Username is already taken")
	case errors.Is(err, service.ErrAlreadyAccepted):
		httpx.WriteError(w, http.StatusConflict, "already_accepted", "Invitation has already been accepted")
	case errors.Is(err, service.ErrCannotRemoveCreator):
		httpx.WriteError(w, http.StatusConflict, "cannot_remove_creator", "The project creator cannot be removed")
	case errors.Is(err, service.ErrSessionActive):
		httpx.WriteError(w, http.StatusConflict, "session_active", "Log out before accepting an invitation")
	default:
		slogx.FromContext(r.Context()).Error("request failed", "action", action, "err", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "Failed to "+action)
	}
}

// writeInvitationError reports token problems on the public accept flow.
// Every token failure is a 400 with code invalid_invitation.
func writeInvitationError(w http.ResponseWriter, r *http.Request, err error) {
	if !service.IsTokenError(err) {
		writeServiceError(w, r, err, "accept invitation")
		return
	}

	desc := "Invitation link is invalid"
	switch {
	case errors.Is(err, service.ErrAlreadyUsed):
		desc = "Invitation has already been used"
	case errors.Is(err, service.ErrExpired):
		desc = "Invitation has expired"
	case errors.Is(err, service.ErrEmailMismatch):
		desc = "Email does not match the invitation"
	}
	httpx.WriteError(w, http.StatusBadRequest, "invalid_invitation", desc)
}
