package http

import (
	"encoding/json"
	"net/http"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/domain"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/service"
	"github.com/aussiebroadwan/sharebox/pkg/httpx"
)

// InvitationsHandler serves the superuser invitation endpoints.
type InvitationsHandler struct {
	InvitationService *service.InvitationService
}

// HandleList godoc
//
//	@Summary		List invitations
//	@Description	Every invitation, newest first.
//	@Tags			Invitations
//	@Produce		json
//	@Success		200	{array}		InvitationResponse
//	@Failure		403	{object}	httpx.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/invitations [get].
func (h *InvitationsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	invs, err := h.InvitationService.List(r.Context(), currentUser(r.Context()))
	if err != nil {
		writeServiceError(w, r, err, "list invitations")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, mapSlice(invs, func(inv domain.Invitation) InvitationResponse {
		return toInvitation(inv, "")
	}))
}

// HandleIssue godoc
//
//	@Summary		Invite a user
//	@Description	Creates an invitation bound to an email and returns its single-use link. Expires after 10 days.
//	@Tags			Invitations
//	@Accept			json
//	@Produce		json
//	@Param			request	body		IssueInvitationRequest	true	"Invitee email"
//	@Success		201		{object}	InvitationResponse		"invitation with url"
//	@Failure		400		{object}	ValidationErrorResponse
//	@Failure		403		{object}	httpx.ErrorResponse
//	@Failure		409		{object}	httpx.ErrorResponse	"email already registered or invited"
//	@Security		BearerAuth
//	@Router			/v1/invitations [post].
func (h *InvitationsHandler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	var req IssueInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}

	inv, err := h.InvitationService.Issue(r.Context(), currentUser(r.Context()), req.Email)
	if err != nil {
		writeServiceError(w, r, err, "create invitation")
		return
	}

	link := h.InvitationService.Link(inv)
	httpx.WriteJSON(w, http.StatusCreated, toInvitation(inv, link.URL))
}

// HandleResend godoc
//
//	@Summary		Resend an invitation
//	@Description	Returns the link again. An expired invitation gets a fresh 10 day window; the token never changes.
//	@Tags			Invitations
//	@Produce		json
//	@Param			id	path		string	true	"Invitation ID"
//	@Success		200	{object}	InvitationResponse
//	@Failure		404	{object}	httpx.ErrorResponse
//	@Failure		409	{object}	httpx.ErrorResponse	"already accepted"
//	@Security		BearerAuth
//	@Router			/v1/invitations/{id}/resend [post].
func (h *InvitationsHandler) HandleResend(w http.ResponseWriter, r *http.Request) {
	link, err := h.InvitationService.Resend(r.Context(), currentUser(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "resend invitation")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toInvitation(link.Invitation, link.URL))
}

// HandleCancel godoc
//
//	@Summary		Cancel an invitation
//	@Description	Deletes a pending invitation. Accepted invitations are left alone and reported as such.
//	@Tags			Invitations
//	@Produce		json
//	@Param			id	path		string	true	"Invitation ID"
//	@Success		200	{object}	CancelInvitationResponse
//	@Failure		404	{object}	httpx.ErrorResponse
//	@Security		BearerAuth
//	@Router			/v1/invitations/{id} [delete].
func (h *InvitationsHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	res, err := h.InvitationService.Cancel(r.Context(), currentUser(r.Context()), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err, "cancel invitation")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, CancelInvitationResponse{
		Cancelled:       !res.AlreadyAccepted,
		AlreadyAccepted: res.AlreadyAccepted,
	})
}
