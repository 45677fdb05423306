package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/service"
	"github.com/aussiebroadwan/sharebox/pkg/httpx"
	"github.com/aussiebroadwan/sharebox/pkg/jwtx"
)

// AcceptHandler serves the public invitation link.
type AcceptHandler struct {
	AccountProvisioner *service.AccountProvisioner
	Verifier           jwtx.Verifier
	SecureCookies      bool
}

// requestSession adapts the caller's credentials to service.SessionState.
// Ending it clears the browser cookie. A bearer token stays active: the
// client has to drop it itself.
type requestSession struct {
	w      http.ResponseWriter
	cookie bool
	bearer bool
	secure bool
}

func (s *requestSession) Active() bool { return s.cookie || s.bearer }

func (s *requestSession) End(context.Context) error {
	if s.cookie {
		httpx.ClearSessionCookie(s.w, s.secure)
		s.cookie = false
	}
	return nil
}

func (h *AcceptHandler) session(w http.ResponseWriter, r *http.Request) *requestSession {
	s := &requestSession{w: w, secure: h.SecureCookies}
	_, s.cookie = httpx.SessionFromRequest(h.Verifier, r)
	_, s.bearer = httpx.BearerFromRequest(h.Verifier, r)
	return s
}

// restart sends the browser back to the same link without its session.
func restart(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, r.URL.Path, http.StatusSeeOther)
}

// HandleGet godoc
//
//	@Summary		Open an invitation link
//	@Description	Checks the token and returns the bound email. A signed-in browser is logged out and redirected to the same link.
//	@Tags			Invitations
//	@Produce		json
//	@Param			token	path		string	true	"Invitation token"
//	@Success		200		{object}	AcceptInvitationResponse
//	@Success		303		"session ended, retry"
//	@Failure		400		{object}	httpx.ErrorResponse	"invalid_invitation"
//	@Failure		409		{object}	httpx.ErrorResponse	"session_active, bearer token present"
//	@Router			/v1/accept/{token} [get].
func (h *AcceptHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	sess := h.session(w, r)
	inv, err := h.AccountProvisioner.Begin(r.Context(), r.PathValue("token"), sess)
	if err != nil {
		// A cookie session has been cleared; a bearer caller gets 409.
		if errors.Is(err, service.ErrSessionActive) && !sess.bearer {
			restart(w, r)
			return
		}
		writeInvitationError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, AcceptInvitationResponse{
		Email:     inv.Email,
		ExpiresAt: inv.ExpiresAt,
	})
}

// HandlePost godoc
//
//	@Summary		Accept an invitation
//	@Description	Creates the account. The email must be the invited one and the form token must match the link.
//	@Tags			Invitations
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			token				path		string	true	"Invitation token"
//	@Param			username			formData	string	true	"Username"
//	@Param			email				formData	string	true	"Invited email"
//	@Param			first_name			formData	string	false	"First name"
//	@Param			last_name			formData	string	false	"Last name"
//	@Param			password1			formData	string	true	"Password"
//	@Param			password2			formData	string	true	"Password confirmation"
//	@Param			invitation_token	formData	string	true	"Invitation token"
//	@Success		201					{object}	UserResponse
//	@Success		303					"session ended, retry"
//	@Failure		400					{object}	ValidationErrorResponse
//	@Failure		409					{object}	httpx.ErrorResponse	"username or email taken, or session_active"
//	@Router			/v1/accept/{token} [post].
func (h *AcceptHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid form data")
		return
	}

	sess := h.session(w, r)
	user, err := h.AccountProvisioner.AcceptInvitation(r.Context(), r.PathValue("token"), service.AccountDetails{
		Username:        r.PostFormValue("username"),
		Email:           r.PostFormValue("email"),
		FirstName:       r.PostFormValue("first_name"),
		LastName:        r.PostFormValue("last_name"),
		Password:        r.PostFormValue("password1"),
		PasswordConfirm: r.PostFormValue("password2"),
		InvitationToken: r.PostFormValue("invitation_token"),
	}, sess)
	if err != nil {
		if errors.Is(err, service.ErrSessionActive) && !sess.bearer {
			_ = sess.End(r.Context())
			restart(w, r)
			return
		}
		writeInvitationError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toUser(user))
}
