package http

import (
	"net/http"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/service"
	"github.com/aussiebroadwan/sharebox/pkg/httpx"
)

type SessionHandler struct {
	SessionService *service.SessionService
	SecureCookies  bool
}

// HandleLogin godoc
//
//	@Summary		Log in
//	@Description	Verifies username and password and issues a session token. The token is also set as the sharebox_session cookie.
//	@Tags			Session
//	@Accept			x-www-form-urlencoded
//	@Produce		json
//	@Param			username	formData	string				true	"Username"
//	@Param			password	formData	string				true	"Password"
//	@Success		200			{object}	LoginResponse		"access_token, token_type, expires_at, user"
//	@Failure		400			{object}	httpx.ErrorResponse	"error, error_description"
//	@Failure		401			{object}	httpx.ErrorResponse	"error, error_description"
//	@Failure		429			{object}	httpx.ErrorResponse	"error, error_description"
//	@Router			/v1/login [post].
func (h *SessionHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid form data")
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")
	if username == "" || password == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "username and password are required")
		return
	}

	issued, err := h.SessionService.Login(r.Context(), username, password)
	if err != nil {
		writeServiceError(w, r, err, "log in")
		return
	}

	httpx.SetSessionCookie(w, issued.Token, issued.ExpiresAt, h.SecureCookies)
	httpx.WriteJSON(w, http.StatusOK, LoginResponse{
		AccessToken: issued.Token,
		TokenType:   "Bearer",
		ExpiresAt:   issued.ExpiresAt.Unix(),
		User:        toUser(issued.User),
	})
}

// HandleLogout clears the session cookie. Bearer tokens simply expire.
//
//	@Summary	Log out
//	@Tags		Session
//	@Success	204
//	@Router		/v1/logout [post].
func (h *SessionHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	httpx.ClearSessionCookie(w, h.SecureCookies)
	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe godoc
//
//	@Summary	Current user
//	@Tags		Session
//	@Produce	json
//	@Success	200	{object}	UserResponse
//	@Failure	401	{object}	httpx.ErrorResponse
//	@Security	BearerAuth
//	@Router		/v1/me [get].
func (h *SessionHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, toUser(currentUser(r.Context())))
}
