package httpx

import (
	"net/http"
	"strings"
	"time"

	"github.com/aussiebroadwan/sharebox/pkg/jwtx"
)

// SessionCookieName is the cookie carrying the session token for browsers.
const SessionCookieName = "sharebox_session"

// TokenFromRequest extracts a session token from the Authorization bearer
// header, falling back to the session cookie.
func TokenFromRequest(r *http.Request) string {
	if authz := r.Header.Get("Authorization"); strings.HasPrefix(authz, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	}
	if c, err := r.Cookie(SessionCookieName); err == nil {
		return c.Value
	}
	return ""
}

// SessionFromRequest verifies the browser session cookie, if present.
func SessionFromRequest(v jwtx.Verifier, r *http.Request) (jwtx.Claims, bool) {
	c, err := r.Cookie(SessionCookieName)
	if err != nil || c.Value == "" {
		return jwtx.Claims{}, false
	}
	return verify(v, c.Value)
}

// BearerFromRequest verifies the Authorization bearer token, if present.
// Unlike the cookie, a bearer session cannot be ended by the server.
func BearerFromRequest(v jwtx.Verifier, r *http.Request) (jwtx.Claims, bool) {
	authz := r.Header.Get("Authorization")
	if !strings.HasPrefix(authz, "Bearer ") {
		return jwtx.Claims{}, false
	}
	return verify(v, strings.TrimSpace(strings.TrimPrefix(authz, "Bearer ")))
}

func verify(v jwtx.Verifier, token string) (jwtx.Claims, bool) {
	if token == "" {
		return jwtx.Claims{}, false
	}
	claims, err := v.Verify(token)
	if err != nil {
		return jwtx.Claims{}, false
	}
	return claims, true
}

// SetSessionCookie stores token in an HttpOnly cookie that expires with it.
func SetSessionCookie(w http.ResponseWriter, token string, expires time.Time, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie on the client.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
