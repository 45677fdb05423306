package httpx

import (
	"net/http"

	"github.com/aussiebroadwan/sharebox/pkg/slogx"
)

// RequireSuperuser rejects sessions whose token was not minted for a
// superuser. It must run after AuthnMiddleware. Services re-check the
// stored user, so this only sheds obviously unauthorized traffic early.
func RequireSuperuser() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				writeBearerError(w, "missing session")
				return
			}
			if !claims.Superuser {
				slogx.FromContext(r.Context()).Warn("superuser required", "path", r.URL.Path)
				WriteError(w, http.StatusForbidden, "forbidden", "superuser required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
