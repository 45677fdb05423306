package http

import (
	"context"
	"net/http"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/domain"
	"github.com/aussiebroadwan/sharebox/pkg/httpx"
	"github.com/aussiebroadwan/sharebox/pkg/slogx"
)

type ctxKey struct{}

// requireUser loads the user behind the verified session. Flags such as
// IsSuperuser come from the stored record, never from the token. It must
// run after httpx.AuthnMiddleware.
func (r *Router) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ctx := req.Context()

		userID, ok := httpx.UserIDFromContext(ctx)
		if !ok {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}

		user, err := r.UserService.Active(ctx, userID)
		if err != nil {
			slogx.FromContext(ctx).Warn("session user rejected", "user_id", userID, "err", err)
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "Account is unavailable")
			return
		}

		next.ServeHTTP(w, req.WithContext(context.WithValue(ctx, ctxKey{}, user)))
	})
}

// currentUser returns the user loaded by requireUser.
func currentUser(ctx context.Context) domain.User {
	u, _ := ctx.Value(ctxKey{}).(domain.User)
	return u
}
