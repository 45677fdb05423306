package http

import (
	"log/slog"
	"net/http"
	"time"

	_ "github.com/aussiebroadwan/sharebox/api/sharebox" // Swagger docs
	"github.com/aussiebroadwan/sharebox/internal/sharebox/blob"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/service"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/store"
	"github.com/aussiebroadwan/sharebox/pkg/httpx"
	"github.com/aussiebroadwan/sharebox/pkg/jwtx"
	"github.com/aussiebroadwan/sharebox/pkg/slogx"
	httpSwagger "github.com/swaggo/http-swagger"
)

// DefaultMaxUploadBytes bounds a single multipart upload.
const DefaultMaxUploadBytes int64 = 512 << 20

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store
	blobs blob.Storage

	// SecureCookies marks the session cookie Secure. Enable behind TLS.
	SecureCookies  bool
	MaxUploadBytes int64

	SessionService      *service.SessionService
	UserService         *service.UserService
	BootstrapService    *service.BootstrapService
	InvitationService   *service.InvitationService
	AccountProvisioner  *service.AccountProvisioner
	MembershipAuthority *service.MembershipAuthority
	FileRegistry        *service.FileRegistry
	HousekeepingService *service.HousekeepingService
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	blobs blob.Storage,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:            http.NewServeMux(),
		verifier:       verifier,
		buildVersion:   buildVersion,
		startTime:      time.Now(),
		store:          st,
		blobs:          blobs,
		logger:         logger,
		MaxUploadBytes: DefaultMaxUploadBytes,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerSystem()
	r.registerBootstrap()
	r.registerSession()
	r.registerInvitations()
	r.registerProjects()
	r.registerFiles()
	r.registerAdmin()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Sharebox API
//	@version		0.1.0
//	@description	Invitation-only file sharing between project members.
//
//	@contact.name	AussieBroadWAN Team
//	@contact.url	https://github.com/aussiebroadwan/sharebox
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@BasePath		/
//	@schemes		http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Session token from /v1/login. Format: "Bearer {token}". Browsers may use the sharebox_session cookie instead.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// authed is the chain for endpoints that need a signed-in, active user.
func (r *Router) authed(h http.HandlerFunc, limit httpx.RateLimit) http.Handler {
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.verifier), // verify session token
		r.requireUser,                     // load the current user record
		httpx.RateLimitByUser(limit),
	)
}

// admin is authed plus a superuser claim check.
func (r *Router) admin(h http.HandlerFunc, limit httpx.RateLimit) http.Handler {
	return httpx.Chain(h,
		httpx.AuthnMiddleware(r.verifier),
		httpx.RequireSuperuser(),
		r.requireUser,
		httpx.RateLimitByUser(limit),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.blobs),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

func (r *Router) registerBootstrap() {
	// POST /bootstrap - very strict rate limit by IP (one-time setup endpoint)
	h := &BootstrapHandler{BootstrapService: r.BootstrapService}
	r.Mux.Handle("POST /v1/bootstrap",
		httpx.Chain(h,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSession() {
	h := &SessionHandler{
		SessionService: r.SessionService,
		SecureCookies:  r.SecureCookies,
	}

	// POST /login - strict, keyed by IP + username to slow password guessing
	r.Mux.Handle("POST /v1/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitMiddleware(httpx.StrictLimit, httpx.Compose(httpx.ClientIP, httpx.ByFormField("username"))),
		),
	)
	r.Mux.Handle("POST /v1/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /v1/me", r.authed(h.HandleMe, httpx.LenientLimit))
}

func (r *Router) registerInvitations() {
	h := &InvitationsHandler{InvitationService: r.InvitationService}

	r.Mux.Handle("GET /v1/invitations", r.admin(h.HandleList, httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/invitations", r.admin(h.HandleIssue, httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/invitations/{id}/resend", r.admin(h.HandleResend, httpx.ModerateLimit))
	r.Mux.Handle("DELETE /v1/invitations/{id}", r.admin(h.HandleCancel, httpx.ModerateLimit))

	accept := &AcceptHandler{
		AccountProvisioner: r.AccountProvisioner,
		Verifier:           r.verifier,
		SecureCookies:      r.SecureCookies,
	}

	// Public accept flow - strict rate limit by IP + token (unauthenticated signup)
	limit := httpx.RateLimitMiddleware(httpx.StrictLimit, httpx.Compose(httpx.ClientIP, httpx.ByPathValue("token")))
	r.Mux.Handle("GET /v1/accept/{token}",
		httpx.Chain(http.HandlerFunc(accept.HandleGet), limit),
	)
	r.Mux.Handle("POST /v1/accept/{token}",
		httpx.Chain(http.HandlerFunc(accept.HandlePost), limit),
	)
}

func (r *Router) registerProjects() {
	h := &ProjectsHandler{MembershipAuthority: r.MembershipAuthority}

	r.Mux.Handle("GET /v1/projects", r.authed(h.HandleList, httpx.LenientLimit))
	r.Mux.Handle("POST /v1/projects", r.admin(h.HandleCreate, httpx.ModerateLimit))
	r.Mux.Handle("GET /v1/projects/{id}", r.authed(h.HandleGet, httpx.LenientLimit))
	r.Mux.Handle("PATCH /v1/projects/{id}", r.authed(h.HandleUpdate, httpx.ModerateLimit))
	r.Mux.Handle("DELETE /v1/projects/{id}", r.authed(h.HandleDelete, httpx.ModerateLimit))

	r.Mux.Handle("GET /v1/projects/{id}/members", r.authed(h.HandleListMembers, httpx.LenientLimit))
	r.Mux.Handle("POST /v1/projects/{id}/members", r.authed(h.HandleAddMembers, httpx.ModerateLimit))
	r.Mux.Handle("DELETE /v1/projects/{id}/members/{userID}", r.authed(h.HandleRemoveMember, httpx.ModerateLimit))
}

func (r *Router) registerFiles() {
	h := &FilesHandler{
		FileRegistry:   r.FileRegistry,
		MaxUploadBytes: r.MaxUploadBytes,
	}

	r.Mux.Handle("GET /v1/projects/{id}/files", r.authed(h.HandleListProject, httpx.LenientLimit))
	r.Mux.Handle("POST /v1/projects/{id}/files", r.authed(h.HandleUpload, httpx.ModerateLimit))
	r.Mux.Handle("GET /v1/files", r.authed(h.HandleListMine, httpx.LenientLimit))
	r.Mux.Handle("GET /v1/files/{id}", r.authed(h.HandleGet, httpx.LenientLimit))
	r.Mux.Handle("DELETE /v1/files/{id}", r.authed(h.HandleDelete, httpx.ModerateLimit))
}

func (r *Router) registerAdmin() {
	h := &AdminHandler{
		UserService:         r.UserService,
		HousekeepingService: r.HousekeepingService,
	}

	r.Mux.Handle("GET /v1/users", r.admin(h.HandleListUsers, httpx.ModerateLimit))
	r.Mux.Handle("GET /v1/admin/blob-deletions", r.admin(h.HandleBlobDeletions, httpx.ModerateLimit))
}
