package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aussiebroadwan/sharebox/internal/sharebox/blob"
	httpapi "github.com/aussiebroadwan/sharebox/internal/sharebox/http"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/service"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/store"
	"github.com/aussiebroadwan/sharebox/internal/sharebox/store/drivers/sqlite"
	"github.com/aussiebroadwan/sharebox/pkg/cryptox"
	"github.com/aussiebroadwan/sharebox/pkg/jwtx"
	"github.com/aussiebroadwan/sharebox/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application wires the sharebox service together.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db       store.Store
	blobs    blob.Storage
	signer   *jwtx.EdDSASigner
	verifier *jwtx.EdDSAVerifier

	// Services
	sessionService      *service.SessionService
	userService         *service.UserService
	bootstrapService    *service.BootstrapService
	invitationService   *service.InvitationService
	accountProvisioner  *service.AccountProvisioner
	membershipAuthority *service.MembershipAuthority
	fileRegistry        *service.FileRegistry
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "sharebox",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := app.initBlobs(ctx); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	signer, verifier, err := InitSessionKeys(app.cfg, app.logger)
	if err != nil {
		_ = app.db.Close()
		return nil, err
	}
	app.signer, app.verifier = signer, verifier

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("sharebox starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		app.housekeepingService.Stop()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down sharebox...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("sharebox stopped")
	return nil
}

// initDatabase opens the database and applies migrations
func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore(sqlite.DSN(app.cfg.DatabaseFile))
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initBlobs opens the configured blob backend
func (app *Application) initBlobs(ctx context.Context) error {
	bc := app.cfg.Blob
	switch bc.Backend {
	case "s3":
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		s3, err := blob.NewS3(ctx, blob.S3Config{
			Endpoint:  bc.S3Endpoint,
			Region:    bc.S3Region,
			Bucket:    bc.S3Bucket,
			AccessKey: bc.S3AccessKey,
			SecretKey: bc.S3SecretKey,
			UseSSL:    bc.S3UseSSL,
			Prefix:    bc.S3Prefix,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize s3 storage: %w", err)
		}
		app.blobs = s3
		app.logger.Info("s3 blob storage ready", "endpoint", bc.S3Endpoint, "bucket", bc.S3Bucket)
	default:
		local, err := blob.NewLocal(bc.LocalRoot)
		if err != nil {
			return fmt.Errorf("failed to initialize local storage: %w", err)
		}
		app.blobs = local
		app.logger.Info("local blob storage ready", "root", bc.LocalRoot)
	}
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.userService = &service.UserService{Store: app.db}
	app.sessionService = &service.SessionService{
		Store:  app.db,
		Signer: app.signer,
		Issuer: app.cfg.Issuer,
		TTL:    app.cfg.SessionTTL,
	}
	app.bootstrapService = &service.BootstrapService{
		Store: app.db,
		Token: app.cfg.BootstrapToken,
	}
	app.invitationService = &service.InvitationService{
		Store:  app.db,
		Tokens: service.UUIDTokens{},
		Links:  service.BaseURLLinks{BaseURL: app.cfg.BaseURL},
	}
	app.accountProvisioner = &service.AccountProvisioner{
		Store:       app.db,
		Invitations: app.invitationService,
	}
	app.membershipAuthority = &service.MembershipAuthority{
		Store: app.db,
		Blobs: app.blobs,
	}
	app.fileRegistry = &service.FileRegistry{
		Store:     app.db,
		Blobs:     app.blobs,
		Authority: app.membershipAuthority,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.blobs,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.verifier,
		BuildVersion,
		app.db,
		app.blobs,
		app.logger,
	)
	router.SecureCookies = app.cfg.SecureCookies
	router.MaxUploadBytes = app.cfg.MaxUploadBytes

	// Wire services to router
	router.SessionService = app.sessionService
	router.UserService = app.userService
	router.BootstrapService = app.bootstrapService
	router.InvitationService = app.invitationService
	router.AccountProvisioner = app.accountProvisioner
	router.MembershipAuthority = app.membershipAuthority
	router.FileRegistry = app.fileRegistry
	router.HousekeepingService = app.housekeepingService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// Handler exposes the router, mainly for tests.
func (app *Application) Handler() http.Handler { return app.router }

// Close releases resources without serving.
func (app *Application) Close() error { return app.db.Close() }
