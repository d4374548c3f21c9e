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

	httpapi "github.com/tracelight/tracelight/internal/trace/http"
	"github.com/tracelight/tracelight/internal/trace/search"
	"github.com/tracelight/tracelight/internal/trace/service"
	"github.com/tracelight/tracelight/internal/trace/store"
	"github.com/tracelight/tracelight/internal/trace/store/drivers/sqlite"
	"github.com/tracelight/tracelight/pkg/obs"
	"github.com/tracelight/tracelight/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the trace service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db store.Store

	authorizeService    *service.AuthorizeService
	tokenService        *service.TokenService
	scopeService        *service.ScopeService
	applicationService  *service.ApplicationService
	rankerService       *service.RankerService
	previewService      *service.PreviewService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "trace-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if cfg.PreviewSecret == "" {
		return nil, errors.New("TRACE_PREVIEW_SECRET is required")
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initServices(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	obs.Init()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("trace service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
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

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down trace service...")

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

	app.logger.Info("trace service stopped")
	return nil
}

// initDatabase opens the SQLite store and applies migrations.
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
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

// initServices initializes the business logic services and matcher adapters.
func (app *Application) initServices() error {
	embedder, err := search.NewGeminiEmbedder(context.Background(), app.cfg.GeminiAPIKey)
	if err != nil {
		return fmt.Errorf("failed to initialize embedder: %w", err)
	}

	app.authorizeService = &service.AuthorizeService{
		Store:   app.db,
		CodeTTL: app.cfg.CodeTTL,
	}
	app.tokenService = &service.TokenService{
		Store:      app.db,
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
	}
	app.scopeService = &service.ScopeService{Store: app.db}
	app.applicationService = &service.ApplicationService{Store: app.db}

	app.rankerService = &service.RankerService{
		Exact:            search.NewExactSearcher(app.cfg.SearchURL, app.cfg.SearchIndex, app.cfg.BM25NormK, app.cfg.MatcherTimeout),
		Semantic:         search.NewSemanticSearcher(app.cfg.VectorURL, app.cfg.VectorColl, embedder, app.cfg.MatcherTimeout),
		ExactBoost:       app.cfg.ExactBoost,
		BoostAfterFilter: app.cfg.BoostAfterFilter,
		MatcherTimeout:   app.cfg.MatcherTimeout,
	}

	app.previewService = &service.PreviewService{
		Store:  app.db,
		Secret: []byte(app.cfg.PreviewSecret),
		TTL:    app.cfg.PreviewTTL,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)

	return nil
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	app.router = httpapi.NewRouter(app.logger, app.db, httpapi.Services{
		Authorize:    app.authorizeService,
		Tokens:       app.tokenService,
		Scopes:       app.scopeService,
		Applications: app.applicationService,
		Ranker:       app.rankerService,
		Previews:     app.previewService,
	}, BuildVersion)

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
