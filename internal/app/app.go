package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sashabaranov/go-openai"

	"github.com/hower/prospector/internal/config"
	httpcontroller "github.com/hower/prospector/internal/controller/http"
	"github.com/hower/prospector/internal/database"
	accountdao "github.com/hower/prospector/internal/domain/account/dao"
	assistantservice "github.com/hower/prospector/internal/domain/assistant/service"
	autoresponderdao "github.com/hower/prospector/internal/domain/autoresponder/dao"
	autoresponderservice "github.com/hower/prospector/internal/domain/autoresponder/service"
	dispatchservice "github.com/hower/prospector/internal/domain/dispatch/service"
	messagedao "github.com/hower/prospector/internal/domain/message/dao"
	prospectpolicy "github.com/hower/prospector/internal/domain/prospect/policy"
	prospectscheduler "github.com/hower/prospector/internal/domain/prospect/scheduler"
	prospectservice "github.com/hower/prospector/internal/domain/prospect/service"
	"github.com/hower/prospector/internal/eventbus"
	"github.com/hower/prospector/internal/httpx/upstream/instagram"
	"github.com/hower/prospector/internal/storage"
)

// App is the main application container
type App struct {
	cfg        config.Config
	httpServer *http.Server
	router     *chi.Mux
	logger     *slog.Logger

	pool *pgxpool.Pool
	bus  *eventbus.Bus

	// Domain services and policies wired into HTTP handlers
	dispatcher     *dispatchservice.Service
	aggregator     *prospectservice.Service
	prospectPolicy *prospectpolicy.Policy
	responders     *autoresponderservice.Service
	sentLog        *autoresponderdao.SentLogPostgres
	assistant      *assistantservice.Service
	accounts       *accountdao.AccountPostgres
	archive        *storage.PayloadArchive

	// Scheduler for periodic prospect view rebuilds
	scheduler *prospectscheduler.Scheduler

	consumeCancel context.CancelFunc
}

// NewApp creates and initializes the application
func NewApp(ctx context.Context, cfg config.Config) (*App, error) {
	// Initialize logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Initialize router with middleware
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.Timeout(30 * time.Second))

	app := &App{
		cfg:    cfg,
		router: r,
		logger: logger,
	}

	// Initialize infrastructure
	if err := app.initInfrastructure(ctx); err != nil {
		return nil, fmt.Errorf("initializing infrastructure: %w", err)
	}

	// Initialize domain layers
	if err := app.initDomains(ctx); err != nil {
		return nil, fmt.Errorf("initializing domains: %w", err)
	}

	// Register routes
	app.registerRoutes()

	// Initialize HTTP server
	app.httpServer = &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      app.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Initialize scheduler
	if cfg.Scheduler.Enabled {
		app.scheduler = prospectscheduler.New(app.aggregator, cfg.Scheduler.Interval, logger)
	}

	return app, nil
}

// initInfrastructure initializes infrastructure components (DB, S3, event bus)
func (a *App) initInfrastructure(ctx context.Context) error {
	pool, err := database.NewPostgresPool(ctx, a.cfg.Database.PostgresDSN)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	a.pool = pool

	a.bus = eventbus.New()

	if a.cfg.S3.Enabled {
		archive, err := storage.NewPayloadArchive(storage.S3Config{
			Endpoint:        a.cfg.S3.Endpoint,
			AccessKeyID:     a.cfg.S3.AccessKeyID,
			SecretAccessKey: a.cfg.S3.SecretAccessKey,
			Bucket:          a.cfg.S3.Bucket,
			Region:          a.cfg.S3.Region,
		})
		if err != nil {
			return fmt.Errorf("initializing payload archive: %w", err)
		}
		a.archive = archive
	}

	return nil
}

// initDomains initializes domain layers (DAO, Service, Policy)
func (a *App) initDomains(ctx context.Context) error {
	// Instagram messaging gateway
	igClient := instagram.New(
		instagram.WithBaseURL(a.cfg.Instagram.BaseURL),
		instagram.WithAPIVersion(a.cfg.Instagram.APIVersion),
	)

	// DAOs
	messageRepo := messagedao.NewMessagePostgres(a.pool)
	a.accounts = accountdao.NewAccountPostgres(a.pool)
	responderRepo := autoresponderdao.NewAutoresponderPostgres(a.pool)
	a.sentLog = autoresponderdao.NewSentLogPostgres(a.pool)

	// Autoresponder configuration service
	a.responders = autoresponderservice.New(responderRepo)

	// Prospect aggregator: warm the in-memory view, then keep it current
	// through bus events and the periodic rebuild.
	a.aggregator = prospectservice.New(messageRepo, a.logger)
	if err := a.aggregator.Rebuild(ctx); err != nil {
		return fmt.Errorf("building initial prospect view: %w", err)
	}

	consumeCtx, cancel := context.WithCancel(context.Background())
	a.consumeCancel = cancel
	go a.aggregator.Consume(consumeCtx, a.bus.Subscribe(64))

	// Webhook dispatch pipeline
	a.dispatcher = dispatchservice.New(
		messageRepo,
		a.accounts,
		responderRepo,
		a.sentLog,
		igClient,
		a.bus,
		a.logger,
	)

	// Prospect policy for the CRM-facing API
	a.prospectPolicy = prospectpolicy.New(a.aggregator, messageRepo, a.accounts, igClient, a.bus)

	// AI reply drafting
	if a.cfg.OpenAI.APIKey != "" {
		aiClient := openai.NewClient(a.cfg.OpenAI.APIKey)
		a.assistant = assistantservice.New(aiClient, messageRepo, a.cfg.OpenAI.Model)
	}

	return nil
}

// registerRoutes registers all HTTP routes
func (a *App) registerRoutes() {
	// Health check
	a.router.Get("/healthz", a.healthHandler)
	a.router.Get("/readyz", a.readyHandler)

	// Swagger UI documentation
	swaggerHandler := httpcontroller.NewSwaggerHandler("Hower Prospector API", OpenAPISpec)
	swaggerHandler.RegisterRoutes(a.router)

	// Webhook endpoints live at the root: the platform calls a fixed URL
	webhookHandler := httpcontroller.NewWebhookHandler(
		a.dispatcher,
		archiveOrNil(a.archive),
		a.cfg.Instagram.VerifyToken,
		a.cfg.Instagram.AppSecret,
		a.logger,
	)
	webhookHandler.RegisterRoutes(a.router)

	// API v1
	a.router.Route("/api/v1", func(r chi.Router) {
		httpcontroller.NewProspectHandler(a.prospectPolicy).RegisterRoutes(r)
		httpcontroller.NewAutoresponderHandler(a.responders, a.sentLog).RegisterRoutes(r)
		httpcontroller.NewAccountHandler(a.accounts).RegisterRoutes(r)

		if a.assistant != nil {
			httpcontroller.NewAssistantHandler(a.assistant).RegisterRoutes(r)
		}
	})
}

// archiveOrNil avoids handing the handler a typed nil behind its interface
func archiveOrNil(archive *storage.PayloadArchive) httpcontroller.PayloadArchive {
	if archive == nil {
		return nil
	}
	return archive
}

// healthHandler handles health check requests
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// readyHandler handles readiness check requests
func (a *App) readyHandler(w http.ResponseWriter, r *http.Request) {
	if err := a.pool.Ping(r.Context()); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"status":"unavailable"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}

// Run starts the application and blocks until shutdown signal
func (a *App) Run(ctx context.Context) error {
	// Start scheduler if enabled
	if a.scheduler != nil {
		go a.scheduler.Start(ctx)
	}

	// Channel to receive errors from server
	errCh := make(chan error, 1)

	// Start HTTP server in goroutine
	go func() {
		a.logger.Info("starting HTTP server", "addr", a.cfg.Server.Address())
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.logger.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		a.logger.Info("context cancelled")
	}

	// Graceful shutdown
	return a.Shutdown(context.Background())
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down...")

	// Stop scheduler
	if a.scheduler != nil {
		a.scheduler.Stop()
	}

	// Shutdown HTTP server with timeout
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down HTTP server: %w", err)
	}

	// Stop the aggregator consumer and the bus feeding it
	if a.consumeCancel != nil {
		a.consumeCancel()
	}
	if a.bus != nil {
		a.bus.Close()
	}

	if a.pool != nil {
		a.pool.Close()
	}

	a.logger.Info("shutdown complete")
	return nil
}
