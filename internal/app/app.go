package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"cptmerge/internal/config"
	apierrors "cptmerge/internal/errors"
	"cptmerge/internal/exporter"
	"cptmerge/internal/infrastructure"
	customMiddleware "cptmerge/internal/middleware"
	"cptmerge/internal/services"
	handlers "cptmerge/internal/transport/http"
	ws "cptmerge/internal/websocket"
	"cptmerge/pkg/contracts"
)

// AppName is reported in startup logs.
const AppName = "CPT Merge"

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics
	FrontendFS    fs.FS // Embedded frontend filesystem, may be nil

	Sessions     *services.SessionStore
	MergeService *services.MergeService
	Health       *services.HealthService
	WebSocketHub *ws.Hub
	ErrorHandler *apierrors.ErrorHandler

	stopJanitor context.CancelFunc
	janitorDone chan struct{}
	stopOnce    sync.Once
}

// NewApplication loads the configuration and builds the application.
func NewApplication(frontendFS fs.FS) (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return New(cfg, frontendFS, logger)
}

// New wires every component from an already loaded configuration.
func New(cfg *config.Config, frontendFS fs.FS, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	logger.Info("Application starting",
		slog.String("name", AppName),
		slog.String("version", contracts.Version))

	otelProviders, err := infrastructure.InitializeOTel(cfg.Observability, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
		FrontendFS:    frontendFS,
		ErrorHandler:  apierrors.NewErrorHandler(logger, false),
	}

	app.initializeServices()

	if err := app.setupRouter(); err != nil {
		return nil, fmt.Errorf("failed to set up router: %w", err)
	}

	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() {
	a.WebSocketHub = ws.NewHub(a.Config.WebSocket, a.Logger)
	a.WebSocketHub.Start()

	a.Sessions = services.NewSessionStore(a.Config.Session.TTL, a.Metrics, a.Logger)

	exp := exporter.New(a.Config.Chart.AssetsHost, a.Metrics, a.Logger)
	a.MergeService = services.NewMergeService(
		a.Sessions,
		exp,
		a.WebSocketHub,
		a.Metrics,
		services.MergeOptionsFromConfig(a.Config),
		a.Logger,
	)

	a.Health = services.NewHealthService(a.Sessions, a.WebSocketHub, a.Logger)
}

// setupRouter configures the HTTP router with all routes
func (a *Application) setupRouter() error {
	r := chi.NewRouter()

	// RequestID → RealIP → OTel → Logger → Recoverer → Timeout
	r.Use(customMiddleware.RequestID)
	r.Use(middleware.RealIP)

	r.NotFound(a.ErrorHandler.NotFound)
	r.MethodNotAllowed(a.ErrorHandler.MethodNotAllowed)

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders, a.Metrics)
	if err != nil {
		return err
	}

	// Prometheus scrape endpoint stays outside the instrumented group
	metricsHandler := handlers.NewMetricsHandler(a.OTelProviders.PrometheusHTTP, a.WebSocketHub)
	r.Mount("/metrics", metricsHandler.Routes())

	var setupErr error
	r.Group(func(r chi.Router) {
		r.Use(otelMiddleware.Handler)
		r.Use(customMiddleware.StructuredLogger(a.Logger))
		r.Use(a.ErrorHandler.Middleware)
		r.Use(customMiddleware.SecurityHeaders(a.Config.Chart.AssetsHost))

		if a.Config.Security.EnableCORS {
			r.Use(customMiddleware.CORS(a.getCORSConfig()))
		}

		if a.Config.Security.RateLimit.Enabled {
			r.Use(customMiddleware.NewRateLimiter(
				a.Config.Security.RateLimit.RPS,
				a.Config.Security.RateLimit.Burst,
				a.Logger,
			).Handler)
		}

		a.setupAPIRoutes(r)
		setupErr = a.setupFrontend(r)
	})
	if setupErr != nil {
		return setupErr
	}

	a.Router = r
	return nil
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	healthHandler := handlers.NewHealthHandler(a.Health, a.Logger)
	r.Get("/health", healthHandler.HealthCheck)
	r.Get("/health/ready", healthHandler.ReadinessCheck)
	r.Get("/health/live", healthHandler.LivenessCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))

		r.Get("/version", healthHandler.Version)
		r.Get("/variables", handlers.Variables)

		validation := customMiddleware.NewValidationMiddleware(a.Logger, a.ErrorHandler)

		events := handlers.NewEventsHandler(
			a.WebSocketHub,
			ws.NewUpgrader(a.Config.WebSocket, a.Config.Security.AllowedOrigins, a.Logger),
			a.MergeService,
			a.ErrorHandler,
			a.Logger,
		)
		sessionHandler := handlers.NewSessionHandler(
			a.MergeService,
			customMiddleware.WebSocketTraceMiddleware(a.Logger)(events),
			validation,
			a.ErrorHandler,
			a.Config.Server.MaxUploadBytes(),
			a.Logger,
		)
		r.Mount("/sessions", sessionHandler.Routes())

		r.With(validation.ValidateRequest).Post("/logs", handlers.NewClientLogHandler(a.Logger).Handle)
	})
}

// setupFrontend mounts the embedded single page UI at the root.
func (a *Application) setupFrontend(r chi.Router) error {
	if a.FrontendFS == nil {
		a.Logger.Warn("Frontend filesystem not available, serving API only")
		return nil
	}

	frontend, err := handlers.NewFrontendHandler(a.FrontendFS, handlers.PageData{
		Title:              AppName,
		ProjectName:        a.Config.Chart.ProjectName,
		ReferenceElevation: a.Config.Chart.ReferenceElevation,
		AssetsHost:         a.Config.Chart.AssetsHost,
		APIBase:            "/api/v1",
	}, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to load frontend: %w", err)
	}
	r.Mount("/", frontend.Routes())
	return nil
}

func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			"X-Request-ID",
			"X-Requested-With",
		},
		ExposedHeaders: []string{
			"Content-Disposition",
			"X-Request-ID",
		},
		MaxAge: 300,
		Logger: a.Logger,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           a.Config.Server.Addr(),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Start runs the session janitor and the HTTP server. cancel is called
// when the server fails.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", AppName),
		slog.String("version", contracts.Version),
		slog.String("address", a.Server.Addr),
		slog.Duration("session_ttl", a.Config.Session.TTL),
		slog.String("level", a.Config.Logging.Level))

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	a.stopJanitor = stopJanitor
	a.janitorDone = make(chan struct{})
	go func() {
		defer close(a.janitorDone)
		a.Sessions.RunJanitor(janitorCtx, a.Config.Session.SweepInterval, a.WebSocketHub.CloseSessions)
	}()

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			cancel()
		}
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("url", fmt.Sprintf("http://localhost:%d", a.Config.Server.Port)))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	var stopErr error
	a.stopOnce.Do(func() {
		a.Logger.InfoContext(ctx, "Shutting down application")

		shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
		defer cancel()

		if err := a.Server.Shutdown(shutdownCtx); err != nil {
			stopErr = fmt.Errorf("server shutdown error: %w", err)
		}

		if a.stopJanitor != nil {
			a.stopJanitor()
			select {
			case <-a.janitorDone:
			case <-shutdownCtx.Done():
				a.Logger.WarnContext(ctx, "Session janitor did not stop in time")
			}
		}

		a.WebSocketHub.Stop()

		if err := a.OTelProviders.Shutdown(shutdownCtx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}

		a.Logger.InfoContext(ctx, "Application shutdown complete",
			slog.Int("open_sessions", a.Sessions.Len()))
		_ = infrastructure.CloseLogFile()
	})
	return stopErr
}

// Run runs the application until interrupted
func (a *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.Start(runCtx, cancel); err != nil {
		return err
	}

	<-runCtx.Done()
	a.Logger.Info("Received shutdown signal")

	return a.Stop(context.Background())
}
