package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	fulfillmentapp "github.com/printcore/backend/internal/application/fulfillment"
	"github.com/printcore/backend/internal/application/reconciliation"
	renditionapp "github.com/printcore/backend/internal/application/rendition"
	"github.com/printcore/backend/internal/domain/rendition"
	"github.com/printcore/backend/internal/infrastructure/cache"
	"github.com/printcore/backend/internal/infrastructure/config"
	"github.com/printcore/backend/internal/infrastructure/event"
	"github.com/printcore/backend/internal/infrastructure/logger"
	"github.com/printcore/backend/internal/infrastructure/persistence"
	"github.com/printcore/backend/internal/infrastructure/providers"
	"github.com/printcore/backend/internal/infrastructure/rendering"
	"github.com/printcore/backend/internal/infrastructure/scheduler"
	"github.com/printcore/backend/internal/infrastructure/storage"
	"github.com/printcore/backend/internal/infrastructure/telemetry"
	"github.com/printcore/backend/internal/interfaces/http/handler"
	"github.com/printcore/backend/internal/interfaces/http/middleware"
	"github.com/printcore/backend/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting printcore backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	// Initialize OpenTelemetry tracing and metrics
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()

	// Bridge application logs to the collector alongside stdout
	logsProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := logsProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down logger provider", zap.Error(err))
		}
	}()
	log = telemetry.BridgeLogger(log,
		telemetry.NewZapOTELCore(cfg.Telemetry.ServiceName, logsProvider, logger.MapZapLevel(cfg.Log.Level)))

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel,
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))

	// Initialize database connection
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Register database query tracing (otelgorm)
	if cfg.Telemetry.DBTraceEnabled {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		}, log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}

	// Register connection pool and query metrics
	dbMetrics, err := telemetry.RegisterDBMetrics(db.DB, meterProvider,
		telemetry.DefaultDBMetricsConfig(), log)
	if err != nil {
		log.Warn("Failed to register database metrics", zap.Error(err))
	}
	if dbMetrics != nil {
		dbMetrics.StartPoolStatsCollection(ctx)
		defer dbMetrics.Stop()
	}

	// Initialize repositories
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	specRepo := persistence.NewGormSpecRepository(db.DB)
	renditionRepo := persistence.NewGormRenditionRepository(db.DB)

	// Submission guard: Redis when reachable, in-memory otherwise
	guard, err := cache.NewGuardFactory(cfg.Redis, cache.WithLogger(log)).Create()
	if err != nil {
		log.Fatal("Failed to create submission guard", zap.Error(err))
	}
	defer func() {
		if err := guard.Close(); err != nil {
			log.Error("Error closing submission guard", zap.Error(err))
		}
	}()

	// Provider adapters from config
	registry, err := providers.NewRegistryFromConfig(cfg.Providers)
	if err != nil {
		log.Fatal("Failed to build provider registry", zap.Error(err))
	}
	log.Info("Provider registry ready", zap.Any("providers", registry.Codes()))

	// Fulfillment metrics on the shared meter
	var fulfillmentMetrics *telemetry.FulfillmentMetrics
	if meterProvider.IsEnabled() {
		fulfillmentMetrics, err = telemetry.NewFulfillmentMetrics(telemetry.FulfillmentMetricsConfig{
			Meter:         meterProvider.Meter("fulfillment"),
			Logger:        log,
			StateProvider: telemetry.NewGormFulfillmentStateProvider(db.DB),
		})
		if err != nil {
			log.Warn("Failed to initialize fulfillment metrics", zap.Error(err))
		}
	}

	// Initialize event bus
	eventBus := event.NewInMemoryEventBus(log)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Rendering collaborators; stubs serve development when no URL is set
	var renderer rendition.ContentRenderer
	if cfg.Rendering.RendererURL != "" {
		renderer, err = rendering.NewHTTPContentRenderer(cfg.Rendering)
		if err != nil {
			log.Fatal("Failed to create content renderer", zap.Error(err))
		}
	} else {
		log.Warn("No renderer URL configured, using stub content renderer")
		renderer = rendering.NewStubContentRenderer()
	}

	var inspector renditionapp.FileInspector
	if cfg.Rendering.InspectorURL != "" {
		inspector, err = rendering.NewHTTPFileInspector(cfg.Rendering)
		if err != nil {
			log.Fatal("Failed to create file inspector", zap.Error(err))
		}
	} else {
		log.Warn("No inspector URL configured, using stub file inspector")
		inspector = rendering.NewStubFileInspector()
	}

	// Object storage for rendered artifacts
	var objectStorage rendition.ObjectStorage
	if cfg.Storage.AccessKey != "" {
		objectStorage, err = storage.NewS3ObjectStorage(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to create object storage", zap.Error(err))
		}
	} else {
		log.Warn("No storage credentials configured, using in-memory object storage")
		objectStorage = storage.NewInMemoryObjectStorage()
	}

	// Rendition pipeline: executor, job queue, application service
	executor := renditionapp.NewExecutor(renditionRepo, renderer, objectStorage, inspector, log)
	executor.SetMetrics(fulfillmentMetrics)

	jobQueue, err := scheduler.NewJobQueue(scheduler.JobQueueConfig{
		Workers:           cfg.Pipeline.Workers,
		JobsPerSecond:     cfg.Pipeline.JobsPerSecond,
		JobTimeout:        cfg.Pipeline.JobTimeout,
		QueuePollInterval: cfg.Pipeline.QueuePollInterval,
	}, executor, renditionRepo, log)
	if err != nil {
		log.Fatal("Failed to create job queue", zap.Error(err))
	}
	if cfg.Pipeline.Enabled {
		if err := jobQueue.Start(ctx); err != nil {
			log.Fatal("Failed to start job queue", zap.Error(err))
		}
		defer func() {
			if err := jobQueue.Stop(context.Background()); err != nil {
				log.Error("Error stopping job queue", zap.Error(err))
			}
		}()
		log.Info("Rendition pipeline started",
			zap.Int("workers", cfg.Pipeline.Workers),
			zap.Float64("jobs_per_second", cfg.Pipeline.JobsPerSecond))
	}

	renditionService := renditionapp.NewService(renditionRepo, jobQueue, cfg.Pipeline, log)
	renditionService.SetEventPublisher(eventBus)

	// Fulfillment orchestration
	fulfillmentService := fulfillmentapp.NewService(orderRepo, specRepo, renditionRepo,
		registry, guard, cfg.Fulfillment, log)
	fulfillmentService.SetEventPublisher(eventBus)
	fulfillmentService.SetMetrics(fulfillmentMetrics)

	// Vendor state reconciliation: webhooks plus the polling safety net
	webhookService := reconciliation.NewWebhookService(orderRepo, registry, guard, log)
	webhookService.SetEventPublisher(eventBus)
	webhookService.SetMetrics(fulfillmentMetrics)

	pollExecutor := reconciliation.NewPoller(orderRepo, registry, cfg.Poller, log)
	pollExecutor.SetEventPublisher(eventBus)
	pollExecutor.SetMetrics(fulfillmentMetrics)

	statusPoller, err := scheduler.NewStatusPoller(scheduler.StatusPollerConfig{
		Interval:     cfg.Poller.Interval,
		SweepTimeout: cfg.Poller.Interval - time.Second,
	}, pollExecutor, log)
	if err != nil {
		log.Fatal("Failed to create status poller", zap.Error(err))
	}
	if cfg.Poller.Enabled {
		if err := statusPoller.Start(ctx); err != nil {
			log.Fatal("Failed to start status poller", zap.Error(err))
		}
		defer func() {
			if err := statusPoller.Stop(context.Background()); err != nil {
				log.Error("Error stopping status poller", zap.Error(err))
			}
		}()
		log.Info("Status poller started",
			zap.Duration("interval", cfg.Poller.Interval),
			zap.Duration("stale_after", cfg.Poller.StaleAfter))
	}

	// Initialize HTTP handlers
	quoteHandler := handler.NewQuoteHandler(fulfillmentService)
	orderHandler := handler.NewOrderHandler(fulfillmentService)
	renditionHandler := handler.NewRenditionHandler(renditionService)
	webhookHandler := handler.NewWebhookHandler(webhookService)
	systemHandler := handler.NewSystemHandler(statusPoller)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Middleware stack, outermost first
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow))
	}

	if cfg.Telemetry.Enabled {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.SpanErrorMarker())
	}
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: meterProvider,
		Enabled:       cfg.Telemetry.Enabled,
	}))

	// Health check endpoint outside API versioning
	engine.GET("/health", healthHandler(db, log))

	// API routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(quoteHandler)
	r.Register(orderHandler)
	r.Register(renditionHandler)
	r.Register(webhookHandler)
	r.Register(systemHandler)
	r.Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited")
}

// healthHandler reports liveness and database connectivity
func healthHandler(db *persistence.Database, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			log.Error("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database unreachable",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
