package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	app "github.com/adhub/backend/internal/application/integration"
	"github.com/adhub/backend/internal/domain/integration"
	"github.com/adhub/backend/internal/infrastructure/adsplatform"
	"github.com/adhub/backend/internal/infrastructure/auth"
	"github.com/adhub/backend/internal/infrastructure/cache"
	"github.com/adhub/backend/internal/infrastructure/config"
	"github.com/adhub/backend/internal/infrastructure/event"
	"github.com/adhub/backend/internal/infrastructure/logger"
	"github.com/adhub/backend/internal/infrastructure/persistence"
	"github.com/adhub/backend/internal/infrastructure/scheduler"
	"github.com/adhub/backend/internal/infrastructure/storage"
	"github.com/adhub/backend/internal/infrastructure/telemetry"
	"github.com/adhub/backend/internal/infrastructure/vault"
	"github.com/adhub/backend/internal/interfaces/http/handler"
	"github.com/adhub/backend/internal/interfaces/http/middleware"
	"github.com/adhub/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//	@title			AdHub Backend API
//	@version		1.0
//	@description	Multi-tenant ads platform integration manager: OAuth credential vault, metrics sync, webhook ingestion and notifications

//	@contact.name	API Support
//	@contact.url	https://github.com/adhub/backend

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger, bridged to the OTEL collector when telemetry is on
	log, logsProvider, err := buildLogger(cfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := logsProvider.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down logs provider", zap.Error(err))
		}
	}()

	log.Info("Starting AdHub Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// OpenTelemetry tracing
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
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

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
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

	if cfg.Telemetry.Enabled {
		dbTracing := telemetry.NewDBTracingPlugin(telemetry.DefaultDBTracingConfig(), log)
		if err := dbTracing.RegisterOtelGorm(db.DB); err != nil {
			log.Warn("Failed to register database tracing", zap.Error(err))
		}
	}

	// Initialize repositories
	integrationRepo := persistence.NewGormIntegrationRepository(db.DB)
	credentialStore := persistence.NewGormCredentialStore(db.DB)
	authStateRepo := persistence.NewGormAuthStateRepository(db.DB)
	syncJobRepo := persistence.NewGormSyncJobRepository(db.DB)
	syncHistoryRepo := persistence.NewGormSyncHistoryRepository(db.DB)
	webhookEventRepo := persistence.NewGormWebhookEventRepository(db.DB)
	notificationRepo := persistence.NewGormNotificationRepository(db.DB)

	// Credential vault encrypting OAuth grants at rest
	credentialVault, err := vault.New([]byte(cfg.Vault.MasterKey), credentialStore)
	if err != nil {
		log.Fatal("Failed to initialize credential vault", zap.Error(err))
	}

	// Provider adapters, built from the enabled provider app credentials
	adapters, err := buildAdapters(cfg)
	if err != nil {
		log.Fatal("Failed to initialize provider adapters", zap.Error(err))
	}
	registry := adsplatform.NewRegistry(adapters...)
	for _, a := range adapters {
		log.Info("Provider adapter registered", zap.String("provider", string(a.ProviderType())))
	}

	// In-process event bus
	eventBus := event.NewInMemoryEventBus(log)
	if err := eventBus.Start(context.Background()); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := eventBus.Stop(stopCtx); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Idempotency store for event handlers and webhook dedup: Redis when
	// reachable, in-memory otherwise
	idempotencyStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore()
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	// Application services
	integrationService := app.NewIntegrationService(integrationRepo, syncJobRepo, credentialVault, registry, log)
	tokenService := app.NewTokenService(integrationRepo, authStateRepo, credentialVault, registry, eventBus, log)

	// Sync executor and worker pool
	executorCfg := scheduler.DefaultMetricsSyncExecutorConfig()
	if cfg.Scheduler.RetryAttempts > 0 {
		executorCfg.RetryAttempts = cfg.Scheduler.RetryAttempts
	}
	if cfg.Scheduler.RetryInitialInterval > 0 {
		executorCfg.RetryInitialInterval = cfg.Scheduler.RetryInitialInterval
	}
	executor := scheduler.NewMetricsSyncExecutor(
		executorCfg,
		integrationRepo,
		syncJobRepo,
		syncHistoryRepo,
		registry,
		tokenService,
		eventBus,
		log,
	)

	poolCfg := scheduler.DefaultSyncWorkerPoolConfig()
	if cfg.Scheduler.MaxConcurrentJobs > 0 {
		poolCfg.MaxConcurrentJobs = cfg.Scheduler.MaxConcurrentJobs
	}
	if cfg.Scheduler.QueueSize > 0 {
		poolCfg.QueueSize = cfg.Scheduler.QueueSize
	}
	if cfg.Scheduler.JobTimeout > 0 {
		poolCfg.JobTimeout = cfg.Scheduler.JobTimeout
	}
	workerPool, err := scheduler.NewSyncWorkerPool(poolCfg, executor, log)
	if err != nil {
		log.Fatal("Failed to create sync worker pool", zap.Error(err))
	}
	if err := workerPool.Start(context.Background()); err != nil {
		log.Fatal("Failed to start sync worker pool", zap.Error(err))
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := workerPool.Stop(stopCtx); err != nil {
			log.Error("Error stopping sync worker pool", zap.Error(err))
		}
	}()

	syncService := app.NewSyncService(integrationRepo, syncJobRepo, syncHistoryRepo, registry, tokenService, workerPool, log)
	webhookService := app.NewWebhookService(integrationRepo, webhookEventRepo, registry, idempotencyStore, eventBus, log)
	notificationService := app.NewNotificationService(notificationRepo, log)

	// Webhook payload archive: S3-compatible object storage when enabled,
	// in-memory otherwise
	if cfg.Storage.Enabled {
		archive, err := storage.NewS3PayloadArchive(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to initialize payload archive", zap.Error(err))
		}
		ensureCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := archive.EnsureBucket(ensureCtx); err != nil {
			cancel()
			log.Fatal("Failed to ensure archive bucket", zap.Error(err))
		}
		cancel()
		webhookService.AttachPayloadArchive(archive)
		log.Info("Webhook payload archive enabled", zap.String("bucket", cfg.Storage.Bucket))
	} else {
		webhookService.AttachPayloadArchive(storage.NewMemoryPayloadArchive())
	}

	// Notification engine reacting to sync and token lifecycle events,
	// wrapped with idempotency so redelivered events do not duplicate
	// notifications
	notificationEngine := app.NewNotificationEngine(integrationRepo, notificationRepo, syncHistoryRepo, log)
	eventBus.Subscribe(
		event.NewIdempotentHandler(notificationEngine, idempotencyStore, log),
		notificationEngine.EventTypes()...,
	)

	// Replayed webhook events re-enter the worker pool as replay-sourced
	// syncs, idempotency-wrapped so a redelivered event enqueues at most once
	replayHandler := app.NewWebhookReplayHandler(integrationRepo, syncJobRepo, workerPool, log)
	eventBus.Subscribe(
		event.NewIdempotentHandler(replayHandler, idempotencyStore, log),
		replayHandler.EventTypes()...,
	)

	// Scheduled syncs
	if cfg.Scheduler.Enabled {
		schedCfg := scheduler.DefaultSyncSchedulerConfig()
		schedCfg.Enabled = true
		if cfg.Scheduler.TickInterval > 0 {
			schedCfg.TickInterval = cfg.Scheduler.TickInterval
		}
		if cfg.Scheduler.Lookback > 0 {
			schedCfg.Lookback = cfg.Scheduler.Lookback
		}
		if cfg.Scheduler.StaleJobTimeout > 0 {
			schedCfg.StaleJobTimeout = cfg.Scheduler.StaleJobTimeout
		}
		syncScheduler, err := scheduler.NewSyncScheduler(schedCfg, integrationRepo, syncJobRepo, workerPool, log)
		if err != nil {
			log.Fatal("Failed to create sync scheduler", zap.Error(err))
		}
		if err := syncScheduler.Start(context.Background()); err != nil {
			log.Fatal("Failed to start sync scheduler", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := syncScheduler.Stop(stopCtx); err != nil {
				log.Error("Error stopping sync scheduler", zap.Error(err))
			}
		}()
		log.Info("Sync scheduler started", zap.Duration("tick_interval", schedCfg.TickInterval))
	}

	// Periodic cleanup of expired authorization states
	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go runAuthStateCleanup(cleanupCtx, tokenService, cfg.Vault.AuthStateCleanupInterval, log)

	// Initialize handlers
	integrationHandler := handler.NewIntegrationHandler(integrationService)
	oauthHandler := handler.NewOAuthHandler(tokenService,
		handler.WithDefaultRedirectURI(defaultRedirectURI(cfg)))
	syncHandler := handler.NewSyncHandler(syncService)
	webhookHandler := handler.NewWebhookHandler(webhookService)
	notificationHandler := handler.NewNotificationHandler(notificationService)
	systemHandler := handler.NewSystemHandler()

	// Set gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Register custom validation error messages
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Failed to set trusted proxies", zap.Error(err))
	}

	// Global middleware
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsCfg))

	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	if cfg.HTTP.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		engine.Use(middleware.RateLimit(limiter))
	}

	if cfg.Telemetry.Enabled {
		engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     true,
		}))
		engine.Use(middleware.SpanErrorMarker())
	}

	// Health check endpoints (outside JWT)
	engine.GET("/health", healthHandler(db, log))
	engine.GET("/ready", healthHandler(db, log))

	// JWT authentication for the versioned API. Webhook ingestion and the
	// OAuth callback are exempt: one is authenticated by payload signature,
	// the other by the single-use state parameter.
	jwtService := auth.NewJWTService(cfg.JWT)
	jwtCfg := middleware.DefaultJWTConfig(jwtService)
	jwtCfg.TokenBlacklist = buildTokenBlacklist(cfg, log)
	jwtCfg.Logger = log
	jwtCfg.SkipPaths = append(jwtCfg.SkipPaths, "/api/v1/system/ping", "/api/v1/system/info")
	engine.Use(middleware.JWTAuthMiddlewareWithConfig(jwtCfg))

	// Tenant resolution from JWT claims or X-Tenant-ID header
	tenantCfg := middleware.DefaultTenantConfig()
	tenantCfg.Required = false
	tenantCfg.Logger = log
	engine.Use(middleware.TenantMiddlewareWithConfig(tenantCfg))

	// Register API routes
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(integrationHandler).
		Register(oauthHandler).
		Register(syncHandler).
		Register(webhookHandler).
		Register(notificationHandler).
		Register(systemHandler)
	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// buildLogger builds the process logger. With telemetry enabled the logger
// tees every record to the OTLP logs exporter alongside the local output.
func buildLogger(cfg *config.Config) (*zap.Logger, *telemetry.LoggerProvider, error) {
	const timeFormat = "2006-01-02T15:04:05.000Z07:00"

	bootstrap, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: timeFormat,
	})
	if err != nil {
		return nil, nil, err
	}

	logsProvider, err := telemetry.NewLoggerProvider(context.Background(), telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, bootstrap)
	if err != nil {
		return nil, nil, err
	}
	if !logsProvider.IsEnabled() {
		return bootstrap, logsProvider, nil
	}

	bridged, err := telemetry.CreateBridgedLoggerFromConfig(&telemetry.BaseLoggerConfig{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: timeFormat,
	}, logsProvider, cfg.Telemetry.ServiceName)
	if err != nil {
		return nil, nil, err
	}
	return bridged, logsProvider, nil
}

// buildAdapters constructs one adapter per enabled provider
func buildAdapters(cfg *config.Config) ([]integration.ProviderAdapter, error) {
	var adapters []integration.ProviderAdapter

	if p := cfg.Providers.GoogleAds; p.Enabled {
		a, err := adsplatform.NewGoogleAdsAdapter(&adsplatform.GoogleAdsConfig{
			ClientID:      p.ClientID,
			ClientSecret:  p.ClientSecret,
			WebhookSecret: p.WebhookSecret,
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}

	if p := cfg.Providers.MetaAds; p.Enabled {
		a, err := adsplatform.NewMetaAdsAdapter(&adsplatform.MetaAdsConfig{
			AppID:     p.AppID,
			AppSecret: p.AppSecret,
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}

	if p := cfg.Providers.ZaloOA; p.Enabled {
		a, err := adsplatform.NewZaloOAAdapter(&adsplatform.ZaloOAConfig{
			AppID:     p.AppID,
			AppSecret: p.AppSecret,
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}

	if p := cfg.Providers.TikTokAds; p.Enabled {
		a, err := adsplatform.NewTikTokAdsAdapter(&adsplatform.TikTokAdsConfig{
			AppID:     p.AppID,
			AppSecret: p.AppSecret,
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}

	if p := cfg.Providers.Shopee; p.Enabled {
		a, err := adsplatform.NewShopeeAdapter(&adsplatform.ShopeeConfig{
			PartnerID:  p.PartnerID,
			PartnerKey: p.PartnerKey,
		})
		if err != nil {
			return nil, err
		}
		adapters = append(adapters, a)
	}

	return adapters, nil
}

// buildTokenBlacklist prefers Redis so revocation survives restarts and is
// shared across instances; falls back to in-memory when Redis is unreachable
func buildTokenBlacklist(cfg *config.Config, log *zap.Logger) auth.TokenBlacklist {
	blacklist, err := auth.NewRedisTokenBlacklist(auth.RedisTokenBlacklistConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn("Redis unavailable, using in-memory token blacklist", zap.Error(err))
		return auth.NewInMemoryTokenBlacklist()
	}
	return blacklist
}

// defaultRedirectURI builds the OAuth callback URL from the configured
// public base URL
func defaultRedirectURI(cfg *config.Config) string {
	if cfg.OAuth.RedirectBaseURL == "" {
		return ""
	}
	return cfg.OAuth.RedirectBaseURL + "/api/v1/oauth/callback"
}

// runAuthStateCleanup periodically purges expired authorization attempts
func runAuthStateCleanup(ctx context.Context, tokens *app.TokenService, interval time.Duration, log *zap.Logger) {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := tokens.CleanupExpiredStates(ctx)
			if err != nil {
				log.Error("Auth state cleanup failed", zap.Error(err))
				continue
			}
			if purged > 0 {
				log.Debug("Expired auth states purged", zap.Int64("count", purged))
			}
		}
	}
}

// healthHandler returns a handler for health check endpoints
func healthHandler(db *persistence.Database, _ *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		reqLog := logger.GetGinLogger(c)
		if err := db.Ping(); err != nil {
			reqLog.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
