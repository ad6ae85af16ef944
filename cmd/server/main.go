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

	"github.com/dealerdesk/backend/internal/application/identity"
	"github.com/dealerdesk/backend/internal/application/retailcheck"
	"github.com/dealerdesk/backend/internal/infrastructure/autotrader"
	"github.com/dealerdesk/backend/internal/infrastructure/config"
	"github.com/dealerdesk/backend/internal/infrastructure/logger"
	"github.com/dealerdesk/backend/internal/infrastructure/persistence"
	"github.com/dealerdesk/backend/internal/infrastructure/resilience"
	"github.com/dealerdesk/backend/internal/infrastructure/telemetry"
	"github.com/dealerdesk/backend/internal/interfaces/http/handler"
	"github.com/dealerdesk/backend/internal/interfaces/http/middleware"
	"github.com/dealerdesk/backend/internal/interfaces/http/router"
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

	log.Info("Starting DealerDesk Retail Check",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Stock database
	db, err := persistence.NewDatabase(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	// Metrics export, optional
	meterProvider, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:           cfg.Metrics.Enabled,
		CollectorEndpoint: cfg.Metrics.CollectorEndpoint,
		ExportInterval:    cfg.Metrics.ExportInterval,
		ServiceName:       cfg.App.Name,
		Insecure:          cfg.Metrics.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	defer func() {
		if err := meterProvider.Shutdown(context.Background()); err != nil {
			log.Error("Error shutting down metrics", zap.Error(err))
		}
	}()

	// Result cache: Redis when enabled, in-memory otherwise
	cacheFactory := resilience.NewCacheFactory(cfg.Redis, cfg.Resilience.CleanupInterval,
		resilience.WithFactoryLogger(log))
	cache, err := cacheFactory.CreateCache()
	if err != nil {
		log.Fatal("Failed to create result cache", zap.Error(err))
	}
	defer func() {
		if err := cache.Close(); err != nil {
			log.Error("Error closing result cache", zap.Error(err))
		}
	}()

	// Resilience layer over the cache
	serviceOpts := []resilience.ServiceOption{resilience.WithServiceLogger(log)}
	if meterProvider.IsEnabled() {
		recorder, err := telemetry.NewResilienceMetrics(meterProvider.Meter("resilience"), log)
		if err != nil {
			log.Fatal("Failed to create resilience metrics", zap.Error(err))
		}
		serviceOpts = append(serviceOpts, resilience.WithMetrics(recorder))
	}
	resilienceSvc := resilience.NewService(cache,
		cfg.Resilience.FailureThreshold, cfg.Resilience.Cooldown, serviceOpts...)
	defer func() {
		_ = resilienceSvc.Close()
	}()

	// Vehicle data provider client with bearer token management
	credentials := identity.NewStaticCredentialResolver(cfg.Provider)
	creds, err := credentials.Resolve(context.Background(), cfg.Provider.AdvertiserID)
	if err != nil {
		log.Fatal("Failed to resolve provider credentials", zap.Error(err))
	}
	client, err := autotrader.NewClient(&autotrader.Config{
		BaseURL:        cfg.Provider.BaseURL,
		Key:            creds.Key,
		Secret:         creds.Secret,
		TimeoutSeconds: cfg.Provider.TimeoutSeconds,
	})
	if err != nil {
		log.Fatal("Failed to create provider client", zap.Error(err))
	}
	tokens := identity.NewTokenSource(client, cfg.Provider.TokenRefreshMargin,
		identity.WithLogger(log))
	client.SetTokenProvider(tokens)

	// The optimized gateway routes provider reads through the resilience
	// layer; the direct gateway is the raw client.
	optimized := resilience.NewCachedGateway(client, resilienceSvc, cfg.Resilience.TTL)

	// Application services
	stockRepo := persistence.NewGormStockRepository(db.DB)
	resolver := retailcheck.NewResolver(stockRepo, retailcheck.WithResolverLogger(log))
	checkService := retailcheck.NewService(resolver, optimized, client, creds.AdvertiserID,
		retailcheck.WithServiceLogger(log))

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	middleware.SetupValidator()

	engine := gin.New()

	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	router.NewRouter(engine).
		Register(handler.NewRetailCheckHandler(checkService, resilienceSvc, log)).
		Register(handler.NewAdminHandler(resilienceSvc, log)).
		Register(handler.NewSystemHandler()).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

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
