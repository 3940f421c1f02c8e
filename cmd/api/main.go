package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contabil-webhook-gateway/config"
	httpHandler "contabil-webhook-gateway/internal/adapter/http/handler"
	pgStorage "contabil-webhook-gateway/internal/adapter/storage/postgres"
	redisStorage "contabil-webhook-gateway/internal/adapter/storage/redis"
	"contabil-webhook-gateway/internal/core/ports"
	"contabil-webhook-gateway/internal/service"
	"contabil-webhook-gateway/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("contabil-webhook-gateway", cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting Contabil Webhook Gateway")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	eventRepo := pgStorage.NewEventRepo(pool)
	deliveryRepo := pgStorage.NewDeliveryRepo(pool)
	endpointRepo := pgStorage.NewEndpointRepo(pool)

	// Initialize Redis stores
	endpointCache := redisStorage.NewEndpointCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize core services
	sigSvc := service.NewHMACSignatureService()
	tokenSvc := service.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, cfg.Auth.JWTIssuer)
	breakers := service.NewBreakerRegistry(service.BreakerSettings{
		FailureThreshold: cfg.Breaker.FailureThreshold,
		ResetTimeout:     cfg.Breaker.ResetTimeout,
		MonitoringPeriod: cfg.Breaker.MonitoringPeriod,
	})

	// Initialize business services
	dispatcherSvc := service.NewDispatcherService(
		endpointRepo,
		endpointCache,
		eventRepo,
		deliveryRepo,
		sigSvc,
		&http.Client{},
		breakers,
		service.DispatcherConfig{
			DefaultRetry: ports.RetryConfig{
				MaxRetries:         cfg.Webhook.MaxRetries,
				RetryDelay:         cfg.Webhook.RetryDelay,
				ExponentialBackoff: cfg.Webhook.ExponentialBackoff,
			},
			DefaultTimeout:    cfg.Webhook.Timeout,
			MinTimeout:        cfg.Webhook.MinTimeout,
			MaxTimeout:        cfg.Webhook.MaxTimeout,
			ResponseBodyLimit: cfg.Webhook.ResponseBodyLimit,
			EndpointCacheTTL:  cfg.Webhook.EndpointCacheTTL,
		},
		log,
	)
	endpointSvc := service.NewEndpointService(endpointRepo, endpointCache, log)

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		DispatcherSvc:  dispatcherSvc,
		EndpointSvc:    endpointSvc,
		TokenSvc:       tokenSvc,
		Breakers:       breakers,
		AdminAPIKey:    cfg.Auth.APIKey,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
