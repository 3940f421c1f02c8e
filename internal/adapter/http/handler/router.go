package handler

import (
	"contabil-webhook-gateway/internal/adapter/http/middleware"
	redisStore "contabil-webhook-gateway/internal/adapter/storage/redis"
	"contabil-webhook-gateway/internal/core/ports"
	"contabil-webhook-gateway/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	DispatcherSvc  ports.DispatcherService
	EndpointSvc    ports.EndpointService
	TokenSvc       ports.TokenService
	Breakers       *service.BreakerRegistry
	AdminAPIKey    string
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.TokenSvc, deps.AdminAPIKey)
	v1.POST("/auth/token", rl("auth_token"), authHandler.Token)

	// --- JWT-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	webhookHandler := NewWebhookHandler(deps.DispatcherSvc)
	webhooks := v1.Group("/webhooks", jwtAuth)
	{
		webhooks.POST("/dispatch", rl("dispatch"), webhookHandler.Dispatch)
		webhooks.GET("", rl("events"), webhookHandler.ListEvents)
		webhooks.GET("/stats", rl("events"), webhookHandler.GetStats)
		webhooks.GET("/:id", rl("events"), webhookHandler.GetEvent)
	}

	endpointHandler := NewEndpointHandler(deps.EndpointSvc)
	endpoints := v1.Group("/endpoints", jwtAuth)
	{
		endpoints.POST("", rl("endpoints"), endpointHandler.Create)
		endpoints.GET("", rl("endpoints"), endpointHandler.List)
		endpoints.GET("/:id", rl("endpoints"), endpointHandler.Get)
		endpoints.PUT("/:id", rl("endpoints"), endpointHandler.Update)
		endpoints.DELETE("/:id", rl("endpoints"), endpointHandler.Delete)
	}

	breakerHandler := NewBreakerHandler(deps.Breakers)
	breakers := v1.Group("/breakers", jwtAuth)
	{
		breakers.GET("", rl("breakers"), breakerHandler.List)
		breakers.POST("/reset", rl("breakers"), breakerHandler.Reset)
	}

	return r
}
