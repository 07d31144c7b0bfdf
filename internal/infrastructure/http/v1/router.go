// Package v1 provides HTTP API version 1.
package v1

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"oficina/internal/core/id"
	"oficina/internal/core/tenant"
	"oficina/internal/domain/auth"
	"oficina/internal/domain/inventory"
	"oficina/internal/domain/serviceorder"
	"oficina/internal/infrastructure/http/v1/handlers"
	"oficina/internal/infrastructure/http/v1/middleware"
	"oficina/internal/infrastructure/live"
	"oficina/internal/infrastructure/ratelimit"
	"oficina/internal/infrastructure/storage/postgres"
	"oficina/pkg/logger"
)

// RouterConfig holds everything the API needs to serve requests.
type RouterConfig struct {
	Logger *logger.Logger

	// JWTValidator validates access tokens for protected routes and websockets.
	JWTValidator middleware.JWTValidator

	AuthService         *auth.Service
	InventoryService    *inventory.Service
	ServiceOrderService *serviceorder.Service

	// AuditService exposes order history; nil disables the endpoint.
	AuditService *postgres.AuditService

	// Garages rejects tokens of suspended garages; nil trusts the token claim.
	Garages tenant.Registry

	// IdempotencyStore enables Idempotency-Key handling on protected routes.
	IdempotencyStore middleware.IdempotencyStore

	// PublicLimiter throttles the token-based approval endpoints.
	PublicLimiter ratelimit.Limiter

	// Live serves GET /ws; nil disables live updates.
	Live *live.Handler

	HealthChecks   map[string]handlers.Pinger
	AllowedOrigins []string
	Debug          bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS(cfg.AllowedOrigins))
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.HealthChecks)
	router.GET("/health", healthHandler.Live)
	router.GET("/ready", healthHandler.Ready)

	if cfg.Live != nil {
		router.GET("/ws", cfg.Live.Serve)
	}

	limiter := cfg.PublicLimiter
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}

	base := handlers.NewBaseHandler()

	v1 := router.Group("/api/v1")
	{
		protected := v1.Group("")
		protected.Use(middleware.Auth(cfg.JWTValidator))
		if cfg.Garages != nil {
			protected.Use(middleware.ActiveGarage(cfg.Garages))
		}
		if cfg.IdempotencyStore != nil {
			protected.Use(middleware.Idempotency(cfg.IdempotencyStore))
		}

		public := v1.Group("")
		public.Use(middleware.Public())

		if cfg.AuthService != nil {
			authHandler := handlers.NewAuthHandler(base, cfg.AuthService)
			authHandler.RegisterRoutes(
				public.Group("/auth", middleware.RateLimit(limiter, "login")),
				protected.Group("/auth"),
			)
		}

		if cfg.InventoryService != nil {
			parts := handlers.NewPartHandler(base, cfg.InventoryService)
			partGroup := protected.Group("/parts")
			registerCRUDRoutes(partGroup, parts)
			partGroup.GET("/:id/stock", parts.Stock)
			partGroup.POST("/check-availability", parts.CheckAvailability)

			entries := handlers.NewInventoryEntryHandler(base, cfg.InventoryService)
			entryGroup := protected.Group("/inventory-entries")
			registerCRUDRoutes(entryGroup, entries)
			entryGroup.POST("/create-exit", entries.CreateExit)
		}

		if cfg.ServiceOrderService != nil {
			var history handlers.AuditReader
			if cfg.AuditService != nil {
				history = auditHistory{cfg.AuditService}
			}
			orders := handlers.NewServiceOrderHandler(base, cfg.ServiceOrderService, history)
			orders.RegisterRoutes(
				protected.Group("/service-orders"),
				public.Group("/service-orders", middleware.RateLimit(limiter, "approval")),
			)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": gin.H{"code": "NOT_FOUND", "message": "route not found"}})
	})

	return router
}

// auditHistory adapts the audit store to the handler's reader.
type auditHistory struct {
	svc *postgres.AuditService
}

func (a auditHistory) History(ctx context.Context, entityType string, entityID id.ID, limit int) (any, error) {
	return a.svc.GetEntityHistory(ctx, entityType, entityID, limit)
}
