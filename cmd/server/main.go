// Package main is the entry point for the oficina API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"oficina/internal/config"
	"oficina/internal/core/tenant"
	"oficina/internal/domain/auth"
	"oficina/internal/domain/inventory"
	"oficina/internal/domain/serviceorder"
	"oficina/internal/infrastructure/cache"
	v1 "oficina/internal/infrastructure/http/v1"
	"oficina/internal/infrastructure/http/v1/handlers"
	"oficina/internal/infrastructure/live"
	"oficina/internal/infrastructure/numerator"
	"oficina/internal/infrastructure/ratelimit"
	"oficina/internal/infrastructure/redisclient"
	"oficina/internal/infrastructure/storage/postgres"
	"oficina/internal/infrastructure/storage/postgres/auth_repo"
	"oficina/internal/infrastructure/storage/postgres/inventory_repo"
	"oficina/internal/infrastructure/storage/postgres/serviceorder_repo"
	"oficina/internal/worker"
	"oficina/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.Development(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = logger.WithLogger(ctx, log)

	log.Info("starting oficina server")

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.ApplicationName = "oficina-api"
	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.MinConns = cfg.DBMinConns
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	garages := cache.NewGarageCache(tenant.NewPostgresRegistry(pool.Unwrap()), pool.Unwrap(), cache.DefaultGarageTTL)
	garages.Start(ctx)
	defer garages.Stop()

	// --- Auth ---
	jwtConfig := auth.DefaultJWTConfig(cfg.JWTSecret)
	jwtConfig.AccessTokenTTL = cfg.JWTAccessTTL
	jwtService := auth.NewJWTService(jwtConfig)
	authService := auth.NewService(auth_repo.NewUserRepo(txManager), jwtService, auth.DefaultServiceConfig())

	// --- Domain services ---
	auditService, err := postgres.NewAuditService(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit log", "error", err)
	}
	outbox := postgres.NewOutboxPublisher(txManager)

	inventoryService := inventory.NewService(inventory_repo.NewStore(txManager), txManager, outbox, auditService)
	orderService := serviceorder.NewService(
		serviceorder_repo.NewStore(txManager),
		serviceorder_repo.NewVehicleLookup(txManager),
		inventoryService,
		txManager,
		numerator.New(txManager),
		serviceorder.Config{
			PublicBaseURL: cfg.PublicBaseURL,
			LinkTTL:       cfg.ApprovalLinkTTL,
		},
		serviceorder.WithEvents(outbox),
		serviceorder.WithAudit(auditService),
	)

	// --- Live feed, rate limiting ---
	hub := live.NewHub()
	var background sync.WaitGroup

	healthChecks := map[string]handlers.Pinger{
		"database": handlers.PingFunc(pool.Ping),
	}

	var limiter ratelimit.Limiter = ratelimit.Unlimited{}
	if cfg.RedisURL != "" {
		rdb, err := redisclient.New(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalw("failed to connect to redis", "error", err)
		}
		defer rdb.Close()

		limiter = ratelimit.NewRedisLimiter(rdb, "oficina:ratelimit", cfg.ApprovalRateLimit, time.Minute)
		healthChecks["redis"] = handlers.PingFunc(func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})

		subscriber := live.NewSubscriber(rdb, live.DefaultChannel, hub)
		background.Add(1)
		go func() {
			defer background.Done()
			subscriber.Run(ctx)
		}()
		log.Infow("live feed subscribed to redis", "channel", live.DefaultChannel)
	} else {
		// Without redis there is no cross-process fan-out: this process
		// relays the outbox itself and cmd/worker must not run.
		relay := postgres.NewOutboxRelay(pool.Unwrap(), cfg.OutboxBatchSize, live.NewHubHandler(hub))
		w := worker.New(relay, nil, worker.Config{
			PollInterval: cfg.OutboxPollInterval,
			Retention:    cfg.OutboxRetention,
		}, log)
		background.Add(1)
		go func() {
			defer background.Done()
			w.Run(ctx)
		}()
		log.Warn("REDIS_URL not set: public endpoints are not rate limited, outbox relayed in-process")
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Logger:              log,
		JWTValidator:        jwtService,
		AuthService:         authService,
		InventoryService:    inventoryService,
		ServiceOrderService: orderService,
		AuditService:        auditService,
		Garages:             garages,
		IdempotencyStore:    postgres.NewIdempotencyStore(txManager, cfg.IdempotencyTTL),
		PublicLimiter:       limiter,
		Live:                live.NewHandler(hub, jwtService, originChecker(cfg.AllowedOrigins)),
		HealthChecks:        healthChecks,
		AllowedOrigins:      cfg.AllowedOrigins,
		Debug:               cfg.Development(),
	})

	// --- HTTP Server ---
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}
	cancel()
	background.Wait()

	log.Info("server stopped")
}

// originChecker accepts websocket upgrades from the configured origins,
// or from anywhere when none are configured.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	return func(r *http.Request) bool {
		return slices.Contains(allowed, r.Header.Get("Origin"))
	}
}
