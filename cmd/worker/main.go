// Package main is the entry point for the oficina background worker.
// It relays the outbox to redis for the API processes' live feeds and
// cleans up expired rows.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"oficina/internal/config"
	"oficina/internal/infrastructure/live"
	"oficina/internal/infrastructure/redisclient"
	"oficina/internal/infrastructure/storage/postgres"
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

	log.Info("starting oficina worker")

	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	poolCfg.ApplicationName = "oficina-worker"
	poolCfg.MaxConns = 4
	poolCfg.MinConns = 1
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	var handler postgres.OutboxHandler
	if cfg.RedisURL != "" {
		rdb, err := redisclient.New(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatalw("failed to connect to redis", "error", err)
		}
		defer rdb.Close()
		handler = live.NewRedisPublisher(rdb, live.DefaultChannel)
		log.Infow("relaying outbox to redis", "channel", live.DefaultChannel)
	} else {
		// Nothing to fan out to; events are only logged and marked published.
		handler = postgres.OutboxHandlerFunc(func(ctx context.Context, msg *postgres.OutboxMessage) error {
			log.Infow("outbox event",
				"event_type", msg.EventType,
				"aggregate_id", msg.AggregateID.String(),
				"garage_id", msg.GarageID.String())
			return nil
		})
		log.Warn("REDIS_URL not set: outbox events are only logged")
	}

	txManager := postgres.NewTxManager(pool)
	relay := postgres.NewOutboxRelay(pool.Unwrap(), cfg.OutboxBatchSize, handler)
	w := worker.New(relay, postgres.NewIdempotencyStore(txManager, cfg.IdempotencyTTL), worker.Config{
		PollInterval: cfg.OutboxPollInterval,
		Retention:    cfg.OutboxRetention,
	}, log)

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()
	<-done
	log.Info("worker stopped")
}
