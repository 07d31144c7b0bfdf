// Package worker runs the background loops: outbox delivery and housekeeping.
package worker

import (
	"context"
	"time"

	appctx "oficina/internal/core/context"
	"oficina/pkg/logger"
)

// Relay delivers pending outbox messages. Implemented by postgres.OutboxRelay.
type Relay interface {
	ProcessBatch(ctx context.Context) (int, error)
	PurgePublished(ctx context.Context, olderThan time.Duration) (int64, error)
}

// KeyCleaner removes expired idempotency keys. Implemented by postgres.IdempotencyStore.
type KeyCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// Config tunes the loops.
type Config struct {
	PollInterval    time.Duration
	CleanupInterval time.Duration
	// Retention is how long published outbox rows are kept.
	Retention time.Duration
}

// Worker polls the outbox and periodically cleans up old rows.
// Approval tokens are never purged here: an expired link must keep
// answering as expired.
type Worker struct {
	relay Relay
	keys  KeyCleaner
	cfg   Config
	log   *logger.Logger
}

// New creates a worker. keys may be nil when the process does not own cleanup.
func New(relay Relay, keys KeyCleaner, cfg Config, log *logger.Logger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 2 * time.Second
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = time.Hour
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 7 * 24 * time.Hour
	}
	return &Worker{
		relay: relay,
		keys:  keys,
		cfg:   cfg,
		log:   log.WithComponent("worker"),
	}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	cleanupTicker := time.NewTicker(w.cfg.CleanupInterval)
	defer cleanupTicker.Stop()

	w.log.Infow("worker started", "poll_interval", w.cfg.PollInterval, "cleanup_interval", w.cfg.CleanupInterval)
	w.cleanup(cycleContext(ctx, "cleanup"))

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker stopped")
			return
		case <-ticker.C:
			w.processOutbox(cycleContext(ctx, "outbox"))
		case <-cleanupTicker.C:
			w.cleanup(cycleContext(ctx, "cleanup"))
		}
	}
}

// cycleContext gives each tick its own correlation so the relay's log
// lines can be grouped.
func cycleContext(ctx context.Context, job string) context.Context {
	return appctx.WithCorrelation(ctx, appctx.ForJob(job))
}

// processOutbox drains the outbox until a batch comes back empty.
func (w *Worker) processOutbox(ctx context.Context) {
	total := 0
	for ctx.Err() == nil {
		n, err := w.relay.ProcessBatch(ctx)
		if err != nil {
			if ctx.Err() == nil {
				w.log.WithContext(ctx).Errorw("outbox batch failed", "error", err)
			}
			return
		}
		if n == 0 {
			break
		}
		total += n
	}
	if total > 0 {
		w.log.WithContext(ctx).Debugw("processed outbox", "count", total)
	}
}

func (w *Worker) cleanup(ctx context.Context) {
	if n, err := w.relay.PurgePublished(ctx, w.cfg.Retention); err != nil {
		w.log.Warnw("outbox purge failed", "error", err)
	} else if n > 0 {
		w.log.Infow("purged published outbox messages", "count", n)
	}

	if w.keys == nil {
		return
	}
	if n, err := w.keys.CleanupExpired(ctx); err != nil {
		w.log.Warnw("idempotency cleanup failed", "error", err)
	} else if n > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", n)
	}
}
