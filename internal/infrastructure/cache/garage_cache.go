// Package cache provides caching infrastructure with PostgreSQL LISTEN/NOTIFY support.
package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"oficina/internal/core/id"
	"oficina/internal/core/tenant"
	"oficina/pkg/logger"
)

// DefaultGarageTTL bounds staleness when no NOTIFY listener is running.
const DefaultGarageTTL = time.Minute

type cachedGarage struct {
	garage   tenant.Garage
	loadedAt time.Time
}

// GarageCache is a tenant.Registry that keeps garage records in memory.
// Entries are dropped on garage_changed notifications and after ttl.
type GarageCache struct {
	source tenant.Registry
	pool   *pgxpool.Pool
	ttl    time.Duration
	now    func() time.Time

	mu      sync.RWMutex
	garages map[id.ID]cachedGarage

	// Lifecycle
	lifecycleMu sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
}

var _ tenant.Registry = (*GarageCache)(nil)

// NewGarageCache wraps source. pool is used only for LISTEN and may be nil.
func NewGarageCache(source tenant.Registry, pool *pgxpool.Pool, ttl time.Duration) *GarageCache {
	if ttl <= 0 {
		ttl = DefaultGarageTTL
	}
	return &GarageCache{
		source:  source,
		pool:    pool,
		ttl:     ttl,
		now:     time.Now,
		garages: make(map[id.ID]cachedGarage),
	}
}

// GetByID returns a cached copy, loading it from source on a miss.
func (c *GarageCache) GetByID(ctx context.Context, garageID id.ID) (*tenant.Garage, error) {
	c.mu.RLock()
	entry, ok := c.garages[garageID]
	c.mu.RUnlock()
	if ok && c.now().Sub(entry.loadedAt) < c.ttl {
		g := entry.garage
		return &g, nil
	}

	g, err := c.source.GetByID(ctx, garageID)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.garages[garageID] = cachedGarage{garage: *g, loadedAt: c.now()}
	c.mu.Unlock()
	return g, nil
}

// Create writes through to source.
func (c *GarageCache) Create(ctx context.Context, g *tenant.Garage) error {
	if err := c.source.Create(ctx, g); err != nil {
		return err
	}
	c.Invalidate(g.ID)
	return nil
}

// SetStatus writes through to source and drops the local entry.
func (c *GarageCache) SetStatus(ctx context.Context, garageID id.ID, status tenant.Status) error {
	if err := c.source.SetStatus(ctx, garageID, status); err != nil {
		return err
	}
	c.Invalidate(garageID)
	return nil
}

// Invalidate drops one garage.
func (c *GarageCache) Invalidate(garageID id.ID) {
	c.mu.Lock()
	delete(c.garages, garageID)
	c.mu.Unlock()
}

// Len returns the number of cached garages.
func (c *GarageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.garages)
}

// Start begins listening for garage_changed notifications.
func (c *GarageCache) Start(ctx context.Context) {
	if c.pool == nil {
		return
	}

	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()
	if c.started {
		return
	}
	c.ctx, c.cancel = context.WithCancel(ctx)
	c.started = true

	c.wg.Add(1)
	go c.listenLoop()
	logger.Info(c.ctx, "garage cache started")
}

// Stop gracefully stops the listener.
func (c *GarageCache) Stop() {
	c.lifecycleMu.Lock()
	if !c.started {
		c.lifecycleMu.Unlock()
		return
	}
	cancel := c.cancel
	c.started = false
	c.cancel = nil
	c.lifecycleMu.Unlock()

	cancel()
	c.wg.Wait()
	logger.Info(context.Background(), "garage cache stopped")
}

// listenLoop holds a dedicated connection in LISTEN mode, reconnecting on failure.
func (c *GarageCache) listenLoop() {
	defer c.wg.Done()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		conn, err := c.pool.Acquire(c.ctx)
		if err != nil {
			logger.Error(c.ctx, "failed to acquire connection for LISTEN", "error", err)
			c.sleep(time.Second)
			continue
		}

		if _, err = conn.Exec(c.ctx, "LISTEN "+tenant.GarageChangedChannel); err != nil {
			logger.Error(c.ctx, "failed to LISTEN", "error", err)
			conn.Release()
			c.sleep(time.Second)
			continue
		}

		// Anything cached before LISTEN may have missed a notification.
		c.flush()

		c.waitForNotifications(conn)
		conn.Release()
	}
}

func (c *GarageCache) waitForNotifications(conn *pgxpool.Conn) {
	for {
		ctx, cancel := context.WithTimeout(c.ctx, 30*time.Second)
		notification, err := conn.Conn().WaitForNotification(ctx)
		cancel()

		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			if ctx.Err() != nil {
				// Timeout is expected, continue listening
				continue
			}
			logger.Warn(c.ctx, "LISTEN connection lost", "error", err)
			return
		}

		c.handleNotification(notification.Payload)
	}
}

// handleNotification drops the garage named by payload, or everything when
// the payload is not an id.
func (c *GarageCache) handleNotification(payload string) {
	garageID, err := id.ParseRequired(strings.TrimSpace(payload))
	if err != nil {
		c.flush()
		return
	}
	c.Invalidate(garageID)
}

func (c *GarageCache) flush() {
	c.mu.Lock()
	c.garages = make(map[id.ID]cachedGarage)
	c.mu.Unlock()
}

func (c *GarageCache) sleep(d time.Duration) {
	select {
	case <-c.ctx.Done():
	case <-time.After(d):
	}
}
