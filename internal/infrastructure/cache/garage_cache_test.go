package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oficina/internal/core/id"
	"oficina/internal/core/tenant"
)

type countingRegistry struct {
	mu      sync.Mutex
	garages map[id.ID]tenant.Garage
	loads   int
}

func (r *countingRegistry) GetByID(ctx context.Context, garageID id.ID) (*tenant.Garage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loads++
	g, ok := r.garages[garageID]
	if !ok {
		return nil, tenant.ErrGarageNotFound
	}
	return &g, nil
}

func (r *countingRegistry) Create(ctx context.Context, g *tenant.Garage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.garages[g.ID] = *g
	return nil
}

func (r *countingRegistry) SetStatus(ctx context.Context, garageID id.ID, status tenant.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.garages[garageID]
	if !ok {
		return tenant.ErrGarageNotFound
	}
	g.Status = status
	r.garages[garageID] = g
	return nil
}

func (r *countingRegistry) setDirect(garageID id.ID, status tenant.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g := r.garages[garageID]
	g.Status = status
	r.garages[garageID] = g
}

func newCache(t *testing.T) (*GarageCache, *countingRegistry, id.ID) {
	t.Helper()
	src := &countingRegistry{garages: make(map[id.ID]tenant.Garage)}
	garageID := id.New()
	require.NoError(t, src.Create(context.Background(), &tenant.Garage{
		ID: garageID, Slug: "centro", Status: tenant.StatusActive,
	}))
	return NewGarageCache(src, nil, time.Minute), src, garageID
}

func TestGarageCache_HitsAfterFirstLoad(t *testing.T) {
	c, src, garageID := newCache(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		g, err := c.GetByID(ctx, garageID)
		require.NoError(t, err)
		assert.True(t, g.IsActive())
	}
	assert.Equal(t, 1, src.loads)
	assert.Equal(t, 1, c.Len())

	_, err := c.GetByID(ctx, id.New())
	assert.ErrorIs(t, err, tenant.ErrGarageNotFound)
}

func TestGarageCache_NotificationDropsEntry(t *testing.T) {
	c, src, garageID := newCache(t)
	ctx := context.Background()

	_, err := c.GetByID(ctx, garageID)
	require.NoError(t, err)

	// Another process suspends the garage.
	src.setDirect(garageID, tenant.StatusSuspended)
	g, err := c.GetByID(ctx, garageID)
	require.NoError(t, err)
	assert.True(t, g.IsActive(), "stale until notified")

	c.handleNotification(garageID.String())
	_, err = tenant.Resolve(ctx, c, garageID)
	assert.ErrorIs(t, err, tenant.ErrGarageNotActive)
}

func TestGarageCache_GarbagePayloadFlushes(t *testing.T) {
	c, _, garageID := newCache(t)

	_, err := c.GetByID(context.Background(), garageID)
	require.NoError(t, err)
	c.handleNotification("not-an-id")
	assert.Zero(t, c.Len())
}

func TestGarageCache_TTL(t *testing.T) {
	c, src, garageID := newCache(t)
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_, err := c.GetByID(context.Background(), garageID)
	require.NoError(t, err)
	now = now.Add(2 * time.Minute)
	_, err = c.GetByID(context.Background(), garageID)
	require.NoError(t, err)
	assert.Equal(t, 2, src.loads)
}

func TestGarageCache_SetStatusWritesThrough(t *testing.T) {
	c, _, garageID := newCache(t)
	ctx := context.Background()

	_, err := c.GetByID(ctx, garageID)
	require.NoError(t, err)
	require.NoError(t, c.SetStatus(ctx, garageID, tenant.StatusSuspended))

	g, err := c.GetByID(ctx, garageID)
	require.NoError(t, err)
	assert.Equal(t, tenant.StatusSuspended, g.Status)
}
