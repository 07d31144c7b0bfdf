package tenant

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgxpool"

	"oficina/internal/core/id"
)

// Registry provides access to garage records.
type Registry interface {
	// GetByID retrieves garage by UUID.
	GetByID(ctx context.Context, garageID id.ID) (*Garage, error)

	// Create inserts a new garage row.
	Create(ctx context.Context, g *Garage) error

	// SetStatus changes the lifecycle state of a garage.
	SetStatus(ctx context.Context, garageID id.ID, status Status) error
}

// Resolve loads the garage and returns its scope if it is active.
func Resolve(ctx context.Context, r Registry, garageID id.ID) (GarageID, error) {
	g, err := r.GetByID(ctx, garageID)
	if err != nil {
		return GarageID{}, err
	}
	if !g.IsActive() {
		return GarageID{}, ErrGarageNotActive
	}
	return g.Scope(), nil
}

// PostgresRegistry implements Registry on the shared database.
type PostgresRegistry struct {
	pool *pgxpool.Pool
}

// NewPostgresRegistry creates a registry over pool.
func NewPostgresRegistry(pool *pgxpool.Pool) *PostgresRegistry {
	return &PostgresRegistry{pool: pool}
}

func (r *PostgresRegistry) GetByID(ctx context.Context, garageID id.ID) (*Garage, error) {
	var g Garage
	err := pgxscan.Get(ctx, r.pool, &g, `
		SELECT id, slug, display_name, status, created_at, updated_at
		FROM garages
		WHERE id = $1
	`, garageID)
	if err != nil {
		if pgxscan.NotFound(err) {
			return nil, ErrGarageNotFound
		}
		return nil, fmt.Errorf("get garage by id: %w", err)
	}
	return &g, nil
}

func (r *PostgresRegistry) Create(ctx context.Context, g *Garage) error {
	if id.IsNil(g.ID) {
		g.ID = id.New()
	}
	if g.Status == "" {
		g.Status = StatusActive
	}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO garages (id, slug, display_name, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (slug) DO UPDATE SET display_name = EXCLUDED.display_name
		RETURNING id, created_at, updated_at
	`, g.ID, g.Slug, g.DisplayName, g.Status).Scan(&g.ID, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create garage: %w", err)
	}
	return nil
}

// SetStatus updates the garage status. The garages trigger notifies
// GarageChangedChannel so caches drop the entry.
func (r *PostgresRegistry) SetStatus(ctx context.Context, garageID id.ID, status Status) error {
	switch status {
	case StatusActive, StatusSuspended, StatusDeleted:
	default:
		return fmt.Errorf("unknown garage status %q", status)
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE garages SET status = $2, updated_at = now()
		WHERE id = $1
	`, garageID, status)
	if err != nil {
		return fmt.Errorf("set garage status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGarageNotFound
	}
	return nil
}

// ListAll returns every garage ordered by slug.
func (r *PostgresRegistry) ListAll(ctx context.Context) ([]*Garage, error) {
	var garages []*Garage
	err := pgxscan.Select(ctx, r.pool, &garages, `
		SELECT id, slug, display_name, status, created_at, updated_at
		FROM garages
		ORDER BY slug
	`)
	if err != nil {
		return nil, fmt.Errorf("list garages: %w", err)
	}
	return garages, nil
}
