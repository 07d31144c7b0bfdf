// Package entity holds the fields shared by every garage-owned record.
package entity

import (
	"context"
	"time"

	"oficina/internal/core/id"
	"oficina/internal/core/tenant"
)

// Validatable is implemented by entities that support self-validation.
// Validation checks internal invariants (without database access).
type Validatable interface {
	// Validate checks entity invariants.
	// Returns nil if valid, AppError with details otherwise.
	Validate(ctx context.Context) error
}

// Base contains identity, ownership and audit timestamps.
type Base struct {
	// ID is the primary key (UUIDv7)
	ID id.ID `db:"id" json:"id"`

	// GarageID is the owning tenant; set by repositories from their scope.
	GarageID id.ID `db:"garage_id" json:"garageId"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewBase creates a Base with generated ID and timestamps.
func NewBase() Base {
	now := time.Now().UTC()
	return Base{
		ID:        id.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch updates the UpdatedAt timestamp.
func (b *Base) Touch() {
	b.UpdatedAt = time.Now().UTC()
}

// BelongsTo reports whether the record is owned by g.
func (b *Base) BelongsTo(g tenant.GarageID) bool {
	return b.GarageID == g.UUID()
}

// AssignTo stamps the owning garage.
func (b *Base) AssignTo(g tenant.GarageID) {
	b.GarageID = g.UUID()
}
