// Package tenant models the garage (shop account) that owns and scopes all data.
// Every row in the shared database carries a garage_id; repositories receive a
// GarageID capability and never accept a raw string or UUID for scoping.
package tenant

import (
	"time"

	"oficina/internal/core/id"
)

// Status represents garage lifecycle state.
type Status string

const (
	// StatusActive - garage can accept requests
	StatusActive Status = "active"

	// StatusSuspended - garage is temporarily disabled (e.g., overdue subscription)
	StatusSuspended Status = "suspended"

	// StatusDeleted - garage is marked for deletion
	StatusDeleted Status = "deleted"
)

// GarageChangedChannel is the NOTIFY channel fired on every garages update.
// The payload is the garage id.
const GarageChangedChannel = "garage_changed"

// Garage represents a garage record.
type Garage struct {
	ID          id.ID     `db:"id"`
	Slug        string    `db:"slug"`
	DisplayName string    `db:"display_name"`
	Status      Status    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// IsActive returns true if garage can accept requests.
func (g *Garage) IsActive() bool {
	return g.Status == StatusActive
}

// Scope returns the capability for this garage.
func (g *Garage) Scope() GarageID {
	return GarageID{value: g.ID}
}
