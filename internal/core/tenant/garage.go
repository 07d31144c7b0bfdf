package tenant

import (
	"oficina/internal/core/id"
)

// GarageID is the scoping capability handed to repositories.
// The zero value is invalid; obtain one from NewGarageID, Garage.Scope or RequireGarage.
type GarageID struct {
	value id.ID
}

// NewGarageID wraps a non-nil garage UUID.
func NewGarageID(raw id.ID) (GarageID, error) {
	if id.IsNil(raw) {
		return GarageID{}, ErrNoGarage
	}
	return GarageID{value: raw}, nil
}

// ParseGarageID parses a garage UUID string.
func ParseGarageID(s string) (GarageID, error) {
	raw, err := id.ParseRequired(s)
	if err != nil {
		return GarageID{}, ErrNoGarage
	}
	return GarageID{value: raw}, nil
}

// UUID returns the underlying identifier for SQL parameters.
func (g GarageID) UUID() id.ID {
	return g.value
}

// IsZero reports whether g was never initialised.
func (g GarageID) IsZero() bool {
	return id.IsNil(g.value)
}

func (g GarageID) String() string {
	return g.value.String()
}
