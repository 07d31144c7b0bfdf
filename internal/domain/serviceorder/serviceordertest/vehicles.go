package serviceordertest

import (
	"context"
	"errors"
	"sync"

	"oficina/internal/core/apperror"
	"oficina/internal/core/id"
	"oficina/internal/core/tenant"
	"oficina/internal/domain/serviceorder"
)

var errNoTransaction = errors.New("row lock requires a transaction")

// Vehicles is an in-memory serviceorder.VehicleLookup.
type Vehicles struct {
	mu       sync.Mutex
	vehicles map[id.ID]vehicle
}

type vehicle struct {
	garage id.ID
	serviceorder.Vehicle
}

var _ serviceorder.VehicleLookup = (*Vehicles)(nil)

// NewVehicles creates an empty lookup.
func NewVehicles() *Vehicles {
	return &Vehicles{vehicles: make(map[id.ID]vehicle)}
}

// Add registers a vehicle of garage g and returns its ID.
func (v *Vehicles) Add(g tenant.GarageID, plate string, clientID *id.ID) id.ID {
	v.mu.Lock()
	defer v.mu.Unlock()
	vid := id.New()
	v.vehicles[vid] = vehicle{
		garage:  g.UUID(),
		Vehicle: serviceorder.Vehicle{ID: vid, ClientID: clientID, Plate: plate},
	}
	return vid
}

// FindVehicle implements serviceorder.VehicleLookup.
func (v *Vehicles) FindVehicle(ctx context.Context, g tenant.GarageID, vehicleID id.ID) (*serviceorder.Vehicle, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	found, ok := v.vehicles[vehicleID]
	if !ok || found.garage != g.UUID() {
		return nil, apperror.NewNotFound("vehicle", vehicleID)
	}
	out := found.Vehicle
	return &out, nil
}
