package serviceorder_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"oficina/internal/core/id"
	"oficina/internal/core/tenant"
	"oficina/internal/domain/serviceorder"
	"oficina/internal/infrastructure/storage/postgres"
)

const vehiclesTable = "vehicles"

// VehicleLookup implements serviceorder.VehicleLookup over the vehicles table.
type VehicleLookup struct {
	txManager *postgres.TxManager
}

var _ serviceorder.VehicleLookup = (*VehicleLookup)(nil)

// NewVehicleLookup creates the lookup.
func NewVehicleLookup(txManager *postgres.TxManager) *VehicleLookup {
	return &VehicleLookup{txManager: txManager}
}

// FindVehicle returns NotFound unless the vehicle belongs to g.
func (l *VehicleLookup) FindVehicle(ctx context.Context, g tenant.GarageID, vehicleID id.ID) (*serviceorder.Vehicle, error) {
	repo := postgres.NewScopedRepo[serviceorder.Vehicle](l.txManager, vehiclesTable, "vehicle",
		[]string{"id", "client_id", "plate", "model"}, g, "plate ASC")
	return repo.FindOne(ctx, repo.Select().Where(squirrel.Eq{"id": vehicleID}).Limit(1), vehicleID.String())
}

// CreateVehicle registers a vehicle; used by the seed command.
func (l *VehicleLookup) CreateVehicle(ctx context.Context, g tenant.GarageID, v *serviceorder.Vehicle) error {
	repo := postgres.NewScopedRepo[serviceorder.Vehicle](l.txManager, vehiclesTable, "vehicle",
		[]string{"id", "client_id", "plate", "model"}, g, "plate ASC")
	return repo.Insert(ctx, v)
}
