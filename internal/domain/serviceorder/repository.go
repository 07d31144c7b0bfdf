package serviceorder

import (
	"context"
	"time"

	"oficina/internal/core/id"
	"oficina/internal/core/tenant"
	"oficina/internal/domain"
	"oficina/internal/domain/inventory"
)

// Sort orders for listings.
const (
	SortNewest = "newest"
	SortOldest = "oldest"
)

// Periods for listings, relative to the opening date.
const (
	PeriodAll   = "all"
	PeriodToday = "today"
	PeriodWeek  = "week"
	PeriodMonth = "month"
)

// ListFilter narrows order listings.
type ListFilter struct {
	domain.ListFilter
	Status     *Status
	Sort       string
	Period     string
	OpenedFrom *time.Time
}

// Repository is bound to one garage.
type Repository interface {
	Create(ctx context.Context, o *ServiceOrder) error

	// Update saves the whole aggregate.
	Update(ctx context.Context, o *ServiceOrder) error

	Delete(ctx context.Context, orderID id.ID) error
	GetByID(ctx context.Context, orderID id.ID) (*ServiceOrder, error)

	// GetByIDForUpdate locks the order row until the transaction ends.
	GetByIDForUpdate(ctx context.Context, orderID id.ID) (*ServiceOrder, error)

	List(ctx context.Context, filter ListFilter) (domain.ListResult[*ServiceOrder], error)
	ListByVehicle(ctx context.Context, vehicleID id.ID) ([]*ServiceOrder, error)

	// SaveApproval replaces the approval sub-object as a whole.
	SaveApproval(ctx context.Context, orderID id.ID, approval *BudgetApproval) error

	// ConsumeApproval marks the approval used only if it is still unused and
	// still carries tokenHash. Returns false when another request won.
	ConsumeApproval(ctx context.Context, orderID id.ID, tokenHash, decision string, reason *string, at time.Time) (bool, error)
}

// Store hands out garage-bound repositories. FindByApprovalTokenHash is the
// only unscoped lookup: the token is the credential of the public link.
type Store interface {
	Orders(g tenant.GarageID) Repository
	FindByApprovalTokenHash(ctx context.Context, tokenHash string) (*ServiceOrder, tenant.GarageID, error)
}

// Vehicle is what the order needs to know about a vehicle.
type Vehicle struct {
	ID       id.ID  `db:"id"`
	ClientID *id.ID `db:"client_id"`
	Plate    string `db:"plate"`
	Model    string `db:"model"`
}

// VehicleLookup checks that a vehicle belongs to the garage.
type VehicleLookup interface {
	FindVehicle(ctx context.Context, g tenant.GarageID, vehicleID id.ID) (*Vehicle, error)
}

// Inventory is the stock side of status changes.
type Inventory interface {
	Consume(ctx context.Context, c inventory.Consumption) error
	Restore(ctx context.Context, c inventory.Consumption) error
}
