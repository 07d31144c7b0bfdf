package inventory

import (
	"context"

	"github.com/shopspring/decimal"

	"oficina/internal/core/id"
	"oficina/internal/core/tenant"
	"oficina/internal/domain"
)

// PartFilter narrows part listings.
type PartFilter struct {
	domain.ListFilter
	Category   string
	ActiveOnly bool
}

// MovementFilter narrows ledger listings.
type MovementFilter struct {
	domain.ListFilter
	PartID       *id.ID
	MovementType *MovementType
}

// PartRepository is bound to one garage; it cannot see other garages' parts.
type PartRepository interface {
	Create(ctx context.Context, p *Part) error
	Update(ctx context.Context, p *Part) error
	Delete(ctx context.Context, partID id.ID) error
	GetByID(ctx context.Context, partID id.ID) (*Part, error)

	// GetByIDs returns the parts found; missing ids are simply absent.
	GetByIDs(ctx context.Context, partIDs []id.ID) (map[id.ID]*Part, error)

	// LockByIDs takes a row lock on every part in ascending id order and
	// returns the locked rows. Must run inside a transaction.
	LockByIDs(ctx context.Context, partIDs []id.ID) (map[id.ID]*Part, error)

	List(ctx context.Context, filter PartFilter) (domain.ListResult[*Part], error)

	// UpdateAverageCost writes the ledger-derived average back to the part.
	UpdateAverageCost(ctx context.Context, partID id.ID, averageCost decimal.Decimal) error
}

// LedgerRepository is the garage-bound view of the stock movement table.
type LedgerRepository interface {
	Insert(ctx context.Context, m *Movement) error
	InsertBatch(ctx context.Context, ms []*Movement) error
	Update(ctx context.Context, m *Movement) error
	Delete(ctx context.Context, movementID id.ID) error
	GetByID(ctx context.Context, movementID id.ID) (*Movement, error)

	// SumQuantity is the current stock of one part.
	SumQuantity(ctx context.Context, partID id.ID) (int, error)

	// SumQuantities returns current stock per part; parts without rows map to 0.
	SumQuantities(ctx context.Context, partIDs []id.ID) (map[id.ID]int, error)

	// EntryCostTotals returns Σ(cost·qty) and Σqty over rows with qty > 0.
	EntryCostTotals(ctx context.Context, partID id.ID) (decimal.Decimal, int64, error)

	CountByPart(ctx context.Context, partID id.ID) (int64, error)
	List(ctx context.Context, filter MovementFilter) (domain.ListResult[*Movement], error)
}

// Store hands out repositories scoped to a garage.
type Store interface {
	Parts(g tenant.GarageID) PartRepository
	Ledger(g tenant.GarageID) LedgerRepository
}
