package inventory_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"

	"oficina/internal/core/apperror"
	"oficina/internal/core/id"
	"oficina/internal/domain"
	"oficina/internal/domain/inventory"
	"oficina/internal/infrastructure/storage/postgres"
)

// PartRepo is the garage-bound part catalog.
type PartRepo struct {
	base *postgres.ScopedRepo[inventory.Part]
}

// Create inserts a part. A duplicate code within the garage is a conflict.
func (r *PartRepo) Create(ctx context.Context, p *inventory.Part) error {
	p.GarageID = r.base.GarageID()
	if err := r.base.Insert(ctx, p); err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewDuplicate("part", "code", p.Code).WithCause(err)
		}
		return err
	}
	return nil
}

// Update rewrites the part row.
func (r *PartRepo) Update(ctx context.Context, p *inventory.Part) error {
	if err := r.base.UpdateByID(ctx, p.ID, p); err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewDuplicate("part", "code", p.Code).WithCause(err)
		}
		return err
	}
	return nil
}

// Delete removes a part. The ledger foreign key rejects parts with movements.
func (r *PartRepo) Delete(ctx context.Context, partID id.ID) error {
	return r.base.DeleteByID(ctx, partID)
}

// GetByID retrieves one part.
func (r *PartRepo) GetByID(ctx context.Context, partID id.ID) (*inventory.Part, error) {
	return r.base.GetByID(ctx, partID)
}

// GetByIDs retrieves the parts found among partIDs.
func (r *PartRepo) GetByIDs(ctx context.Context, partIDs []id.ID) (map[id.ID]*inventory.Part, error) {
	if len(partIDs) == 0 {
		return map[id.ID]*inventory.Part{}, nil
	}
	parts, err := r.base.FindAll(ctx, r.base.Select().Where(squirrel.Eq{"id": partIDs}))
	if err != nil {
		return nil, err
	}
	return byID(parts), nil
}

// LockByIDs locks the part rows in ascending id order. Concurrent batches
// touching overlapping parts therefore queue instead of deadlocking.
func (r *PartRepo) LockByIDs(ctx context.Context, partIDs []id.ID) (map[id.ID]*inventory.Part, error) {
	if !r.base.InTx(ctx) {
		return nil, fmt.Errorf("LockByIDs requires transaction context")
	}
	if len(partIDs) == 0 {
		return map[id.ID]*inventory.Part{}, nil
	}
	q := r.base.Select().
		Where(squirrel.Eq{"id": id.SortUnique(partIDs)}).
		OrderBy("id ASC").
		Suffix("FOR UPDATE")
	parts, err := r.base.FindAll(ctx, q)
	if err != nil {
		return nil, err
	}
	return byID(parts), nil
}

// List pages the garage's parts.
func (r *PartRepo) List(ctx context.Context, filter inventory.PartFilter) (domain.ListResult[*inventory.Part], error) {
	q := r.base.Select()
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"code": pattern},
			squirrel.ILike{"barcode": pattern},
			squirrel.ILike{"manufacturer_code": pattern},
		})
	}
	if filter.Category != "" {
		q = q.Where(squirrel.Eq{"category": filter.Category})
	}
	if filter.ActiveOnly {
		q = q.Where(squirrel.Eq{"active": true})
	}
	return r.base.List(ctx, q, filter.ListFilter)
}

// UpdateAverageCost writes the cached average.
func (r *PartRepo) UpdateAverageCost(ctx context.Context, partID id.ID, averageCost decimal.Decimal) error {
	return r.base.Set(ctx, partID, map[string]any{
		"average_cost": averageCost,
		"updated_at":   squirrel.Expr("now()"),
	})
}

func byID(parts []*inventory.Part) map[id.ID]*inventory.Part {
	out := make(map[id.ID]*inventory.Part, len(parts))
	for _, p := range parts {
		out[p.ID] = p
	}
	return out
}
