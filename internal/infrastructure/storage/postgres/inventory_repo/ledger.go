package inventory_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/shopspring/decimal"

	"oficina/internal/core/id"
	"oficina/internal/domain"
	"oficina/internal/domain/inventory"
	"oficina/internal/infrastructure/storage/postgres"
)

// LedgerRepo is the garage-bound stock movement table.
type LedgerRepo struct {
	base  *postgres.ScopedRepo[inventory.Movement]
	batch *postgres.BatchExecutor
}

// Insert appends one movement.
func (r *LedgerRepo) Insert(ctx context.Context, m *inventory.Movement) error {
	m.GarageID = r.base.GarageID()
	return r.base.Insert(ctx, m)
}

// InsertBatch appends movements in one round-trip inside the current
// transaction, falling back to single inserts outside one.
func (r *LedgerRepo) InsertBatch(ctx context.Context, ms []*inventory.Movement) error {
	if len(ms) == 0 {
		return nil
	}
	if !r.base.InTx(ctx) {
		for _, m := range ms {
			if err := r.Insert(ctx, m); err != nil {
				return err
			}
		}
		return nil
	}

	queries := make([]postgres.BatchQuery, 0, len(ms))
	for _, m := range ms {
		m.GarageID = r.base.GarageID()
		q, err := postgres.InsertQuery(movementsTable, postgres.PickColumns(postgres.StructToMap(m), movementColumns))
		if err != nil {
			return err
		}
		queries = append(queries, q)
	}
	if err := r.batch.ExecuteBatch(ctx, queries); err != nil {
		return fmt.Errorf("insert stock movements: %w", err)
	}
	return nil
}

// Update rewrites a movement row.
func (r *LedgerRepo) Update(ctx context.Context, m *inventory.Movement) error {
	return r.base.UpdateByID(ctx, m.ID, m)
}

// Delete removes a movement row.
func (r *LedgerRepo) Delete(ctx context.Context, movementID id.ID) error {
	return r.base.DeleteByID(ctx, movementID)
}

// GetByID retrieves one movement.
func (r *LedgerRepo) GetByID(ctx context.Context, movementID id.ID) (*inventory.Movement, error) {
	return r.base.GetByID(ctx, movementID)
}

// SumQuantity is the current stock of one part.
func (r *LedgerRepo) SumQuantity(ctx context.Context, partID id.ID) (int, error) {
	sums, err := r.SumQuantities(ctx, []id.ID{partID})
	if err != nil {
		return 0, err
	}
	return sums[partID], nil
}

// SumQuantities aggregates the ledger per part.
func (r *LedgerRepo) SumQuantities(ctx context.Context, partIDs []id.ID) (map[id.ID]int, error) {
	out := make(map[id.ID]int, len(partIDs))
	if len(partIDs) == 0 {
		return out, nil
	}
	for _, pid := range partIDs {
		out[pid] = 0
	}

	sql, args, err := postgres.Builder().
		Select("part_id", "COALESCE(SUM(quantity), 0)").
		From(movementsTable).
		Where(squirrel.Eq{"garage_id": r.base.GarageID(), "part_id": partIDs}).
		GroupBy("part_id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sum query: %w", err)
	}

	rows, err := r.base.Querier(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("sum stock: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			pid id.ID
			qty int64
		)
		if err := rows.Scan(&pid, &qty); err != nil {
			return nil, fmt.Errorf("scan stock sum: %w", err)
		}
		out[pid] = int(qty)
	}
	return out, rows.Err()
}

// EntryCostTotals returns Σ(cost·qty) and Σqty over positive rows.
func (r *LedgerRepo) EntryCostTotals(ctx context.Context, partID id.ID) (decimal.Decimal, int64, error) {
	sql, args, err := postgres.Builder().
		Select("COALESCE(SUM(cost_price * quantity), 0)", "COALESCE(SUM(quantity), 0)").
		From(movementsTable).
		Where(squirrel.Eq{"garage_id": r.base.GarageID(), "part_id": partID}).
		Where(squirrel.Gt{"quantity": 0}).
		ToSql()
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("build cost query: %w", err)
	}

	var (
		total decimal.Decimal
		qty   int64
	)
	if err := r.base.Querier(ctx).QueryRow(ctx, sql, args...).Scan(&total, &qty); err != nil {
		return decimal.Zero, 0, fmt.Errorf("entry cost totals: %w", err)
	}
	return total, qty, nil
}

// CountByPart counts ledger rows of a part.
func (r *LedgerRepo) CountByPart(ctx context.Context, partID id.ID) (int64, error) {
	sql, args, err := postgres.Builder().
		Select("COUNT(*)").
		From(movementsTable).
		Where(squirrel.Eq{"garage_id": r.base.GarageID(), "part_id": partID}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}
	var n int64
	if err := r.base.Querier(ctx).QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count movements: %w", err)
	}
	return n, nil
}

// List pages the ledger, newest first by default.
func (r *LedgerRepo) List(ctx context.Context, filter inventory.MovementFilter) (domain.ListResult[*inventory.Movement], error) {
	q := r.base.Select()
	if filter.PartID != nil {
		q = q.Where(squirrel.Eq{"part_id": *filter.PartID})
	}
	if filter.MovementType != nil {
		q = q.Where(squirrel.Eq{"movement_type": string(*filter.MovementType)})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"description": pattern},
			squirrel.ILike{"invoice_number": pattern},
			squirrel.ILike{"reference": pattern},
		})
	}
	return r.base.List(ctx, q, filter.ListFilter)
}
