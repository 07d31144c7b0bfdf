// Package serviceorder_repo stores service orders and looks up vehicles in PostgreSQL.
package serviceorder_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"oficina/internal/core/apperror"
	"oficina/internal/core/id"
	"oficina/internal/core/tenant"
	"oficina/internal/domain"
	"oficina/internal/domain/serviceorder"
	"oficina/internal/infrastructure/storage/postgres"
)

const ordersTable = "service_orders"

var orderColumns = postgres.ExtractDBColumns[orderRow]()

// Store implements serviceorder.Store.
type Store struct {
	txManager *postgres.TxManager
}

var _ serviceorder.Store = (*Store)(nil)

// NewStore creates the service-order store.
func NewStore(txManager *postgres.TxManager) *Store {
	return &Store{txManager: txManager}
}

// Orders implements serviceorder.Store.
func (s *Store) Orders(g tenant.GarageID) serviceorder.Repository {
	return &OrderRepo{
		base: postgres.NewScopedRepo[orderRow](s.txManager, ordersTable, "service order", orderColumns, g, "opening_date DESC, id DESC"),
	}
}

// FindByApprovalTokenHash is the one query not filtered by garage: the
// token hash is unique across all orders.
func (s *Store) FindByApprovalTokenHash(ctx context.Context, tokenHash string) (*serviceorder.ServiceOrder, tenant.GarageID, error) {
	sql, args, err := postgres.Builder().
		Select(orderColumns...).
		From(ordersTable).
		Where(squirrel.Eq{"approval_token_hash": tokenHash}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, tenant.GarageID{}, fmt.Errorf("build query: %w", err)
	}

	var row orderRow
	if err := pgxscan.Get(ctx, s.txManager.GetQuerier(ctx), &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, tenant.GarageID{}, apperror.NewNotFound("service order", "approval token")
		}
		return nil, tenant.GarageID{}, fmt.Errorf("find by approval token: %w", err)
	}

	g, err := tenant.NewGarageID(row.GarageID)
	if err != nil {
		return nil, tenant.GarageID{}, fmt.Errorf("order %s has no garage: %w", row.ID, err)
	}
	return row.toDomain(), g, nil
}

// OrderRepo is the garage-bound service_orders table.
type OrderRepo struct {
	base *postgres.ScopedRepo[orderRow]
}

// Create inserts an order. Order numbers are unique per garage.
func (r *OrderRepo) Create(ctx context.Context, o *serviceorder.ServiceOrder) error {
	o.GarageID = r.base.GarageID()
	if err := r.base.Insert(ctx, toRow(o)); err != nil {
		if postgres.IsUniqueViolation(err) {
			return apperror.NewDuplicate("service order", "order number", o.OrderNumber).WithCause(err)
		}
		return err
	}
	return nil
}

// Update saves the whole aggregate, approval columns included.
func (r *OrderRepo) Update(ctx context.Context, o *serviceorder.ServiceOrder) error {
	return r.base.UpdateByID(ctx, o.ID, toRow(o))
}

// Delete removes an order.
func (r *OrderRepo) Delete(ctx context.Context, orderID id.ID) error {
	return r.base.DeleteByID(ctx, orderID)
}

// GetByID retrieves one order.
func (r *OrderRepo) GetByID(ctx context.Context, orderID id.ID) (*serviceorder.ServiceOrder, error) {
	row, err := r.base.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// GetByIDForUpdate retrieves one order and locks its row.
func (r *OrderRepo) GetByIDForUpdate(ctx context.Context, orderID id.ID) (*serviceorder.ServiceOrder, error) {
	row, err := r.base.GetForUpdate(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

// List pages orders by opening date.
func (r *OrderRepo) List(ctx context.Context, filter serviceorder.ListFilter) (domain.ListResult[*serviceorder.ServiceOrder], error) {
	q := r.base.Select()
	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": string(*filter.Status)})
	}
	if filter.OpenedFrom != nil {
		q = q.Where(squirrel.GtOrEq{"opening_date": *filter.OpenedFrom})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"order_number": pattern},
			squirrel.ILike{"reported_problem": pattern},
		})
	}

	lf := filter.ListFilter
	if lf.OrderBy == "" && filter.Sort == serviceorder.SortOldest {
		lf.OrderBy = "opening_date"
	}

	rows, err := r.base.List(ctx, q, lf)
	if err != nil {
		return domain.ListResult[*serviceorder.ServiceOrder]{}, err
	}
	out := domain.ListResult[*serviceorder.ServiceOrder]{
		Items:      make([]*serviceorder.ServiceOrder, 0, len(rows.Items)),
		TotalCount: rows.TotalCount,
		Limit:      rows.Limit,
		Offset:     rows.Offset,
	}
	for _, row := range rows.Items {
		out.Items = append(out.Items, row.toDomain())
	}
	return out, nil
}

// ListByVehicle returns every order of a vehicle, newest first.
func (r *OrderRepo) ListByVehicle(ctx context.Context, vehicleID id.ID) ([]*serviceorder.ServiceOrder, error) {
	rows, err := r.base.FindAll(ctx, r.base.Select().
		Where(squirrel.Eq{"vehicle_id": vehicleID}).
		OrderBy("opening_date DESC", "id DESC"))
	if err != nil {
		return nil, err
	}
	out := make([]*serviceorder.ServiceOrder, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// SaveApproval replaces the approval columns as a whole.
func (r *OrderRepo) SaveApproval(ctx context.Context, orderID id.ID, approval *serviceorder.BudgetApproval) error {
	var row orderRow
	setApproval(&row, approval)
	return r.base.Set(ctx, orderID, map[string]any{
		"approval_token_hash":       row.ApprovalTokenHash,
		"approval_created_at":       row.ApprovalCreatedAt,
		"approval_expires_at":       row.ApprovalExpiresAt,
		"approval_used":             row.ApprovalUsed,
		"approval_used_at":          row.ApprovalUsedAt,
		"approval_decision":         row.ApprovalDecision,
		"approval_rejection_reason": row.ApprovalRejectionReason,
		"updated_at":                time.Now().UTC(),
	})
}

// ConsumeApproval is a compare-and-set on (token hash, unused).
func (r *OrderRepo) ConsumeApproval(ctx context.Context, orderID id.ID, tokenHash, decision string, reason *string, at time.Time) (bool, error) {
	sql, args, err := postgres.Builder().
		Update(ordersTable).
		Set("approval_used", true).
		Set("approval_used_at", at).
		Set("approval_decision", decision).
		Set("approval_rejection_reason", reason).
		Where(squirrel.Eq{
			"id":                  orderID,
			"garage_id":           r.base.GarageID(),
			"approval_token_hash": tokenHash,
			"approval_used":       false,
		}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build consume approval: %w", err)
	}

	tag, err := r.base.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("consume approval: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
