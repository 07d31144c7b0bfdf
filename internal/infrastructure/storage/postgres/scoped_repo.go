package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"oficina/internal/core/apperror"
	"oficina/internal/core/id"
	"oficina/internal/core/tenant"
	"oficina/internal/domain"
)

// ScopedRepo provides CRUD for one garage-owned table. Every statement it
// builds is filtered by garage_id, so a repository obtained for one garage
// can never read or write another garage's rows.
type ScopedRepo[T any] struct {
	txManager    *TxManager
	tableName    string
	entityName   string
	selectCols   []string
	garageID     id.ID
	defaultOrder string
}

// NewScopedRepo binds a table to a garage. selectCols usually come from ExtractDBColumns.
func NewScopedRepo[T any](
	txManager *TxManager,
	tableName, entityName string,
	selectCols []string,
	g tenant.GarageID,
	defaultOrder string,
) *ScopedRepo[T] {
	return &ScopedRepo[T]{
		txManager:    txManager,
		tableName:    tableName,
		entityName:   entityName,
		selectCols:   selectCols,
		garageID:     g.UUID(),
		defaultOrder: defaultOrder,
	}
}

// Builder returns a new squirrel builder with PostgreSQL placeholder format.
func Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// GarageID returns the bound garage.
func (r *ScopedRepo[T]) GarageID() id.ID { return r.garageID }

// Table returns the table name.
func (r *ScopedRepo[T]) Table() string { return r.tableName }

// Querier returns the transaction in ctx or the pool.
func (r *ScopedRepo[T]) Querier(ctx context.Context) Querier {
	return r.txManager.GetQuerier(ctx)
}

// InTx reports whether ctx carries an open transaction.
func (r *ScopedRepo[T]) InTx(ctx context.Context) bool {
	return r.txManager.GetTx(ctx) != nil
}

// Select starts a garage-filtered SELECT of all columns.
func (r *ScopedRepo[T]) Select() squirrel.SelectBuilder {
	return Builder().
		Select(r.selectCols...).
		From(r.tableName).
		Where(squirrel.Eq{"garage_id": r.garageID})
}

// Insert writes the "db" tagged fields of v. garage_id is forced to the bound garage.
func (r *ScopedRepo[T]) Insert(ctx context.Context, v any) error {
	data := PickColumns(StructToMap(v), r.selectCols)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in %T", v)
	}
	data["garage_id"] = r.garageID

	sql, args, err := Builder().Insert(r.tableName).SetMap(data).ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.Querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", r.tableName, err)
	}
	return nil
}

// UpdateByID rewrites the mutable columns of v. id, garage_id and created_at never change.
func (r *ScopedRepo[T]) UpdateByID(ctx context.Context, entityID id.ID, v any) error {
	data := PickColumns(StructToMap(v), r.selectCols, "id", "garage_id", "created_at")
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in %T", v)
	}
	return r.Set(ctx, entityID, data)
}

// Set updates the given columns of one row.
func (r *ScopedRepo[T]) Set(ctx context.Context, entityID id.ID, data map[string]any) error {
	sql, args, err := Builder().
		Update(r.tableName).
		SetMap(data).
		Where(squirrel.Eq{"id": entityID, "garage_id": r.garageID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", r.tableName, err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(r.entityName, entityID.String())
	}
	return nil
}

// DeleteByID performs physical removal.
func (r *ScopedRepo[T]) DeleteByID(ctx context.Context, entityID id.ID) error {
	sql, args, err := Builder().
		Delete(r.tableName).
		Where(squirrel.Eq{"id": entityID, "garage_id": r.garageID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}

	result, err := r.Querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return apperror.NewConflict(r.entityName+" is referenced by other records").
				WithDetail("id", entityID.String()).
				WithCause(err)
		}
		return fmt.Errorf("delete %s: %w", r.tableName, err)
	}
	if result.RowsAffected() == 0 {
		return apperror.NewNotFound(r.entityName, entityID.String())
	}
	return nil
}

// GetByID retrieves one row.
func (r *ScopedRepo[T]) GetByID(ctx context.Context, entityID id.ID) (*T, error) {
	return r.FindOne(ctx, r.Select().Where(squirrel.Eq{"id": entityID}).Limit(1), entityID.String())
}

// GetForUpdate retrieves one row with a row lock.
func (r *ScopedRepo[T]) GetForUpdate(ctx context.Context, entityID id.ID) (*T, error) {
	if !r.InTx(ctx) {
		return nil, fmt.Errorf("%s: row lock requires transaction context", r.tableName)
	}
	return r.FindOne(ctx, r.Select().Where(squirrel.Eq{"id": entityID}).Suffix("FOR UPDATE"), entityID.String())
}

// FindOne runs q and scans a single row. ref names the row in NotFound errors.
func (r *ScopedRepo[T]) FindOne(ctx context.Context, q squirrel.SelectBuilder, ref string) (*T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	dst := new(T)
	if err := pgxscan.Get(ctx, r.Querier(ctx), dst, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(r.entityName, ref)
		}
		return nil, fmt.Errorf("get %s: %w", r.tableName, err)
	}
	return dst, nil
}

// FindAll runs q and scans every row.
func (r *ScopedRepo[T]) FindAll(ctx context.Context, q squirrel.SelectBuilder) ([]*T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var items []*T
	if err := pgxscan.Select(ctx, r.Querier(ctx), &items, sql, args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", r.tableName, err)
	}
	return items, nil
}

// List counts and pages q. filter.OrderBy accepts "field" or "-field" over the select columns.
func (r *ScopedRepo[T]) List(ctx context.Context, q squirrel.SelectBuilder, filter domain.ListFilter) (domain.ListResult[*T], error) {
	filter.Normalize()
	result := domain.ListResult[*T]{
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}

	countSQL, countArgs, err := Builder().Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return result, fmt.Errorf("build count query: %w", err)
	}
	if err := r.Querier(ctx).QueryRow(ctx, countSQL, countArgs...).Scan(&result.TotalCount); err != nil {
		return result, fmt.Errorf("count %s: %w", r.tableName, err)
	}

	orderBy, err := r.parseOrderBy(filter.OrderBy)
	if err != nil {
		return result, err
	}
	q = q.OrderBy(orderBy).
		Limit(uint64(filter.Limit)).
		Offset(uint64(filter.Offset))

	items, err := r.FindAll(ctx, q)
	if err != nil {
		return result, err
	}
	result.Items = items
	return result, nil
}

func (r *ScopedRepo[T]) parseOrderBy(orderBy string) (string, error) {
	if orderBy == "" {
		return r.defaultOrder, nil
	}

	direction := "ASC"
	field := orderBy
	if strings.HasPrefix(orderBy, "-") {
		direction = "DESC"
		field = strings.TrimPrefix(orderBy, "-")
	} else if strings.HasPrefix(orderBy, "+") {
		field = strings.TrimPrefix(orderBy, "+")
	}
	field = strings.TrimSpace(field)

	for _, col := range r.selectCols {
		if col == field {
			return field + " " + direction + ", id " + direction, nil
		}
	}
	return "", apperror.NewValidation("invalid orderBy").WithDetail("orderBy", orderBy)
}
