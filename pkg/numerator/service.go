// Package numerator provides the per-garage service-order number sequence.
// The counter lives in sys_order_sequences and is bumped with UPSERT ... RETURNING
// inside the caller's transaction.
package numerator

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"oficina/internal/core/id"
)

// Querier interface for database operations.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// QuerierFunc resolves the querier for a call, usually the open transaction.
type QuerierFunc func(ctx context.Context) Querier

// Service provides order numbering functionality.
type Service struct {
	querier QuerierFunc
}

// New creates a numerator service with a static querier.
// Use for tools and testing scenarios.
func New(querier Querier) *Service {
	return &Service{querier: func(context.Context) Querier { return querier }}
}

// NewWithQuerierFunc creates a numerator service that resolves its querier per call.
func NewWithQuerierFunc(fn QuerierFunc) *Service {
	return &Service{querier: fn}
}

// Next bumps the garage counter and returns the formatted number.
func (s *Service) Next(ctx context.Context, garageID id.ID) (string, error) {
	if s == nil || s.querier == nil {
		return "", fmt.Errorf("numerator service is not initialized")
	}

	var num int64
	err := s.querier(ctx).QueryRow(ctx, `
		INSERT INTO sys_order_sequences (garage_id, current_val)
		VALUES ($1, 1)
		ON CONFLICT (garage_id) DO UPDATE SET current_val = sys_order_sequences.current_val + 1
		RETURNING current_val
	`, garageID).Scan(&num)
	if err != nil {
		return "", fmt.Errorf("next order number: %w", err)
	}

	return Format(num), nil
}

// SetLast moves the garage counter so the next number follows last.
// Used when importing a garage that already issued numbers elsewhere.
func (s *Service) SetLast(ctx context.Context, garageID id.ID, last string) error {
	n, err := Parse(last)
	if err != nil {
		return err
	}

	var result int64
	err = s.querier(ctx).QueryRow(ctx, `
		INSERT INTO sys_order_sequences (garage_id, current_val)
		VALUES ($1, $2)
		ON CONFLICT (garage_id) DO UPDATE SET current_val = GREATEST(sys_order_sequences.current_val, $2)
		RETURNING current_val
	`, garageID, n).Scan(&result)
	if err != nil {
		return fmt.Errorf("set last order number: %w", err)
	}
	return nil
}
