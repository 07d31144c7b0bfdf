package inventory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"oficina/internal/core/id"
	"oficina/internal/core/types"
)

// Ledger answers stock questions by summing movements. It performs no
// sufficiency checks; callers lock the part rows and decide.
type Ledger struct {
	repo LedgerRepository
}

// NewLedger wraps a garage-bound ledger repository.
func NewLedger(repo LedgerRepository) *Ledger {
	return &Ledger{repo: repo}
}

// CurrentStock returns Σ quantity for the part.
func (l *Ledger) CurrentStock(ctx context.Context, partID id.ID) (int, error) {
	qty, err := l.repo.SumQuantity(ctx, partID)
	if err != nil {
		return 0, fmt.Errorf("current stock: %w", err)
	}
	return qty, nil
}

// AverageCost returns the quantity-weighted cost over entries, or zero without entries.
func (l *Ledger) AverageCost(ctx context.Context, partID id.ID) (decimal.Decimal, error) {
	totalCost, totalQty, err := l.repo.EntryCostTotals(ctx, partID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("average cost: %w", err)
	}
	return types.WeightedAverage(totalCost, totalQty), nil
}

// Record appends one row.
func (l *Ledger) Record(ctx context.Context, m *Movement) error {
	if err := m.Validate(ctx); err != nil {
		return err
	}
	if err := l.repo.Insert(ctx, m); err != nil {
		return fmt.Errorf("record movement: %w", err)
	}
	return nil
}

// RecordBatch appends rows in one round trip.
func (l *Ledger) RecordBatch(ctx context.Context, ms []*Movement) error {
	for _, m := range ms {
		if err := m.Validate(ctx); err != nil {
			return err
		}
	}
	if err := l.repo.InsertBatch(ctx, ms); err != nil {
		return fmt.Errorf("record movements: %w", err)
	}
	return nil
}
