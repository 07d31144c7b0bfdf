package inventory

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"oficina/internal/core/apperror"
	"oficina/internal/core/id"
)

// Catalog keeps the part records' cached fields consistent with the ledger.
type Catalog struct {
	parts  PartRepository
	ledger *Ledger
}

// NewCatalog binds part storage to its ledger.
func NewCatalog(parts PartRepository, ledger *Ledger) *Catalog {
	return &Catalog{parts: parts, ledger: ledger}
}

// RecomputePartCache recalculates averageCost and stores it on the part.
// Stock is never written back. Safe to call any number of times.
func (c *Catalog) RecomputePartCache(ctx context.Context, partID id.ID) (decimal.Decimal, error) {
	avg, err := c.ledger.AverageCost(ctx, partID)
	if err != nil {
		return decimal.Zero, err
	}
	if err := c.parts.UpdateAverageCost(ctx, partID, avg); err != nil {
		return decimal.Zero, fmt.Errorf("update average cost: %w", err)
	}
	return avg, nil
}

// DeletePart removes a part that has never been moved.
func (c *Catalog) DeletePart(ctx context.Context, partID id.ID) error {
	if _, err := c.parts.GetByID(ctx, partID); err != nil {
		return err
	}
	count, err := c.ledger.repo.CountByPart(ctx, partID)
	if err != nil {
		return fmt.Errorf("count movements: %w", err)
	}
	if count > 0 {
		return apperror.NewPartInUse(partID, count)
	}
	return c.parts.Delete(ctx, partID)
}
