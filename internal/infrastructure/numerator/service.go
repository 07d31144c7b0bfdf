// Package numerator wires the PostgreSQL order sequence into the domain.
// It implements core/numerator.Generator.
package numerator

import (
	"context"

	corenumerator "oficina/internal/core/numerator"
	"oficina/internal/core/tenant"
	"oficina/internal/infrastructure/storage/postgres"
	pkgnumerator "oficina/pkg/numerator"
)

// Service numbers service orders inside the caller's transaction.
type Service struct {
	seq *pkgnumerator.Service
}

// Ensure compile-time interface compliance.
var _ corenumerator.Generator = (*Service)(nil)

// New creates a generator that runs on the transaction carried by ctx,
// or on the pool when there is none.
func New(txManager *postgres.TxManager) *Service {
	return &Service{
		seq: pkgnumerator.NewWithQuerierFunc(func(ctx context.Context) pkgnumerator.Querier {
			return txManager.GetQuerier(ctx)
		}),
	}
}

// Next implements corenumerator.Generator.
func (s *Service) Next(ctx context.Context, g tenant.GarageID) (string, error) {
	return s.seq.Next(ctx, g.UUID())
}

// SetLast moves the sequence of g past an imported number.
func (s *Service) SetLast(ctx context.Context, g tenant.GarageID, last string) error {
	return s.seq.SetLast(ctx, g.UUID(), last)
}
