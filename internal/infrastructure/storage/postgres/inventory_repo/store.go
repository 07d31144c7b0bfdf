// Package inventory_repo stores parts and the stock movement ledger in PostgreSQL.
package inventory_repo

import (
	"oficina/internal/core/tenant"
	"oficina/internal/domain/inventory"
	"oficina/internal/infrastructure/storage/postgres"
)

const (
	partsTable     = "parts"
	movementsTable = "stock_movements"
)

var (
	partColumns     = postgres.ExtractDBColumns[inventory.Part]()
	movementColumns = postgres.ExtractDBColumns[inventory.Movement]()
)

// Store implements inventory.Store.
type Store struct {
	txManager *postgres.TxManager
	batch     *postgres.BatchExecutor
}

var _ inventory.Store = (*Store)(nil)

// NewStore creates the inventory store.
func NewStore(txManager *postgres.TxManager) *Store {
	return &Store{
		txManager: txManager,
		batch:     postgres.NewBatchExecutor(txManager),
	}
}

// Parts implements inventory.Store.
func (s *Store) Parts(g tenant.GarageID) inventory.PartRepository {
	return &PartRepo{
		base: postgres.NewScopedRepo[inventory.Part](s.txManager, partsTable, "part", partColumns, g, "name ASC, id ASC"),
	}
}

// Ledger implements inventory.Store.
func (s *Store) Ledger(g tenant.GarageID) inventory.LedgerRepository {
	return &LedgerRepo{
		base:  postgres.NewScopedRepo[inventory.Movement](s.txManager, movementsTable, "stock movement", movementColumns, g, "created_at DESC, id DESC"),
		batch: s.batch,
	}
}
