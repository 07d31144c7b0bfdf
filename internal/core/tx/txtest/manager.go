// Package txtest provides an in-memory tx.Manager for domain tests.
//
// Transactions are serialized by one mutex, which gives the in-memory stores
// serializable semantics. Stores registered as Snapshotters are rolled back
// when fn returns an error.
package txtest

import (
	"context"
	"sync"
	"sync/atomic"

	"oficina/internal/core/tx"
)

// Snapshotter captures store state and returns a function that restores it.
type Snapshotter interface {
	Snapshot() (restore func())
}

// Manager implements tx.Manager.
type Manager struct {
	mu     sync.Mutex
	stores []Snapshotter

	commits   atomic.Int64
	rollbacks atomic.Int64
}

var _ tx.Manager = (*Manager)(nil)

type txKey struct{}

// NewManager creates a manager rolling back the given stores.
func NewManager(stores ...Snapshotter) *Manager {
	return &Manager{stores: stores}
}

// RunInTransaction implements tx.Manager. Nested calls join the outer transaction.
func (m *Manager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if InTx(ctx) {
		return fn(ctx)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	restores := make([]func(), 0, len(m.stores))
	for _, s := range m.stores {
		restores = append(restores, s.Snapshot())
	}

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		for _, restore := range restores {
			restore()
		}
		m.rollbacks.Add(1)
		return err
	}
	m.commits.Add(1)
	return nil
}

// Commits returns the number of committed top-level transactions.
func (m *Manager) Commits() int64 { return m.commits.Load() }

// Rollbacks returns the number of rolled back top-level transactions.
func (m *Manager) Rollbacks() int64 { return m.rollbacks.Load() }

// InTx reports whether ctx carries a transaction opened by a Manager.
func InTx(ctx context.Context) bool {
	v, _ := ctx.Value(txKey{}).(bool)
	return v
}
