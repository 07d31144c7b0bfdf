package numerator

import (
	"context"
	"sync"

	"oficina/internal/core/tenant"
	pkgnum "oficina/pkg/numerator"
)

// MockGenerator is a test implementation of Generator.
// Without NextFunc it counts per garage in memory and formats with the real scheme.
type MockGenerator struct {
	NextFunc func(ctx context.Context, g tenant.GarageID) (string, error)

	mu       sync.Mutex
	counters map[tenant.GarageID]int64
}

// Next implements Generator.
func (m *MockGenerator) Next(ctx context.Context, g tenant.GarageID) (string, error) {
	if m.NextFunc != nil {
		return m.NextFunc(ctx, g)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = make(map[tenant.GarageID]int64)
	}
	m.counters[g]++
	return pkgnum.Format(m.counters[g]), nil
}

// Ensure compile-time interface compliance.
var _ Generator = (*MockGenerator)(nil)
