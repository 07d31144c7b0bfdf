// Package inventorytest provides an in-memory inventory.Store for tests.
package inventorytest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"oficina/internal/core/apperror"
	"oficina/internal/core/id"
	"oficina/internal/core/tenant"
	"oficina/internal/core/tx/txtest"
	"oficina/internal/domain"
	"oficina/internal/domain/inventory"
)

// ErrNoTransaction is returned by LockByIDs outside a transaction.
var ErrNoTransaction = errors.New("row lock requires a transaction")

// Store keeps parts and movements of every garage in memory.
type Store struct {
	mu        sync.Mutex
	parts     map[id.ID]inventory.Part
	movements []inventory.Movement

	// FailInsert makes the next batch insert fail, for rollback tests.
	FailInsert error
}

var (
	_ inventory.Store    = (*Store)(nil)
	_ txtest.Snapshotter = (*Store)(nil)
)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{parts: make(map[id.ID]inventory.Part)}
}

// Parts implements inventory.Store.
func (s *Store) Parts(g tenant.GarageID) inventory.PartRepository {
	return &partRepo{store: s, garage: g.UUID()}
}

// Ledger implements inventory.Store.
func (s *Store) Ledger(g tenant.GarageID) inventory.LedgerRepository {
	return &ledgerRepo{store: s, garage: g.UUID()}
}

// Snapshot implements txtest.Snapshotter.
func (s *Store) Snapshot() func() {
	s.mu.Lock()
	parts := make(map[id.ID]inventory.Part, len(s.parts))
	for k, v := range s.parts {
		parts[k] = v
	}
	movements := append([]inventory.Movement(nil), s.movements...)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		s.parts = parts
		s.movements = movements
		s.mu.Unlock()
	}
}

// Movements returns a copy of every row, in insertion order.
func (s *Store) Movements() []inventory.Movement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]inventory.Movement(nil), s.movements...)
}

// --- parts ---

type partRepo struct {
	store  *Store
	garage id.ID
}

func (r *partRepo) Create(ctx context.Context, p *inventory.Part) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.parts {
		if existing.GarageID == r.garage && existing.Code == p.Code {
			return apperror.NewDuplicate("part", "code", p.Code)
		}
	}
	p.GarageID = r.garage
	r.store.parts[p.ID] = *p
	return nil
}

func (r *partRepo) Update(ctx context.Context, p *inventory.Part) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	existing, ok := r.store.parts[p.ID]
	if !ok || existing.GarageID != r.garage {
		return apperror.NewNotFound("part", p.ID)
	}
	p.GarageID = r.garage
	r.store.parts[p.ID] = *p
	return nil
}

func (r *partRepo) Delete(ctx context.Context, partID id.ID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	existing, ok := r.store.parts[partID]
	if !ok || existing.GarageID != r.garage {
		return apperror.NewNotFound("part", partID)
	}
	delete(r.store.parts, partID)
	return nil
}

func (r *partRepo) GetByID(ctx context.Context, partID id.ID) (*inventory.Part, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.parts[partID]
	if !ok || p.GarageID != r.garage {
		return nil, apperror.NewNotFound("part", partID)
	}
	return &p, nil
}

func (r *partRepo) GetByIDs(ctx context.Context, partIDs []id.ID) (map[id.ID]*inventory.Part, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make(map[id.ID]*inventory.Part, len(partIDs))
	for _, pid := range partIDs {
		if p, ok := r.store.parts[pid]; ok && p.GarageID == r.garage {
			cp := p
			out[pid] = &cp
		}
	}
	return out, nil
}

func (r *partRepo) LockByIDs(ctx context.Context, partIDs []id.ID) (map[id.ID]*inventory.Part, error) {
	if !txtest.InTx(ctx) {
		return nil, ErrNoTransaction
	}
	return r.GetByIDs(ctx, partIDs)
}

func (r *partRepo) List(ctx context.Context, filter inventory.PartFilter) (domain.ListResult[*inventory.Part], error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var all []*inventory.Part
	search := strings.ToLower(filter.Search)
	for _, p := range r.store.parts {
		if p.GarageID != r.garage {
			continue
		}
		if filter.ActiveOnly && !p.Active {
			continue
		}
		if filter.Category != "" && (p.Category == nil || *p.Category != filter.Category) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) &&
			!strings.Contains(strings.ToLower(p.Code), search) {
			continue
		}
		cp := p
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return paginate(all, filter.ListFilter), nil
}

func (r *partRepo) UpdateAverageCost(ctx context.Context, partID id.ID, averageCost decimal.Decimal) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	p, ok := r.store.parts[partID]
	if !ok || p.GarageID != r.garage {
		return apperror.NewNotFound("part", partID)
	}
	p.AverageCost = averageCost
	r.store.parts[partID] = p
	return nil
}

// --- ledger ---

type ledgerRepo struct {
	store  *Store
	garage id.ID
}

func (r *ledgerRepo) Insert(ctx context.Context, m *inventory.Movement) error {
	return r.InsertBatch(ctx, []*inventory.Movement{m})
}

func (r *ledgerRepo) InsertBatch(ctx context.Context, ms []*inventory.Movement) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if err := r.store.FailInsert; err != nil {
		r.store.FailInsert = nil
		return err
	}
	for _, m := range ms {
		m.GarageID = r.garage
		r.store.movements = append(r.store.movements, *m)
	}
	return nil
}

func (r *ledgerRepo) Update(ctx context.Context, m *inventory.Movement) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i := range r.store.movements {
		if r.store.movements[i].ID == m.ID && r.store.movements[i].GarageID == r.garage {
			m.GarageID = r.garage
			r.store.movements[i] = *m
			return nil
		}
	}
	return apperror.NewNotFound("stock movement", m.ID)
}

func (r *ledgerRepo) Delete(ctx context.Context, movementID id.ID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for i := range r.store.movements {
		if r.store.movements[i].ID == movementID && r.store.movements[i].GarageID == r.garage {
			r.store.movements = append(r.store.movements[:i], r.store.movements[i+1:]...)
			return nil
		}
	}
	return apperror.NewNotFound("stock movement", movementID)
}

func (r *ledgerRepo) GetByID(ctx context.Context, movementID id.ID) (*inventory.Movement, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, m := range r.store.movements {
		if m.ID == movementID && m.GarageID == r.garage {
			cp := m
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("stock movement", movementID)
}

func (r *ledgerRepo) SumQuantity(ctx context.Context, partID id.ID) (int, error) {
	sums, err := r.SumQuantities(ctx, []id.ID{partID})
	return sums[partID], err
}

func (r *ledgerRepo) SumQuantities(ctx context.Context, partIDs []id.ID) (map[id.ID]int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	out := make(map[id.ID]int, len(partIDs))
	for _, pid := range partIDs {
		out[pid] = 0
	}
	for _, m := range r.store.movements {
		if m.GarageID != r.garage {
			continue
		}
		if _, ok := out[m.PartID]; ok {
			out[m.PartID] += m.Quantity
		}
	}
	return out, nil
}

func (r *ledgerRepo) EntryCostTotals(ctx context.Context, partID id.ID) (decimal.Decimal, int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	total := decimal.Zero
	var qty int64
	for _, m := range r.store.movements {
		if m.GarageID != r.garage || m.PartID != partID || m.Quantity <= 0 {
			continue
		}
		total = total.Add(m.CostPrice.Mul(decimal.NewFromInt(int64(m.Quantity))))
		qty += int64(m.Quantity)
	}
	return total, qty, nil
}

func (r *ledgerRepo) CountByPart(ctx context.Context, partID id.ID) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for _, m := range r.store.movements {
		if m.GarageID == r.garage && m.PartID == partID {
			n++
		}
	}
	return n, nil
}

func (r *ledgerRepo) List(ctx context.Context, filter inventory.MovementFilter) (domain.ListResult[*inventory.Movement], error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var all []*inventory.Movement
	for i := len(r.store.movements) - 1; i >= 0; i-- {
		m := r.store.movements[i]
		if m.GarageID != r.garage {
			continue
		}
		if filter.PartID != nil && m.PartID != *filter.PartID {
			continue
		}
		if filter.MovementType != nil && m.MovementType != *filter.MovementType {
			continue
		}
		cp := m
		all = append(all, &cp)
	}
	return paginate(all, filter.ListFilter), nil
}

func paginate[T any](all []T, f domain.ListFilter) domain.ListResult[T] {
	f.Normalize()
	total := len(all)
	start := f.Offset
	if start > total {
		start = total
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	return domain.ListResult[T]{
		Items:      all[start:end],
		TotalCount: int64(total),
		Limit:      f.Limit,
		Offset:     f.Offset,
	}
}
