// Package serviceordertest provides in-memory fakes of the serviceorder ports.
package serviceordertest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"oficina/internal/core/apperror"
	"oficina/internal/core/id"
	"oficina/internal/core/tenant"
	"oficina/internal/core/tx/txtest"
	"oficina/internal/domain"
	"oficina/internal/domain/serviceorder"
)

// Store keeps the orders of every garage in memory.
type Store struct {
	mu     sync.Mutex
	orders map[id.ID]*serviceorder.ServiceOrder
}

var (
	_ serviceorder.Store = (*Store)(nil)
	_ txtest.Snapshotter = (*Store)(nil)
)

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{orders: make(map[id.ID]*serviceorder.ServiceOrder)}
}

// Orders implements serviceorder.Store.
func (s *Store) Orders(g tenant.GarageID) serviceorder.Repository {
	return &orderRepo{store: s, garage: g.UUID()}
}

// FindByApprovalTokenHash implements serviceorder.Store.
func (s *Store) FindByApprovalTokenHash(ctx context.Context, tokenHash string) (*serviceorder.ServiceOrder, tenant.GarageID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.BudgetApproval != nil && o.BudgetApproval.TokenHash == tokenHash {
			g, err := tenant.NewGarageID(o.GarageID)
			if err != nil {
				return nil, tenant.GarageID{}, err
			}
			return clone(o), g, nil
		}
	}
	return nil, tenant.GarageID{}, apperror.NewNotFound("service order", "approval token")
}

// Snapshot implements txtest.Snapshotter.
func (s *Store) Snapshot() func() {
	s.mu.Lock()
	saved := make(map[id.ID]*serviceorder.ServiceOrder, len(s.orders))
	for k, v := range s.orders {
		saved[k] = clone(v)
	}
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		s.orders = saved
		s.mu.Unlock()
	}
}

// Put stores an order as is, bypassing the service. Used to seed fixtures.
func (s *Store) Put(o *serviceorder.ServiceOrder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[o.ID] = clone(o)
}

// Get returns the stored copy of an order, or nil.
func (s *Store) Get(orderID id.ID) *serviceorder.ServiceOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil
	}
	return clone(o)
}

type orderRepo struct {
	store  *Store
	garage id.ID
}

func (r *orderRepo) Create(ctx context.Context, o *serviceorder.ServiceOrder) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, existing := range r.store.orders {
		if existing.GarageID == r.garage && existing.OrderNumber == o.OrderNumber {
			return apperror.NewDuplicate("service order", "order number", o.OrderNumber)
		}
	}
	o.GarageID = r.garage
	r.store.orders[o.ID] = clone(o)
	return nil
}

func (r *orderRepo) Update(ctx context.Context, o *serviceorder.ServiceOrder) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, err := r.get(o.ID); err != nil {
		return err
	}
	o.GarageID = r.garage
	r.store.orders[o.ID] = clone(o)
	return nil
}

func (r *orderRepo) Delete(ctx context.Context, orderID id.ID) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, err := r.get(orderID); err != nil {
		return err
	}
	delete(r.store.orders, orderID)
	return nil
}

func (r *orderRepo) GetByID(ctx context.Context, orderID id.ID) (*serviceorder.ServiceOrder, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	o, err := r.get(orderID)
	if err != nil {
		return nil, err
	}
	return clone(o), nil
}

func (r *orderRepo) GetByIDForUpdate(ctx context.Context, orderID id.ID) (*serviceorder.ServiceOrder, error) {
	if !txtest.InTx(ctx) {
		return nil, errNoTransaction
	}
	return r.GetByID(ctx, orderID)
}

func (r *orderRepo) List(ctx context.Context, filter serviceorder.ListFilter) (domain.ListResult[*serviceorder.ServiceOrder], error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	search := strings.ToLower(filter.Search)
	var all []*serviceorder.ServiceOrder
	for _, o := range r.store.orders {
		if o.GarageID != r.garage {
			continue
		}
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		if filter.OpenedFrom != nil && o.OpeningDate.Before(*filter.OpenedFrom) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(o.OrderNumber), search) &&
			!strings.Contains(strings.ToLower(o.ReportedProblem), search) {
			continue
		}
		all = append(all, clone(o))
	}
	sort.Slice(all, func(i, j int) bool {
		if filter.Sort == serviceorder.SortOldest {
			return all[i].OpeningDate.Before(all[j].OpeningDate)
		}
		return all[i].OpeningDate.After(all[j].OpeningDate)
	})

	f := filter.ListFilter
	f.Normalize()
	total := len(all)
	start := min(f.Offset, total)
	end := min(start+f.Limit, total)
	return domain.ListResult[*serviceorder.ServiceOrder]{
		Items:      all[start:end],
		TotalCount: int64(total),
		Limit:      f.Limit,
		Offset:     f.Offset,
	}, nil
}

func (r *orderRepo) ListByVehicle(ctx context.Context, vehicleID id.ID) ([]*serviceorder.ServiceOrder, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*serviceorder.ServiceOrder
	for _, o := range r.store.orders {
		if o.GarageID == r.garage && o.VehicleID == vehicleID {
			out = append(out, clone(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpeningDate.After(out[j].OpeningDate) })
	return out, nil
}

func (r *orderRepo) SaveApproval(ctx context.Context, orderID id.ID, approval *serviceorder.BudgetApproval) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	o, err := r.get(orderID)
	if err != nil {
		return err
	}
	a := *approval
	o.BudgetApproval = &a
	return nil
}

func (r *orderRepo) ConsumeApproval(ctx context.Context, orderID id.ID, tokenHash, decision string, reason *string, at time.Time) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	o, err := r.get(orderID)
	if err != nil {
		return false, err
	}
	a := o.BudgetApproval
	if a == nil || a.Used || a.TokenHash != tokenHash {
		return false, nil
	}
	a.Used = true
	a.UsedAt = &at
	a.Decision = &decision
	a.RejectionReason = reason
	return true, nil
}

// get must be called with the lock held.
func (r *orderRepo) get(orderID id.ID) (*serviceorder.ServiceOrder, error) {
	o, ok := r.store.orders[orderID]
	if !ok || o.GarageID != r.garage {
		return nil, apperror.NewNotFound("service order", orderID)
	}
	return o, nil
}

func clone(o *serviceorder.ServiceOrder) *serviceorder.ServiceOrder {
	cp := *o
	cp.VisibleDamages = append([]string(nil), o.VisibleDamages...)
	cp.EntryChecklist = append([]serviceorder.ChecklistItem(nil), o.EntryChecklist...)
	cp.StatusHistory = append([]serviceorder.StatusChange(nil), o.StatusHistory...)
	cp.IdentifiedProblems = append([]string(nil), o.IdentifiedProblems...)
	cp.RequiredParts = append([]serviceorder.PartLine(nil), o.RequiredParts...)
	cp.Services = append([]serviceorder.ServiceLine(nil), o.Services...)
	cp.MechanicWork = append([]serviceorder.MechanicWork(nil), o.MechanicWork...)
	cp.ExitChecklist = append([]serviceorder.ChecklistItem(nil), o.ExitChecklist...)
	if o.BudgetApproval != nil {
		a := *o.BudgetApproval
		cp.BudgetApproval = &a
	}
	return &cp
}
