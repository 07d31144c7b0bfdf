package serviceorder_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oficina/internal/core/apperror"
	"oficina/internal/core/id"
	"oficina/internal/core/numerator"
	"oficina/internal/core/tenant"
	"oficina/internal/core/tx/txtest"
	"oficina/internal/domain/audit"
	"oficina/internal/domain/events"
	"oficina/internal/domain/inventory"
	"oficina/internal/domain/inventory/inventorytest"
	"oficina/internal/domain/serviceorder"
	"oficina/internal/domain/serviceorder/serviceordertest"
)

type auditEntry struct {
	entityID id.ID
	action   audit.Action
	changes  map[string]any
}

type auditRecorder struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (r *auditRecorder) LogChange(_ context.Context, entityType string, entityID id.ID, action audit.Action, changes map[string]any) error {
	if entityType != audit.EntityServiceOrder {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, auditEntry{entityID: entityID, action: action, changes: changes})
	return nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) Publish(ctx context.Context, evts ...events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evts...)
	return nil
}

func (r *eventRecorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// failingInventory lets restore failures be simulated.
type failingInventory struct {
	serviceorder.Inventory
	restoreErr error
}

func (f *failingInventory) Restore(ctx context.Context, c inventory.Consumption) error {
	if f.restoreErr != nil {
		return f.restoreErr
	}
	return f.Inventory.Restore(ctx, c)
}

type fixture struct {
	ctx      context.Context
	garage   tenant.GarageID
	svc      *serviceorder.Service
	inv      *inventory.Service
	invFake  *failingInventory
	orders   *serviceordertest.Store
	parts    *inventorytest.Store
	vehicles *serviceordertest.Vehicles
	events   *eventRecorder
	clock    *clock
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newFixture(t *testing.T, opts ...serviceorder.Option) *fixture {
	t.Helper()
	parts := inventorytest.NewStore()
	orders := serviceordertest.NewStore()
	txm := txtest.NewManager(parts, orders)
	vehicles := serviceordertest.NewVehicles()
	rec := &eventRecorder{}
	clk := &clock{now: time.Date(2026, 4, 20, 8, 0, 0, 0, time.UTC)}

	g, err := tenant.NewGarageID(id.New())
	require.NoError(t, err)

	inv := inventory.NewService(parts, txm, nil, nil)
	invFake := &failingInventory{Inventory: inv}
	opts = append([]serviceorder.Option{serviceorder.WithEvents(rec), serviceorder.WithClock(clk.Now)}, opts...)
	svc := serviceorder.NewService(orders, vehicles, invFake, txm, &numerator.MockGenerator{},
		serviceorder.Config{PublicBaseURL: "https://oficina.example/"},
		opts...,
	)

	return &fixture{
		ctx:      tenant.WithGarage(context.Background(), g),
		garage:   g,
		svc:      svc,
		inv:      inv,
		invFake:  invFake,
		orders:   orders,
		parts:    parts,
		vehicles: vehicles,
		events:   rec,
		clock:    clk,
	}
}

func (f *fixture) part(t *testing.T, code string, stock int) id.ID {
	t.Helper()
	p := inventory.NewPart(code, "Part "+code)
	p.CostPrice = decimal.NewFromInt(10)
	created, err := f.inv.CreatePart(f.ctx, p)
	require.NoError(t, err)
	if stock > 0 {
		_, err = f.inv.CreateEntry(f.ctx, inventory.NewEntry{
			PartID:    created.ID,
			Quantity:  stock,
			CostPrice: decimal.NewFromInt(10),
		})
		require.NoError(t, err)
	}
	return created.ID
}

func (f *fixture) stock(t *testing.T, partID id.ID) int {
	t.Helper()
	level, err := f.inv.GetStock(f.ctx, partID)
	require.NoError(t, err)
	return level.CurrentStock
}

func (f *fixture) order(t *testing.T, lines ...serviceorder.PartLine) *serviceorder.ServiceOrder {
	t.Helper()
	vehicle := f.vehicles.Add(f.garage, "ABC1D23", nil)
	o, err := f.svc.Create(f.ctx, serviceorder.CreateInput{
		VehicleID:       vehicle,
		ReportedProblem: "brakes squeaking",
		RequiredParts:   lines,
	})
	require.NoError(t, err)
	return o
}

func line(partID id.ID, qty int) serviceorder.PartLine {
	pid := partID
	return serviceorder.PartLine{
		Description:   "part",
		Quantity:      qty,
		UnitPrice:     decimal.NewFromInt(20),
		PartID:        &pid,
		FromInventory: true,
	}
}

func (f *fixture) move(t *testing.T, orderID id.ID, to serviceorder.Status) *serviceorder.ServiceOrder {
	t.Helper()
	o, err := f.svc.ChangeStatus(f.ctx, orderID, to, "")
	require.NoError(t, err)
	return o
}

func TestCreate_NumbersAndHistory(t *testing.T) {
	f := newFixture(t)

	first := f.order(t)
	second := f.order(t)

	assert.Equal(t, "AA0001", first.OrderNumber)
	assert.Equal(t, "AA0002", second.OrderNumber)
	assert.Equal(t, serviceorder.StatusOpened, first.Status)
	require.Len(t, first.StatusHistory, 1)
	assert.Equal(t, "Ordem de serviço criada", first.StatusHistory[0].Notes)
	assert.Equal(t, f.garage.UUID(), first.GarageID)
}

func TestCreate_VehicleOfAnotherGarage(t *testing.T) {
	f := newFixture(t)
	other, err := tenant.NewGarageID(id.New())
	require.NoError(t, err)
	foreign := f.vehicles.Add(other, "XYZ9A87", nil)

	_, err = f.svc.Create(f.ctx, serviceorder.CreateInput{VehicleID: foreign, ReportedProblem: "noise"})

	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
	assert.Equal(t, "Veículo não encontrado na sua oficina.", appErr.Message)
}

func TestCreate_RequiresGarageScope(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), serviceorder.CreateInput{ReportedProblem: "noise"})
	assert.True(t, apperror.HasCode(err, apperror.CodeForbidden))
}

func TestChangeStatus_ConsumesOnceInsideAffectingSet(t *testing.T) {
	f := newFixture(t)
	p1 := f.part(t, "P1", 10)
	o := f.order(t, line(p1, 4))

	f.move(t, o.ID, serviceorder.StatusInProgress)
	assert.Equal(t, 6, f.stock(t, p1))

	f.move(t, o.ID, serviceorder.StatusWaitingParts)
	f.move(t, o.ID, serviceorder.StatusInProgress)
	f.move(t, o.ID, serviceorder.StatusCompleted)
	f.move(t, o.ID, serviceorder.StatusDelivered)
	assert.Equal(t, 6, f.stock(t, p1))

	exits := 0
	for _, m := range f.parts.Movements() {
		if m.IsServiceOrderExit() {
			exits++
			assert.Equal(t, "Consumo para Ordem de Serviço "+o.OrderNumber, m.Description)
			require.NotNil(t, m.Reference)
			assert.Equal(t, o.ID.String(), *m.Reference)
		}
	}
	assert.Equal(t, 1, exits)
}

func TestChangeStatus_RestoresWhenLeavingAffectingSet(t *testing.T) {
	f := newFixture(t)
	p1 := f.part(t, "P1", 10)
	o := f.order(t, line(p1, 4))

	f.move(t, o.ID, serviceorder.StatusInProgress)
	require.Equal(t, 6, f.stock(t, p1))

	canceled := f.move(t, o.ID, serviceorder.StatusCanceled)
	assert.Equal(t, serviceorder.StatusCanceled, canceled.Status)
	assert.Equal(t, 10, f.stock(t, p1))

	// Canceled -> Opened crosses nothing.
	f.move(t, o.ID, serviceorder.StatusOpened)
	assert.Equal(t, 10, f.stock(t, p1))
}

func TestChangeStatus_ReturnedStockCannotBeRemovedByHand(t *testing.T) {
	f := newFixture(t)
	p1 := f.part(t, "P1", 15)
	o := f.order(t, line(p1, 12))

	f.move(t, o.ID, serviceorder.StatusInProgress)
	f.move(t, o.ID, serviceorder.StatusOpened)
	require.Equal(t, 15, f.stock(t, p1))

	for _, m := range f.parts.Movements() {
		if m.ServiceOrderID == nil {
			continue
		}
		assert.Equal(t, o.ID, *m.ServiceOrderID)
		err := f.inv.RemoveEntry(f.ctx, m.ID)
		assert.True(t, apperror.HasCode(err, apperror.CodeBusinessRule), "movement %s", m.MovementType)
	}
	assert.Equal(t, 15, f.stock(t, p1))

	// The order still owns its stock cycle.
	f.move(t, o.ID, serviceorder.StatusInProgress)
	assert.Equal(t, 3, f.stock(t, p1))
}

func TestChangeStatus_RejectAndReopenScenario(t *testing.T) {
	f := newFixture(t)
	p1 := f.part(t, "P1", 0)
	for _, e := range []struct {
		qty  int
		cost int64
	}{{10, 5}, {5, 8}} {
		_, err := f.inv.CreateEntry(f.ctx, inventory.NewEntry{
			PartID:    p1,
			Quantity:  e.qty,
			CostPrice: decimal.NewFromInt(e.cost),
		})
		require.NoError(t, err)
	}
	view, err := f.inv.GetPart(f.ctx, p1)
	require.NoError(t, err)
	require.Equal(t, 15, f.stock(t, p1))
	assert.True(t, view.AverageCost.Equal(decimal.NewFromInt(6)), "got %s", view.AverageCost)

	first := f.order(t, line(p1, 12))
	f.move(t, first.ID, serviceorder.StatusInProgress)
	assert.Equal(t, 3, f.stock(t, p1))

	rejected := f.move(t, first.ID, serviceorder.StatusRejected)
	assert.Equal(t, serviceorder.StatusRejected, rejected.Status)
	assert.Equal(t, 15, f.stock(t, p1))

	f.move(t, first.ID, serviceorder.StatusInProgress)
	require.Equal(t, 3, f.stock(t, p1))

	second := f.order(t, line(p1, 4))
	_, err = f.svc.ChangeStatus(f.ctx, second.ID, serviceorder.StatusInProgress, "")

	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, "Part P1", appErr.Details["part"])
	assert.Equal(t, 3, appErr.Details["available"])
	assert.Equal(t, 4, appErr.Details["requested"])
	assert.Equal(t, 3, f.stock(t, p1))
	assert.Equal(t, serviceorder.StatusOpened, f.orders.Get(second.ID).Status)
}

func TestChangeStatus_RestoreFailureDoesNotUndoStatus(t *testing.T) {
	f := newFixture(t)
	p1 := f.part(t, "P1", 10)
	o := f.order(t, line(p1, 4))
	f.move(t, o.ID, serviceorder.StatusInProgress)

	f.invFake.restoreErr = errors.New("ledger unavailable")
	canceled, err := f.svc.ChangeStatus(f.ctx, o.ID, serviceorder.StatusCanceled, "client gave up")

	require.NoError(t, err)
	assert.Equal(t, serviceorder.StatusCanceled, canceled.Status)
	assert.Equal(t, 6, f.stock(t, p1))
}

func TestChangeStatus_InsufficientStockKeepsOldStatus(t *testing.T) {
	f := newFixture(t)
	p1 := f.part(t, "P1", 10)

	a := f.order(t, line(p1, 4))
	b := f.order(t, line(p1, 3))
	c := f.order(t, line(p1, 4))

	f.move(t, a.ID, serviceorder.StatusInProgress)
	f.move(t, b.ID, serviceorder.StatusInProgress)
	require.Equal(t, 3, f.stock(t, p1))

	_, err := f.svc.ChangeStatus(f.ctx, c.ID, serviceorder.StatusInProgress, "")

	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
	assert.Equal(t, 3, appErr.Details["available"])
	assert.Equal(t, 4, appErr.Details["requested"])
	assert.Equal(t, "Part P1", appErr.Details["part"])
	assert.Equal(t, 3, f.stock(t, p1))

	stored := f.orders.Get(c.ID)
	require.NotNil(t, stored)
	assert.Equal(t, serviceorder.StatusOpened, stored.Status)
	require.Len(t, stored.StatusHistory, 2)
	head := stored.StatusHistory[0]
	assert.Equal(t, serviceorder.StatusOpened, head.Status)
	assert.True(t, strings.HasPrefix(head.Notes, "Status revertido automaticamente devido a erro no estoque: "), head.Notes)
	assert.Contains(t, head.Notes, "available 3, requested 4")

	// Freeing stock makes the move possible again.
	f.move(t, a.ID, serviceorder.StatusCanceled)
	assert.Equal(t, 7, f.stock(t, p1))
	f.move(t, c.ID, serviceorder.StatusInProgress)
	assert.Equal(t, 3, f.stock(t, p1))
}

func TestChangeStatus_ConcurrentOrdersNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	p1 := f.part(t, "P1", 10)

	orders := make([]*serviceorder.ServiceOrder, 8)
	for i := range orders {
		orders[i] = f.order(t, line(p1, 3))
	}

	var ok atomic.Int32
	var wg sync.WaitGroup
	for _, o := range orders {
		wg.Add(1)
		go func(orderID id.ID) {
			defer wg.Done()
			if _, err := f.svc.ChangeStatus(f.ctx, orderID, serviceorder.StatusInProgress, ""); err == nil {
				ok.Add(1)
			} else {
				assert.True(t, apperror.IsInsufficientStock(err), "got %v", err)
			}
		}(o.ID)
	}
	wg.Wait()

	assert.Equal(t, int32(3), ok.Load())
	assert.Equal(t, 1, f.stock(t, p1))
}

func TestChangeStatus_InvalidStatus(t *testing.T) {
	f := newFixture(t)
	o := f.order(t)
	_, err := f.svc.ChangeStatus(f.ctx, o.ID, serviceorder.Status("IN_PROGRESS"), "")
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestChangeStatus_PublishesEvents(t *testing.T) {
	f := newFixture(t)
	o := f.order(t)
	f.move(t, o.ID, serviceorder.StatusDiagnosing)

	assert.Equal(t, []string{events.TypeStatusChanged, events.TypeStatusChanged}, f.events.types())
}

func TestDelete_RestoresConsumedStock(t *testing.T) {
	f := newFixture(t)
	p1 := f.part(t, "P1", 10)
	o := f.order(t, line(p1, 4))
	f.move(t, o.ID, serviceorder.StatusInProgress)

	require.NoError(t, f.svc.Delete(f.ctx, o.ID))

	assert.Equal(t, 10, f.stock(t, p1))
	assert.Nil(t, f.orders.Get(o.ID))
}

func TestDelete_RestoreFailureKeepsOrder(t *testing.T) {
	f := newFixture(t)
	p1 := f.part(t, "P1", 10)
	o := f.order(t, line(p1, 4))
	f.move(t, o.ID, serviceorder.StatusInProgress)

	f.invFake.restoreErr = errors.New("ledger unavailable")
	err := f.svc.Delete(f.ctx, o.ID)

	require.Error(t, err)
	assert.NotNil(t, f.orders.Get(o.ID))
	assert.Equal(t, 6, f.stock(t, p1))
}

func TestUpdate_FreezesInventoryLinesWhileConsumed(t *testing.T) {
	f := newFixture(t)
	p1 := f.part(t, "P1", 10)
	o := f.order(t, line(p1, 4))
	f.move(t, o.ID, serviceorder.StatusInProgress)

	_, err := f.svc.Update(f.ctx, serviceorder.UpdateInput{
		ID: o.ID,
		CreateInput: serviceorder.CreateInput{
			VehicleID:       o.VehicleID,
			ReportedProblem: o.ReportedProblem,
			RequiredParts:   []serviceorder.PartLine{line(p1, 5)},
		},
	})
	assert.True(t, apperror.HasCode(err, apperror.CodeBusinessRule))

	updated, err := f.svc.Update(f.ctx, serviceorder.UpdateInput{
		ID: o.ID,
		CreateInput: serviceorder.CreateInput{
			VehicleID:             o.VehicleID,
			ReportedProblem:       "brakes and noise",
			RequiredParts:         []serviceorder.PartLine{line(p1, 4)},
			TechnicalObservations: "rotor worn",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "brakes and noise", updated.ReportedProblem)
	assert.Equal(t, 6, f.stock(t, p1))
}

func TestDiagnostic(t *testing.T) {
	f := newFixture(t)
	p1 := f.part(t, "P1", 10)
	o := f.order(t)

	_, err := f.svc.Diagnostic(f.ctx, serviceorder.DiagnosticInput{ID: o.ID})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	due := f.clock.Now().Add(48 * time.Hour)
	diagnosed, err := f.svc.Diagnostic(f.ctx, serviceorder.DiagnosticInput{
		ID:                      o.ID,
		IdentifiedProblems:      []string{"worn pads"},
		RequiredParts:           []serviceorder.PartLine{line(p1, 2)},
		Services:                []serviceorder.ServiceLine{{Description: "swap pads", EstimatedHours: decimal.NewFromInt(2), PricePerHour: decimal.NewFromInt(90)}},
		EstimatedCompletionDate: &due,
	})
	require.NoError(t, err)

	assert.Equal(t, serviceorder.StatusWaitingApproval, diagnosed.Status)
	require.NotNil(t, diagnosed.BudgetApprovalStatus)
	assert.Equal(t, serviceorder.BudgetPending, *diagnosed.BudgetApprovalStatus)
	assert.True(t, diagnosed.EstimatedTotalParts.Equal(decimal.NewFromInt(40)))
	assert.True(t, diagnosed.EstimatedTotalServices.Equal(decimal.NewFromInt(180)))
	assert.True(t, diagnosed.EstimatedTotal.Equal(decimal.NewFromInt(220)))
	assert.Equal(t, 10, f.stock(t, p1))
}

func TestDiagnostic_RefusedForClosedOrders(t *testing.T) {
	f := newFixture(t)
	o := f.order(t)
	f.move(t, o.ID, serviceorder.StatusCanceled)

	due := f.clock.Now().Add(time.Hour)
	_, err := f.svc.Diagnostic(f.ctx, serviceorder.DiagnosticInput{ID: o.ID, EstimatedCompletionDate: &due})
	assert.True(t, apperror.HasCode(err, apperror.CodeBusinessRule))
}

func (f *fixture) waitingApproval(t *testing.T, lines ...serviceorder.PartLine) *serviceorder.ServiceOrder {
	t.Helper()
	o := f.order(t)
	due := f.clock.Now().Add(48 * time.Hour)
	o, err := f.svc.Diagnostic(f.ctx, serviceorder.DiagnosticInput{
		ID:                      o.ID,
		RequiredParts:           lines,
		EstimatedCompletionDate: &due,
	})
	require.NoError(t, err)
	return o
}

func TestApproveAndRejectBudget(t *testing.T) {
	f := newFixture(t)

	o := f.waitingApproval(t)
	approved, err := f.svc.ApproveBudget(f.ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, serviceorder.StatusApproved, approved.Status)
	assert.Equal(t, serviceorder.BudgetApproved, *approved.BudgetApprovalStatus)
	assert.NotNil(t, approved.BudgetApprovalDate)

	_, err = f.svc.ApproveBudget(f.ctx, o.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeBusinessRule))

	o = f.waitingApproval(t)
	reason := "too expensive"
	rejected, err := f.svc.RejectBudget(f.ctx, o.ID, &reason)
	require.NoError(t, err)
	assert.Equal(t, serviceorder.StatusRejected, rejected.Status)
	assert.Equal(t, "Orçamento rejeitado. Motivo: too expensive", rejected.StatusHistory[0].Notes)
}

func TestCompleteAndDeliver(t *testing.T) {
	f := newFixture(t)
	p1 := f.part(t, "P1", 10)
	o := f.waitingApproval(t, line(p1, 2))

	_, err := f.svc.Complete(f.ctx, serviceorder.CompleteInput{ID: o.ID})
	assert.True(t, apperror.HasCode(err, apperror.CodeBusinessRule))

	_, err = f.svc.ApproveBudget(f.ctx, o.ID)
	require.NoError(t, err)

	_, err = f.svc.Deliver(f.ctx, serviceorder.DeliverInput{ID: o.ID})
	assert.True(t, apperror.HasCode(err, apperror.CodeBusinessRule))

	completed, err := f.svc.Complete(f.ctx, serviceorder.CompleteInput{ID: o.ID})
	require.NoError(t, err)
	assert.Equal(t, serviceorder.StatusCompleted, completed.Status)
	require.NotNil(t, completed.PaymentMethod)
	assert.Equal(t, serviceorder.PaymentCash, *completed.PaymentMethod)
	require.NotNil(t, completed.FinalTotal)
	assert.True(t, completed.FinalTotal.Equal(decimal.NewFromInt(40)))
	assert.NotNil(t, completed.CompletionDate)
	assert.Equal(t, 8, f.stock(t, p1), "approved -> completed consumes")

	delivered, err := f.svc.Deliver(f.ctx, serviceorder.DeliverInput{ID: o.ID, PaymentMethod: serviceorder.PaymentPixPersonal})
	require.NoError(t, err)
	assert.Equal(t, serviceorder.StatusDelivered, delivered.Status)
	assert.Equal(t, serviceorder.PaymentPixPersonal, *delivered.PaymentMethod)
	assert.NotNil(t, delivered.DeliveryDate)
	assert.Equal(t, 8, f.stock(t, p1))
}

func TestMechanicWork(t *testing.T) {
	f := newFixture(t)
	o := f.order(t)
	start := f.clock.Now()
	end := start.Add(90 * time.Minute)

	_, err := f.svc.AddMechanicWork(f.ctx, serviceorder.MechanicWorkInput{OrderID: o.ID, MechanicID: "m1", StartTime: start})
	assert.True(t, apperror.HasCode(err, apperror.CodeBusinessRule))

	f.move(t, o.ID, serviceorder.StatusApproved)
	withWork, err := f.svc.AddMechanicWork(f.ctx, serviceorder.MechanicWorkInput{
		OrderID: o.ID, MechanicID: "m1", StartTime: start, EndTime: &end,
	})
	require.NoError(t, err)
	require.Len(t, withWork.MechanicWork, 1)
	assert.Equal(t, 1.5, withWork.MechanicWork[0].TotalHours)

	longer := start.Add(2*time.Hour + 20*time.Minute)
	updated, err := f.svc.UpdateMechanicWork(f.ctx, serviceorder.MechanicWorkInput{
		OrderID: o.ID, WorkID: withWork.MechanicWork[0].ID, MechanicID: "m1", StartTime: start, EndTime: &longer,
	})
	require.NoError(t, err)
	assert.Equal(t, 2.33, updated.MechanicWork[0].TotalHours)
	assert.Equal(t, withWork.MechanicWork[0].ID, updated.MechanicWork[0].ID)

	_, err = f.svc.UpdateMechanicWork(f.ctx, serviceorder.MechanicWorkInput{
		OrderID: o.ID, WorkID: id.New(), MechanicID: "m1", StartTime: start,
	})
	assert.True(t, apperror.IsNotFound(err))
}

func TestVehicleHistory(t *testing.T) {
	f := newFixture(t)
	vehicle := f.vehicles.Add(f.garage, "ABC1D23", nil)

	create := func(problem string) *serviceorder.ServiceOrder {
		o, err := f.svc.Create(f.ctx, serviceorder.CreateInput{
			VehicleID:       vehicle,
			ReportedProblem: problem,
			Services:        []serviceorder.ServiceLine{{Description: "labour", EstimatedHours: decimal.NewFromInt(1), PricePerHour: decimal.NewFromInt(100)}},
		})
		require.NoError(t, err)
		f.clock.Advance(24 * time.Hour)
		return o
	}
	first := create("oil change")
	create("noise")

	f.move(t, first.ID, serviceorder.StatusApproved)
	_, err := f.svc.Complete(f.ctx, serviceorder.CompleteInput{ID: first.ID})
	require.NoError(t, err)
	_, err = f.svc.Deliver(f.ctx, serviceorder.DeliverInput{ID: first.ID})
	require.NoError(t, err)

	h, err := f.svc.VehicleHistory(f.ctx, vehicle)
	require.NoError(t, err)
	assert.Equal(t, 2, h.TotalOrders)
	assert.Equal(t, 1, h.DeliveredOrders)
	assert.True(t, h.TotalSpent.Equal(decimal.NewFromInt(100)), "spent %s", h.TotalSpent)
	assert.True(t, h.TotalServices.Equal(decimal.NewFromInt(100)))
	require.Len(t, h.Orders, 2)
	assert.Equal(t, "noise", h.Orders[0].ReportedProblem)

	_, err = f.svc.VehicleHistory(f.ctx, id.New())
	assert.True(t, apperror.IsNotFound(err))
}

func TestList_PeriodAndSort(t *testing.T) {
	f := newFixture(t)
	old := f.order(t)
	f.clock.Advance(10 * 24 * time.Hour)
	recent := f.order(t)

	// OpeningDate comes from the clock at creation.
	all, err := f.svc.List(f.ctx, serviceorder.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all.Items, 2)
	assert.Equal(t, recent.ID, all.Items[0].ID)

	oldest, err := f.svc.List(f.ctx, serviceorder.ListFilter{Sort: serviceorder.SortOldest})
	require.NoError(t, err)
	assert.Equal(t, old.ID, oldest.Items[0].ID)

	week, err := f.svc.List(f.ctx, serviceorder.ListFilter{Period: serviceorder.PeriodWeek})
	require.NoError(t, err)
	require.Len(t, week.Items, 1)
	assert.Equal(t, recent.ID, week.Items[0].ID)

	_, err = f.svc.List(f.ctx, serviceorder.ListFilter{Period: "decade"})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestChangeStatus_WritesAuditEntry(t *testing.T) {
	rec := &auditRecorder{}
	f := newFixture(t, serviceorder.WithAudit(rec))
	p := f.part(t, "P1", 5)
	o := f.order(t, line(p, 2))

	f.move(t, o.ID, serviceorder.StatusInProgress)

	_, err := f.svc.ChangeStatus(f.ctx, o.ID, serviceorder.StatusCompleted, "")
	require.NoError(t, err)

	require.Len(t, rec.entries, 2)
	first := rec.entries[0]
	assert.Equal(t, o.ID, first.entityID)
	assert.Equal(t, audit.ActionStatusChange, first.action)
	assert.Equal(t, "consume", first.changes["effect"])
	assert.Equal(t, map[string]any{"old": "aberta", "new": "em_andamento"}, first.changes["status"])
	assert.Equal(t, "none", rec.entries[1].changes["effect"])

	// A refused consumption never reaches the log.
	short := f.order(t, line(p, 10))
	_, err = f.svc.ChangeStatus(f.ctx, short.ID, serviceorder.StatusInProgress, "")
	require.Error(t, err)
	assert.Len(t, rec.entries, 2)
}
