package serviceorder

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"oficina/internal/core/apperror"
	"oficina/internal/core/id"
	"oficina/internal/core/numerator"
	"oficina/internal/core/tenant"
	"oficina/internal/core/tx"
	"oficina/internal/core/types"
	"oficina/internal/domain"
	"oficina/internal/domain/audit"
	"oficina/internal/domain/events"
	"oficina/internal/domain/inventory"
	"oficina/pkg/logger"
)

// History notes written by the service.
const (
	noteCreated          = "Ordem de serviço criada"
	noteBudgetGenerated  = "Orçamento gerado, aguardando aprovação do cliente"
	noteBudgetApproved   = "Orçamento aprovado"
	noteBudgetRejected   = "Orçamento rejeitado"
	noteApprovedViaLink  = "Orçamento aprovado pelo cliente via link"
	noteRejectedViaLink  = "Orçamento rejeitado pelo cliente via link"
	noteCompleted        = "Serviço concluído"
	noteDelivered        = "Veículo entregue ao cliente"
	noteInventoryReverts = "Status revertido automaticamente devido a erro no estoque: "
)

// Config holds the approval-link settings.
type Config struct {
	PublicBaseURL string
	LinkTTL       time.Duration
}

// Service runs every service-order use case. Status changes that cross the
// stock-affecting boundary call Inventory inside the same transaction.
type Service struct {
	store     Store
	vehicles  VehicleLookup
	inventory Inventory
	txManager tx.Manager
	numbers   numerator.Generator
	events    events.Publisher
	audit     audit.Logger
	cfg       Config
	now       func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithEvents sets the outbox publisher.
func WithEvents(p events.Publisher) Option {
	return func(s *Service) { s.events = p }
}

// WithAudit sets the audit logger.
func WithAudit(l audit.Logger) Option {
	return func(s *Service) { s.audit = l }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates the service-order service.
func NewService(
	store Store,
	vehicles VehicleLookup,
	inv Inventory,
	txManager tx.Manager,
	numbers numerator.Generator,
	cfg Config,
	opts ...Option,
) *Service {
	if cfg.LinkTTL <= 0 {
		cfg.LinkTTL = DefaultLinkTTL
	}
	s := &Service{
		store:     store,
		vehicles:  vehicles,
		inventory: inv,
		txManager: txManager,
		numbers:   numbers,
		events:    events.Nop{},
		audit:     audit.Nop{},
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// --- Inputs ---

// CreateInput carries the intake data of a new order.
type CreateInput struct {
	VehicleID               id.ID
	ClientID                *id.ID
	OpeningDate             *time.Time
	CurrentMileage          *int
	FuelLevel               *int
	ReportedProblem         string
	VisibleDamages          []string
	EntryChecklist          []ChecklistItem
	IdentifiedProblems      []string
	RequiredParts           []PartLine
	Services                []ServiceLine
	EstimatedCompletionDate *time.Time
	TechnicalObservations   string
}

// UpdateInput replaces the descriptive fields of an order. Status is not editable here.
type UpdateInput struct {
	ID id.ID
	CreateInput
	ExitChecklist []ChecklistItem
	TestDrive     *TestDrive
	InvoiceNumber *string
	InvoiceDate   *time.Time
	PaymentMethod PaymentMethod
}

// DiagnosticInput carries the budget produced by the diagnosis.
type DiagnosticInput struct {
	ID                      id.ID
	IdentifiedProblems      []string
	RequiredParts           []PartLine
	Services                []ServiceLine
	EstimatedCompletionDate *time.Time
	TechnicalObservations   string
}

// CompleteInput closes the work on an order.
type CompleteInput struct {
	ID                 id.ID
	ExitChecklist      []ChecklistItem
	TestDrive          *TestDrive
	InvoiceNumber      *string
	InvoiceDate        *time.Time
	PaymentMethod      PaymentMethod
	FinalTotalParts    *decimal.Decimal
	FinalTotalServices *decimal.Decimal
	Notes              string
}

// DeliverInput hands the vehicle back.
type DeliverInput struct {
	ID            id.ID
	PaymentMethod PaymentMethod
	Notes         string
}

// MechanicWorkInput adds or edits a time entry. WorkID is ignored on add.
type MechanicWorkInput struct {
	OrderID    id.ID
	WorkID     id.ID
	MechanicID string
	StartTime  time.Time
	EndTime    *time.Time
	Notes      string
}

// --- CRUD ---

// Create opens an order for a vehicle of the caller's garage.
func (s *Service) Create(ctx context.Context, in CreateInput) (*ServiceOrder, error) {
	g, err := s.garage(ctx)
	if err != nil {
		return nil, err
	}
	vehicle, err := s.checkVehicle(ctx, g, in.VehicleID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	o := New(in.VehicleID, in.ReportedProblem, now)
	o.AssignTo(g)
	if in.OpeningDate != nil {
		o.OpeningDate = *in.OpeningDate
	}
	o.ClientID = in.ClientID
	if o.ClientID == nil {
		o.ClientID = vehicle.ClientID
	}
	o.CurrentMileage = in.CurrentMileage
	o.FuelLevel = in.FuelLevel
	o.VisibleDamages = in.VisibleDamages
	o.EntryChecklist = in.EntryChecklist
	o.IdentifiedProblems = in.IdentifiedProblems
	o.RequiredParts = in.RequiredParts
	o.Services = in.Services
	o.EstimatedCompletionDate = in.EstimatedCompletionDate
	o.TechnicalObservations = in.TechnicalObservations
	o.RecalculateEstimates()
	if err := o.Validate(ctx); err != nil {
		return nil, err
	}

	repo := s.store.Orders(g)
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		number, err := s.numbers.Next(ctx, g)
		if err != nil {
			return fmt.Errorf("next order number: %w", err)
		}
		o.OrderNumber = number
		if err := repo.Create(ctx, o); err != nil {
			return err
		}
		return s.events.Publish(ctx, statusEvent(g, o, "", noteCreated))
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "service order created", "service_order_id", o.ID, "order_number", o.OrderNumber)
	return o, nil
}

// Update replaces the descriptive fields. Inventory lines are frozen while
// the order holds consumed stock.
func (s *Service) Update(ctx context.Context, in UpdateInput) (*ServiceOrder, error) {
	g, err := s.garage(ctx)
	if err != nil {
		return nil, err
	}
	repo := s.store.Orders(g)

	var order *ServiceOrder
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := repo.GetByIDForUpdate(ctx, in.ID)
		if err != nil {
			return err
		}
		if in.VehicleID != o.VehicleID {
			vehicle, err := s.checkVehicle(ctx, g, in.VehicleID)
			if err != nil {
				return err
			}
			o.VehicleID = vehicle.ID
			if in.ClientID == nil {
				in.ClientID = vehicle.ClientID
			}
		}
		before := o.InventoryConsumption()

		if in.ClientID != nil {
			o.ClientID = in.ClientID
		}
		if in.OpeningDate != nil {
			o.OpeningDate = *in.OpeningDate
		}
		o.CurrentMileage = in.CurrentMileage
		o.FuelLevel = in.FuelLevel
		o.ReportedProblem = strings.TrimSpace(in.ReportedProblem)
		o.VisibleDamages = in.VisibleDamages
		o.EntryChecklist = in.EntryChecklist
		o.IdentifiedProblems = in.IdentifiedProblems
		o.RequiredParts = in.RequiredParts
		o.Services = in.Services
		o.EstimatedCompletionDate = in.EstimatedCompletionDate
		o.TechnicalObservations = in.TechnicalObservations
		o.ExitChecklist = in.ExitChecklist
		o.TestDrive = in.TestDrive
		o.InvoiceNumber = in.InvoiceNumber
		o.InvoiceDate = in.InvoiceDate
		if in.PaymentMethod != "" {
			pm := in.PaymentMethod
			o.PaymentMethod = &pm
		}
		o.RecalculateEstimates()

		if o.Status.AffectsStock() && !sameLines(before, o.InventoryConsumption()) {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule,
				"inventory parts cannot change while the order holds consumed stock").
				WithDetail("status", o.Status)
		}
		if err := o.Validate(ctx); err != nil {
			return err
		}
		o.Touch()
		if err := repo.Update(ctx, o); err != nil {
			return fmt.Errorf("update service order: %w", err)
		}
		order = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// Delete removes an order. An order holding consumed stock gives it back in
// the same transaction; if that fails nothing is deleted.
func (s *Service) Delete(ctx context.Context, orderID id.ID) error {
	g, err := s.garage(ctx)
	if err != nil {
		return err
	}
	repo := s.store.Orders(g)

	var restored bool
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := repo.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status.AffectsStock() {
			if err := s.inventory.Restore(ctx, o.InventoryConsumption()); err != nil {
				return fmt.Errorf("restore inventory before delete: %w", err)
			}
			restored = true
		}
		if err := repo.Delete(ctx, orderID); err != nil {
			return err
		}
		return s.audit.LogChange(ctx, audit.EntityServiceOrder, orderID, audit.ActionDelete, map[string]any{
			"order_number": o.OrderNumber,
			"status":       string(o.Status),
			"restored":     restored,
		})
	})
	if err != nil {
		logger.Warn(ctx, "service order delete failed", "service_order_id", orderID, "error", err)
		return err
	}

	logger.Info(ctx, "service order deleted", "service_order_id", orderID, "inventory_restored", restored)
	return nil
}

// Get returns one order of the caller's garage.
func (s *Service) Get(ctx context.Context, orderID id.ID) (*ServiceOrder, error) {
	g, err := s.garage(ctx)
	if err != nil {
		return nil, err
	}
	return s.store.Orders(g).GetByID(ctx, orderID)
}

// List pages through orders.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*ServiceOrder], error) {
	g, err := s.garage(ctx)
	if err != nil {
		return domain.ListResult[*ServiceOrder]{}, err
	}
	filter.Normalize()

	switch filter.Sort {
	case "":
		filter.Sort = SortNewest
	case SortNewest, SortOldest:
	default:
		return domain.ListResult[*ServiceOrder]{}, apperror.NewValidation("invalid sort").WithDetail("field", "sort")
	}

	now := s.now()
	switch filter.Period {
	case "", PeriodAll:
		filter.OpenedFrom = nil
	case PeriodToday:
		from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		filter.OpenedFrom = &from
	case PeriodWeek:
		from := now.AddDate(0, 0, -7)
		filter.OpenedFrom = &from
	case PeriodMonth:
		from := now.AddDate(0, -1, 0)
		filter.OpenedFrom = &from
	default:
		return domain.ListResult[*ServiceOrder]{}, apperror.NewValidation("invalid period").WithDetail("field", "period")
	}

	return s.store.Orders(g).List(ctx, filter)
}

// --- Status machine ---

// ChangeStatus sets any known status. Crossing into the stock-affecting set
// consumes the inventory lines in the same transaction; a failure leaves the
// old status in place with an explanatory history note. Crossing out of it
// restores after commit, and a failed restore is only logged.
func (s *Service) ChangeStatus(ctx context.Context, orderID id.ID, to Status, notes string) (*ServiceOrder, error) {
	if !to.Valid() {
		return nil, apperror.NewValidation("invalid status").WithDetail("field", "status").WithDetail("value", to)
	}
	if strings.TrimSpace(notes) == "" {
		notes = "Status alterado para " + string(to)
	}
	return s.changeStatus(ctx, orderID, to, notes, nil)
}

// Diagnostic stores the budget and moves the order to WAITING_APPROVAL.
func (s *Service) Diagnostic(ctx context.Context, in DiagnosticInput) (*ServiceOrder, error) {
	if in.EstimatedCompletionDate == nil {
		return nil, apperror.NewValidation("estimated completion date is required").
			WithDetail("field", "estimatedCompletionDate")
	}
	if err := validateParts(in.RequiredParts); err != nil {
		return nil, err
	}

	return s.changeStatus(ctx, in.ID, StatusWaitingApproval, noteBudgetGenerated,
		func(ctx context.Context, repo Repository, o *ServiceOrder) error {
			switch o.Status {
			case StatusCompleted, StatusDelivered, StatusCanceled:
				return apperror.NewBusinessRule(apperror.CodeBusinessRule,
					"diagnosis is not allowed for completed, delivered or canceled orders").
					WithDetail("status", o.Status)
			}
			o.IdentifiedProblems = in.IdentifiedProblems
			o.RequiredParts = in.RequiredParts
			o.Services = in.Services
			o.EstimatedCompletionDate = in.EstimatedCompletionDate
			o.TechnicalObservations = in.TechnicalObservations
			o.RecalculateEstimates()
			pending := BudgetPending
			o.BudgetApprovalStatus = &pending
			o.BudgetApprovalDate = nil
			return nil
		})
}

// ApproveBudget records an approval taken by staff.
func (s *Service) ApproveBudget(ctx context.Context, orderID id.ID) (*ServiceOrder, error) {
	return s.decideBudget(ctx, orderID, true, nil)
}

// RejectBudget records a rejection taken by staff.
func (s *Service) RejectBudget(ctx context.Context, orderID id.ID, reason *string) (*ServiceOrder, error) {
	return s.decideBudget(ctx, orderID, false, reason)
}

func (s *Service) decideBudget(ctx context.Context, orderID id.ID, approve bool, reason *string) (*ServiceOrder, error) {
	g, err := s.garage(ctx)
	if err != nil {
		return nil, err
	}
	to, budget, decision, note := decisionFor(approve, false, reason)

	return s.changeStatus(ctx, orderID, to, note, func(ctx context.Context, repo Repository, o *ServiceOrder) error {
		if o.Status != StatusWaitingApproval {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule,
				"budget can only be decided while waiting for approval").
				WithDetail("status", o.Status)
		}
		o.SetBudgetDecision(budget, s.now())
		return s.publishDecision(ctx, g, o, decision, reason, false)
	})
}

// Complete closes the work. APPROVED -> COMPLETED crosses the boundary and consumes.
func (s *Service) Complete(ctx context.Context, in CompleteInput) (*ServiceOrder, error) {
	note := noteCompleted
	if strings.TrimSpace(in.Notes) != "" {
		note = in.Notes
	}
	return s.changeStatus(ctx, in.ID, StatusCompleted, note, func(ctx context.Context, repo Repository, o *ServiceOrder) error {
		switch o.Status {
		case StatusInProgress, StatusApproved, StatusWaitingParts:
		default:
			return apperror.NewBusinessRule(apperror.CodeBusinessRule,
				"only approved or in-progress orders can be completed").
				WithDetail("status", o.Status)
		}
		now := s.now()
		pm := in.PaymentMethod
		if pm == "" {
			pm = PaymentCash
		}
		o.PaymentMethod = &pm
		o.ExitChecklist = in.ExitChecklist
		o.TestDrive = in.TestDrive
		o.InvoiceNumber = in.InvoiceNumber
		o.InvoiceDate = in.InvoiceDate

		parts, services := o.EstimatedTotalParts, o.EstimatedTotalServices
		if in.FinalTotalParts != nil {
			parts = *in.FinalTotalParts
		}
		if in.FinalTotalServices != nil {
			services = *in.FinalTotalServices
		}
		if parts.IsNegative() || services.IsNegative() {
			return apperror.NewValidation("final totals cannot be negative")
		}
		total := parts.Add(services)
		o.FinalTotalParts = &parts
		o.FinalTotalServices = &services
		o.FinalTotal = &total
		o.CompletionDate = &now
		return nil
	})
}

// Deliver hands the vehicle back. A payment method must be known.
func (s *Service) Deliver(ctx context.Context, in DeliverInput) (*ServiceOrder, error) {
	note := noteDelivered
	if strings.TrimSpace(in.Notes) != "" {
		note = in.Notes
	}
	return s.changeStatus(ctx, in.ID, StatusDelivered, note, func(ctx context.Context, repo Repository, o *ServiceOrder) error {
		if o.Status != StatusCompleted {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule,
				"only completed orders can be delivered").
				WithDetail("status", o.Status)
		}
		if in.PaymentMethod != "" {
			pm := in.PaymentMethod
			o.PaymentMethod = &pm
		}
		if o.PaymentMethod == nil || *o.PaymentMethod == "" {
			return apperror.NewValidation("payment method is required").WithDetail("field", "paymentMethod")
		}
		now := s.now()
		o.DeliveryDate = &now
		return nil
	})
}

// inventoryFailure marks errors raised by Consume so the caller can revert.
type inventoryFailure struct {
	err error
}

func (e *inventoryFailure) Error() string { return e.err.Error() }
func (e *inventoryFailure) Unwrap() error { return e.err }

type mutation func(ctx context.Context, repo Repository, o *ServiceOrder) error

// changeStatus is the single path through which an order's status moves.
func (s *Service) changeStatus(ctx context.Context, orderID id.ID, to Status, note string, mutate mutation) (*ServiceOrder, error) {
	g, err := s.garage(ctx)
	if err != nil {
		return nil, err
	}
	repo := s.store.Orders(g)

	var (
		order    *ServiceOrder
		from     Status
		effect   Effect
		consumed inventory.Consumption
	)
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := repo.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		from = o.Status
		consumed = o.InventoryConsumption()

		if mutate != nil {
			if err := mutate(ctx, repo, o); err != nil {
				return err
			}
		}

		effect = o.SetStatus(to, note, s.now())
		o.Touch()
		if err := o.Validate(ctx); err != nil {
			return err
		}

		if effect == EffectConsume {
			if err := s.inventory.Consume(ctx, o.InventoryConsumption()); err != nil {
				return &inventoryFailure{err: err}
			}
		}

		if err := repo.Update(ctx, o); err != nil {
			return fmt.Errorf("update service order: %w", err)
		}
		if err := s.events.Publish(ctx, statusEvent(g, o, from, note)); err != nil {
			return fmt.Errorf("publish status change: %w", err)
		}
		if err := s.audit.LogChange(ctx, audit.EntityServiceOrder, o.ID, audit.ActionStatusChange, map[string]any{
			"status": map[string]any{"old": string(from), "new": string(to)},
			"effect": effect.String(),
		}); err != nil {
			return fmt.Errorf("audit status change: %w", err)
		}
		order = o
		return nil
	})
	if err != nil {
		var invErr *inventoryFailure
		if errors.As(err, &invErr) {
			s.recordRevert(ctx, repo, orderID, invErr.err)
			return nil, invErr.err
		}
		return nil, err
	}

	if effect == EffectRestore {
		s.restoreAfterCommit(ctx, order, consumed)
	}

	logger.Info(ctx, "service order status changed",
		"service_order_id", order.ID,
		"from", from,
		"to", to,
		"inventory_effect", effect.String(),
	)
	return order, nil
}

// recordRevert prepends the corrective note after the failed transaction
// rolled the status back.
func (s *Service) recordRevert(ctx context.Context, repo Repository, orderID id.ID, cause error) {
	msg := cause.Error()
	if appErr, ok := apperror.AsAppError(cause); ok {
		msg = appErr.Message
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := repo.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		o.PrependHistory(o.Status, noteInventoryReverts+msg, s.now())
		o.Touch()
		return repo.Update(ctx, o)
	})
	if err != nil {
		logger.Error(ctx, "failed to record inventory revert note",
			"service_order_id", orderID,
			"inventory_error", cause,
			"error", err,
		)
		return
	}
	logger.Warn(ctx, "status change reverted by inventory error",
		"service_order_id", orderID,
		"error", cause,
	)
}

// restoreAfterCommit gives consumed parts back. Failures need manual reconciliation.
func (s *Service) restoreAfterCommit(ctx context.Context, o *ServiceOrder, consumed inventory.Consumption) {
	if err := s.inventory.Restore(ctx, consumed); err != nil {
		logger.Error(ctx, "inventory restore failed, stock must be reconciled manually",
			"service_order_id", o.ID,
			"order_number", o.OrderNumber,
			"status", o.Status,
			"error", err,
		)
	}
}

// --- Mechanic work ---

// AddMechanicWork appends a time entry to an order being worked on.
func (s *Service) AddMechanicWork(ctx context.Context, in MechanicWorkInput) (*ServiceOrder, error) {
	return s.mutate(ctx, in.OrderID, func(o *ServiceOrder) error {
		if o.Status != StatusInProgress && o.Status != StatusApproved {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule,
				"mechanic work can only be added to approved or in-progress orders").
				WithDetail("status", o.Status)
		}
		work, err := newMechanicWork(in)
		if err != nil {
			return err
		}
		o.MechanicWork = append(o.MechanicWork, work)
		return nil
	})
}

// UpdateMechanicWork replaces a time entry and recomputes its hours.
func (s *Service) UpdateMechanicWork(ctx context.Context, in MechanicWorkInput) (*ServiceOrder, error) {
	return s.mutate(ctx, in.OrderID, func(o *ServiceOrder) error {
		for i := range o.MechanicWork {
			if o.MechanicWork[i].ID != in.WorkID {
				continue
			}
			work, err := newMechanicWork(in)
			if err != nil {
				return err
			}
			work.ID = in.WorkID
			o.MechanicWork[i] = work
			return nil
		}
		return apperror.NewNotFound("mechanic work", in.WorkID)
	})
}

func newMechanicWork(in MechanicWorkInput) (MechanicWork, error) {
	if strings.TrimSpace(in.MechanicID) == "" {
		return MechanicWork{}, apperror.NewValidation("mechanic is required").WithDetail("field", "mechanicId")
	}
	if in.StartTime.IsZero() {
		return MechanicWork{}, apperror.NewValidation("start time is required").WithDetail("field", "startTime")
	}
	work := MechanicWork{
		ID:         id.New(),
		MechanicID: in.MechanicID,
		StartTime:  in.StartTime,
		EndTime:    in.EndTime,
		Notes:      in.Notes,
	}
	if in.EndTime != nil {
		if in.EndTime.Before(in.StartTime) {
			return MechanicWork{}, apperror.NewValidation("end time is before start time").WithDetail("field", "endTime")
		}
		work.TotalHours = types.Hours(in.StartTime, *in.EndTime)
	}
	return work, nil
}

// mutate loads, changes and saves an order without touching its status.
func (s *Service) mutate(ctx context.Context, orderID id.ID, fn func(o *ServiceOrder) error) (*ServiceOrder, error) {
	g, err := s.garage(ctx)
	if err != nil {
		return nil, err
	}
	repo := s.store.Orders(g)

	var order *ServiceOrder
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := repo.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := fn(o); err != nil {
			return err
		}
		o.Touch()
		if err := repo.Update(ctx, o); err != nil {
			return fmt.Errorf("update service order: %w", err)
		}
		order = o
		return nil
	})
	return order, err
}

// --- Vehicle history ---

// HistoryEntry summarizes one order of a vehicle.
type HistoryEntry struct {
	ID              id.ID           `json:"id"`
	OrderNumber     string          `json:"orderNumber"`
	OpeningDate     time.Time       `json:"openingDate"`
	Status          Status          `json:"status"`
	ReportedProblem string          `json:"reportedProblem"`
	DeliveryDate    *time.Time      `json:"deliveryDate,omitempty"`
	Total           decimal.Decimal `json:"total"`
}

// VehicleHistory lists a vehicle's orders with totals over delivered ones.
type VehicleHistory struct {
	VehicleID       id.ID           `json:"vehicleId"`
	Orders          []HistoryEntry  `json:"orders"`
	TotalOrders     int             `json:"totalOrders"`
	DeliveredOrders int             `json:"deliveredOrders"`
	TotalParts      decimal.Decimal `json:"totalParts"`
	TotalServices   decimal.Decimal `json:"totalServices"`
	TotalSpent      decimal.Decimal `json:"totalSpent"`
	LastVisit       *time.Time      `json:"lastVisit,omitempty"`
}

// VehicleHistory returns the service history of a vehicle of the garage.
func (s *Service) VehicleHistory(ctx context.Context, vehicleID id.ID) (*VehicleHistory, error) {
	g, err := s.garage(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.vehicles.FindVehicle(ctx, g, vehicleID); err != nil {
		return nil, err
	}
	orders, err := s.store.Orders(g).ListByVehicle(ctx, vehicleID)
	if err != nil {
		return nil, err
	}

	h := &VehicleHistory{
		VehicleID:     vehicleID,
		Orders:        make([]HistoryEntry, 0, len(orders)),
		TotalOrders:   len(orders),
		TotalParts:    decimal.Zero,
		TotalServices: decimal.Zero,
		TotalSpent:    decimal.Zero,
	}
	for _, o := range orders {
		h.Orders = append(h.Orders, HistoryEntry{
			ID:              o.ID,
			OrderNumber:     o.OrderNumber,
			OpeningDate:     o.OpeningDate,
			Status:          o.Status,
			ReportedProblem: o.ReportedProblem,
			DeliveryDate:    o.DeliveryDate,
			Total:           o.Total(),
		})
		if h.LastVisit == nil || o.OpeningDate.After(*h.LastVisit) {
			opened := o.OpeningDate
			h.LastVisit = &opened
		}
		if o.Status != StatusDelivered {
			continue
		}
		h.DeliveredOrders++
		parts, services := deliveredTotals(o)
		h.TotalParts = h.TotalParts.Add(parts)
		h.TotalServices = h.TotalServices.Add(services)
		h.TotalSpent = h.TotalSpent.Add(parts.Add(services))
	}
	return h, nil
}

// deliveredTotals prefers the final totals and falls back to line sums.
func deliveredTotals(o *ServiceOrder) (decimal.Decimal, decimal.Decimal) {
	parts := decimal.Zero
	if o.FinalTotalParts != nil {
		parts = *o.FinalTotalParts
	} else {
		for _, l := range o.RequiredParts {
			parts = parts.Add(l.TotalPrice)
		}
	}
	services := decimal.Zero
	if o.FinalTotalServices != nil {
		services = *o.FinalTotalServices
	} else {
		for _, l := range o.Services {
			services = services.Add(l.TotalPrice)
		}
	}
	return parts, services
}

// --- helpers ---

func (s *Service) garage(ctx context.Context) (tenant.GarageID, error) {
	g, err := tenant.RequireGarage(ctx)
	if err != nil {
		return tenant.GarageID{}, apperror.NewForbidden(err.Error()).WithCause(err)
	}
	return g, nil
}

func (s *Service) checkVehicle(ctx context.Context, g tenant.GarageID, vehicleID id.ID) (*Vehicle, error) {
	if id.IsNil(vehicleID) {
		return nil, apperror.NewValidation("vehicle is required").WithDetail("field", "vehicleId")
	}
	v, err := s.vehicles.FindVehicle(ctx, g, vehicleID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewValidation("Veículo não encontrado na sua oficina.").
				WithDetail("field", "vehicleId")
		}
		return nil, err
	}
	return v, nil
}

func decisionFor(approve, viaLink bool, reason *string) (Status, BudgetApprovalStatus, string, string) {
	if approve {
		if viaLink {
			return StatusApproved, BudgetApproved, DecisionApproved, noteApprovedViaLink
		}
		return StatusApproved, BudgetApproved, DecisionApproved, noteBudgetApproved
	}
	note := noteBudgetRejected
	if viaLink {
		note = noteRejectedViaLink
	}
	if reason != nil && strings.TrimSpace(*reason) != "" {
		note += ". Motivo: " + strings.TrimSpace(*reason)
	}
	return StatusRejected, BudgetRejected, DecisionRejected, note
}

func (s *Service) publishDecision(ctx context.Context, g tenant.GarageID, o *ServiceOrder, decision string, reason *string, viaLink bool) error {
	payload := events.BudgetDecided{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Decision:    decision,
		ViaLink:     viaLink,
	}
	if reason != nil {
		payload.Reason = *reason
	}
	if err := s.events.Publish(ctx, events.Event{
		AggregateType: events.AggregateOrder,
		AggregateID:   o.ID,
		GarageID:      g.UUID(),
		Type:          events.TypeBudgetDecided,
		Payload:       payload,
	}); err != nil {
		return fmt.Errorf("publish budget decision: %w", err)
	}
	return s.audit.LogChange(ctx, audit.EntityServiceOrder, o.ID, audit.ActionDecision, map[string]any{
		"decision": decision,
		"via_link": viaLink,
		"actor":    audit.Actor(ctx),
	})
}

func statusEvent(g tenant.GarageID, o *ServiceOrder, from Status, note string) events.Event {
	return events.Event{
		AggregateType: events.AggregateOrder,
		AggregateID:   o.ID,
		GarageID:      g.UUID(),
		Type:          events.TypeStatusChanged,
		Payload: events.StatusChanged{
			OrderID:     o.ID,
			OrderNumber: o.OrderNumber,
			From:        string(from),
			To:          string(o.Status),
			Notes:       note,
		},
	}
}

// sameLines compares the per-part quantities of two consumptions.
func sameLines(a, b inventory.Consumption) bool {
	sum := func(c inventory.Consumption) map[id.ID]int {
		m := make(map[id.ID]int, len(c.Lines))
		for _, l := range c.Lines {
			m[l.PartID] += l.Quantity
		}
		return m
	}
	ma, mb := sum(a), sum(b)
	if len(ma) != len(mb) {
		return false
	}
	for k, v := range ma {
		if mb[k] != v {
			return false
		}
	}
	return true
}
