package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"oficina/internal/core/apperror"
	"oficina/internal/core/entity"
	"oficina/internal/core/id"
	"oficina/internal/core/tenant"
	"oficina/internal/core/tx"
	"oficina/internal/domain"
	"oficina/internal/domain/audit"
	"oficina/internal/domain/events"
	"oficina/pkg/logger"
)

// Line is one inventory-backed part line of a service order.
type Line struct {
	PartID      id.ID
	Quantity    int
	Description string
}

// Consumption identifies the order whose lines are consumed or restored.
type Consumption struct {
	OrderID     id.ID
	OrderNumber string
	Lines       []Line
}

// ManualExit is a single-line exit outside the service-order flow.
type ManualExit struct {
	PartID      id.ID
	Quantity    int
	Description string
	ExitType    ExitType
	CostPrice   *decimal.Decimal
	Reference   *string
	EntryDate   *time.Time
}

// NewEntry is a purchase or adjustment that adds stock.
type NewEntry struct {
	PartID        id.ID
	Quantity      int
	CostPrice     decimal.Decimal
	SellingPrice  decimal.Decimal
	ProfitMargin  *decimal.Decimal
	Description   string
	InvoiceNumber *string
	SupplierID    *id.ID
	EntryDate     *time.Time
}

// EntryUpdate replaces the editable fields of an existing entry.
type EntryUpdate struct {
	ID            id.ID
	Quantity      int
	CostPrice     decimal.Decimal
	SellingPrice  decimal.Decimal
	ProfitMargin  *decimal.Decimal
	Description   string
	InvoiceNumber *string
	SupplierID    *id.ID
	EntryDate     *time.Time
}

// AvailabilityRequest is one line of a budget pre-flight.
type AvailabilityRequest struct {
	PartID   id.ID
	Quantity int
}

// AvailabilityItem answers one AvailabilityRequest.
type AvailabilityItem struct {
	PartID      id.ID  `json:"partId"`
	Name        string `json:"name"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
	IsAvailable bool   `json:"isAvailable"`
}

// Availability is the result of CheckAvailability.
type Availability struct {
	Items        []AvailabilityItem `json:"items"`
	AllAvailable bool               `json:"allAvailable"`
}

// Service owns the transaction boundary of every stock mutation.
type Service struct {
	store     Store
	txManager tx.Manager
	events    events.Publisher
	audit     audit.Logger
}

// NewService creates the inventory service. Nil publisher or audit logger disable those side effects.
func NewService(store Store, txManager tx.Manager, publisher events.Publisher, auditLog audit.Logger) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	if auditLog == nil {
		auditLog = audit.Nop{}
	}
	return &Service{
		store:     store,
		txManager: txManager,
		events:    publisher,
		audit:     auditLog,
	}
}

// scope bundles the garage-bound collaborators of one call.
type scope struct {
	garage  tenant.GarageID
	parts   PartRepository
	ledger  *Ledger
	catalog *Catalog
}

func (s *Service) scope(ctx context.Context) (*scope, error) {
	g, err := tenant.RequireGarage(ctx)
	if err != nil {
		return nil, apperror.NewForbidden(err.Error()).WithCause(err)
	}
	parts := s.store.Parts(g)
	ledger := NewLedger(s.store.Ledger(g))
	return &scope{
		garage:  g,
		parts:   parts,
		ledger:  ledger,
		catalog: NewCatalog(parts, ledger),
	}, nil
}

// --- Service-order consumption ---

// Consume writes one exit per line after checking that every part covers the
// total requested for it. Nothing is written when any part is short.
// Joins the caller's transaction when one is open.
func (s *Service) Consume(ctx context.Context, c Consumption) error {
	return s.applyOrderBatch(ctx, c, true)
}

// Restore writes one entry per line, the inverse of Consume.
func (s *Service) Restore(ctx context.Context, c Consumption) error {
	return s.applyOrderBatch(ctx, c, false)
}

func (s *Service) applyOrderBatch(ctx context.Context, c Consumption, consume bool) error {
	if len(c.Lines) == 0 {
		return nil
	}
	for _, l := range c.Lines {
		if l.Quantity <= 0 {
			return apperror.NewInvalidQuantity(l.Quantity).WithDetail("part_id", l.PartID)
		}
	}

	sc, err := s.scope(ctx)
	if err != nil {
		return err
	}

	requested := make(map[id.ID]int, len(c.Lines))
	for _, l := range c.Lines {
		requested[l.PartID] += l.Quantity
	}
	partIDs := make([]id.ID, 0, len(requested))
	for pid := range requested {
		partIDs = append(partIDs, pid)
	}
	partIDs = id.SortUnique(partIDs)

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		parts, err := s.lockParts(ctx, sc, partIDs)
		if err != nil {
			return err
		}

		before, err := sc.ledger.repo.SumQuantities(ctx, partIDs)
		if err != nil {
			return fmt.Errorf("sum stock: %w", err)
		}

		if consume {
			var shortages []Shortage
			for _, pid := range partIDs {
				if before[pid] < requested[pid] {
					shortages = append(shortages, Shortage{
						PartID:    pid,
						PartName:  parts[pid].Name,
						Available: before[pid],
						Requested: requested[pid],
					})
				}
			}
			if len(shortages) > 0 {
				return insufficientStock(shortages)
			}
		}

		running := make(map[id.ID]int, len(before))
		for pid, qty := range before {
			running[pid] = qty
		}

		reference := c.OrderID.String()
		orderID := c.OrderID
		movements := make([]*Movement, 0, len(c.Lines))
		for _, l := range c.Lines {
			part := parts[l.PartID]
			var m *Movement
			if consume {
				running[l.PartID] -= l.Quantity
				m = newMovement(l.PartID, -l.Quantity, MovementExit)
				exitType := ExitServiceOrder
				m.ExitType = &exitType
				m.CostPrice = part.CostPrice
				m.Description = "Consumo para Ordem de Serviço " + c.OrderNumber
			} else {
				running[l.PartID] += l.Quantity
				m = newMovement(l.PartID, l.Quantity, MovementEntry)
				m.CostPrice = part.ExitCost()
				m.Description = "Devolução da Ordem de Serviço " + c.OrderNumber
			}
			m.AssignTo(sc.garage)
			m.SellingPrice = part.SellingPrice
			m.ProfitMargin = part.ProfitMargin
			m.Reference = &reference
			m.ServiceOrderID = &orderID
			m.CurrentQuantity = running[l.PartID]
			audit.EnrichCreatedBy(ctx, &m.CreatedBy)
			movements = append(movements, m)
		}

		if err := sc.ledger.RecordBatch(ctx, movements); err != nil {
			return err
		}
		return s.afterStockChange(ctx, sc, partIDs, before, running, reference)
	})
	if err != nil {
		logger.Warn(ctx, "service order inventory batch failed",
			"service_order_id", c.OrderID,
			"consume", consume,
			"part_ids", partIDs,
			"error", err,
		)
		return err
	}

	logger.Info(ctx, "service order inventory batch applied",
		"service_order_id", c.OrderID,
		"consume", consume,
		"lines", len(c.Lines),
	)
	return nil
}

// lockParts locks the rows in id order and fails if any part is unknown to the garage.
func (s *Service) lockParts(ctx context.Context, sc *scope, partIDs []id.ID) (map[id.ID]*Part, error) {
	parts, err := sc.parts.LockByIDs(ctx, partIDs)
	if err != nil {
		return nil, fmt.Errorf("lock parts: %w", err)
	}
	for _, pid := range partIDs {
		if _, ok := parts[pid]; !ok {
			return nil, partNotFound(pid)
		}
	}
	return parts, nil
}

// afterStockChange recomputes caches and emits one event per touched part.
func (s *Service) afterStockChange(ctx context.Context, sc *scope, partIDs []id.ID, before, after map[id.ID]int, reference string) error {
	evts := make([]events.Event, 0, len(partIDs))
	for _, pid := range partIDs {
		if _, err := sc.catalog.RecomputePartCache(ctx, pid); err != nil {
			return err
		}
		evts = append(evts, events.Event{
			AggregateType: events.AggregatePart,
			AggregateID:   pid,
			GarageID:      sc.garage.UUID(),
			Type:          events.TypeStockChanged,
			Payload: events.StockChanged{
				PartID:       pid,
				Delta:        after[pid] - before[pid],
				CurrentStock: after[pid],
				Reference:    reference,
			},
		})
	}
	if err := s.events.Publish(ctx, evts...); err != nil {
		return fmt.Errorf("publish stock events: %w", err)
	}
	return nil
}

// --- Manual ledger operations ---

// CreateManualExit books a loss, transfer or ad-hoc exit for one part.
func (s *Service) CreateManualExit(ctx context.Context, in ManualExit) (*Movement, error) {
	if in.Quantity <= 0 {
		return nil, apperror.NewInvalidQuantity(in.Quantity)
	}
	if in.ExitType == "" {
		in.ExitType = ExitManual
	}
	sc, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}

	var result *Movement
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		parts, err := s.lockParts(ctx, sc, []id.ID{in.PartID})
		if err != nil {
			return err
		}
		part := parts[in.PartID]

		stock, err := sc.ledger.CurrentStock(ctx, in.PartID)
		if err != nil {
			return err
		}
		if stock < in.Quantity {
			return insufficientStock([]Shortage{{
				PartID:    in.PartID,
				PartName:  part.Name,
				Available: stock,
				Requested: in.Quantity,
			}})
		}

		m := newMovement(in.PartID, -in.Quantity, MovementExit)
		m.AssignTo(sc.garage)
		exitType := in.ExitType
		m.ExitType = &exitType
		m.CostPrice = part.ExitCost()
		if in.CostPrice != nil {
			m.CostPrice = *in.CostPrice
		}
		m.SellingPrice = part.SellingPrice
		m.ProfitMargin = part.ProfitMargin
		m.Reference = in.Reference
		m.Description = strings.TrimSpace(in.Description)
		if in.EntryDate != nil {
			m.EntryDate = *in.EntryDate
		}
		m.CurrentQuantity = stock - in.Quantity
		audit.EnrichCreatedBy(ctx, &m.CreatedBy)

		if err := sc.ledger.Record(ctx, m); err != nil {
			return err
		}
		result = m
		return s.afterStockChange(ctx, sc, []id.ID{in.PartID},
			map[id.ID]int{in.PartID: stock},
			map[id.ID]int{in.PartID: m.CurrentQuantity},
			m.ID.String())
	})
	if err != nil {
		logger.Warn(ctx, "manual exit failed", "part_id", in.PartID, "quantity", in.Quantity, "error", err)
		return nil, err
	}

	logger.Info(ctx, "manual exit recorded", "part_id", in.PartID, "quantity", in.Quantity, "exit_type", in.ExitType)
	return result, nil
}

// CreateEntry adds stock and refreshes the part's last-known prices.
func (s *Service) CreateEntry(ctx context.Context, in NewEntry) (*Movement, error) {
	if in.Quantity <= 0 {
		return nil, apperror.NewInvalidQuantity(in.Quantity)
	}
	sc, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}

	var result *Movement
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		parts, err := s.lockParts(ctx, sc, []id.ID{in.PartID})
		if err != nil {
			return err
		}
		part := parts[in.PartID]

		stock, err := sc.ledger.CurrentStock(ctx, in.PartID)
		if err != nil {
			return err
		}

		m := newMovement(in.PartID, in.Quantity, MovementEntry)
		m.AssignTo(sc.garage)
		m.CostPrice = in.CostPrice
		m.SellingPrice = in.SellingPrice
		m.ProfitMargin = part.ProfitMargin
		if in.ProfitMargin != nil {
			m.ProfitMargin = *in.ProfitMargin
		}
		m.Description = strings.TrimSpace(in.Description)
		m.InvoiceNumber = in.InvoiceNumber
		m.SupplierID = in.SupplierID
		if in.EntryDate != nil {
			m.EntryDate = *in.EntryDate
		}
		m.CurrentQuantity = stock + in.Quantity
		audit.EnrichCreatedBy(ctx, &m.CreatedBy)

		if err := sc.ledger.Record(ctx, m); err != nil {
			return err
		}

		part.CostPrice = m.CostPrice
		if m.SellingPrice.IsPositive() {
			part.SellingPrice = m.SellingPrice
		}
		part.ProfitMargin = m.ProfitMargin
		part.Touch()
		if err := sc.parts.Update(ctx, part); err != nil {
			return fmt.Errorf("update part prices: %w", err)
		}

		result = m
		return s.afterStockChange(ctx, sc, []id.ID{in.PartID},
			map[id.ID]int{in.PartID: stock},
			map[id.ID]int{in.PartID: m.CurrentQuantity},
			m.ID.String())
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock entry recorded", "part_id", in.PartID, "quantity", in.Quantity)
	return result, nil
}

// EditEntry replaces an entry row. Lowering the quantity below what is still
// in stock is refused.
func (s *Service) EditEntry(ctx context.Context, in EntryUpdate) (*Movement, error) {
	if in.Quantity <= 0 {
		return nil, apperror.NewInvalidQuantity(in.Quantity)
	}
	sc, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}

	var result *Movement
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		m, err := sc.ledger.repo.GetByID(ctx, in.ID)
		if err != nil {
			return err
		}
		if m.MovementType != MovementEntry {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule, "only entries can be edited").
				WithDetail("movement_id", m.ID)
		}
		if m.BelongsToServiceOrder() {
			return serviceOrderOwned(m)
		}

		parts, err := s.lockParts(ctx, sc, []id.ID{m.PartID})
		if err != nil {
			return err
		}
		stock, err := sc.ledger.CurrentStock(ctx, m.PartID)
		if err != nil {
			return err
		}
		newStock := stock - m.Quantity + in.Quantity
		if newStock < 0 {
			return insufficientStock([]Shortage{{
				PartID:    m.PartID,
				PartName:  parts[m.PartID].Name,
				Available: stock,
				Requested: m.Quantity - in.Quantity,
			}})
		}

		oldState := movementSnapshot(m)
		m.Quantity = in.Quantity
		m.CostPrice = in.CostPrice
		m.SellingPrice = in.SellingPrice
		if in.ProfitMargin != nil {
			m.ProfitMargin = *in.ProfitMargin
		}
		m.Description = strings.TrimSpace(in.Description)
		m.InvoiceNumber = in.InvoiceNumber
		m.SupplierID = in.SupplierID
		if in.EntryDate != nil {
			m.EntryDate = *in.EntryDate
		}
		m.CurrentQuantity = newStock
		m.Touch()
		if err := m.Validate(ctx); err != nil {
			return err
		}

		if err := sc.ledger.repo.Update(ctx, m); err != nil {
			return fmt.Errorf("update movement: %w", err)
		}
		if err := s.audit.LogChange(ctx, audit.EntityStockMovement, m.ID, audit.ActionUpdate,
			audit.Diff(oldState, movementSnapshot(m))); err != nil {
			return fmt.Errorf("audit movement update: %w", err)
		}

		result = m
		return s.afterStockChange(ctx, sc, []id.ID{m.PartID},
			map[id.ID]int{m.PartID: stock},
			map[id.ID]int{m.PartID: newStock},
			m.ID.String())
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock entry edited", "movement_id", in.ID, "quantity", in.Quantity)
	return result, nil
}

func serviceOrderOwned(m *Movement) error {
	return apperror.NewBusinessRule(apperror.CodeBusinessRule, "movement belongs to a service order").
		WithDetail("movement_id", m.ID).
		WithDetail("service_order_id", m.ServiceOrderID).
		WithDetail("reference", m.Reference)
}

// RemoveEntry deletes a ledger row. Rows written by service orders are
// reverted through the order's status, never removed directly.
func (s *Service) RemoveEntry(ctx context.Context, movementID id.ID) error {
	sc, err := s.scope(ctx)
	if err != nil {
		return err
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		m, err := sc.ledger.repo.GetByID(ctx, movementID)
		if err != nil {
			return err
		}
		if m.BelongsToServiceOrder() {
			return serviceOrderOwned(m)
		}

		parts, err := s.lockParts(ctx, sc, []id.ID{m.PartID})
		if err != nil {
			return err
		}
		stock, err := sc.ledger.CurrentStock(ctx, m.PartID)
		if err != nil {
			return err
		}
		newStock := stock - m.Quantity
		if newStock < 0 {
			return insufficientStock([]Shortage{{
				PartID:    m.PartID,
				PartName:  parts[m.PartID].Name,
				Available: stock,
				Requested: m.Quantity,
			}})
		}

		if err := sc.ledger.repo.Delete(ctx, m.ID); err != nil {
			return fmt.Errorf("delete movement: %w", err)
		}
		if err := s.audit.LogChange(ctx, audit.EntityStockMovement, m.ID, audit.ActionDelete,
			audit.Diff(movementSnapshot(m), nil)); err != nil {
			return fmt.Errorf("audit movement delete: %w", err)
		}

		return s.afterStockChange(ctx, sc, []id.ID{m.PartID},
			map[id.ID]int{m.PartID: stock},
			map[id.ID]int{m.PartID: newStock},
			m.ID.String())
	})
	if err != nil {
		return err
	}

	logger.Info(ctx, "stock movement removed", "movement_id", movementID)
	return nil
}

// GetEntry returns one ledger row.
func (s *Service) GetEntry(ctx context.Context, movementID id.ID) (*Movement, error) {
	sc, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	return sc.ledger.repo.GetByID(ctx, movementID)
}

// ListEntries pages through the ledger, newest first.
func (s *Service) ListEntries(ctx context.Context, filter MovementFilter) (domain.ListResult[*Movement], error) {
	sc, err := s.scope(ctx)
	if err != nil {
		return domain.ListResult[*Movement]{}, err
	}
	filter.Normalize()
	return sc.ledger.repo.List(ctx, filter)
}

// --- Stock queries ---

// GetStock returns the ledger-derived stock of one part.
func (s *Service) GetStock(ctx context.Context, partID id.ID) (*StockLevel, error) {
	sc, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	part, err := sc.parts.GetByID(ctx, partID)
	if err != nil {
		return nil, err
	}
	stock, err := sc.ledger.CurrentStock(ctx, partID)
	if err != nil {
		return nil, err
	}
	return &StockLevel{
		PartID:       part.ID.String(),
		Name:         part.Name,
		Unit:         part.Unit,
		CurrentStock: stock,
		MinimumStock: part.MinimumStock,
	}, nil
}

// CheckAvailability answers whether a budget could be consumed right now.
// It takes no locks; the answer may be stale by the time the order moves.
func (s *Service) CheckAvailability(ctx context.Context, reqs []AvailabilityRequest) (*Availability, error) {
	sc, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}

	totals := make(map[id.ID]int, len(reqs))
	partIDs := make([]id.ID, 0, len(reqs))
	for _, r := range reqs {
		if r.Quantity <= 0 {
			return nil, apperror.NewInvalidQuantity(r.Quantity).WithDetail("part_id", r.PartID)
		}
		totals[r.PartID] += r.Quantity
		partIDs = append(partIDs, r.PartID)
	}
	partIDs = id.SortUnique(partIDs)

	parts, err := sc.parts.GetByIDs(ctx, partIDs)
	if err != nil {
		return nil, fmt.Errorf("load parts: %w", err)
	}
	stock, err := sc.ledger.repo.SumQuantities(ctx, partIDs)
	if err != nil {
		return nil, fmt.Errorf("sum stock: %w", err)
	}

	result := &Availability{Items: make([]AvailabilityItem, 0, len(reqs)), AllAvailable: true}
	for _, r := range reqs {
		item := AvailabilityItem{PartID: r.PartID, Requested: r.Quantity}
		if part, ok := parts[r.PartID]; ok {
			item.Name = part.Name
			item.Available = stock[r.PartID]
			item.IsAvailable = item.Available >= totals[r.PartID]
		}
		if !item.IsAvailable {
			result.AllAvailable = false
		}
		result.Items = append(result.Items, item)
	}
	return result, nil
}

// --- Part catalog ---

// CreatePart inserts a part. Its average cost starts at zero.
func (s *Service) CreatePart(ctx context.Context, p *Part) (*Part, error) {
	sc, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	if id.IsNil(p.ID) {
		p.Base = entity.NewBase()
	}
	p.AssignTo(sc.garage)
	p.AverageCost = decimal.Zero
	if err := p.Validate(ctx); err != nil {
		return nil, err
	}
	if err := sc.parts.Create(ctx, p); err != nil {
		return nil, err
	}
	logger.Info(ctx, "part created", "part_id", p.ID, "code", p.Code)
	return p, nil
}

// UpdatePart replaces the descriptive and pricing fields. The ledger-derived
// average cost is kept.
func (s *Service) UpdatePart(ctx context.Context, p *Part) (*Part, error) {
	sc, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	existing, err := sc.parts.GetByID(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.AssignTo(sc.garage)
	p.CreatedAt = existing.CreatedAt
	p.AverageCost = existing.AverageCost
	p.Touch()
	if err := p.Validate(ctx); err != nil {
		return nil, err
	}
	if err := sc.parts.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// DeletePart removes a part without ledger history.
func (s *Service) DeletePart(ctx context.Context, partID id.ID) error {
	sc, err := s.scope(ctx)
	if err != nil {
		return err
	}
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := sc.parts.LockByIDs(ctx, []id.ID{partID}); err != nil {
			return fmt.Errorf("lock part: %w", err)
		}
		return sc.catalog.DeletePart(ctx, partID)
	})
	if err != nil {
		return err
	}
	logger.Info(ctx, "part deleted", "part_id", partID)
	return nil
}

// GetPart returns a part with its current stock.
func (s *Service) GetPart(ctx context.Context, partID id.ID) (*PartView, error) {
	sc, err := s.scope(ctx)
	if err != nil {
		return nil, err
	}
	part, err := sc.parts.GetByID(ctx, partID)
	if err != nil {
		return nil, err
	}
	stock, err := sc.ledger.CurrentStock(ctx, partID)
	if err != nil {
		return nil, err
	}
	return newPartView(part, stock), nil
}

// ListParts pages through the catalog and attaches current stock to each part.
func (s *Service) ListParts(ctx context.Context, filter PartFilter) (domain.ListResult[*PartView], error) {
	sc, err := s.scope(ctx)
	if err != nil {
		return domain.ListResult[*PartView]{}, err
	}
	filter.Normalize()

	page, err := sc.parts.List(ctx, filter)
	if err != nil {
		return domain.ListResult[*PartView]{}, err
	}

	partIDs := make([]id.ID, 0, len(page.Items))
	for _, p := range page.Items {
		partIDs = append(partIDs, p.ID)
	}
	stock := map[id.ID]int{}
	if len(partIDs) > 0 {
		stock, err = sc.ledger.repo.SumQuantities(ctx, partIDs)
		if err != nil {
			return domain.ListResult[*PartView]{}, fmt.Errorf("sum stock: %w", err)
		}
	}

	views := make([]*PartView, 0, len(page.Items))
	for _, p := range page.Items {
		views = append(views, newPartView(p, stock[p.ID]))
	}
	return domain.ListResult[*PartView]{
		Items:      views,
		TotalCount: page.TotalCount,
		Limit:      page.Limit,
		Offset:     page.Offset,
	}, nil
}

func newPartView(p *Part, stock int) *PartView {
	return &PartView{
		Part:         p,
		CurrentStock: stock,
		LowStock:     stock <= p.MinimumStock,
	}
}

func movementSnapshot(m *Movement) map[string]any {
	if m == nil {
		return nil
	}
	snap := map[string]any{
		"quantity":      m.Quantity,
		"cost_price":    m.CostPrice.String(),
		"selling_price": m.SellingPrice.String(),
		"profit_margin": m.ProfitMargin.String(),
		"description":   m.Description,
		"entry_date":    m.EntryDate.UTC().Format(time.RFC3339),
	}
	if m.InvoiceNumber != nil {
		snap["invoice_number"] = *m.InvoiceNumber
	}
	if m.SupplierID != nil {
		snap["supplier_id"] = m.SupplierID.String()
	}
	return snap
}
