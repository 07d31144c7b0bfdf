package serviceorder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"oficina/internal/core/apperror"
	"oficina/internal/core/entity"
	"oficina/internal/core/id"
	"oficina/internal/domain/inventory"
)

// PartLine is a budget line for a part. Only lines with FromInventory and a
// PartID touch the stock ledger.
type PartLine struct {
	Description   string          `json:"description"`
	Code          string          `json:"code,omitempty"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	PartID        *id.ID          `json:"partId,omitempty"`
	FromInventory bool            `json:"fromInventory"`
}

// ServiceLine is a labour line of the budget.
type ServiceLine struct {
	Description    string          `json:"description"`
	EstimatedHours decimal.Decimal `json:"estimatedHours"`
	PricePerHour   decimal.Decimal `json:"pricePerHour"`
	TotalPrice     decimal.Decimal `json:"totalPrice"`
}

// ChecklistItem is one item of the entry or exit inspection.
type ChecklistItem struct {
	Description string `json:"description"`
	Checked     bool   `json:"checked"`
	Notes       string `json:"notes,omitempty"`
}

// MechanicWork is a time entry of a mechanic on the order.
type MechanicWork struct {
	ID         id.ID      `json:"id"`
	MechanicID string     `json:"mechanicId"`
	StartTime  time.Time  `json:"startTime"`
	EndTime    *time.Time `json:"endTime,omitempty"`
	TotalHours float64    `json:"totalHours"`
	Notes      string     `json:"notes,omitempty"`
}

// TestDrive records the road test done before delivery.
type TestDrive struct {
	Performed bool       `json:"performed"`
	Date      *time.Time `json:"date,omitempty"`
	Notes     string     `json:"notes,omitempty"`
}

// StatusChange is one history entry. History is newest first.
type StatusChange struct {
	Status Status    `json:"status"`
	Date   time.Time `json:"date"`
	Notes  string    `json:"notes,omitempty"`
}

// ServiceOrder is the aggregate root of a repair job.
type ServiceOrder struct {
	entity.Base

	OrderNumber     string          `json:"orderNumber"`
	VehicleID       id.ID           `json:"vehicleId"`
	ClientID        *id.ID          `json:"clientId,omitempty"`
	OpeningDate     time.Time       `json:"openingDate"`
	CurrentMileage  *int            `json:"currentMileage,omitempty"`
	FuelLevel       *int            `json:"fuelLevel,omitempty"`
	ReportedProblem string          `json:"reportedProblem"`
	VisibleDamages  []string        `json:"visibleDamages"`
	EntryChecklist  []ChecklistItem `json:"entryChecklist"`

	Status        Status         `json:"status"`
	StatusHistory []StatusChange `json:"statusHistory"`

	IdentifiedProblems      []string        `json:"identifiedProblems"`
	RequiredParts           []PartLine      `json:"requiredParts"`
	Services                []ServiceLine   `json:"services"`
	EstimatedTotalParts     decimal.Decimal `json:"estimatedTotalParts"`
	EstimatedTotalServices  decimal.Decimal `json:"estimatedTotalServices"`
	EstimatedTotal          decimal.Decimal `json:"estimatedTotal"`
	EstimatedCompletionDate *time.Time      `json:"estimatedCompletionDate,omitempty"`
	TechnicalObservations   string          `json:"technicalObservations,omitempty"`

	BudgetApprovalStatus *BudgetApprovalStatus `json:"budgetApprovalStatus,omitempty"`
	BudgetApprovalDate   *time.Time            `json:"budgetApprovalDate,omitempty"`
	BudgetApproval       *BudgetApproval       `json:"budgetApproval,omitempty"`

	MechanicWork       []MechanicWork   `json:"mechanicWork"`
	ExitChecklist      []ChecklistItem  `json:"exitChecklist"`
	TestDrive          *TestDrive       `json:"testDrive,omitempty"`
	InvoiceNumber      *string          `json:"invoiceNumber,omitempty"`
	InvoiceDate        *time.Time       `json:"invoiceDate,omitempty"`
	PaymentMethod      *PaymentMethod   `json:"paymentMethod,omitempty"`
	FinalTotalParts    *decimal.Decimal `json:"finalTotalParts,omitempty"`
	FinalTotalServices *decimal.Decimal `json:"finalTotalServices,omitempty"`
	FinalTotal         *decimal.Decimal `json:"finalTotal,omitempty"`
	CompletionDate     *time.Time       `json:"completionDate,omitempty"`
	DeliveryDate       *time.Time       `json:"deliveryDate,omitempty"`
}

// New creates an OPENED order with its first history entry.
func New(vehicleID id.ID, reportedProblem string, at time.Time) *ServiceOrder {
	o := &ServiceOrder{
		Base:                   entity.NewBase(),
		VehicleID:              vehicleID,
		OpeningDate:            at,
		ReportedProblem:        strings.TrimSpace(reportedProblem),
		Status:                 StatusOpened,
		EstimatedTotalParts:    decimal.Zero,
		EstimatedTotalServices: decimal.Zero,
		EstimatedTotal:         decimal.Zero,
	}
	o.PrependHistory(StatusOpened, "Ordem de serviço criada", at)
	return o
}

// PrependHistory adds an entry at the head of the history. Existing entries are never rewritten.
func (o *ServiceOrder) PrependHistory(status Status, notes string, at time.Time) {
	entry := StatusChange{Status: status, Date: at, Notes: notes}
	o.StatusHistory = append([]StatusChange{entry}, o.StatusHistory...)
}

// SetStatus moves the order, records the history entry and returns the
// inventory effect of the move.
func (o *ServiceOrder) SetStatus(to Status, notes string, at time.Time) Effect {
	effect := EffectOf(o.Status, to)
	o.Status = to
	o.PrependHistory(to, notes, at)
	return effect
}

// InventoryConsumption returns the ledger-backed lines of the budget.
func (o *ServiceOrder) InventoryConsumption() inventory.Consumption {
	c := inventory.Consumption{OrderID: o.ID, OrderNumber: o.OrderNumber}
	for _, line := range o.RequiredParts {
		if !line.FromInventory || line.PartID == nil || id.IsNil(*line.PartID) {
			continue
		}
		c.Lines = append(c.Lines, inventory.Line{
			PartID:      *line.PartID,
			Quantity:    line.Quantity,
			Description: line.Description,
		})
	}
	return c
}

// RecalculateEstimates fills missing line totals and sums the budget.
func (o *ServiceOrder) RecalculateEstimates() {
	parts := decimal.Zero
	for i := range o.RequiredParts {
		line := &o.RequiredParts[i]
		if line.TotalPrice.IsZero() && !line.UnitPrice.IsZero() {
			line.TotalPrice = line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		}
		parts = parts.Add(line.TotalPrice)
	}

	services := decimal.Zero
	for i := range o.Services {
		line := &o.Services[i]
		if line.TotalPrice.IsZero() && !line.PricePerHour.IsZero() {
			line.TotalPrice = line.PricePerHour.Mul(line.EstimatedHours).Round(2)
		}
		services = services.Add(line.TotalPrice)
	}

	o.EstimatedTotalParts = parts
	o.EstimatedTotalServices = services
	o.EstimatedTotal = parts.Add(services)
}

// Total is the final total when the order was closed, the estimate otherwise.
func (o *ServiceOrder) Total() decimal.Decimal {
	if o.FinalTotal != nil {
		return *o.FinalTotal
	}
	return o.EstimatedTotal
}

// SetBudgetDecision stores the client's answer.
func (o *ServiceOrder) SetBudgetDecision(decision BudgetApprovalStatus, at time.Time) {
	o.BudgetApprovalStatus = &decision
	o.BudgetApprovalDate = &at
}

// Validate implements entity.Validatable interface.
func (o *ServiceOrder) Validate(ctx context.Context) error {
	if id.IsNil(o.VehicleID) {
		return apperror.NewValidation("vehicle is required").WithDetail("field", "vehicleId")
	}
	if strings.TrimSpace(o.ReportedProblem) == "" {
		return apperror.NewValidation("reported problem is required").WithDetail("field", "reportedProblem")
	}
	if !o.Status.Valid() {
		return apperror.NewValidation("invalid status").WithDetail("field", "status")
	}
	if o.FuelLevel != nil && (*o.FuelLevel < 0 || *o.FuelLevel > 100) {
		return apperror.NewValidation("fuel level must be between 0 and 100").WithDetail("field", "fuelLevel")
	}
	if o.CurrentMileage != nil && *o.CurrentMileage < 0 {
		return apperror.NewValidation("mileage cannot be negative").WithDetail("field", "currentMileage")
	}
	return validateParts(o.RequiredParts)
}

func validateParts(lines []PartLine) error {
	for i, line := range lines {
		field := fmt.Sprintf("requiredParts[%d]", i)
		if line.Quantity <= 0 {
			return apperror.NewInvalidQuantity(line.Quantity).WithDetail("field", field+".quantity")
		}
		if line.FromInventory && (line.PartID == nil || id.IsNil(*line.PartID)) {
			return apperror.NewValidation("inventory lines require a part").WithDetail("field", field+".partId")
		}
		if line.UnitPrice.IsNegative() || line.TotalPrice.IsNegative() {
			return apperror.NewValidation("prices cannot be negative").WithDetail("field", field)
		}
	}
	return nil
}
