package serviceorder_repo

import (
	"time"

	"github.com/shopspring/decimal"

	"oficina/internal/core/entity"
	"oficina/internal/core/id"
	"oficina/internal/domain/serviceorder"
)

// orderRow is the service_orders table. Line collections and the history
// are JSONB; the approval sub-object is flattened so the token hash can be
// indexed and compare-and-set.
type orderRow struct {
	entity.Base

	OrderNumber     string                       `db:"order_number"`
	VehicleID       id.ID                        `db:"vehicle_id"`
	ClientID        *id.ID                       `db:"client_id"`
	OpeningDate     time.Time                    `db:"opening_date"`
	CurrentMileage  *int                         `db:"current_mileage"`
	FuelLevel       *int                         `db:"fuel_level"`
	ReportedProblem string                       `db:"reported_problem"`
	VisibleDamages  []string                     `db:"visible_damages"`
	EntryChecklist  []serviceorder.ChecklistItem `db:"entry_checklist"`

	Status        serviceorder.Status         `db:"status"`
	StatusHistory []serviceorder.StatusChange `db:"status_history"`

	IdentifiedProblems      []string                   `db:"identified_problems"`
	RequiredParts           []serviceorder.PartLine    `db:"required_parts"`
	Services                []serviceorder.ServiceLine `db:"services"`
	EstimatedTotalParts     decimal.Decimal            `db:"estimated_total_parts"`
	EstimatedTotalServices  decimal.Decimal            `db:"estimated_total_services"`
	EstimatedTotal          decimal.Decimal            `db:"estimated_total"`
	EstimatedCompletionDate *time.Time                 `db:"estimated_completion_date"`
	TechnicalObservations   string                     `db:"technical_observations"`

	BudgetApprovalStatus *serviceorder.BudgetApprovalStatus `db:"budget_approval_status"`
	BudgetApprovalDate   *time.Time                         `db:"budget_approval_date"`

	ApprovalTokenHash       *string    `db:"approval_token_hash"`
	ApprovalCreatedAt       *time.Time `db:"approval_created_at"`
	ApprovalExpiresAt       *time.Time `db:"approval_expires_at"`
	ApprovalUsed            bool       `db:"approval_used"`
	ApprovalUsedAt          *time.Time `db:"approval_used_at"`
	ApprovalDecision        *string    `db:"approval_decision"`
	ApprovalRejectionReason *string    `db:"approval_rejection_reason"`

	MechanicWork       []serviceorder.MechanicWork  `db:"mechanic_work"`
	ExitChecklist      []serviceorder.ChecklistItem `db:"exit_checklist"`
	TestDrive          *serviceorder.TestDrive      `db:"test_drive"`
	InvoiceNumber      *string                      `db:"invoice_number"`
	InvoiceDate        *time.Time                   `db:"invoice_date"`
	PaymentMethod      *serviceorder.PaymentMethod  `db:"payment_method"`
	FinalTotalParts    *decimal.Decimal             `db:"final_total_parts"`
	FinalTotalServices *decimal.Decimal             `db:"final_total_services"`
	FinalTotal         *decimal.Decimal             `db:"final_total"`
	CompletionDate     *time.Time                   `db:"completion_date"`
	DeliveryDate       *time.Time                   `db:"delivery_date"`
}

func toRow(o *serviceorder.ServiceOrder) *orderRow {
	r := &orderRow{
		Base:                    o.Base,
		OrderNumber:             o.OrderNumber,
		VehicleID:               o.VehicleID,
		ClientID:                o.ClientID,
		OpeningDate:             o.OpeningDate,
		CurrentMileage:          o.CurrentMileage,
		FuelLevel:               o.FuelLevel,
		ReportedProblem:         o.ReportedProblem,
		VisibleDamages:          nonNil(o.VisibleDamages),
		EntryChecklist:          nonNil(o.EntryChecklist),
		Status:                  o.Status,
		StatusHistory:           nonNil(o.StatusHistory),
		IdentifiedProblems:      nonNil(o.IdentifiedProblems),
		RequiredParts:           nonNil(o.RequiredParts),
		Services:                nonNil(o.Services),
		EstimatedTotalParts:     o.EstimatedTotalParts,
		EstimatedTotalServices:  o.EstimatedTotalServices,
		EstimatedTotal:          o.EstimatedTotal,
		EstimatedCompletionDate: o.EstimatedCompletionDate,
		TechnicalObservations:   o.TechnicalObservations,
		BudgetApprovalStatus:    o.BudgetApprovalStatus,
		BudgetApprovalDate:      o.BudgetApprovalDate,
		MechanicWork:            nonNil(o.MechanicWork),
		ExitChecklist:           nonNil(o.ExitChecklist),
		TestDrive:               o.TestDrive,
		InvoiceNumber:           o.InvoiceNumber,
		InvoiceDate:             o.InvoiceDate,
		PaymentMethod:           o.PaymentMethod,
		FinalTotalParts:         o.FinalTotalParts,
		FinalTotalServices:      o.FinalTotalServices,
		FinalTotal:              o.FinalTotal,
		CompletionDate:          o.CompletionDate,
		DeliveryDate:            o.DeliveryDate,
	}
	setApproval(r, o.BudgetApproval)
	return r
}

func setApproval(r *orderRow, a *serviceorder.BudgetApproval) {
	if a == nil {
		r.ApprovalTokenHash = nil
		r.ApprovalCreatedAt = nil
		r.ApprovalExpiresAt = nil
		r.ApprovalUsed = false
		r.ApprovalUsedAt = nil
		r.ApprovalDecision = nil
		r.ApprovalRejectionReason = nil
		return
	}
	hash, created, expires := a.TokenHash, a.CreatedAt, a.ExpiresAt
	r.ApprovalTokenHash = &hash
	r.ApprovalCreatedAt = &created
	r.ApprovalExpiresAt = &expires
	r.ApprovalUsed = a.Used
	r.ApprovalUsedAt = a.UsedAt
	r.ApprovalDecision = a.Decision
	r.ApprovalRejectionReason = a.RejectionReason
}

func (r *orderRow) toDomain() *serviceorder.ServiceOrder {
	o := &serviceorder.ServiceOrder{
		Base:                    r.Base,
		OrderNumber:             r.OrderNumber,
		VehicleID:               r.VehicleID,
		ClientID:                r.ClientID,
		OpeningDate:             r.OpeningDate,
		CurrentMileage:          r.CurrentMileage,
		FuelLevel:               r.FuelLevel,
		ReportedProblem:         r.ReportedProblem,
		VisibleDamages:          r.VisibleDamages,
		EntryChecklist:          r.EntryChecklist,
		Status:                  r.Status,
		StatusHistory:           r.StatusHistory,
		IdentifiedProblems:      r.IdentifiedProblems,
		RequiredParts:           r.RequiredParts,
		Services:                r.Services,
		EstimatedTotalParts:     r.EstimatedTotalParts,
		EstimatedTotalServices:  r.EstimatedTotalServices,
		EstimatedTotal:          r.EstimatedTotal,
		EstimatedCompletionDate: r.EstimatedCompletionDate,
		TechnicalObservations:   r.TechnicalObservations,
		BudgetApprovalStatus:    r.BudgetApprovalStatus,
		BudgetApprovalDate:      r.BudgetApprovalDate,
		MechanicWork:            r.MechanicWork,
		ExitChecklist:           r.ExitChecklist,
		TestDrive:               r.TestDrive,
		InvoiceNumber:           r.InvoiceNumber,
		InvoiceDate:             r.InvoiceDate,
		PaymentMethod:           r.PaymentMethod,
		FinalTotalParts:         r.FinalTotalParts,
		FinalTotalServices:      r.FinalTotalServices,
		FinalTotal:              r.FinalTotal,
		CompletionDate:          r.CompletionDate,
		DeliveryDate:            r.DeliveryDate,
	}
	if r.ApprovalTokenHash != nil && r.ApprovalCreatedAt != nil && r.ApprovalExpiresAt != nil {
		o.BudgetApproval = &serviceorder.BudgetApproval{
			TokenHash:       *r.ApprovalTokenHash,
			CreatedAt:       *r.ApprovalCreatedAt,
			ExpiresAt:       *r.ApprovalExpiresAt,
			Used:            r.ApprovalUsed,
			UsedAt:          r.ApprovalUsedAt,
			Decision:        r.ApprovalDecision,
			RejectionReason: r.ApprovalRejectionReason,
		}
	}
	return o
}

// nonNil stores empty collections as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
