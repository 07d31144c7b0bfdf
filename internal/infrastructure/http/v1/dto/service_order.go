package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"oficina/internal/domain/serviceorder"
)

// PartLineRequest is one required part of a budget.
type PartLineRequest struct {
	Description   string          `json:"description"`
	Code          string          `json:"code,omitempty"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unitPrice"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	PartID        *string         `json:"partId,omitempty"`
	FromInventory bool            `json:"fromInventory"`
}

func partLines(in []PartLineRequest) ([]serviceorder.PartLine, error) {
	out := make([]serviceorder.PartLine, 0, len(in))
	for _, l := range in {
		partID, err := ParseOptionalID("partId", l.PartID)
		if err != nil {
			return nil, err
		}
		out = append(out, serviceorder.PartLine{
			Description:   l.Description,
			Code:          l.Code,
			Quantity:      l.Quantity,
			UnitPrice:     l.UnitPrice,
			TotalPrice:    l.TotalPrice,
			PartID:        partID,
			FromInventory: l.FromInventory,
		})
	}
	return out, nil
}

// CreateServiceOrderRequest is the body of POST /service-orders/create.
type CreateServiceOrderRequest struct {
	VehicleID               string                       `json:"vehicleId" binding:"required"`
	ClientID                *string                      `json:"clientId,omitempty"`
	OpeningDate             *time.Time                   `json:"openingDate,omitempty"`
	CurrentMileage          *int                         `json:"currentMileage,omitempty"`
	FuelLevel               *int                         `json:"fuelLevel,omitempty"`
	ReportedProblem         string                       `json:"reportedProblem" binding:"required"`
	VisibleDamages          []string                     `json:"visibleDamages,omitempty"`
	EntryChecklist          []serviceorder.ChecklistItem `json:"entryChecklist,omitempty"`
	IdentifiedProblems      []string                     `json:"identifiedProblems,omitempty"`
	RequiredParts           []PartLineRequest            `json:"requiredParts,omitempty"`
	Services                []serviceorder.ServiceLine   `json:"services,omitempty"`
	EstimatedCompletionDate *time.Time                   `json:"estimatedCompletionDate,omitempty"`
	TechnicalObservations   string                       `json:"technicalObservations,omitempty"`
}

// ToInput converts the request into a domain input.
func (r *CreateServiceOrderRequest) ToInput() (serviceorder.CreateInput, error) {
	vehicleID, err := ParseID("vehicleId", r.VehicleID)
	if err != nil {
		return serviceorder.CreateInput{}, err
	}
	clientID, err := ParseOptionalID("clientId", r.ClientID)
	if err != nil {
		return serviceorder.CreateInput{}, err
	}
	parts, err := partLines(r.RequiredParts)
	if err != nil {
		return serviceorder.CreateInput{}, err
	}
	return serviceorder.CreateInput{
		VehicleID:               vehicleID,
		ClientID:                clientID,
		OpeningDate:             r.OpeningDate,
		CurrentMileage:          r.CurrentMileage,
		FuelLevel:               r.FuelLevel,
		ReportedProblem:         r.ReportedProblem,
		VisibleDamages:          r.VisibleDamages,
		EntryChecklist:          r.EntryChecklist,
		IdentifiedProblems:      r.IdentifiedProblems,
		RequiredParts:           parts,
		Services:                r.Services,
		EstimatedCompletionDate: r.EstimatedCompletionDate,
		TechnicalObservations:   r.TechnicalObservations,
	}, nil
}

// UpdateServiceOrderRequest is the body of PUT /service-orders/edit.
type UpdateServiceOrderRequest struct {
	ID string `json:"id" binding:"required"`
	CreateServiceOrderRequest
	ExitChecklist []serviceorder.ChecklistItem `json:"exitChecklist,omitempty"`
	TestDrive     *serviceorder.TestDrive      `json:"testDrive,omitempty"`
	InvoiceNumber *string                      `json:"invoiceNumber,omitempty"`
	InvoiceDate   *time.Time                   `json:"invoiceDate,omitempty"`
	PaymentMethod string                       `json:"paymentMethod,omitempty"`
}

// ToInput converts the request into a domain input.
func (r *UpdateServiceOrderRequest) ToInput() (serviceorder.UpdateInput, error) {
	orderID, err := ParseID("id", r.ID)
	if err != nil {
		return serviceorder.UpdateInput{}, err
	}
	base, err := r.CreateServiceOrderRequest.ToInput()
	if err != nil {
		return serviceorder.UpdateInput{}, err
	}
	pm, err := serviceorder.ParsePaymentMethod(r.PaymentMethod)
	if err != nil {
		return serviceorder.UpdateInput{}, err
	}
	return serviceorder.UpdateInput{
		ID:            orderID,
		CreateInput:   base,
		ExitChecklist: r.ExitChecklist,
		TestDrive:     r.TestDrive,
		InvoiceNumber: r.InvoiceNumber,
		InvoiceDate:   r.InvoiceDate,
		PaymentMethod: pm,
	}, nil
}

// StatusUpdateRequest is the body of POST /service-orders/status/update.
type StatusUpdateRequest struct {
	ID     string `json:"id" binding:"required"`
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes,omitempty"`
}

// DiagnosticRequest is the body of POST /service-orders/diagnostic.
type DiagnosticRequest struct {
	ID                      string                     `json:"id" binding:"required"`
	IdentifiedProblems      []string                   `json:"identifiedProblems,omitempty"`
	RequiredParts           []PartLineRequest          `json:"requiredParts,omitempty"`
	Services                []serviceorder.ServiceLine `json:"services,omitempty"`
	EstimatedCompletionDate *time.Time                 `json:"estimatedCompletionDate,omitempty"`
	TechnicalObservations   string                     `json:"technicalObservations,omitempty"`
}

// ToInput converts the request into a domain input.
func (r *DiagnosticRequest) ToInput() (serviceorder.DiagnosticInput, error) {
	orderID, err := ParseID("id", r.ID)
	if err != nil {
		return serviceorder.DiagnosticInput{}, err
	}
	parts, err := partLines(r.RequiredParts)
	if err != nil {
		return serviceorder.DiagnosticInput{}, err
	}
	return serviceorder.DiagnosticInput{
		ID:                      orderID,
		IdentifiedProblems:      r.IdentifiedProblems,
		RequiredParts:           parts,
		Services:                r.Services,
		EstimatedCompletionDate: r.EstimatedCompletionDate,
		TechnicalObservations:   r.TechnicalObservations,
	}, nil
}

// CompleteRequest is the body of POST /service-orders/complete.
type CompleteRequest struct {
	ID                 string                       `json:"id" binding:"required"`
	ExitChecklist      []serviceorder.ChecklistItem `json:"exitChecklist,omitempty"`
	TestDrive          *serviceorder.TestDrive      `json:"testDrive,omitempty"`
	InvoiceNumber      *string                      `json:"invoiceNumber,omitempty"`
	InvoiceDate        *time.Time                   `json:"invoiceDate,omitempty"`
	PaymentMethod      string                       `json:"paymentMethod,omitempty"`
	FinalTotalParts    *decimal.Decimal             `json:"finalTotalParts,omitempty"`
	FinalTotalServices *decimal.Decimal             `json:"finalTotalServices,omitempty"`
	Notes              string                       `json:"notes,omitempty"`
}

// ToInput converts the request into a domain input.
func (r *CompleteRequest) ToInput() (serviceorder.CompleteInput, error) {
	orderID, err := ParseID("id", r.ID)
	if err != nil {
		return serviceorder.CompleteInput{}, err
	}
	pm, err := serviceorder.ParsePaymentMethod(r.PaymentMethod)
	if err != nil {
		return serviceorder.CompleteInput{}, err
	}
	return serviceorder.CompleteInput{
		ID:                 orderID,
		ExitChecklist:      r.ExitChecklist,
		TestDrive:          r.TestDrive,
		InvoiceNumber:      r.InvoiceNumber,
		InvoiceDate:        r.InvoiceDate,
		PaymentMethod:      pm,
		FinalTotalParts:    r.FinalTotalParts,
		FinalTotalServices: r.FinalTotalServices,
		Notes:              r.Notes,
	}, nil
}

// DeliverRequest is the body of POST /service-orders/deliver.
type DeliverRequest struct {
	ID            string `json:"id" binding:"required"`
	PaymentMethod string `json:"paymentMethod,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// ToInput converts the request into a domain input.
func (r *DeliverRequest) ToInput() (serviceorder.DeliverInput, error) {
	orderID, err := ParseID("id", r.ID)
	if err != nil {
		return serviceorder.DeliverInput{}, err
	}
	pm, err := serviceorder.ParsePaymentMethod(r.PaymentMethod)
	if err != nil {
		return serviceorder.DeliverInput{}, err
	}
	return serviceorder.DeliverInput{ID: orderID, PaymentMethod: pm, Notes: r.Notes}, nil
}

// MechanicWorkRequest is the body of the mechanic-work endpoints.
// WorkID is required by update only.
type MechanicWorkRequest struct {
	ServiceOrderID string     `json:"serviceOrderId" binding:"required"`
	WorkID         string     `json:"workId,omitempty"`
	MechanicID     string     `json:"mechanicId" binding:"required"`
	StartTime      time.Time  `json:"startTime" binding:"required"`
	EndTime        *time.Time `json:"endTime,omitempty"`
	Notes          string     `json:"notes,omitempty"`
}

// ToInput converts the request into a domain input.
func (r *MechanicWorkRequest) ToInput(requireWorkID bool) (serviceorder.MechanicWorkInput, error) {
	orderID, err := ParseID("serviceOrderId", r.ServiceOrderID)
	if err != nil {
		return serviceorder.MechanicWorkInput{}, err
	}
	in := serviceorder.MechanicWorkInput{
		OrderID:    orderID,
		MechanicID: r.MechanicID,
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		Notes:      r.Notes,
	}
	if requireWorkID || r.WorkID != "" {
		workID, err := ParseID("workId", r.WorkID)
		if err != nil {
			return serviceorder.MechanicWorkInput{}, err
		}
		in.WorkID = workID
	}
	return in, nil
}

// BudgetDecisionRequest is the body of the staff approve/reject endpoints.
type BudgetDecisionRequest struct {
	ID     string  `json:"id" binding:"required"`
	Reason *string `json:"reason,omitempty"`
}

// GenerateApprovalLinkRequest is the body of POST /budget/generate-approval-link.
type GenerateApprovalLinkRequest struct {
	ServiceOrderID string `json:"serviceOrderId" binding:"required"`
}

// ExternalDecisionRequest is the body of the public token endpoints.
type ExternalDecisionRequest struct {
	Token  string  `json:"token" binding:"required"`
	Reason *string `json:"reason,omitempty"`
}

// ServiceOrderListQuery holds GET /service-orders parameters.
type ServiceOrderListQuery struct {
	ListQuery
	Status string `form:"status"`
	Sort   string `form:"sort"`
	Period string `form:"period"`
}

// ToFilter converts the query into a domain filter.
func (q ServiceOrderListQuery) ToFilter() (serviceorder.ListFilter, error) {
	f := serviceorder.ListFilter{
		ListFilter: q.ListQuery.ToFilter(),
		Sort:       q.Sort,
		Period:     q.Period,
	}
	if q.Status != "" {
		st, err := serviceorder.ParseStatus(q.Status)
		if err != nil {
			return f, err
		}
		f.Status = &st
	}
	return f, nil
}

// blankToNil drops empty rejection reasons.
func blankToNil(reason *string) *string {
	if reason == nil || *reason == "" {
		return nil
	}
	return reason
}

// NormalizedReason returns the reason, or nil when blank.
func (r *ExternalDecisionRequest) NormalizedReason() *string { return blankToNil(r.Reason) }

// NormalizedReason returns the reason, or nil when blank.
func (r *BudgetDecisionRequest) NormalizedReason() *string { return blankToNil(r.Reason) }
