package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"oficina/internal/domain/inventory"
)

// CreateEntryRequest is the body of POST /inventory-entries/create.
type CreateEntryRequest struct {
	PartID        string           `json:"partId" binding:"required"`
	Quantity      int              `json:"quantity"`
	CostPrice     decimal.Decimal  `json:"costPrice"`
	SellingPrice  decimal.Decimal  `json:"sellingPrice"`
	ProfitMargin  *decimal.Decimal `json:"profitMargin,omitempty"`
	Description   string           `json:"description,omitempty"`
	InvoiceNumber *string          `json:"invoiceNumber,omitempty"`
	SupplierID    *string          `json:"supplierId,omitempty"`
	EntryDate     *time.Time       `json:"entryDate,omitempty"`
}

// ToInput converts the request into a domain input.
func (r *CreateEntryRequest) ToInput() (inventory.NewEntry, error) {
	partID, err := ParseID("partId", r.PartID)
	if err != nil {
		return inventory.NewEntry{}, err
	}
	supplierID, err := ParseOptionalID("supplierId", r.SupplierID)
	if err != nil {
		return inventory.NewEntry{}, err
	}
	return inventory.NewEntry{
		PartID:        partID,
		Quantity:      r.Quantity,
		CostPrice:     r.CostPrice,
		SellingPrice:  r.SellingPrice,
		ProfitMargin:  r.ProfitMargin,
		Description:   r.Description,
		InvoiceNumber: r.InvoiceNumber,
		SupplierID:    supplierID,
		EntryDate:     r.EntryDate,
	}, nil
}

// EditEntryRequest is the body of PUT /inventory-entries/edit.
type EditEntryRequest struct {
	ID string `json:"id" binding:"required"`
	CreateEntryRequest
}

// ToInput converts the request into a domain input. The part of an entry
// cannot change, so partId is ignored.
func (r *EditEntryRequest) ToInput() (inventory.EntryUpdate, error) {
	movementID, err := ParseID("id", r.ID)
	if err != nil {
		return inventory.EntryUpdate{}, err
	}
	supplierID, err := ParseOptionalID("supplierId", r.SupplierID)
	if err != nil {
		return inventory.EntryUpdate{}, err
	}
	return inventory.EntryUpdate{
		ID:            movementID,
		Quantity:      r.Quantity,
		CostPrice:     r.CostPrice,
		SellingPrice:  r.SellingPrice,
		ProfitMargin:  r.ProfitMargin,
		Description:   r.Description,
		InvoiceNumber: r.InvoiceNumber,
		SupplierID:    supplierID,
		EntryDate:     r.EntryDate,
	}, nil
}

// CreateExitRequest is the body of POST /inventory-entries/create-exit.
type CreateExitRequest struct {
	PartID      string           `json:"partId" binding:"required"`
	Quantity    int              `json:"quantity"`
	Description string           `json:"description,omitempty"`
	ExitType    string           `json:"exitType,omitempty"`
	CostPrice   *decimal.Decimal `json:"costPrice,omitempty"`
	Reference   *string          `json:"reference,omitempty"`
	EntryDate   *time.Time       `json:"entryDate,omitempty"`
}

// ToInput converts the request into a domain input.
func (r *CreateExitRequest) ToInput() (inventory.ManualExit, error) {
	partID, err := ParseID("partId", r.PartID)
	if err != nil {
		return inventory.ManualExit{}, err
	}
	exitType, err := inventory.ParseExitType(r.ExitType)
	if err != nil {
		return inventory.ManualExit{}, err
	}
	return inventory.ManualExit{
		PartID:      partID,
		Quantity:    r.Quantity,
		Description: r.Description,
		ExitType:    exitType,
		CostPrice:   r.CostPrice,
		Reference:   r.Reference,
		EntryDate:   r.EntryDate,
	}, nil
}

// MovementListQuery holds GET /inventory-entries parameters.
type MovementListQuery struct {
	ListQuery
	PartID       string `form:"partId"`
	MovementType string `form:"movementType"`
}

// ToFilter converts the query into a domain filter.
func (q MovementListQuery) ToFilter() (inventory.MovementFilter, error) {
	f := inventory.MovementFilter{ListFilter: q.ListQuery.ToFilter()}
	if q.PartID != "" {
		partID, err := ParseID("partId", q.PartID)
		if err != nil {
			return f, err
		}
		f.PartID = &partID
	}
	if q.MovementType != "" {
		mt, err := inventory.ParseMovementType(q.MovementType)
		if err != nil {
			return f, err
		}
		f.MovementType = &mt
	}
	return f, nil
}
