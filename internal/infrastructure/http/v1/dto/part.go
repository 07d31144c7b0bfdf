package dto

import (
	"github.com/shopspring/decimal"

	"oficina/internal/domain/inventory"
)

// PartRequest is the body of POST /parts/create and PUT /parts/edit.
type PartRequest struct {
	ID               string          `json:"id,omitempty"`
	Code             string          `json:"code" binding:"required"`
	Name             string          `json:"name" binding:"required"`
	Description      *string         `json:"description,omitempty"`
	Category         *string         `json:"category,omitempty"`
	Unit             string          `json:"unit,omitempty"`
	SellingPrice     decimal.Decimal `json:"sellingPrice"`
	CostPrice        decimal.Decimal `json:"costPrice"`
	ProfitMargin     decimal.Decimal `json:"profitMargin"`
	MinimumStock     int             `json:"minimumStock"`
	Location         *string         `json:"location,omitempty"`
	Barcode          *string         `json:"barcode,omitempty"`
	ManufacturerCode *string         `json:"manufacturerCode,omitempty"`
	Active           *bool           `json:"active,omitempty"`
}

// ToEntity builds a part. requireID is set by the edit endpoint.
func (r *PartRequest) ToEntity(requireID bool) (*inventory.Part, error) {
	p := inventory.NewPart(r.Code, r.Name)
	if requireID {
		partID, err := ParseID("id", r.ID)
		if err != nil {
			return nil, err
		}
		p.ID = partID
	}
	p.Description = r.Description
	p.Category = r.Category
	if r.Unit != "" {
		p.Unit = r.Unit
	}
	p.SellingPrice = r.SellingPrice
	p.CostPrice = r.CostPrice
	p.ProfitMargin = r.ProfitMargin
	p.MinimumStock = r.MinimumStock
	p.Location = r.Location
	p.Barcode = r.Barcode
	p.ManufacturerCode = r.ManufacturerCode
	if r.Active != nil {
		p.Active = *r.Active
	}
	return p, nil
}

// PartListQuery holds GET /parts parameters.
type PartListQuery struct {
	ListQuery
	Category   string `form:"category"`
	ActiveOnly bool   `form:"activeOnly"`
}

// ToFilter converts the query into a domain filter.
func (q PartListQuery) ToFilter() inventory.PartFilter {
	return inventory.PartFilter{
		ListFilter: q.ListQuery.ToFilter(),
		Category:   q.Category,
		ActiveOnly: q.ActiveOnly,
	}
}

// AvailabilityLine is one requested part.
type AvailabilityLine struct {
	PartID   string `json:"partId" binding:"required"`
	Quantity int    `json:"quantity"`
}

// CheckAvailabilityRequest is the body of POST /parts/check-availability.
type CheckAvailabilityRequest struct {
	Parts []AvailabilityLine `json:"parts" binding:"required,dive"`
}

// ToInput converts the request into domain requests.
func (r *CheckAvailabilityRequest) ToInput() ([]inventory.AvailabilityRequest, error) {
	out := make([]inventory.AvailabilityRequest, 0, len(r.Parts))
	for _, line := range r.Parts {
		partID, err := ParseID("partId", line.PartID)
		if err != nil {
			return nil, err
		}
		out = append(out, inventory.AvailabilityRequest{PartID: partID, Quantity: line.Quantity})
	}
	return out, nil
}
