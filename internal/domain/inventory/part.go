// Package inventory implements the stock ledger, the part catalog cache and
// the inventory service that consumes and restores parts for service orders.
//
// Current stock is never stored: it is the sum of signed movement quantities,
// read inside the transaction that is about to write.
package inventory

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"oficina/internal/core/apperror"
	"oficina/internal/core/entity"
)

// DefaultUnit is used when a part is created without a unit of measure.
const DefaultUnit = "un"

// Part is a garage catalog item. AverageCost is a cache recomputed from the ledger.
type Part struct {
	entity.Base

	Code             string          `db:"code" json:"code"`
	Name             string          `db:"name" json:"name"`
	Description      *string         `db:"description" json:"description,omitempty"`
	Category         *string         `db:"category" json:"category,omitempty"`
	Unit             string          `db:"unit" json:"unit"`
	SellingPrice     decimal.Decimal `db:"selling_price" json:"sellingPrice"`
	CostPrice        decimal.Decimal `db:"cost_price" json:"costPrice"`
	AverageCost      decimal.Decimal `db:"average_cost" json:"averageCost"`
	ProfitMargin     decimal.Decimal `db:"profit_margin" json:"profitMargin"`
	MinimumStock     int             `db:"minimum_stock" json:"minimumStock"`
	Location         *string         `db:"location" json:"location,omitempty"`
	Barcode          *string         `db:"barcode" json:"barcode,omitempty"`
	ManufacturerCode *string         `db:"manufacturer_code" json:"manufacturerCode,omitempty"`
	Active           bool            `db:"active" json:"active"`
}

// NewPart creates an active part with generated identity.
func NewPart(code, name string) *Part {
	return &Part{
		Base:         entity.NewBase(),
		Code:         strings.TrimSpace(code),
		Name:         strings.TrimSpace(name),
		Unit:         DefaultUnit,
		SellingPrice: decimal.Zero,
		CostPrice:    decimal.Zero,
		AverageCost:  decimal.Zero,
		ProfitMargin: decimal.Zero,
		Active:       true,
	}
}

// Validate implements entity.Validatable interface.
func (p *Part) Validate(ctx context.Context) error {
	if strings.TrimSpace(p.Code) == "" {
		return apperror.NewValidation("code is required").WithDetail("field", "code")
	}
	if strings.TrimSpace(p.Name) == "" {
		return apperror.NewValidation("name is required").WithDetail("field", "name")
	}
	if p.SellingPrice.IsNegative() {
		return apperror.NewValidation("selling price cannot be negative").WithDetail("field", "sellingPrice")
	}
	if p.CostPrice.IsNegative() {
		return apperror.NewValidation("cost price cannot be negative").WithDetail("field", "costPrice")
	}
	if p.MinimumStock < 0 {
		return apperror.NewValidation("minimum stock cannot be negative").WithDetail("field", "minimumStock")
	}
	if p.Unit == "" {
		p.Unit = DefaultUnit
	}
	return nil
}

// ExitCost is the unit cost booked on exits: the ledger average when known,
// the catalog cost price otherwise.
func (p *Part) ExitCost() decimal.Decimal {
	if p.AverageCost.IsPositive() {
		return p.AverageCost
	}
	return p.CostPrice
}

// PartView is a part together with its ledger-derived stock.
type PartView struct {
	*Part
	CurrentStock int  `json:"currentStock"`
	LowStock     bool `json:"lowStock"`
}

// StockLevel is the answer to a single-part stock query.
type StockLevel struct {
	PartID       string `json:"partId"`
	Name         string `json:"name"`
	Unit         string `json:"unit"`
	CurrentStock int    `json:"currentStock"`
	MinimumStock int    `json:"minimumStock"`
}
