package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"oficina/internal/core/apperror"
	"oficina/internal/core/entity"
	"oficina/internal/core/id"
)

// MovementType is the direction of a ledger row.
type MovementType string

const (
	MovementEntry MovementType = "entry"
	MovementExit  MovementType = "exit"
)

// ExitType classifies exits.
type ExitType string

const (
	ExitServiceOrder ExitType = "service_order"
	ExitManual       ExitType = "manual"
	ExitLoss         ExitType = "loss"
	ExitTransfer     ExitType = "transfer"
)

// ParseExitType validates an exit type coming from the API. Empty means manual.
func ParseExitType(s string) (ExitType, error) {
	switch ExitType(s) {
	case "":
		return ExitManual, nil
	case ExitServiceOrder, ExitManual, ExitLoss, ExitTransfer:
		return ExitType(s), nil
	}
	return "", apperror.NewValidation("invalid exit type").WithDetail("field", "exitType").WithDetail("value", s)
}

// ParseMovementType validates a movement type filter.
func ParseMovementType(s string) (MovementType, error) {
	switch MovementType(s) {
	case MovementEntry, MovementExit:
		return MovementType(s), nil
	}
	return "", apperror.NewValidation("invalid movement type").WithDetail("field", "movementType").WithDetail("value", s)
}

// Movement is one signed-quantity ledger row. Positive quantities are entries.
type Movement struct {
	entity.Base

	PartID          id.ID           `db:"part_id" json:"partId"`
	Quantity        int             `db:"quantity" json:"quantity"`
	CostPrice       decimal.Decimal `db:"cost_price" json:"costPrice"`
	SellingPrice    decimal.Decimal `db:"selling_price" json:"sellingPrice"`
	ProfitMargin    decimal.Decimal `db:"profit_margin" json:"profitMargin"`
	MovementType    MovementType    `db:"movement_type" json:"movementType"`
	ExitType        *ExitType       `db:"exit_type" json:"exitType,omitempty"`
	Reference       *string         `db:"reference" json:"reference,omitempty"`
	ServiceOrderID  *id.ID          `db:"service_order_id" json:"serviceOrderId,omitempty"`
	Description     string          `db:"description" json:"description"`
	InvoiceNumber   *string         `db:"invoice_number" json:"invoiceNumber,omitempty"`
	SupplierID      *id.ID          `db:"supplier_id" json:"supplierId,omitempty"`
	EntryDate       time.Time       `db:"entry_date" json:"entryDate"`
	CurrentQuantity int             `db:"current_quantity" json:"currentQuantity"`
	CreatedBy       string          `db:"created_by" json:"createdBy,omitempty"`
}

// Validate implements entity.Validatable interface.
func (m *Movement) Validate(ctx context.Context) error {
	if id.IsNil(m.PartID) {
		return apperror.NewValidation("part is required").WithDetail("field", "partId")
	}
	switch m.MovementType {
	case MovementEntry:
		if m.Quantity <= 0 {
			return apperror.NewInvalidQuantity(m.Quantity)
		}
		if m.ExitType != nil {
			return apperror.NewValidation("exit type is only allowed on exits").WithDetail("field", "exitType")
		}
	case MovementExit:
		if m.Quantity >= 0 {
			return apperror.NewInvalidQuantity(-m.Quantity)
		}
		if m.ExitType == nil {
			return apperror.NewValidation("exit type is required").WithDetail("field", "exitType")
		}
	default:
		return apperror.NewValidation("invalid movement type").WithDetail("field", "movementType")
	}
	if m.CostPrice.IsNegative() {
		return apperror.NewValidation("cost price cannot be negative").WithDetail("field", "costPrice")
	}
	return nil
}

// IsServiceOrderExit reports whether the row is a consumption exit.
func (m *Movement) IsServiceOrderExit() bool {
	return m.ExitType != nil && *m.ExitType == ExitServiceOrder
}

// BelongsToServiceOrder reports whether the row was written by an order's
// status flow, consumption or return. Such rows only change with the order.
func (m *Movement) BelongsToServiceOrder() bool {
	return m.ServiceOrderID != nil || m.IsServiceOrderExit()
}

func newMovement(partID id.ID, quantity int, kind MovementType) *Movement {
	m := &Movement{
		Base:         entity.NewBase(),
		PartID:       partID,
		Quantity:     quantity,
		MovementType: kind,
		CostPrice:    decimal.Zero,
		SellingPrice: decimal.Zero,
		ProfitMargin: decimal.Zero,
	}
	m.EntryDate = m.CreatedAt
	return m
}
