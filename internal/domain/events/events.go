// Package events defines domain events written to the transactional outbox.
package events

import (
	"context"

	"oficina/internal/core/id"
)

// Event types.
const (
	TypeStatusChanged = "service_order.status_changed"
	TypeBudgetDecided = "service_order.budget_decided"
	TypeStockChanged  = "inventory.stock_changed"
)

// Aggregate types.
const (
	AggregateOrder = "service_order"
	AggregatePart  = "part"
)

// Event is a fact about one aggregate of one garage.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	GarageID      id.ID
	Type          string
	Payload       any
}

// Publisher persists events. It must be called inside the transaction
// that produced the change.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}

// Nop drops events.
type Nop struct{}

func (Nop) Publish(context.Context, ...Event) error { return nil }

// StatusChanged is the payload of TypeStatusChanged.
type StatusChanged struct {
	OrderID     id.ID  `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
	From        string `json:"from"`
	To          string `json:"to"`
	Notes       string `json:"notes,omitempty"`
}

// BudgetDecided is the payload of TypeBudgetDecided.
type BudgetDecided struct {
	OrderID     id.ID  `json:"orderId"`
	OrderNumber string `json:"orderNumber"`
	Decision    string `json:"decision"`
	Reason      string `json:"reason,omitempty"`
	ViaLink     bool   `json:"viaLink"`
}

// StockChanged is the payload of TypeStockChanged.
type StockChanged struct {
	PartID       id.ID  `json:"partId"`
	Delta        int    `json:"delta"`
	CurrentStock int    `json:"currentStock"`
	Reference    string `json:"reference,omitempty"`
}
