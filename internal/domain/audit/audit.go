// Package audit defines the change log used for ledger edits and status changes.
package audit

import (
	"context"

	appctx "oficina/internal/core/context"
	"oficina/internal/core/id"
)

// Action represents the type of audited operation.
type Action string

const (
	ActionCreate       Action = "create"
	ActionUpdate       Action = "update"
	ActionDelete       Action = "delete"
	ActionStatusChange Action = "status_change"
	ActionDecision     Action = "budget_decision"
)

// Entity types recorded in the log.
const (
	EntityServiceOrder  = "service_order"
	EntityStockMovement = "stock_movement"
	EntityPart          = "part"
)

// Logger records who changed what. Implementations write inside the
// transaction carried by ctx, so a rolled-back change leaves no entry.
type Logger interface {
	LogChange(ctx context.Context, entityType string, entityID id.ID, action Action, changes map[string]any) error
}

// Nop discards every entry.
type Nop struct{}

func (Nop) LogChange(context.Context, string, id.ID, Action, map[string]any) error { return nil }

// Actor returns the staff member behind ctx, or "public" for anonymous
// approval-link requests.
func Actor(ctx context.Context) string {
	if userID := appctx.GetUserID(ctx); userID != "" {
		return userID
	}
	return "public"
}

// EnrichCreatedBy sets createdBy from the context actor when it is empty.
func EnrichCreatedBy(ctx context.Context, createdBy *string) {
	if createdBy != nil && *createdBy == "" {
		*createdBy = Actor(ctx)
	}
}

// Diff calculates the difference between old and new states.
// Values are compared with ==, so callers pass flattened scalar snapshots.
func Diff(oldState, newState map[string]any) map[string]any {
	changes := make(map[string]any)

	for key, newVal := range newState {
		oldVal, exists := oldState[key]
		if !exists {
			changes[key] = map[string]any{"old": nil, "new": newVal}
		} else if oldVal != newVal {
			changes[key] = map[string]any{"old": oldVal, "new": newVal}
		}
	}

	for key, oldVal := range oldState {
		if _, exists := newState[key]; !exists {
			changes[key] = map[string]any{"old": oldVal, "new": nil}
		}
	}

	return changes
}
