// Package numerator provides domain contracts for service-order numbering.
// Implementations live in the infrastructure layer.
package numerator

import (
	"context"

	"oficina/internal/core/tenant"
)

// Generator hands out the next human-readable order number for a garage.
//
// Implementations must join the transaction carried by ctx so a rolled-back
// order creation also rolls back its number.
type Generator interface {
	Next(ctx context.Context, g tenant.GarageID) (string, error)
}
