package tenant

import (
	"context"
)

type garageKey struct{}

// WithGarage stores the resolved garage scope in context.
func WithGarage(ctx context.Context, g GarageID) context.Context {
	return context.WithValue(ctx, garageKey{}, g)
}

// GarageFromContext returns the garage scope and whether it was set.
func GarageFromContext(ctx context.Context) (GarageID, bool) {
	g, ok := ctx.Value(garageKey{}).(GarageID)
	if !ok || g.IsZero() {
		return GarageID{}, false
	}
	return g, true
}

// RequireGarage returns the garage scope or ErrNoGarage.
func RequireGarage(ctx context.Context) (GarageID, error) {
	g, ok := GarageFromContext(ctx)
	if !ok {
		return GarageID{}, ErrNoGarage
	}
	return g, nil
}

// GetGarageID returns garage ID string or empty string.
// Used for log enrichment only.
func GetGarageID(ctx context.Context) string {
	if g, ok := GarageFromContext(ctx); ok {
		return g.String()
	}
	return ""
}
