package context

import (
	"context"

	"github.com/google/uuid"
)

// Correlation ties log lines, spans and error bodies of one unit of work
// together. Origin is "api" for requests and "worker:<job>" for ticks.
type Correlation struct {
	Origin    string
	TraceID   string
	SpanID    string
	RequestID string
}

type correlationKey struct{}

// WithCorrelation stores c in ctx.
func WithCorrelation(ctx context.Context, c *Correlation) context.Context {
	return context.WithValue(ctx, correlationKey{}, c)
}

// CorrelationFrom returns the correlation of ctx, or nil.
func CorrelationFrom(ctx context.Context) *Correlation {
	c, _ := ctx.Value(correlationKey{}).(*Correlation)
	return c
}

// GetRequestID returns the request id echoed to clients, or "".
func GetRequestID(ctx context.Context) string {
	if c := CorrelationFrom(ctx); c != nil {
		return c.RequestID
	}
	return ""
}

// ForJob starts a correlation for one background tick. The request id is
// the trace id so a tick reads as a single unit in the logs.
func ForJob(job string) *Correlation {
	traceID := uuid.New().String()
	return &Correlation{
		Origin:    "worker:" + job,
		TraceID:   traceID,
		RequestID: traceID,
	}
}

// LogFields are the key/value pairs the logger attaches.
func (c *Correlation) LogFields() []any {
	fields := []any{"trace_id", c.TraceID, "request_id", c.RequestID}
	if c.Origin != "" {
		fields = append(fields, "origin", c.Origin)
	}
	return fields
}
