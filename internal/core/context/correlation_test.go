package context_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appctx "oficina/internal/core/context"
)

func TestCorrelation(t *testing.T) {
	bare := context.Background()
	assert.Nil(t, appctx.CorrelationFrom(bare))
	assert.Empty(t, appctx.GetRequestID(bare))

	ctx := appctx.WithCorrelation(bare, &appctx.Correlation{Origin: "api", TraceID: "t-1", RequestID: "req-1"})
	assert.Equal(t, "req-1", appctx.GetRequestID(ctx))
	assert.Equal(t, []any{"trace_id", "t-1", "request_id", "req-1", "origin", "api"},
		appctx.CorrelationFrom(ctx).LogFields())
}

func TestForJob(t *testing.T) {
	first, second := appctx.ForJob("outbox"), appctx.ForJob("outbox")

	require.NotEmpty(t, first.TraceID)
	assert.Equal(t, "worker:outbox", first.Origin)
	assert.Equal(t, first.TraceID, first.RequestID)
	assert.NotEqual(t, first.TraceID, second.TraceID)
}
