package audit_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	appctx "oficina/internal/core/context"
	"oficina/internal/domain/audit"
)

func TestDiff(t *testing.T) {
	before := map[string]any{"quantity": 10, "cost_price": "5.00", "invoice_number": "NF-1"}
	after := map[string]any{"quantity": 8, "cost_price": "5.00", "supplier_id": "s-1"}

	changes := audit.Diff(before, after)

	assert.Equal(t, map[string]any{
		"quantity":       map[string]any{"old": 10, "new": 8},
		"invoice_number": map[string]any{"old": "NF-1", "new": nil},
		"supplier_id":    map[string]any{"old": nil, "new": "s-1"},
	}, changes)
	assert.Empty(t, audit.Diff(after, after))
}

func TestActor(t *testing.T) {
	anonymous := context.Background()
	staff := appctx.WithUser(anonymous, &appctx.UserContext{UserID: "u-7"})

	assert.Equal(t, "public", audit.Actor(anonymous))
	assert.Equal(t, "u-7", audit.Actor(staff))

	createdBy := ""
	audit.EnrichCreatedBy(staff, &createdBy)
	assert.Equal(t, "u-7", createdBy)

	preset := "import"
	audit.EnrichCreatedBy(staff, &preset)
	assert.Equal(t, "import", preset)
}
