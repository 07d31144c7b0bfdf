package serviceorder

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oficina/internal/core/apperror"
	"oficina/internal/core/id"
)

func TestNew_StartsOpenedWithHistory(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	o := New(id.New(), "  strange noise  ", at)

	assert.Equal(t, StatusOpened, o.Status)
	assert.Equal(t, "strange noise", o.ReportedProblem)
	require.Len(t, o.StatusHistory, 1)
	assert.Equal(t, StatusOpened, o.StatusHistory[0].Status)
	assert.Equal(t, "Ordem de serviço criada", o.StatusHistory[0].Notes)
}

func TestSetStatus_PrependsHistory(t *testing.T) {
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	o := New(id.New(), "brakes", at)

	effect := o.SetStatus(StatusInProgress, "start", at.Add(time.Hour))
	assert.Equal(t, EffectConsume, effect)

	effect = o.SetStatus(StatusWaitingParts, "waiting", at.Add(2*time.Hour))
	assert.Equal(t, EffectNone, effect)

	require.Len(t, o.StatusHistory, 3)
	assert.Equal(t, StatusWaitingParts, o.StatusHistory[0].Status)
	assert.Equal(t, StatusInProgress, o.StatusHistory[1].Status)
	assert.Equal(t, StatusOpened, o.StatusHistory[2].Status)
}

func TestInventoryConsumption_OnlyLedgerLines(t *testing.T) {
	pid := id.New()
	o := New(id.New(), "brakes", time.Now())
	o.OrderNumber = "AA0007"
	o.RequiredParts = []PartLine{
		{Description: "pads", Quantity: 2, PartID: &pid, FromInventory: true},
		{Description: "bought outside", Quantity: 1},
		{Description: "flagged without part", Quantity: 1, FromInventory: true},
	}

	c := o.InventoryConsumption()
	assert.Equal(t, o.ID, c.OrderID)
	assert.Equal(t, "AA0007", c.OrderNumber)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, pid, c.Lines[0].PartID)
	assert.Equal(t, 2, c.Lines[0].Quantity)
}

func TestRecalculateEstimates(t *testing.T) {
	o := New(id.New(), "brakes", time.Now())
	o.RequiredParts = []PartLine{
		{Description: "pads", Quantity: 2, UnitPrice: decimal.RequireFromString("45.50")},
		{Description: "fluid", Quantity: 1, UnitPrice: decimal.RequireFromString("30"), TotalPrice: decimal.RequireFromString("25")},
	}
	o.Services = []ServiceLine{
		{Description: "labour", EstimatedHours: decimal.RequireFromString("1.5"), PricePerHour: decimal.RequireFromString("80")},
	}

	o.RecalculateEstimates()

	assert.True(t, o.RequiredParts[0].TotalPrice.Equal(decimal.RequireFromString("91")))
	assert.True(t, o.EstimatedTotalParts.Equal(decimal.RequireFromString("116")), "parts %s", o.EstimatedTotalParts)
	assert.True(t, o.EstimatedTotalServices.Equal(decimal.RequireFromString("120")))
	assert.True(t, o.EstimatedTotal.Equal(decimal.RequireFromString("236")))
	assert.True(t, o.Total().Equal(o.EstimatedTotal))
}

func TestValidate(t *testing.T) {
	ctx := context.Background()
	fuel := 120
	pid := id.New()

	tests := []struct {
		name   string
		modify func(o *ServiceOrder)
		code   string
	}{
		{"valid", func(o *ServiceOrder) {}, ""},
		{"missing problem", func(o *ServiceOrder) { o.ReportedProblem = " " }, apperror.CodeValidation},
		{"fuel out of range", func(o *ServiceOrder) { o.FuelLevel = &fuel }, apperror.CodeValidation},
		{"zero quantity", func(o *ServiceOrder) {
			o.RequiredParts = []PartLine{{Description: "x", Quantity: 0, PartID: &pid, FromInventory: true}}
		}, apperror.CodeInvalidQuantity},
		{"inventory line without part", func(o *ServiceOrder) {
			o.RequiredParts = []PartLine{{Description: "x", Quantity: 1, FromInventory: true}}
		}, apperror.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := New(id.New(), "brakes", time.Now())
			tt.modify(o)
			err := o.Validate(ctx)
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, apperror.HasCode(err, tt.code), "got %v", err)
		})
	}
}
