package serviceorder_test

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oficina/internal/core/apperror"
	"oficina/internal/domain/events"
	"oficina/internal/domain/serviceorder"
)

func TestGenerateApprovalLink(t *testing.T) {
	f := newFixture(t)
	o := f.order(t)

	_, err := f.svc.GenerateApprovalLink(f.ctx, o.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeBusinessRule))

	o = f.waitingApproval(t)
	link, err := f.svc.GenerateApprovalLink(f.ctx, o.ID)
	require.NoError(t, err)

	assert.Equal(t, "https://oficina.example/approval/"+link.Token, link.URL)
	assert.Len(t, link.Token, 64)
	assert.Equal(t, f.clock.Now().Add(serviceorder.DefaultLinkTTL), link.ExpiresAt)

	stored := f.orders.Get(o.ID)
	require.NotNil(t, stored.BudgetApproval)
	assert.Equal(t, serviceorder.HashToken(link.Token), stored.BudgetApproval.TokenHash)
	assert.NotContains(t, stored.BudgetApproval.TokenHash, link.Token)
}

func TestApprovalDetails(t *testing.T) {
	f := newFixture(t)
	p1 := f.part(t, "P1", 10)
	o := f.waitingApproval(t, line(p1, 3))
	link, err := f.svc.GenerateApprovalLink(f.ctx, o.ID)
	require.NoError(t, err)

	// The public flow carries no garage scope.
	details, err := f.svc.ApprovalDetails(context.Background(), link.Token)
	require.NoError(t, err)
	assert.Equal(t, o.OrderNumber, details.ServiceOrder.OrderNumber)
	assert.True(t, details.ApprovalPending)
	assert.Equal(t, "60", details.BudgetDetails.Total.String())
	require.Len(t, details.ServiceOrder.RequiredParts, 1)
	assert.Equal(t, 3, details.ServiceOrder.RequiredParts[0].Quantity)

	body, err := json.Marshal(details)
	require.NoError(t, err)
	for _, internal := range []string{"garageId", "clientId", "vehicleId", "partId", "fromInventory", "mechanicWork", "statusHistory", "budgetApproval\"", o.ID.String(), f.garage.String()} {
		assert.NotContains(t, string(body), internal)
	}

	_, err = f.svc.ApprovalDetails(context.Background(), "deadbeef")
	assert.True(t, apperror.HasCode(err, apperror.CodeLinkNotFound))
}

func TestApproveViaToken_SingleUse(t *testing.T) {
	f := newFixture(t)
	p1 := f.part(t, "P1", 10)
	o := f.waitingApproval(t, line(p1, 3))
	link, err := f.svc.GenerateApprovalLink(f.ctx, o.ID)
	require.NoError(t, err)

	approved, err := f.svc.ApproveViaToken(context.Background(), link.Token)
	require.NoError(t, err)
	assert.Equal(t, serviceorder.StatusApproved, approved.Status)
	assert.Equal(t, serviceorder.BudgetApproved, *approved.BudgetApprovalStatus)
	assert.Equal(t, "Orçamento aprovado pelo cliente via link", approved.StatusHistory[0].Notes)
	require.NotNil(t, approved.BudgetApproval)
	assert.True(t, approved.BudgetApproval.Used)
	assert.Equal(t, serviceorder.DecisionApproved, *approved.BudgetApproval.Decision)
	assert.Equal(t, 10, f.stock(t, p1), "approval does not consume")

	_, err = f.svc.ApproveViaToken(context.Background(), link.Token)
	assert.True(t, apperror.HasCode(err, apperror.CodeAlreadyDecided))
	_, err = f.svc.RejectViaToken(context.Background(), link.Token, nil)
	assert.True(t, apperror.HasCode(err, apperror.CodeAlreadyDecided))

	details, err := f.svc.ApprovalDetails(context.Background(), link.Token)
	require.NoError(t, err)
	assert.False(t, details.ApprovalPending)

	assert.Contains(t, f.events.types(), events.TypeBudgetDecided)
}

func TestRejectViaToken_WithReason(t *testing.T) {
	f := newFixture(t)
	o := f.waitingApproval(t)
	link, err := f.svc.GenerateApprovalLink(f.ctx, o.ID)
	require.NoError(t, err)

	reason := "vou fazer em outro lugar"
	rejected, err := f.svc.RejectViaToken(context.Background(), link.Token, &reason)
	require.NoError(t, err)

	assert.Equal(t, serviceorder.StatusRejected, rejected.Status)
	assert.Equal(t, "Orçamento rejeitado pelo cliente via link. Motivo: vou fazer em outro lugar", rejected.StatusHistory[0].Notes)
	require.NotNil(t, rejected.BudgetApproval.RejectionReason)
	assert.Equal(t, reason, *rejected.BudgetApproval.RejectionReason)
}

func TestApproveViaToken_Expired(t *testing.T) {
	f := newFixture(t)
	o := f.waitingApproval(t)
	link, err := f.svc.GenerateApprovalLink(f.ctx, o.ID)
	require.NoError(t, err)

	f.clock.Advance(serviceorder.DefaultLinkTTL + time.Minute)

	_, err = f.svc.ApproveViaToken(context.Background(), link.Token)
	assert.True(t, apperror.HasCode(err, apperror.CodeLinkExpired))
	_, err = f.svc.ApprovalDetails(context.Background(), link.Token)
	assert.True(t, apperror.HasCode(err, apperror.CodeLinkExpired))

	assert.Equal(t, serviceorder.StatusWaitingApproval, f.orders.Get(o.ID).Status)
}

func TestApprovalLink_RegenerationInvalidatesOldToken(t *testing.T) {
	f := newFixture(t)
	o := f.waitingApproval(t)
	first, err := f.svc.GenerateApprovalLink(f.ctx, o.ID)
	require.NoError(t, err)
	second, err := f.svc.GenerateApprovalLink(f.ctx, o.ID)
	require.NoError(t, err)

	_, err = f.svc.ApproveViaToken(context.Background(), first.Token)
	assert.True(t, apperror.HasCode(err, apperror.CodeLinkNotFound))

	_, err = f.svc.ApproveViaToken(context.Background(), second.Token)
	assert.NoError(t, err)
}

func TestApproveViaToken_StaffDecidedFirst(t *testing.T) {
	f := newFixture(t)
	o := f.waitingApproval(t)
	link, err := f.svc.GenerateApprovalLink(f.ctx, o.ID)
	require.NoError(t, err)

	_, err = f.svc.RejectBudget(f.ctx, o.ID, nil)
	require.NoError(t, err)

	_, err = f.svc.ApproveViaToken(context.Background(), link.Token)
	assert.True(t, apperror.HasCode(err, apperror.CodeAlreadyDecided))
}

func TestApproveViaToken_ConcurrentRequestsDecideOnce(t *testing.T) {
	f := newFixture(t)
	o := f.waitingApproval(t)
	link, err := f.svc.GenerateApprovalLink(f.ctx, o.ID)
	require.NoError(t, err)

	var won atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(approve bool) {
			defer wg.Done()
			var err error
			if approve {
				_, err = f.svc.ApproveViaToken(context.Background(), link.Token)
			} else {
				_, err = f.svc.RejectViaToken(context.Background(), link.Token, nil)
			}
			if err == nil {
				won.Add(1)
				return
			}
			assert.True(t, apperror.HasCode(err, apperror.CodeAlreadyDecided), "got %v", err)
		}(i%2 == 0)
	}
	wg.Wait()

	assert.Equal(t, int32(1), won.Load())
	stored := f.orders.Get(o.ID)
	assert.True(t, stored.BudgetApproval.Used)
	decisions := 0
	for _, h := range stored.StatusHistory {
		if strings.Contains(h.Notes, "via link") {
			decisions++
		}
	}
	assert.Equal(t, 1, decisions)
}
