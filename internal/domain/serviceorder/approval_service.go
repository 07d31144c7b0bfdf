package serviceorder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"oficina/internal/core/apperror"
	"oficina/internal/core/id"
	"oficina/internal/core/tenant"
	"oficina/internal/domain/audit"
	"oficina/pkg/logger"
)

// ApprovalLink is returned to staff once; the token is not recoverable later.
type ApprovalLink struct {
	URL       string    `json:"url"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// BudgetDetails are the totals shown on the public approval page.
type BudgetDetails struct {
	TotalParts    decimal.Decimal `json:"totalParts"`
	TotalServices decimal.Decimal `json:"totalServices"`
	Total         decimal.Decimal `json:"total"`
}

// BudgetPart is a part line as the client sees it.
type BudgetPart struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	TotalPrice  decimal.Decimal `json:"totalPrice"`
}

// PublicOrder is what an approval link discloses about an order. Tenant,
// client, inventory and workshop data stay internal.
type PublicOrder struct {
	OrderNumber             string                `json:"orderNumber"`
	Status                  Status                `json:"status"`
	ReportedProblem         string                `json:"reportedProblem"`
	IdentifiedProblems      []string              `json:"identifiedProblems"`
	RequiredParts           []BudgetPart          `json:"requiredParts"`
	Services                []ServiceLine         `json:"services"`
	EstimatedCompletionDate *time.Time            `json:"estimatedCompletionDate,omitempty"`
	BudgetApprovalStatus    *BudgetApprovalStatus `json:"budgetApprovalStatus,omitempty"`
}

func newPublicOrder(o *ServiceOrder) *PublicOrder {
	parts := make([]BudgetPart, 0, len(o.RequiredParts))
	for _, l := range o.RequiredParts {
		parts = append(parts, BudgetPart{
			Description: l.Description,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			TotalPrice:  l.TotalPrice,
		})
	}
	services := append([]ServiceLine{}, o.Services...)
	problems := append([]string{}, o.IdentifiedProblems...)
	return &PublicOrder{
		OrderNumber:             o.OrderNumber,
		Status:                  o.Status,
		ReportedProblem:         o.ReportedProblem,
		IdentifiedProblems:      problems,
		RequiredParts:           parts,
		Services:                services,
		EstimatedCompletionDate: o.EstimatedCompletionDate,
		BudgetApprovalStatus:    o.BudgetApprovalStatus,
	}
}

// ApprovalDetails is the public view of an order behind a token.
type ApprovalDetails struct {
	ServiceOrder    *PublicOrder  `json:"serviceOrder"`
	BudgetDetails   BudgetDetails `json:"budgetDetails"`
	ApprovalPending bool          `json:"approvalPending"`
}

// GenerateApprovalLink mints a new token for an order waiting for approval.
// Any previous link of the order stops working.
func (s *Service) GenerateApprovalLink(ctx context.Context, orderID id.ID) (*ApprovalLink, error) {
	g, err := s.garage(ctx)
	if err != nil {
		return nil, err
	}
	repo := s.store.Orders(g)

	var link *ApprovalLink
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		o, err := repo.GetByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status != StatusWaitingApproval {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule,
				"approval links can only be generated while waiting for approval").
				WithDetail("status", o.Status)
		}

		token, approval, err := NewApproval(s.now(), s.cfg.LinkTTL)
		if err != nil {
			return err
		}
		if err := repo.SaveApproval(ctx, o.ID, approval); err != nil {
			return fmt.Errorf("save approval: %w", err)
		}
		if err := s.audit.LogChange(ctx, audit.EntityServiceOrder, o.ID, audit.ActionUpdate, map[string]any{
			"approval_link": map[string]any{"expires_at": approval.ExpiresAt},
		}); err != nil {
			return err
		}

		link = &ApprovalLink{
			URL:       approvalURL(s.cfg.PublicBaseURL, token),
			Token:     token,
			ExpiresAt: approval.ExpiresAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "approval link generated", "service_order_id", orderID, "expires_at", link.ExpiresAt)
	return link, nil
}

// ApprovalDetails resolves a token for the public page. Used links stay
// readable until they expire.
func (s *Service) ApprovalDetails(ctx context.Context, token string) (*ApprovalDetails, error) {
	o, _, err := s.lookupToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := o.BudgetApproval.CheckReadable(s.now()); err != nil {
		return nil, err
	}
	return &ApprovalDetails{
		ServiceOrder: newPublicOrder(o),
		BudgetDetails: BudgetDetails{
			TotalParts:    o.EstimatedTotalParts,
			TotalServices: o.EstimatedTotalServices,
			Total:         o.EstimatedTotal,
		},
		ApprovalPending: !o.BudgetApproval.Used && o.Status == StatusWaitingApproval,
	}, nil
}

// ApproveViaToken approves the budget on behalf of the client.
func (s *Service) ApproveViaToken(ctx context.Context, token string) (*ServiceOrder, error) {
	return s.decideViaToken(ctx, token, true, nil)
}

// RejectViaToken rejects the budget on behalf of the client.
func (s *Service) RejectViaToken(ctx context.Context, token string, reason *string) (*ServiceOrder, error) {
	return s.decideViaToken(ctx, token, false, reason)
}

func (s *Service) decideViaToken(ctx context.Context, token string, approve bool, reason *string) (*ServiceOrder, error) {
	o, g, err := s.lookupToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if err := o.BudgetApproval.CheckUsable(s.now()); err != nil {
		return nil, err
	}

	ctx = tenant.WithGarage(ctx, g)
	hash := HashToken(token)
	to, budget, decision, note := decisionFor(approve, true, reason)

	order, err := s.changeStatus(ctx, o.ID, to, note, func(ctx context.Context, repo Repository, o *ServiceOrder) error {
		now := s.now()
		a := o.BudgetApproval
		if a == nil || a.TokenHash != hash {
			return apperror.NewLinkNotFound()
		}
		if err := a.CheckUsable(now); err != nil {
			return err
		}
		if o.Status != StatusWaitingApproval {
			current := ""
			if o.BudgetApprovalStatus != nil {
				current = string(*o.BudgetApprovalStatus)
			}
			return apperror.NewAlreadyDecided(current)
		}

		won, err := repo.ConsumeApproval(ctx, o.ID, hash, decision, reason, now)
		if err != nil {
			return fmt.Errorf("consume approval: %w", err)
		}
		if !won {
			return apperror.NewAlreadyDecided("")
		}
		a.Used = true
		a.UsedAt = &now
		a.Decision = &decision
		if !approve {
			a.RejectionReason = reason
		}

		o.SetBudgetDecision(budget, now)
		return s.publishDecision(ctx, g, o, decision, reason, true)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "budget decided via link", "service_order_id", order.ID, "decision", decision)
	return order, nil
}

// lookupToken finds the order of a token across garages.
func (s *Service) lookupToken(ctx context.Context, token string) (*ServiceOrder, tenant.GarageID, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, tenant.GarageID{}, apperror.NewLinkNotFound()
	}
	o, g, err := s.store.FindByApprovalTokenHash(ctx, HashToken(token))
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, tenant.GarageID{}, apperror.NewLinkNotFound()
		}
		return nil, tenant.GarageID{}, err
	}
	if o.BudgetApproval == nil {
		return nil, tenant.GarageID{}, apperror.NewLinkNotFound()
	}
	return o, g, nil
}

func approvalURL(base, token string) string {
	return strings.TrimRight(base, "/") + "/approval/" + token
}
