// Package serviceorder implements the service-order aggregate, its status
// machine and the budget approval flow.
package serviceorder

import (
	"oficina/internal/core/apperror"
)

// Status is the closed set of service-order states. Values are the wire format.
type Status string

const (
	StatusOpened          Status = "aberta"
	StatusDiagnosing      Status = "em_diagnostico"
	StatusWaitingApproval Status = "aguardando_aprovacao"
	StatusApproved        Status = "aprovada"
	StatusRejected        Status = "rejeitada"
	StatusInProgress      Status = "em_andamento"
	StatusWaitingParts    Status = "aguardando_pecas"
	StatusCompleted       Status = "concluida"
	StatusDelivered       Status = "entregue"
	StatusCanceled        Status = "cancelada"
)

// AllStatuses lists every status in workflow order.
var AllStatuses = []Status{
	StatusOpened,
	StatusDiagnosing,
	StatusWaitingApproval,
	StatusApproved,
	StatusRejected,
	StatusInProgress,
	StatusWaitingParts,
	StatusCompleted,
	StatusDelivered,
	StatusCanceled,
}

// ParseStatus validates a status coming from the API.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if st.Valid() {
		return st, nil
	}
	return "", apperror.NewValidation("invalid status").
		WithDetail("field", "status").
		WithDetail("value", s)
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// AffectsStock reports membership in the set of statuses in which the
// order's inventory lines are considered consumed.
func (s Status) AffectsStock() bool {
	switch s {
	case StatusInProgress, StatusWaitingParts, StatusCompleted, StatusDelivered:
		return true
	}
	return false
}

// Effect is the inventory side effect of a status change.
type Effect int

const (
	EffectNone Effect = iota
	EffectConsume
	EffectRestore
)

func (e Effect) String() string {
	switch e {
	case EffectConsume:
		return "consume"
	case EffectRestore:
		return "restore"
	}
	return "none"
}

// EffectOf compares only set membership of from and to, so moves inside the
// affecting set (IN_PROGRESS -> WAITING_PARTS) never consume twice.
func EffectOf(from, to Status) Effect {
	switch {
	case !from.AffectsStock() && to.AffectsStock():
		return EffectConsume
	case from.AffectsStock() && !to.AffectsStock():
		return EffectRestore
	}
	return EffectNone
}

// BudgetApprovalStatus tracks the client's answer to the budget.
type BudgetApprovalStatus string

const (
	BudgetPending  BudgetApprovalStatus = "aguardando"
	BudgetApproved BudgetApprovalStatus = "aprovado"
	BudgetRejected BudgetApprovalStatus = "rejeitado"
)

// PaymentMethod enumerates accepted payment methods.
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "dinheiro"
	PaymentCreditCard   PaymentMethod = "cartao_credito"
	PaymentDebitCard    PaymentMethod = "cartao_debito"
	PaymentPixPersonal  PaymentMethod = "pix_pf"
	PaymentPixBusiness  PaymentMethod = "pix_pj"
	PaymentBankTransfer PaymentMethod = "transferencia"
	PaymentInstallments PaymentMethod = "parcelado"
)

// ParsePaymentMethod validates a payment method; empty input returns "".
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case "":
		return "", nil
	case PaymentCash, PaymentCreditCard, PaymentDebitCard, PaymentPixPersonal,
		PaymentPixBusiness, PaymentBankTransfer, PaymentInstallments:
		return PaymentMethod(s), nil
	}
	return "", apperror.NewValidation("invalid payment method").
		WithDetail("field", "paymentMethod").
		WithDetail("value", s)
}
