package service

import "errors"

var ErrIllegalTransition = errors.New("illegal checkout status transition")

// CheckoutStatus tracks a single checkout attempt through the coordinator.
type CheckoutStatus string

const (
	StatusInitiated      CheckoutStatus = "INITIATED"
	StatusStockValidated CheckoutStatus = "STOCK_VALIDATED"
	StatusReserved       CheckoutStatus = "RESERVED"
	StatusPaymentPending CheckoutStatus = "PAYMENT_PENDING"
	StatusCommitted      CheckoutStatus = "COMMITTED"
	StatusReleased       CheckoutStatus = "RELEASED"
)

var transitions = map[CheckoutStatus][]CheckoutStatus{
	StatusInitiated:      {StatusStockValidated},
	StatusStockValidated: {StatusReserved},
	StatusReserved:       {StatusPaymentPending, StatusReleased},
	StatusPaymentPending: {StatusCommitted, StatusReleased},
}

func CanTransitionTo(from, to CheckoutStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s CheckoutStatus) IsTerminal() bool {
	return s == StatusCommitted || s == StatusReleased
}

func advance(status *CheckoutStatus, next CheckoutStatus) error {
	if !CanTransitionTo(*status, next) {
		return ErrIllegalTransition
	}
	*status = next
	return nil
}
