package port

import (
	"context"

	"github.com/kartshop/storefront/internal/domain"
)

type PaymentVerdict string

const (
	PaymentConfirmed PaymentVerdict = "confirmed"
	PaymentDeclined  PaymentVerdict = "failed"
)

type PaymentResult struct {
	// Handle is the gateway's reference for this payment attempt.
	Handle  string
	Verdict PaymentVerdict
}

// PaymentInitiator is the black-box payment gateway. Initiate blocks until
// the gateway reports a verdict or ctx expires; an error means the outcome
// is unknown, not that the payment failed.
type PaymentInitiator interface {
	Initiate(ctx context.Context, amount domain.Money, reference string) (PaymentResult, error)
}
