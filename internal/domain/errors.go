package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Expected, user-recoverable conditions are typed values rather than
// generic errors so callers can branch on them with errors.Is/As.
var (
	ErrEmptyCart           = errors.New("cart is empty, nothing to checkout")
	ErrMixedCurrency       = errors.New("cart lines use more than one currency")
	ErrPaymentFailed       = errors.New("payment failed")
	ErrPaymentUnconfirmed  = errors.New("payment status unknown, contact support")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrReservationExpired  = errors.New("reservation expired before payment completed")
	ErrAuthFailed          = errors.New("authentication failed")
	ErrInvalidToken        = errors.New("invalid token")
)

// StockShortfall names one cart line that could not be covered by the
// ledger at the moment of reservation.
type StockShortfall struct {
	ProductID uuid.UUID
	Size      string
	Requested int32
	Available int32
}

func (s StockShortfall) String() string {
	return fmt.Sprintf("product %s size %s: requested %d, available %d",
		s.ProductID, s.Size, s.Requested, s.Available)
}

// InsufficientStockError reports every line that failed reservation, so the
// shopper can adjust quantities in one pass.
type InsufficientStockError struct {
	Shortfalls []StockShortfall
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		parts = append(parts, s.String())
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}
