package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReservationState represents the lifecycle of a stock reservation.
type ReservationState string

const (
	ReservationHeld           ReservationState = "HELD"
	ReservationPaymentPending ReservationState = "PAYMENT_PENDING"
	ReservationCommitted      ReservationState = "COMMITTED"
	ReservationReleased       ReservationState = "RELEASED"
)

// ReservationLine is one reserved (product, size, quantity) triple.
type ReservationLine struct {
	ProductID uuid.UUID
	Size      string
	Quantity  int32
}

// Reservation is a temporary hold against the stock ledger made during
// checkout. It is created only after every line has been decremented from
// the ledger, and it is the only path by which that stock is either
// permanently consumed (COMMITTED) or returned (RELEASED).
type Reservation struct {
	ID         uuid.UUID
	OwnerID    string
	Lines      []ReservationLine
	State      ReservationState
	PaymentRef string

	CreatedAt time.Time
	ExpiresAt time.Time
}

// IsExpired reports whether the reservation has outlived its hold window.
func (r Reservation) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
