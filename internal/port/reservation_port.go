package port

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kartshop/storefront/internal/domain"
)

// ReservationStore owns the reservation lifecycle. State transitions are
// conditional updates, so a duplicate commit or release signal is a no-op:
// the bool results report whether this call performed the transition.
type ReservationStore interface {
	Create(ctx context.Context, reservation domain.Reservation) error

	Get(ctx context.Context, id uuid.UUID) (domain.Reservation, error)

	// MarkPaymentPending moves HELD to PAYMENT_PENDING, recording the
	// payment reference handed to the payment initiator.
	MarkPaymentPending(ctx context.Context, id uuid.UUID, paymentRef string) (bool, error)

	// Commit moves PAYMENT_PENDING to COMMITTED, creates the order and
	// clears the owner's cart in a single transaction. It is the only
	// order-creating path.
	Commit(ctx context.Context, id uuid.UUID, order domain.Order) (bool, error)

	// Release moves HELD or PAYMENT_PENDING to RELEASED. The caller is
	// responsible for incrementing the ledger back when true is returned.
	Release(ctx context.Context, id uuid.UUID) (bool, error)

	// ListExpired returns reservations still holding stock whose
	// expiry bound has passed.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error)
}

type OrderStore interface {
	Get(ctx context.Context, id uuid.UUID) (domain.Order, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Order, error)
}
