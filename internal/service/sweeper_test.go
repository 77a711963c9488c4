package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kartshop/storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestSweepOnce_ReleasesExpiredOnly(t *testing.T) {
	ledger := newFakeLedger()
	reservations := newFakeReservations()
	ctx := t.Context()

	productA, productB := uuid.New(), uuid.New()

	stale := domain.Reservation{
		ID:      uuid.New(),
		OwnerID: "owner-1",
		Lines:   []domain.ReservationLine{{ProductID: productA, Size: "M", Quantity: 2}},
		State:   domain.ReservationPaymentPending,
		// abandoned checkout, expiry bound already passed
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	live := domain.Reservation{
		ID:        uuid.New(),
		OwnerID:   "owner-2",
		Lines:     []domain.ReservationLine{{ProductID: productB, Size: "L", Quantity: 1}},
		State:     domain.ReservationPaymentPending,
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, reservations.Create(ctx, stale))
	require.NoError(t, reservations.Create(ctx, live))

	sweeper, err := NewSweeper(reservations, ledger, time.Hour, nil, newTestMetrics())
	require.NoError(t, err)
	defer sweeper.Close()

	require.NoError(t, sweeper.SweepOnce(ctx))

	released, err := reservations.Get(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationReleased, released.State)

	// the stale hold's stock is available again
	assert.Equal(t, int32(2), ledger.availableFor(productA, "M"))

	untouched, err := reservations.Get(ctx, live.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationPaymentPending, untouched.State)
	assert.Equal(t, int32(0), ledger.availableFor(productB, "L"))
}

func TestSweepOnce_DuplicateSweepIsNoOp(t *testing.T) {
	ledger := newFakeLedger()
	reservations := newFakeReservations()
	ctx := t.Context()

	productA := uuid.New()
	stale := domain.Reservation{
		ID:        uuid.New(),
		OwnerID:   "owner-1",
		Lines:     []domain.ReservationLine{{ProductID: productA, Size: "M", Quantity: 3}},
		State:     domain.ReservationHeld,
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, reservations.Create(ctx, stale))

	sweeper, err := NewSweeper(reservations, ledger, time.Hour, nil, newTestMetrics())
	require.NoError(t, err)
	defer sweeper.Close()

	require.NoError(t, sweeper.SweepOnce(ctx))
	require.NoError(t, sweeper.SweepOnce(ctx))

	assert.Equal(t, int32(3), ledger.availableFor(productA, "M"))
	assert.Equal(t, 1, ledger.incrementCount())
}

func TestSweeper_CloseStopsLoop(t *testing.T) {
	defer goleak.VerifyNone(t)

	sweeper, err := NewSweeper(newFakeReservations(), newFakeLedger(),
		time.Millisecond, nil, newTestMetrics())
	require.NoError(t, err)

	// let the loop tick at least once
	time.Sleep(10 * time.Millisecond)

	require.NoError(t, sweeper.Close())
}
