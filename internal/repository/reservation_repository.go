package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kartshop/storefront/internal/domain"
	"github.com/kartshop/storefront/internal/port"
)

const insertReservationQuery = `
INSERT INTO reservations (id, owner_id, state, payment_ref, created_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6)`

const insertReservationLineQuery = `
INSERT INTO reservation_lines (reservation_id, pos, product_id, size, quantity)
VALUES ($1, $2, $3, $4, $5)`

const getReservationQuery = `
SELECT id, owner_id, state, payment_ref, created_at, expires_at
FROM reservations
WHERE id = $1`

const getReservationLinesQuery = `
SELECT product_id, size, quantity
FROM reservation_lines
WHERE reservation_id = $1
ORDER BY pos`

const markPaymentPendingQuery = `
UPDATE reservations
SET state = $2, payment_ref = $3
WHERE id = $1 AND state = $4`

const commitReservationQuery = `
UPDATE reservations
SET state = $2
WHERE id = $1 AND state = $3`

const releaseReservationQuery = `
UPDATE reservations
SET state = $2
WHERE id = $1 AND (state = $3 OR state = $4)`

const listExpiredQuery = `
SELECT id, owner_id, state, payment_ref, created_at, expires_at
FROM reservations
WHERE (state = $2 OR state = $3) AND expires_at < $1
ORDER BY expires_at
LIMIT $4`

type reservationStore struct {
	db   querier
	pool *pgxpool.Pool
}

func NewReservations(pool *pgxpool.Pool) (port.ReservationStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}

	return &reservationStore{db: pool, pool: pool}, nil
}

func (s *reservationStore) Create(ctx context.Context, reservation domain.Reservation) error {
	if reservation.OwnerID == "" {
		return fmt.Errorf("ownerID is empty")
	}
	if len(reservation.Lines) == 0 {
		return fmt.Errorf("reservation has no lines")
	}

	_, err := withTx(ctx, s.pool, s.db, func(tx pgx.Tx) (struct{}, error) {
		_, err := tx.Exec(ctx, insertReservationQuery,
			reservation.ID, reservation.OwnerID, reservation.State,
			reservation.PaymentRef, reservation.CreatedAt, reservation.ExpiresAt)
		if err != nil {
			return struct{}{}, fmt.Errorf("tx.Exec reservations: %w", err)
		}

		for pos, line := range reservation.Lines {
			_, err := tx.Exec(ctx, insertReservationLineQuery,
				reservation.ID, pos, line.ProductID, line.Size, line.Quantity)
			if err != nil {
				return struct{}{}, fmt.Errorf("tx.Exec reservation_lines: %w", err)
			}
		}

		return struct{}{}, nil
	})

	return err
}

func (s *reservationStore) Get(ctx context.Context, id uuid.UUID) (domain.Reservation, error) {
	var reservation domain.Reservation

	err := s.db.QueryRow(ctx, getReservationQuery, id).Scan(
		&reservation.ID, &reservation.OwnerID, &reservation.State,
		&reservation.PaymentRef, &reservation.CreatedAt, &reservation.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Reservation{}, domain.ErrReservationNotFound
	}
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("db.QueryRow: %w", err)
	}

	reservation.Lines, err = s.getLines(ctx, id)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("getLines: %w", err)
	}

	return reservation, nil
}

func (s *reservationStore) MarkPaymentPending(ctx context.Context, id uuid.UUID, paymentRef string) (bool, error) {
	tag, err := s.db.Exec(ctx, markPaymentPendingQuery,
		id, domain.ReservationPaymentPending, paymentRef, domain.ReservationHeld)
	if err != nil {
		return false, fmt.Errorf("db.Exec: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// Commit converts a PAYMENT_PENDING reservation into an order: the state
// transition, the order insert and the cart clear happen in one
// transaction, so an order can never exist without its committed
// reservation. The conditional update makes a duplicate commit a no-op.
func (s *reservationStore) Commit(ctx context.Context, id uuid.UUID, order domain.Order) (bool, error) {
	return withTx(ctx, s.pool, s.db, func(tx pgx.Tx) (bool, error) {
		tag, err := tx.Exec(ctx, commitReservationQuery,
			id, domain.ReservationCommitted, domain.ReservationPaymentPending)
		if err != nil {
			return false, fmt.Errorf("tx.Exec: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return false, nil
		}

		if err := insertOrder(ctx, tx, order); err != nil {
			return false, fmt.Errorf("insertOrder: %w", err)
		}

		if _, err := tx.Exec(ctx, clearCartQuery, order.OwnerID); err != nil {
			return false, fmt.Errorf("tx.Exec cart_items: %w", err)
		}

		return true, nil
	})
}

func (s *reservationStore) Release(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := s.db.Exec(ctx, releaseReservationQuery,
		id, domain.ReservationReleased,
		domain.ReservationHeld, domain.ReservationPaymentPending)
	if err != nil {
		return false, fmt.Errorf("db.Exec: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func (s *reservationStore) ListExpired(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}

	rows, err := s.db.Query(ctx, listExpiredQuery,
		now, domain.ReservationHeld, domain.ReservationPaymentPending, limit)
	if err != nil {
		return nil, fmt.Errorf("db.Query: %w", err)
	}
	defer rows.Close()

	var reservations []domain.Reservation
	for rows.Next() {
		var reservation domain.Reservation

		if err := rows.Scan(&reservation.ID, &reservation.OwnerID, &reservation.State,
			&reservation.PaymentRef, &reservation.CreatedAt, &reservation.ExpiresAt); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}

		reservations = append(reservations, reservation)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	for i := range reservations {
		reservations[i].Lines, err = s.getLines(ctx, reservations[i].ID)
		if err != nil {
			return nil, fmt.Errorf("getLines: %w", err)
		}
	}

	return reservations, nil
}

func (s *reservationStore) getLines(ctx context.Context, id uuid.UUID) ([]domain.ReservationLine, error) {
	rows, err := s.db.Query(ctx, getReservationLinesQuery, id)
	if err != nil {
		return nil, fmt.Errorf("db.Query: %w", err)
	}
	defer rows.Close()

	var lines []domain.ReservationLine
	for rows.Next() {
		var line domain.ReservationLine

		if err := rows.Scan(&line.ProductID, &line.Size, &line.Quantity); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}

		lines = append(lines, line)
	}

	return lines, rows.Err()
}
