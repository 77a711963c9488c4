package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kartshop/storefront/internal/domain"
	"github.com/kartshop/storefront/internal/port"
)

const getAvailableQuery = `
SELECT available
FROM stock
WHERE product_id = $1 AND size = $2`

// tryDecrementQuery is the whole point of the ledger: the availability
// check and the decrement are one conditional statement, so concurrent
// checkouts can never drive the counter below zero.
const tryDecrementQuery = `
UPDATE stock
SET available = available - $3, updated_at = now()
WHERE product_id = $1 AND size = $2 AND available >= $3`

const incrementQuery = `
INSERT INTO stock (product_id, size, available)
VALUES ($1, $2, $3)
ON CONFLICT (product_id, size)
DO UPDATE SET available = stock.available + EXCLUDED.available, updated_at = now()`

const setAvailableQuery = `
INSERT INTO stock (product_id, size, available)
VALUES ($1, $2, $3)
ON CONFLICT (product_id, size)
DO UPDATE SET available = EXCLUDED.available, updated_at = now()`

type stockLedger struct {
	db   querier
	pool *pgxpool.Pool
}

func NewStockLedger(pool *pgxpool.Pool) (port.StockLedger, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}

	return &stockLedger{db: pool, pool: pool}, nil
}

func NewStockLedgerWithTx(tx pgx.Tx) port.StockLedger {
	return &stockLedger{
		db:   tx,
		pool: nil, // use provided transaction instead
	}
}

func (l *stockLedger) GetAvailable(ctx context.Context, productID uuid.UUID, size string) (int32, error) {
	var available int32

	err := l.db.QueryRow(ctx, getAvailableQuery, productID, size).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil // unknown (product, size) simply has nothing in stock
	}
	if err != nil {
		return 0, fmt.Errorf("db.QueryRow: %w", err)
	}

	return available, nil
}

func (l *stockLedger) TryDecrement(ctx context.Context, productID uuid.UUID, size string, quantity int32) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}

	tag, err := l.db.Exec(ctx, tryDecrementQuery, productID, size, quantity)
	if err != nil {
		return fmt.Errorf("db.Exec: %w", err)
	}

	if tag.RowsAffected() == 0 {
		available, err := l.GetAvailable(ctx, productID, size)
		if err != nil {
			return fmt.Errorf("GetAvailable: %w", err)
		}

		return &domain.InsufficientStockError{Shortfalls: []domain.StockShortfall{{
			ProductID: productID,
			Size:      size,
			Requested: quantity,
			Available: available,
		}}}
	}

	return nil
}

func (l *stockLedger) Increment(ctx context.Context, productID uuid.UUID, size string, quantity int32) error {
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}

	_, err := l.db.Exec(ctx, incrementQuery, productID, size, quantity)
	if err != nil {
		return fmt.Errorf("db.Exec: %w", err)
	}

	return nil
}

func (l *stockLedger) SetAvailable(ctx context.Context, productID uuid.UUID, size string, quantity int32) error {
	if quantity < 0 {
		return fmt.Errorf("quantity must not be negative")
	}

	_, err := l.db.Exec(ctx, setAvailableQuery, productID, size, quantity)
	if err != nil {
		return fmt.Errorf("db.Exec: %w", err)
	}

	return nil
}
