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
	"golang.org/x/text/currency"
)

var ErrOrderNotFound = errors.New("order not found")

const insertOrderQuery = `
INSERT INTO orders (id, owner_id, total_amount, total_currency, payment_ref, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`

const insertOrderLineQuery = `
INSERT INTO order_lines (order_id, pos, product_id, size, quantity, price_amount, price_currency)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

const getOrderQuery = `
SELECT id, owner_id, total_amount, total_currency, payment_ref, created_at
FROM orders
WHERE id = $1`

const listOrdersByOwnerQuery = `
SELECT id, owner_id, total_amount, total_currency, payment_ref, created_at
FROM orders
WHERE owner_id = $1
ORDER BY created_at, id`

const getOrderLinesQuery = `
SELECT product_id, size, quantity, price_amount, price_currency
FROM order_lines
WHERE order_id = $1
ORDER BY pos`

type orderStore struct {
	db   querier
	pool *pgxpool.Pool
}

func NewOrders(pool *pgxpool.Pool) (port.OrderStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}

	return &orderStore{db: pool, pool: pool}, nil
}

// insertOrder writes an order and its lines inside the caller's transaction.
// Only the reservation commit path calls it: orders exist solely as the
// permanent form of a committed reservation.
func insertOrder(ctx context.Context, tx pgx.Tx, order domain.Order) error {
	_, err := tx.Exec(ctx, insertOrderQuery,
		order.ID, order.OwnerID, order.Total.Amount, order.Total.Currency.String(),
		order.PaymentRef, order.CreatedAt)
	if err != nil {
		return fmt.Errorf("tx.Exec orders: %w", err)
	}

	for pos, line := range order.Lines {
		_, err := tx.Exec(ctx, insertOrderLineQuery,
			order.ID, pos, line.ProductID, line.Size, line.Quantity,
			line.Price.Amount, line.Price.Currency.String())
		if err != nil {
			return fmt.Errorf("tx.Exec order_lines: %w", err)
		}
	}

	return nil
}

func (s *orderStore) Get(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	row := s.db.QueryRow(ctx, getOrderQuery, id)

	order, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("scanOrder: %w", err)
	}

	order.Lines, err = s.getLines(ctx, order.ID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("getLines: %w", err)
	}

	return order, nil
}

func (s *orderStore) ListByOwner(ctx context.Context, ownerID string) ([]domain.Order, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("ownerID is empty")
	}

	rows, err := s.db.Query(ctx, listOrdersByOwnerQuery, ownerID)
	if err != nil {
		return nil, fmt.Errorf("db.Query: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scanOrder: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	for i := range orders {
		orders[i].Lines, err = s.getLines(ctx, orders[i].ID)
		if err != nil {
			return nil, fmt.Errorf("getLines: %w", err)
		}
	}

	return orders, nil
}

func (s *orderStore) getLines(ctx context.Context, orderID uuid.UUID) ([]domain.OrderLine, error) {
	rows, err := s.db.Query(ctx, getOrderLinesQuery, orderID)
	if err != nil {
		return nil, fmt.Errorf("db.Query: %w", err)
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var (
			line         domain.OrderLine
			currencyCode string
		)

		if err := rows.Scan(&line.ProductID, &line.Size, &line.Quantity,
			&line.Price.Amount, &currencyCode); err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}

		line.Price.Currency, err = currency.ParseISO(currencyCode)
		if err != nil {
			return nil, fmt.Errorf("currency[%s] is not valid: %w", currencyCode, err)
		}

		lines = append(lines, line)
	}

	return lines, rows.Err()
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var (
		order        domain.Order
		currencyCode string
	)

	err := row.Scan(&order.ID, &order.OwnerID, &order.Total.Amount,
		&currencyCode, &order.PaymentRef, &order.CreatedAt)
	if err != nil {
		return domain.Order{}, err
	}

	order.Total.Currency, err = currency.ParseISO(currencyCode)
	if err != nil {
		return domain.Order{}, fmt.Errorf("currency[%s] is not valid: %w", currencyCode, err)
	}

	return order, nil
}
