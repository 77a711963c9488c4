package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kartshop/storefront/internal/domain"
	"github.com/kartshop/storefront/internal/port"
	"golang.org/x/text/currency"
)

const getCartQuery = `
SELECT product_id, size, quantity, price_amount, price_currency, created_at, updated_at
FROM cart_items
WHERE owner_id = $1
ORDER BY created_at, product_id, size`

// upsertItemQuery sums quantities on a key collision and keeps the
// existing price snapshot.
const upsertItemQuery = `
INSERT INTO cart_items (owner_id, product_id, size, quantity, price_amount, price_currency)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (owner_id, product_id, size)
DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = now()
RETURNING quantity`

const deleteItemQuery = `
DELETE FROM cart_items
WHERE owner_id = $1 AND product_id = $2 AND size = $3`

const setQuantityQuery = `
UPDATE cart_items
SET quantity = $4, updated_at = now()
WHERE owner_id = $1 AND product_id = $2 AND size = $3`

const clearCartQuery = `
DELETE FROM cart_items
WHERE owner_id = $1`

type cartRepository struct {
	db   querier
	pool *pgxpool.Pool
}

func NewCart(pool *pgxpool.Pool) (port.CartRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}

	return &cartRepository{db: pool, pool: pool}, nil
}

func NewCartWithTx(tx pgx.Tx) port.CartRepository {
	return &cartRepository{
		db:   tx,
		pool: nil, // use provided transaction instead
	}
}

func (r *cartRepository) GetCart(ctx context.Context, ownerID string) (domain.Cart, error) {
	if ownerID == "" {
		return domain.Cart{}, fmt.Errorf("ownerID is empty")
	}

	rows, err := r.db.Query(ctx, getCartQuery, ownerID)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("db.Query: %w", err)
	}
	defer rows.Close()

	cart := domain.Cart{OwnerID: ownerID}
	for rows.Next() {
		var (
			item         domain.CartItem
			currencyCode string
			updatedAt    time.Time
		)

		if err := rows.Scan(&item.ProductID, &item.Size, &item.Quantity,
			&item.Price.Amount, &currencyCode, &item.CreatedAt, &updatedAt); err != nil {
			return domain.Cart{}, fmt.Errorf("rows.Scan: %w", err)
		}

		item.Price.Currency, err = currency.ParseISO(currencyCode)
		if err != nil {
			return domain.Cart{}, fmt.Errorf("currency[%s] is not valid: %w", currencyCode, err)
		}

		if updatedAt.After(cart.UpdatedAt) {
			cart.UpdatedAt = updatedAt
		}
		cart.Items = append(cart.Items, item)
	}

	if err := rows.Err(); err != nil {
		return domain.Cart{}, fmt.Errorf("rows.Err: %w", err)
	}

	return cart, nil
}

func (r *cartRepository) AddItem(ctx context.Context, ownerID string, item domain.CartItem) error {
	if ownerID == "" {
		return fmt.Errorf("ownerID is empty")
	}

	_, err := withTx(ctx, r.pool, r.db, func(tx pgx.Tx) (struct{}, error) {
		var quantity int32
		err := tx.QueryRow(ctx, upsertItemQuery,
			ownerID, item.ProductID, item.Size, item.Quantity,
			item.Price.Amount, item.Price.Currency.String(),
		).Scan(&quantity)
		if err != nil {
			return struct{}{}, fmt.Errorf("tx.QueryRow: %w", err)
		}

		// a line whose quantity dropped to zero or below is removed entirely
		if quantity <= 0 {
			if _, err := tx.Exec(ctx, deleteItemQuery, ownerID, item.ProductID, item.Size); err != nil {
				return struct{}{}, fmt.Errorf("tx.Exec: %w", err)
			}
		}

		return struct{}{}, nil
	})

	return err
}

func (r *cartRepository) RemoveItem(ctx context.Context, ownerID string, productID uuid.UUID, size string) (bool, error) {
	if ownerID == "" {
		return false, fmt.Errorf("ownerID is empty")
	}

	tag, err := r.db.Exec(ctx, deleteItemQuery, ownerID, productID, size)
	if err != nil {
		return false, fmt.Errorf("db.Exec: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

func (r *cartRepository) SetQuantity(ctx context.Context, ownerID string, productID uuid.UUID, size string, quantity int32) error {
	if ownerID == "" {
		return fmt.Errorf("ownerID is empty")
	}

	if quantity <= 0 {
		_, err := r.db.Exec(ctx, deleteItemQuery, ownerID, productID, size)
		if err != nil {
			return fmt.Errorf("db.Exec: %w", err)
		}
		return nil
	}

	_, err := r.db.Exec(ctx, setQuantityQuery, ownerID, productID, size, quantity)
	if err != nil {
		return fmt.Errorf("db.Exec: %w", err)
	}

	return nil
}

func (r *cartRepository) Clear(ctx context.Context, ownerID string) error {
	if ownerID == "" {
		return fmt.Errorf("ownerID is empty")
	}

	_, err := r.db.Exec(ctx, clearCartQuery, ownerID)
	if err != nil {
		return fmt.Errorf("db.Exec: %w", err)
	}

	return nil
}
