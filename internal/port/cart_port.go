package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/kartshop/storefront/internal/domain"
)

// CartRepository performs no stock validation; that belongs to checkout.
type CartRepository interface {
	// GetCart returns an empty cart, not an error, when none exists yet.
	GetCart(ctx context.Context, ownerID string) (domain.Cart, error)

	// AddItem upserts a line. On a (productID, size) key collision the
	// quantities are summed and the existing price snapshot is kept.
	// A resulting quantity of zero or less removes the line.
	AddItem(ctx context.Context, ownerID string, item domain.CartItem) error

	// RemoveItem deletes the line if present and reports whether it did.
	RemoveItem(ctx context.Context, ownerID string, productID uuid.UUID, size string) (bool, error)

	// SetQuantity replaces an existing line's quantity; zero or less
	// removes the line. Setting quantity on an absent line is a no-op.
	SetQuantity(ctx context.Context, ownerID string, productID uuid.UUID, size string, quantity int32) error

	Clear(ctx context.Context, ownerID string) error
}
