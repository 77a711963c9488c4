package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/kartshop/storefront/internal/domain"
	"github.com/kartshop/storefront/internal/port"
	"golang.org/x/sync/singleflight"
)

// CartService fronts the cart store for the UI layer. It adds an advisory
// availability hint on add-to-cart; the hint is best-effort only, the
// authoritative stock check happens at checkout.
type CartService struct {
	carts  port.CartRepository
	ledger port.StockLedger
	logger *slog.Logger
	sfg    singleflight.Group // collapses concurrent availability reads per key
}

func NewCartService(carts port.CartRepository, ledger port.StockLedger, logger *slog.Logger) (*CartService, error) {
	if carts == nil || ledger == nil {
		return nil, fmt.Errorf("cart service dependencies must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &CartService{carts: carts, ledger: ledger, logger: logger}, nil
}

func (s *CartService) GetCart(ctx context.Context, ownerID string) (domain.Cart, error) {
	return s.carts.GetCart(ctx, ownerID)
}

// AddItem upserts the line and logs a hint when the ledger looks short.
// A ledger error never blocks the add: browsing must not be coupled to
// ledger contention.
func (s *CartService) AddItem(ctx context.Context, ownerID string, item domain.CartItem) error {
	available, err := s.Availability(ctx, item.ProductID, item.Size)
	switch {
	case err != nil:
		s.logger.Warn("advisory stock check failed",
			"product_id", item.ProductID, "size", item.Size, "error", err)
	case available < item.Quantity:
		s.logger.Info("add-to-cart exceeds current availability",
			"product_id", item.ProductID, "size", item.Size,
			"requested", item.Quantity, "available", available)
	}

	return s.carts.AddItem(ctx, ownerID, item)
}

func (s *CartService) SetQuantity(ctx context.Context, ownerID string, productID uuid.UUID, size string, quantity int32) error {
	return s.carts.SetQuantity(ctx, ownerID, productID, size, quantity)
}

func (s *CartService) RemoveItem(ctx context.Context, ownerID string, productID uuid.UUID, size string) (bool, error) {
	return s.carts.RemoveItem(ctx, ownerID, productID, size)
}

// Availability is the stock display surface. Concurrent lookups for the
// same (product, size) share a single ledger read.
func (s *CartService) Availability(ctx context.Context, productID uuid.UUID, size string) (int32, error) {
	key := productID.String() + "/" + size

	v, err, _ := s.sfg.Do(key, func() (interface{}, error) {
		return s.ledger.GetAvailable(ctx, productID, size)
	})
	if err != nil {
		return 0, fmt.Errorf("ledger.GetAvailable: %w", err)
	}

	return v.(int32), nil
}
