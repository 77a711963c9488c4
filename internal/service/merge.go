package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kartshop/storefront/internal/domain"
	"github.com/kartshop/storefront/internal/port"
)

// Merger folds an anonymous cart into the account cart exactly once at
// login. It never consults the stock ledger: over-subscription, if any,
// is caught at checkout.
type Merger struct {
	carts  port.CartRepository
	logger *slog.Logger
}

func NewMerger(carts port.CartRepository, logger *slog.Logger) (*Merger, error) {
	if carts == nil {
		return nil, fmt.Errorf("carts must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Merger{carts: carts, logger: logger}, nil
}

// OnLogin merges the anonymous cart into the account cart line by line,
// using the cart store's own key-merge rule: colliding (product, size)
// keys sum their quantities and the account cart's price snapshot wins.
// The anonymous cart is cleared last, so a duplicate login event finds it
// empty and the second call is a no-op.
func (m *Merger) OnLogin(ctx context.Context, event domain.LoginEvent) error {
	if event.AnonymousID == "" || event.AccountID == "" {
		return fmt.Errorf("login event owner ids must not be empty")
	}
	if event.AnonymousID == event.AccountID {
		return fmt.Errorf("login event owner ids must differ")
	}

	anonymous, err := m.carts.GetCart(ctx, event.AnonymousID)
	if err != nil {
		return fmt.Errorf("carts.GetCart: %w", err)
	}
	if anonymous.IsEmpty() {
		return nil
	}

	for _, item := range anonymous.Items {
		if err := m.carts.AddItem(ctx, event.AccountID, item); err != nil {
			return fmt.Errorf("carts.AddItem: %w", err)
		}
	}

	if err := m.carts.Clear(ctx, event.AnonymousID); err != nil {
		return fmt.Errorf("carts.Clear: %w", err)
	}

	m.logger.Info("anonymous cart merged",
		"anonymous_id", event.AnonymousID, "account_id", event.AccountID,
		"lines", len(anonymous.Items))

	return nil
}
