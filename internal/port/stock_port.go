package port

import (
	"context"

	"github.com/google/uuid"
)

// StockLedger is the sole mutator of per-(product, size) availability.
type StockLedger interface {
	// GetAvailable returns 0 for an unknown (product, size) pair.
	GetAvailable(ctx context.Context, productID uuid.UUID, size string) (int32, error)

	// TryDecrement atomically checks and decrements availability.
	// It returns *domain.InsufficientStockError when availability is
	// short; the record is left unchanged in that case. Safe under
	// concurrent calls for the same key.
	TryDecrement(ctx context.Context, productID uuid.UUID, size string, quantity int32) error

	// Increment is always additive and creates the record if missing.
	Increment(ctx context.Context, productID uuid.UUID, size string, quantity int32) error

	// SetAvailable overwrites availability, used for seeding stock.
	SetAvailable(ctx context.Context, productID uuid.UUID, size string, quantity int32) error
}
