package domain

import (
	"time"

	"github.com/google/uuid"
)

// StockRecord is the authoritative available-quantity counter for one
// (product, size) pair. Available never goes below zero; every decrement
// is conditional on sufficient availability.
type StockRecord struct {
	ProductID uuid.UUID
	Size      string
	Available int32

	UpdatedAt time.Time
}
