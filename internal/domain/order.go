package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderLine struct {
	ProductID uuid.UUID
	Size      string
	Quantity  int32
	Price     Money
}

// Order is created only from a committed reservation and is immutable
// once written.
type Order struct {
	ID         uuid.UUID
	OwnerID    string
	Lines      []OrderLine
	Total      Money
	PaymentRef string

	CreatedAt time.Time
}
