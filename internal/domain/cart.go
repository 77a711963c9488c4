package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Cart struct {
	OwnerID   string
	Items     []CartItem
	UpdatedAt time.Time
}

// CartItem is a single cart line. Lines are keyed by (ProductID, Size);
// adding the same key again sums quantities instead of duplicating the line.
type CartItem struct {
	ProductID uuid.UUID
	Size      string
	Quantity  int32
	Price     Money // unit price snapshot taken when the line was created

	CreatedAt time.Time
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Total sums quantity times unit price over all lines.
// A cart checks out in a single currency.
func (c Cart) Total() (Money, error) {
	if len(c.Items) == 0 {
		return Money{}, nil
	}

	unit := c.Items[0].Price.Currency
	total := decimal.Zero

	for _, item := range c.Items {
		if item.Price.Currency != unit {
			return Money{}, ErrMixedCurrency
		}
		total = total.Add(item.Price.Amount.Mul(decimal.NewFromInt32(item.Quantity)))
	}

	return Money{Amount: total, Currency: unit}, nil
}
