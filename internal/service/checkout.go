package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kartshop/storefront/internal/domain"
	"github.com/kartshop/storefront/internal/metrics"
	"github.com/kartshop/storefront/internal/port"
)

// DefaultReservationTTL bounds how long an abandoned checkout may hold
// stock before the expiry sweep returns it.
const DefaultReservationTTL = 15 * time.Minute

// Checkout coordinates a checkout attempt: validate the cart against the
// ledger, reserve stock, hand off to the payment initiator, then either
// commit the reservation into an order or release it.
type Checkout struct {
	carts        port.CartRepository
	ledger       port.StockLedger
	reservations port.ReservationStore
	payments     port.PaymentInitiator
	ttl          time.Duration
	logger       *slog.Logger
	metrics      *metrics.CheckoutMetrics
}

func NewCheckout(
	carts port.CartRepository,
	ledger port.StockLedger,
	reservations port.ReservationStore,
	payments port.PaymentInitiator,
	ttl time.Duration,
	logger *slog.Logger,
	m *metrics.CheckoutMetrics,
) (*Checkout, error) {
	if carts == nil || ledger == nil || reservations == nil || payments == nil {
		return nil, fmt.Errorf("checkout dependencies must not be nil")
	}
	if m == nil {
		return nil, fmt.Errorf("metrics must not be nil")
	}
	if ttl <= 0 {
		ttl = DefaultReservationTTL
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Checkout{
		carts:        carts,
		ledger:       ledger,
		reservations: reservations,
		payments:     payments,
		ttl:          ttl,
		logger:       logger,
		metrics:      m,
	}, nil
}

// Checkout runs the full state machine for ownerID's cart. Expected
// outcomes come back as typed domain errors; on success the created order
// is returned and the cart has been cleared.
func (c *Checkout) Checkout(ctx context.Context, ownerID string) (domain.Order, error) {
	status := StatusInitiated

	cart, err := c.carts.GetCart(ctx, ownerID)
	if err != nil {
		c.metrics.Attempts.WithLabelValues("error").Inc()
		return domain.Order{}, fmt.Errorf("carts.GetCart: %w", err)
	}
	if cart.IsEmpty() {
		c.metrics.Attempts.WithLabelValues("empty_cart").Inc()
		return domain.Order{}, domain.ErrEmptyCart
	}

	total, err := cart.Total()
	if err != nil {
		c.metrics.Attempts.WithLabelValues("error").Inc()
		return domain.Order{}, fmt.Errorf("cart.Total: %w", err)
	}

	if err := advance(&status, StatusStockValidated); err != nil {
		return domain.Order{}, err
	}

	lines := reservationLines(cart)

	decremented, shortfalls, err := c.reserveStock(ctx, lines)
	if err != nil {
		restockLines(ctx, c.ledger, c.logger, decremented)
		c.metrics.Attempts.WithLabelValues("error").Inc()
		return domain.Order{}, fmt.Errorf("reserveStock: %w", err)
	}
	if len(shortfalls) > 0 {
		restockLines(ctx, c.ledger, c.logger, decremented)
		c.metrics.StockRejections.Inc()
		c.metrics.Attempts.WithLabelValues("insufficient_stock").Inc()
		return domain.Order{}, &domain.InsufficientStockError{Shortfalls: shortfalls}
	}

	if err := advance(&status, StatusReserved); err != nil {
		return domain.Order{}, err
	}

	now := time.Now()
	reservation := domain.Reservation{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Lines:     lines,
		State:     domain.ReservationHeld,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}
	if err := c.reservations.Create(ctx, reservation); err != nil {
		restockLines(ctx, c.ledger, c.logger, lines)
		c.metrics.Attempts.WithLabelValues("error").Inc()
		return domain.Order{}, fmt.Errorf("reservations.Create: %w", err)
	}

	if err := advance(&status, StatusPaymentPending); err != nil {
		return domain.Order{}, err
	}

	pending, err := c.reservations.MarkPaymentPending(ctx, reservation.ID, reservation.ID.String())
	if err != nil {
		// the HELD reservation carries an expiry, the sweep will return its stock
		c.metrics.Attempts.WithLabelValues("error").Inc()
		return domain.Order{}, fmt.Errorf("reservations.MarkPaymentPending: %w", err)
	}
	if !pending {
		c.metrics.Attempts.WithLabelValues("expired").Inc()
		return domain.Order{}, domain.ErrReservationExpired
	}

	// bounded wait: never block past the reservation's own expiry
	paymentCtx, cancel := context.WithDeadline(ctx, reservation.ExpiresAt)
	defer cancel()

	result, err := c.payments.Initiate(paymentCtx, total, reservation.ID.String())
	if err != nil {
		// outcome unknown, funds may have moved: keep the reservation
		// PAYMENT_PENDING and let the expiry sweep resolve it
		c.logger.Warn("payment verdict unknown",
			"reservation_id", reservation.ID, "owner_id", ownerID, "error", err)
		c.metrics.Attempts.WithLabelValues("payment_unconfirmed").Inc()
		return domain.Order{}, domain.ErrPaymentUnconfirmed
	}

	if result.Verdict != port.PaymentConfirmed {
		if err := c.release(ctx, reservation.ID, lines); err != nil {
			c.logger.Error("release after declined payment failed",
				"reservation_id", reservation.ID, "error", err)
		}
		c.metrics.Attempts.WithLabelValues("payment_failed").Inc()
		return domain.Order{}, domain.ErrPaymentFailed
	}

	if err := advance(&status, StatusCommitted); err != nil {
		return domain.Order{}, err
	}

	order := orderFromCart(cart, total, result.Handle)
	committed, err := c.reservations.Commit(ctx, reservation.ID, order)
	if err != nil {
		c.metrics.Attempts.WithLabelValues("error").Inc()
		return domain.Order{}, fmt.Errorf("reservations.Commit: %w", err)
	}
	if !committed {
		// the expiry sweep released it first; its stock is already back
		c.metrics.Attempts.WithLabelValues("expired").Inc()
		return domain.Order{}, domain.ErrReservationExpired
	}

	c.logger.Info("checkout committed",
		"order_id", order.ID, "owner_id", ownerID, "total", total.String())
	c.metrics.Attempts.WithLabelValues("committed").Inc()

	return order, nil
}

// Cancel releases a reservation on explicit shopper cancellation. A
// duplicate cancel is a no-op: the conditional release transition fires
// at most once per reservation.
func (c *Checkout) Cancel(ctx context.Context, reservationID uuid.UUID) error {
	reservation, err := c.reservations.Get(ctx, reservationID)
	if err != nil {
		return fmt.Errorf("reservations.Get: %w", err)
	}

	return c.release(ctx, reservationID, reservation.Lines)
}

func (c *Checkout) release(ctx context.Context, id uuid.UUID, lines []domain.ReservationLine) error {
	released, err := c.reservations.Release(ctx, id)
	if err != nil {
		return fmt.Errorf("reservations.Release: %w", err)
	}
	if !released {
		return nil
	}

	restockLines(ctx, c.ledger, c.logger, lines)
	c.metrics.ReservationsReleased.Inc()
	return nil
}

func (c *Checkout) reserveStock(ctx context.Context, lines []domain.ReservationLine) (decremented []domain.ReservationLine, shortfalls []domain.StockShortfall, _ error) {
	for _, line := range lines {
		err := c.ledger.TryDecrement(ctx, line.ProductID, line.Size, line.Quantity)

		var insufficient *domain.InsufficientStockError
		switch {
		case err == nil:
			decremented = append(decremented, line)
		case errors.As(err, &insufficient):
			shortfalls = append(shortfalls, insufficient.Shortfalls...)
		default:
			return decremented, nil, fmt.Errorf("ledger.TryDecrement: %w", err)
		}
	}

	return decremented, shortfalls, nil
}

// restockLines returns reserved quantities to the ledger. A lost increment
// permanently understates stock, so failures are retried with backoff even
// after the caller's context is gone.
func restockLines(ctx context.Context, ledger port.StockLedger, logger *slog.Logger, lines []domain.ReservationLine) {
	ctx = context.WithoutCancel(ctx)

	for _, line := range lines {
		backoff := 50 * time.Millisecond
		for {
			err := ledger.Increment(ctx, line.ProductID, line.Size, line.Quantity)
			if err == nil {
				break
			}

			logger.Error("restock increment failed, retrying",
				"product_id", line.ProductID, "size", line.Size, "error", err)
			time.Sleep(backoff)
			if backoff < 5*time.Second {
				backoff *= 2
			}
		}
	}
}

// reservationLines flattens the cart into ledger lines in a fixed
// ascending (product, size) order, so concurrent checkouts touching
// overlapping products always decrement in the same sequence.
func reservationLines(cart domain.Cart) []domain.ReservationLine {
	lines := make([]domain.ReservationLine, 0, len(cart.Items))
	for _, item := range cart.Items {
		lines = append(lines, domain.ReservationLine{
			ProductID: item.ProductID,
			Size:      item.Size,
			Quantity:  item.Quantity,
		})
	}

	sort.Slice(lines, func(i, j int) bool {
		if lines[i].ProductID != lines[j].ProductID {
			return lines[i].ProductID.String() < lines[j].ProductID.String()
		}
		return lines[i].Size < lines[j].Size
	})

	return lines
}

func orderFromCart(cart domain.Cart, total domain.Money, paymentRef string) domain.Order {
	lines := make([]domain.OrderLine, 0, len(cart.Items))
	for _, item := range cart.Items {
		lines = append(lines, domain.OrderLine{
			ProductID: item.ProductID,
			Size:      item.Size,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	return domain.Order{
		ID:         uuid.New(),
		OwnerID:    cart.OwnerID,
		Lines:      lines,
		Total:      total,
		PaymentRef: paymentRef,
		CreatedAt:  time.Now(),
	}
}
