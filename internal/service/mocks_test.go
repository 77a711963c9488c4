package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kartshop/storefront/internal/domain"
	"github.com/kartshop/storefront/internal/metrics"
	"github.com/kartshop/storefront/internal/port"
	"github.com/prometheus/client_golang/prometheus"
)

func newTestMetrics() *metrics.CheckoutMetrics {
	return metrics.NewCheckoutMetrics(prometheus.NewRegistry())
}

func stockKey(productID uuid.UUID, size string) string {
	return productID.String() + "/" + size
}

// fakeLedger implements port.StockLedger in memory with the same
// conditional-decrement contract as the real one.
type fakeLedger struct {
	mu             sync.Mutex
	available      map[string]int32
	decrements     []domain.ReservationLine
	increments     []domain.ReservationLine
	failIncrements int   // fail this many Increment calls before succeeding
	getErr         error // injected into GetAvailable
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{available: make(map[string]int32)}
}

func (l *fakeLedger) GetAvailable(_ context.Context, productID uuid.UUID, size string) (int32, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.getErr != nil {
		return 0, l.getErr
	}
	return l.available[stockKey(productID, size)], nil
}

func (l *fakeLedger) TryDecrement(_ context.Context, productID uuid.UUID, size string, quantity int32) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := stockKey(productID, size)
	if l.available[key] < quantity {
		return &domain.InsufficientStockError{Shortfalls: []domain.StockShortfall{{
			ProductID: productID,
			Size:      size,
			Requested: quantity,
			Available: l.available[key],
		}}}
	}

	l.available[key] -= quantity
	l.decrements = append(l.decrements, domain.ReservationLine{ProductID: productID, Size: size, Quantity: quantity})
	return nil
}

func (l *fakeLedger) Increment(_ context.Context, productID uuid.UUID, size string, quantity int32) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.failIncrements > 0 {
		l.failIncrements--
		return errStorage
	}

	l.available[stockKey(productID, size)] += quantity
	l.increments = append(l.increments, domain.ReservationLine{ProductID: productID, Size: size, Quantity: quantity})
	return nil
}

func (l *fakeLedger) SetAvailable(_ context.Context, productID uuid.UUID, size string, quantity int32) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.available[stockKey(productID, size)] = quantity
	return nil
}

func (l *fakeLedger) availableFor(productID uuid.UUID, size string) int32 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.available[stockKey(productID, size)]
}

func (l *fakeLedger) incrementCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.increments)
}

// fakeCartRepo implements port.CartRepository with the store's key-merge
// rule: colliding keys sum quantities and keep the existing price snapshot.
type fakeCartRepo struct {
	mu     sync.Mutex
	carts  map[string][]domain.CartItem
	getErr error
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{carts: make(map[string][]domain.CartItem)}
}

func (r *fakeCartRepo) GetCart(_ context.Context, ownerID string) (domain.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.getErr != nil {
		return domain.Cart{}, r.getErr
	}

	items := make([]domain.CartItem, len(r.carts[ownerID]))
	copy(items, r.carts[ownerID])
	return domain.Cart{OwnerID: ownerID, Items: items}, nil
}

func (r *fakeCartRepo) AddItem(_ context.Context, ownerID string, item domain.CartItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := r.carts[ownerID]
	for i, existing := range items {
		if existing.ProductID == item.ProductID && existing.Size == item.Size {
			existing.Quantity += item.Quantity
			if existing.Quantity <= 0 {
				r.carts[ownerID] = append(items[:i], items[i+1:]...)
				return nil
			}
			items[i] = existing
			return nil
		}
	}

	item.CreatedAt = time.Now()
	r.carts[ownerID] = append(items, item)
	return nil
}

func (r *fakeCartRepo) RemoveItem(_ context.Context, ownerID string, productID uuid.UUID, size string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items := r.carts[ownerID]
	for i, existing := range items {
		if existing.ProductID == productID && existing.Size == size {
			r.carts[ownerID] = append(items[:i], items[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeCartRepo) SetQuantity(ctx context.Context, ownerID string, productID uuid.UUID, size string, quantity int32) error {
	if quantity <= 0 {
		_, err := r.RemoveItem(ctx, ownerID, productID, size)
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	items := r.carts[ownerID]
	for i, existing := range items {
		if existing.ProductID == productID && existing.Size == size {
			items[i].Quantity = quantity
			return nil
		}
	}
	return nil
}

func (r *fakeCartRepo) Clear(_ context.Context, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, ownerID)
	return nil
}

// fakeReservations implements port.ReservationStore with the same
// conditional-transition contract as the Postgres store.
type fakeReservations struct {
	mu        sync.Mutex
	byID      map[uuid.UUID]domain.Reservation
	orders    []domain.Order
	createErr error
}

func newFakeReservations() *fakeReservations {
	return &fakeReservations{byID: make(map[uuid.UUID]domain.Reservation)}
}

func (s *fakeReservations) Create(_ context.Context, reservation domain.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.createErr != nil {
		return s.createErr
	}
	s.byID[reservation.ID] = reservation
	return nil
}

func (s *fakeReservations) Get(_ context.Context, id uuid.UUID) (domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reservation, ok := s.byID[id]
	if !ok {
		return domain.Reservation{}, domain.ErrReservationNotFound
	}
	return reservation, nil
}

func (s *fakeReservations) MarkPaymentPending(_ context.Context, id uuid.UUID, paymentRef string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reservation, ok := s.byID[id]
	if !ok || reservation.State != domain.ReservationHeld {
		return false, nil
	}

	reservation.State = domain.ReservationPaymentPending
	reservation.PaymentRef = paymentRef
	s.byID[id] = reservation
	return true, nil
}

func (s *fakeReservations) Commit(_ context.Context, id uuid.UUID, order domain.Order) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reservation, ok := s.byID[id]
	if !ok || reservation.State != domain.ReservationPaymentPending {
		return false, nil
	}

	reservation.State = domain.ReservationCommitted
	s.byID[id] = reservation
	s.orders = append(s.orders, order)
	return true, nil
}

func (s *fakeReservations) Release(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reservation, ok := s.byID[id]
	if !ok {
		return false, nil
	}
	if reservation.State != domain.ReservationHeld && reservation.State != domain.ReservationPaymentPending {
		return false, nil
	}

	reservation.State = domain.ReservationReleased
	s.byID[id] = reservation
	return true, nil
}

func (s *fakeReservations) ListExpired(_ context.Context, now time.Time, limit int) ([]domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []domain.Reservation
	for _, reservation := range s.byID {
		holding := reservation.State == domain.ReservationHeld ||
			reservation.State == domain.ReservationPaymentPending
		if holding && reservation.IsExpired(now) && len(expired) < limit {
			expired = append(expired, reservation)
		}
	}
	return expired, nil
}

func (s *fakeReservations) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

func (s *fakeReservations) single() domain.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, reservation := range s.byID {
		return reservation
	}
	return domain.Reservation{}
}

// fakePayments scripts the black-box gateway's verdict.
type fakePayments struct {
	result port.PaymentResult
	err    error

	gotAmount    domain.Money
	gotReference string
}

func (p *fakePayments) Initiate(_ context.Context, amount domain.Money, reference string) (port.PaymentResult, error) {
	p.gotAmount = amount
	p.gotReference = reference
	return p.result, p.err
}

// fakeCredentials scripts the black-box credential service.
type fakeCredentials struct {
	identity domain.Identity
	authErr  error
	token    string
	tokenErr error
}

func (c *fakeCredentials) Authenticate(_ context.Context, _ domain.Credentials) (domain.Identity, error) {
	if c.authErr != nil {
		return domain.Identity{}, c.authErr
	}
	return c.identity, nil
}

func (c *fakeCredentials) IssueToken(_ context.Context, _ domain.Identity) (string, error) {
	if c.tokenErr != nil {
		return "", c.tokenErr
	}
	return c.token, nil
}

func (c *fakeCredentials) VerifyToken(_ context.Context, _ string) (domain.Identity, error) {
	if c.authErr != nil {
		return domain.Identity{}, domain.ErrInvalidToken
	}
	return c.identity, nil
}
