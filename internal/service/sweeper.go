package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kartshop/storefront/internal/metrics"
	"github.com/kartshop/storefront/internal/port"
)

const (
	// DefaultSweepInterval is how often the expiry sweep runs.
	DefaultSweepInterval = 30 * time.Second

	// sweepBatchSize caps how many stale reservations one pass handles.
	sweepBatchSize = 100
)

// Sweeper releases reservations whose expiry bound has passed, so stock is
// never permanently locked by an abandoned checkout. A PAYMENT_PENDING
// reservation is released only here, never before its expiry: the payment
// outcome may still be in flight.
type Sweeper struct {
	reservations port.ReservationStore
	ledger       port.StockLedger
	interval     time.Duration
	logger       *slog.Logger
	metrics      *metrics.CheckoutMetrics

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewSweeper starts the background sweep loop. Call Close to stop it.
func NewSweeper(
	reservations port.ReservationStore,
	ledger port.StockLedger,
	interval time.Duration,
	logger *slog.Logger,
	m *metrics.CheckoutMetrics,
) (*Sweeper, error) {
	if reservations == nil || ledger == nil {
		return nil, fmt.Errorf("sweeper dependencies must not be nil")
	}
	if m == nil {
		return nil, fmt.Errorf("metrics must not be nil")
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Sweeper{
		reservations: reservations,
		ledger:       ledger,
		interval:     interval,
		logger:       logger,
		metrics:      m,
		stop:         make(chan struct{}),
	}

	s.wg.Add(1)
	go s.loop()

	return s, nil
}

func (s *Sweeper) loop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.SweepOnce(context.Background()); err != nil {
				s.logger.Error("reservation sweep failed", "error", err)
			}
		case <-s.stop:
			return
		}
	}
}

// SweepOnce releases every reservation past its expiry bound. The release
// transition is conditional, so a sweep racing a commit, cancel or another
// sweep restocks each reservation at most once.
func (s *Sweeper) SweepOnce(ctx context.Context) error {
	expired, err := s.reservations.ListExpired(ctx, time.Now(), sweepBatchSize)
	if err != nil {
		return fmt.Errorf("reservations.ListExpired: %w", err)
	}

	for _, reservation := range expired {
		released, err := s.reservations.Release(ctx, reservation.ID)
		if err != nil {
			return fmt.Errorf("reservations.Release: %w", err)
		}
		if !released {
			continue
		}

		restockLines(ctx, s.ledger, s.logger, reservation.Lines)
		s.metrics.ReservationsReleased.Inc()
		s.logger.Info("expired reservation released",
			"reservation_id", reservation.ID, "owner_id", reservation.OwnerID)
	}

	return nil
}

// Close stops the sweep loop and waits for it to finish.
func (s *Sweeper) Close() error {
	close(s.stop)
	s.wg.Wait()
	return nil
}
