package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics counts checkout outcomes and reservation releases.
type CheckoutMetrics struct {
	Attempts             *prometheus.CounterVec
	StockRejections      prometheus.Counter
	ReservationsReleased prometheus.Counter
}

func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	attempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "checkout",
		Name:      "attempts_total",
		Help:      "Total number of checkout attempts by outcome.",
	}, []string{"outcome"})
	rejections := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "checkout",
		Name:      "stock_rejections_total",
		Help:      "Checkout attempts rejected for insufficient stock.",
	})
	released := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "checkout",
		Name:      "reservations_released_total",
		Help:      "Reservations released back to the stock ledger.",
	})

	reg.MustRegister(attempts, rejections, released)
	return &CheckoutMetrics{
		Attempts:             attempts,
		StockRejections:      rejections,
		ReservationsReleased: released,
	}
}
