package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// FulfillmentMetrics records the outcomes of stock and order operations.
type FulfillmentMetrics struct {
	reservations    *prometheus.CounterVec
	syncFailures    prometheus.Counter
	ordersCompleted prometheus.Counter
}

// NewFulfillmentMetrics registers the fulfillment metrics on the provided registerer.
func NewFulfillmentMetrics(reg prometheus.Registerer) *FulfillmentMetrics {
	if reg == nil {
		return &FulfillmentMetrics{}
	}
	reservations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_reservations_total",
		Help: "Stock reservation attempts by outcome.",
	}, []string{"outcome"})
	syncFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_sync_failures_total",
		Help: "Order snapshot writes that failed against the persistence store.",
	})
	ordersCompleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_completed_total",
		Help: "Orders moved into the completed archive.",
	})
	reg.MustRegister(reservations, syncFailures, ordersCompleted)
	return &FulfillmentMetrics{
		reservations:    reservations,
		syncFailures:    syncFailures,
		ordersCompleted: ordersCompleted,
	}
}

// ObserveReservation counts a reservation attempt with the given outcome.
func (f *FulfillmentMetrics) ObserveReservation(outcome string) {
	if f == nil || f.reservations == nil {
		return
	}
	f.reservations.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncSyncFailure increments the failed-sync counter.
func (f *FulfillmentMetrics) IncSyncFailure() {
	if f == nil || f.syncFailures == nil {
		return
	}
	f.syncFailures.Inc()
}

// IncOrderCompleted increments the completed-orders counter.
func (f *FulfillmentMetrics) IncOrderCompleted() {
	if f == nil || f.ordersCompleted == nil {
		return
	}
	f.ordersCompleted.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
