// Package metrics holds the prometheus collectors for the order core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use as a nil pointer; every recorder is then a no-op.
type Metrics struct {
	registry *prometheus.Registry

	ordersPlaced         prometheus.Counter
	placementFailures    *prometheus.CounterVec
	orderTotal           prometheus.Histogram
	statusTransitions    *prometheus.CounterVec
	categoriesDeactivate prometheus.Counter
	cartMutations        *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ordersPlaced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orders_placed_total",
			Help: "Orders persisted with all their line items",
		}),
		placementFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_placement_failures_total",
			Help: "Order placements that were rejected or rolled back",
		}, []string{"reason"}),
		orderTotal: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "order_total_amount",
			Help:    "Order totals including tax",
			Buckets: prometheus.LinearBuckets(0, 10, 15),
		}),
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_status_transitions_total",
			Help: "Status updates by target status",
		}, []string{"status"}),
		categoriesDeactivate: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "menu_categories_deactivated_total",
			Help: "Categories switched off after their end date passed",
		}),
		cartMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cart_mutations_total",
			Help: "Cart add, remove and clear operations",
		}, []string{"op"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ordersPlaced,
		m.placementFailures,
		m.orderTotal,
		m.statusTransitions,
		m.categoriesDeactivate,
		m.cartMutations,
	)
	return m
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) OrderPlaced(total float64) {
	if m == nil {
		return
	}
	m.ordersPlaced.Inc()
	m.orderTotal.Observe(total)
}

func (m *Metrics) PlacementFailed(reason string) {
	if m == nil {
		return
	}
	m.placementFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) StatusChanged(status string) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) CategoriesDeactivated(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.categoriesDeactivate.Add(float64(n))
}

func (m *Metrics) CartMutated(op string) {
	if m == nil {
		return
	}
	m.cartMutations.WithLabelValues(op).Inc()
}
