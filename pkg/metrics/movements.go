package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// LedgerMetrics records stock movements and production batch transitions.
type LedgerMetrics struct {
	movements   *prometheus.CounterVec
	transitions *prometheus.CounterVec
	shortfalls  prometheus.Counter
}

// NewLedgerMetrics registers the ledger metrics on the provided registerer.
func NewLedgerMetrics(reg prometheus.Registerer) *LedgerMetrics {
	if reg == nil {
		return &LedgerMetrics{}
	}
	movements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_movements_total",
		Help: "Ledger movements by direction and item type.",
	}, []string{"direction", "item_type"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "production_transitions_total",
		Help: "Production batch transitions by outcome.",
	}, []string{"outcome"})
	shortfalls := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "stock_shortfalls_total",
		Help: "Operations rejected for insufficient stock or materials.",
	})
	reg.MustRegister(movements, transitions, shortfalls)
	return &LedgerMetrics{
		movements:   movements,
		transitions: transitions,
		shortfalls:  shortfalls,
	}
}

// ObserveMovement counts one ledger movement.
func (m *LedgerMetrics) ObserveMovement(direction, itemType string) {
	if m == nil || m.movements == nil {
		return
	}
	m.movements.WithLabelValues(normalizeLabel(direction), normalizeLabel(itemType)).Inc()
}

// ObserveTransition counts one production batch transition.
func (m *LedgerMetrics) ObserveTransition(outcome string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// ObserveShortfall counts one availability rejection.
func (m *LedgerMetrics) ObserveShortfall() {
	if m == nil || m.shortfalls == nil {
		return
	}
	m.shortfalls.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
