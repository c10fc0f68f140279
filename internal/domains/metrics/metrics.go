package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts lifecycle transitions. Methods are nil-safe.
type Metrics struct {
	Quotes          *prometheus.CounterVec
	Transitions     *prometheus.CounterVec
	Rejections      *prometheus.CounterVec
	Sweeps          prometheus.Counter
	SweepReconciled prometheus.Counter
	Listings        *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Quotes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "domainpark_domain_quotes_total",
			Help: "Quotes served by outcome (available, unavailable, owned)",
		}, []string{"outcome"}),
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "domainpark_domain_transitions_total",
			Help: "Lifecycle transitions by target state",
		}, []string{"state"}),
		Rejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "domainpark_domain_register_rejections_total",
			Help: "Registrations refused before any write, by reason",
		}, []string{"reason"}),
		Sweeps: promauto.NewCounter(prometheus.CounterOpts{
			Name: "domainpark_reconcile_sweeps_total",
			Help: "Reconciliation sweeps run",
		}),
		SweepReconciled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "domainpark_reconcile_records_updated_total",
			Help: "Records marked listed by the reconciliation sweep",
		}),
		Listings: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "domainpark_domain_listings_total",
			Help: "Marketplace listing attempts by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) IncQuote(outcome string) {
	if m == nil {
		return
	}
	m.Quotes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncTransition(state string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(state).Inc()
}

func (m *Metrics) IncRejection(reason string) {
	if m == nil {
		return
	}
	m.Rejections.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncListing(outcome string) {
	if m == nil {
		return
	}
	m.Listings.WithLabelValues(outcome).Inc()
}

// ObserveSweep records one pass and how many records it updated.
func (m *Metrics) ObserveSweep(updated int) {
	if m == nil {
		return
	}
	m.Sweeps.Inc()
	m.SweepReconciled.Add(float64(updated))
}
