package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks registrar and marketplace calls. All methods are nil-safe so
// gateways constructed without metrics (tests, CLI) skip recording.
type Metrics struct {
	Calls            *prometheus.CounterVec
	Retries          *prometheus.CounterVec
	CallDuration     *prometheus.HistogramVec
	SourceSelections *prometheus.CounterVec
	PriceStrategy    *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Calls: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "domainpark_gateway_calls_total",
			Help: "Gateway calls by gateway, operation and outcome",
		}, []string{"gateway", "operation", "outcome"}),
		Retries: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "domainpark_gateway_retries_total",
			Help: "Retried gateway attempts",
		}, []string{"gateway", "operation"}),
		CallDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "domainpark_gateway_call_duration_seconds",
			Help:    "Duration of gateway calls including retries",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"gateway", "operation"}),
		SourceSelections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "domainpark_marketplace_source_selections_total",
			Help: "Owned-listing source tier chosen and why",
		}, []string{"tier", "reason"}),
		PriceStrategy: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "domainpark_registrar_price_strategy_total",
			Help: "Which price extractor produced the quoted price",
		}, []string{"strategy"}),
	}
}

// ObserveCall records one logical call. Call with time.Now() at the start.
func (m *Metrics) ObserveCall(gateway, op, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.Calls.WithLabelValues(gateway, op, outcome).Inc()
	m.CallDuration.WithLabelValues(gateway, op).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncRetry(gateway, op string) {
	if m == nil {
		return
	}
	m.Retries.WithLabelValues(gateway, op).Inc()
}

func (m *Metrics) IncSourceSelection(tier, reason string) {
	if m == nil {
		return
	}
	m.SourceSelections.WithLabelValues(tier, reason).Inc()
}

func (m *Metrics) IncPriceStrategy(strategy string) {
	if m == nil {
		return
	}
	m.PriceStrategy.WithLabelValues(strategy).Inc()
}
