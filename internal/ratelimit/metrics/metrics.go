package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RateLimitExceeded *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		RateLimitExceeded: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "domainpark_ratelimit_exceeded_total",
			Help: "Total number of requests rejected by a rate limit",
		}, []string{"endpoint_class", "scope"}),
	}
}

func (m *Metrics) IncrementExceeded(class, scope string) {
	if m == nil {
		return
	}
	m.RateLimitExceeded.WithLabelValues(class, scope).Inc()
}
