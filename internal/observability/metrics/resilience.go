package metrics

import "github.com/prometheus/client_golang/prometheus"

// ResilienceMetrics counts retries and circuit breaker transitions of remote
// calls. It satisfies resilience.Observer.
type ResilienceMetrics struct {
	service      string
	retriesTotal *prometheus.CounterVec
	breakerTotal *prometheus.CounterVec
}

func newResilienceMetrics(service string) *ResilienceMetrics {
	return &ResilienceMetrics{
		service: service,
		retriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "drhp",
				Subsystem: "remote",
				Name:      "retries_total",
				Help:      "Retried remote calls by operation.",
			},
			[]string{"service", "operation"},
		),
		breakerTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "drhp",
				Subsystem: "remote",
				Name:      "breaker_transitions_total",
				Help:      "Circuit breaker state transitions by operation and target state.",
			},
			[]string{"service", "operation", "state"},
		),
	}
}

func (m *ResilienceMetrics) register(registry *prometheus.Registry) {
	registry.MustRegister(m.retriesTotal, m.breakerTotal)
}

func (m *ResilienceMetrics) RetryAttempt(operation string) {
	m.retriesTotal.WithLabelValues(m.service, operation).Inc()
}

func (m *ResilienceMetrics) BreakerStateChanged(operation, state string) {
	m.breakerTotal.WithLabelValues(m.service, operation, state).Inc()
}
