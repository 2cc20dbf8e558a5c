package metrics

import "github.com/prometheus/client_golang/prometheus"

// AuthMetrics holds Prometheus metrics for credential handling.
type AuthMetrics struct {
	TokenOperations *prometheus.CounterVec
	SignedIn        prometheus.Gauge
}

// NewAuthMetrics creates and registers auth metrics on the given registry.
func NewAuthMetrics(reg prometheus.Registerer) *AuthMetrics {
	m := &AuthMetrics{
		TokenOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "token_operations_total",
			Help:      "Total number of credential operations, by kind and result.",
		}, []string{"kind", "result"}),
		SignedIn: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "signed_in",
			Help:      "1 when a user session is active.",
		}),
	}

	reg.MustRegister(m.TokenOperations, m.SignedIn)
	return m
}
