package metrics

import "github.com/prometheus/client_golang/prometheus"

// SlotMetrics holds Prometheus metrics for the slot collection.
type SlotMetrics struct {
	Slots        prometheus.Gauge
	RejectedAdds *prometheus.CounterVec
}

// NewSlotMetrics creates and registers slot metrics on the given registry.
func NewSlotMetrics(reg prometheus.Registerer) *SlotMetrics {
	m := &SlotMetrics{
		Slots: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "slots",
			Help:      "Number of stream slots currently arranged.",
		}),
		RejectedAdds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_adds_rejected_total",
			Help:      "Total number of rejected slot additions, by reason.",
		}, []string{"reason"}),
	}

	reg.MustRegister(m.Slots, m.RejectedAdds)
	return m
}
