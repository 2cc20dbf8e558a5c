package metrics

import "github.com/prometheus/client_golang/prometheus"

// SearchMetrics holds Prometheus metrics for debounced channel search.
type SearchMetrics struct {
	Queries        *prometheus.CounterVec
	QueryDuration  prometheus.Histogram
	DebounceResets prometheus.Counter
	StaleResponses prometheus.Counter
	PendingTimers  prometheus.Gauge
}

// NewSearchMetrics creates and registers search metrics on the given registry.
func NewSearchMetrics(reg prometheus.Registerer) *SearchMetrics {
	m := &SearchMetrics{
		Queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "queries_total",
			Help:      "Total number of channel search queries, by result.",
		}, []string{"result"}),
		QueryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "query_duration_seconds",
			Help:      "Duration of channel search requests in seconds.",
			Buckets:   []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}),
		DebounceResets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "debounce_resets_total",
			Help:      "Total number of pending searches cancelled by a newer edit.",
		}),
		StaleResponses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "stale_responses_total",
			Help:      "Total number of search results discarded because the slot changed.",
		}),
		PendingTimers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "pending_timers",
			Help:      "Number of slots with a search waiting for input to settle.",
		}),
	}

	reg.MustRegister(m.Queries, m.QueryDuration, m.DebounceResets, m.StaleResponses, m.PendingTimers)
	return m
}
