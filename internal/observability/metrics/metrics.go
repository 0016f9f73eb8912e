package metrics

import "github.com/prometheus/client_golang/prometheus"

// ProviderMetrics exposes counters/histograms for outbound provider calls.
type ProviderMetrics struct {
	requestsTotal  *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	tokenRefreshes *prometheus.CounterVec
}

func NewProviderMetrics(reg prometheus.Registerer) *ProviderMetrics {
	m := &ProviderMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "teesheet",
			Subsystem: "provider",
			Name:      "requests_total",
			Help:      "Total outbound provider API requests",
		}, []string{"provider", "operation", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "teesheet",
			Subsystem: "provider",
			Name:      "request_latency_seconds",
			Help:      "Latency of provider API requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "operation"}),
		tokenRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "teesheet",
			Subsystem: "provider",
			Name:      "token_refresh_total",
			Help:      "Total provider token fetches",
		}, []string{"provider", "reason"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.requestLatency, m.tokenRefreshes)
	return m
}

func (m *ProviderMetrics) ObserveRequest(provider, operation, status string, seconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(provider, operation, status).Inc()
	m.requestLatency.WithLabelValues(provider, operation).Observe(seconds)
}

func (m *ProviderMetrics) ObserveTokenRefresh(provider, reason string) {
	if m == nil {
		return
	}
	m.tokenRefreshes.WithLabelValues(provider, reason).Inc()
}

// IndexerMetrics exposes counters for reconciliation cycles.
type IndexerMetrics struct {
	cyclesTotal   *prometheus.CounterVec
	rowsInserted  *prometheus.CounterVec
	rowsUpdated   *prometheus.CounterVec
	rowsZeroed    *prometheus.CounterVec
	cycleDuration *prometheus.HistogramVec
}

func NewIndexerMetrics(reg prometheus.Registerer) *IndexerMetrics {
	m := &IndexerMetrics{
		cyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "teesheet",
			Subsystem: "indexer",
			Name:      "cycles_total",
			Help:      "Total reconciliation cycles per provider",
		}, []string{"provider", "status"}),
		rowsInserted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "teesheet",
			Subsystem: "indexer",
			Name:      "rows_inserted_total",
			Help:      "Tee-time rows inserted by reconciliation",
		}, []string{"provider"}),
		rowsUpdated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "teesheet",
			Subsystem: "indexer",
			Name:      "rows_updated_total",
			Help:      "Tee-time rows updated by reconciliation",
		}, []string{"provider"}),
		rowsZeroed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "teesheet",
			Subsystem: "indexer",
			Name:      "rows_zeroed_total",
			Help:      "Tee-time rows whose first-hand spots were zeroed",
		}, []string{"provider"}),
		cycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "teesheet",
			Subsystem: "indexer",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of one course/day reconciliation cycle",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.cyclesTotal, m.rowsInserted, m.rowsUpdated, m.rowsZeroed, m.cycleDuration)
	return m
}

func (m *IndexerMetrics) ObserveCycle(provider, status string, seconds float64) {
	if m == nil {
		return
	}
	m.cyclesTotal.WithLabelValues(provider, status).Inc()
	m.cycleDuration.WithLabelValues(provider).Observe(seconds)
}

func (m *IndexerMetrics) ObserveWrites(provider string, inserted, updated, zeroed int) {
	if m == nil {
		return
	}
	m.rowsInserted.WithLabelValues(provider).Add(float64(inserted))
	m.rowsUpdated.WithLabelValues(provider).Add(float64(updated))
	m.rowsZeroed.WithLabelValues(provider).Add(float64(zeroed))
}
