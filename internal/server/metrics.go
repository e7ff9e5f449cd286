package server

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Store operation metrics
	storeOperationsTotal   *prometheus.CounterVec
	storeOperationDuration *prometheus.HistogramVec

	// Cache metrics
	cacheHitsTotal      prometheus.Counter
	cacheMissesTotal    prometheus.Counter
	cacheEvictionsTotal prometheus.Counter
	cacheEntries        prometheus.Gauge

	// Registration guard
	metricsOnce       sync.Once
	metricsRegistered bool
)

// Metrics records request, store, and cache activity. It satisfies
// facade.Metrics so the façade can report through it.
type Metrics struct{}

// NewMetrics creates a Metrics recorder. Call InitMetrics once at startup
// to register the underlying collectors.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// InitMetrics registers all Prometheus collectors. Safe to call more than
// once; only the first call registers.
func InitMetrics() {
	metricsOnce.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultdoor_http_requests_total",
				Help: "Total number of HTTP requests handled",
			},
			[]string{"method", "path", "status"},
		)

		httpRequestDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vaultdoor_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
			[]string{"method", "path"},
		)

		storeOperationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultdoor_store_operations_total",
				Help: "Total number of backend store operations",
			},
			[]string{"store", "op", "status"},
		)

		storeOperationDuration = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vaultdoor_store_operation_duration_seconds",
				Help:    "Duration of backend store operations in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
			},
			[]string{"store", "op"},
		)

		cacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "vaultdoor_cache_hits_total",
			Help: "Total number of reads served from the cache",
		})

		cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "vaultdoor_cache_misses_total",
			Help: "Total number of reads that went to the backend",
		})

		cacheEvictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
			Name: "vaultdoor_cache_evictions_total",
			Help: "Total number of cache entries evicted at capacity",
		})

		cacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
			Name: "vaultdoor_cache_entries",
			Help: "Current number of cached secrets",
		})

		metricsRegistered = true
	})
}

// RecordHTTPRequest records one handled request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, durationSeconds float64) {
	if !metricsRegistered {
		return
	}

	if httpRequestsTotal != nil {
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	}

	if httpRequestDuration != nil {
		httpRequestDuration.WithLabelValues(method, path).Observe(durationSeconds)
	}
}

// StoreOperation records one backend call with its outcome.
func (m *Metrics) StoreOperation(store, op, status string, durationSeconds float64) {
	if !metricsRegistered {
		return
	}

	if storeOperationsTotal != nil {
		storeOperationsTotal.WithLabelValues(store, op, status).Inc()
	}

	if storeOperationDuration != nil {
		storeOperationDuration.WithLabelValues(store, op).Observe(durationSeconds)
	}
}

// CacheHit counts a read served from cache.
func (m *Metrics) CacheHit() {
	if !metricsRegistered || cacheHitsTotal == nil {
		return
	}
	cacheHitsTotal.Inc()
}

// CacheMiss counts a read that fell through to the backend.
func (m *Metrics) CacheMiss() {
	if !metricsRegistered || cacheMissesTotal == nil {
		return
	}
	cacheMissesTotal.Inc()
}

// CacheEviction counts an entry dropped at capacity.
func (m *Metrics) CacheEviction() {
	if !metricsRegistered || cacheEvictionsTotal == nil {
		return
	}
	cacheEvictionsTotal.Inc()
}

// CacheEntries sets the current cache size.
func (m *Metrics) CacheEntries(count int) {
	if !metricsRegistered || cacheEntries == nil {
		return
	}
	cacheEntries.Set(float64(count))
}
