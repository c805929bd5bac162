package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pontoflow/ponto-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides
// lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	punchCommitted  prometheus.Counter
	punchRejected   *prometheus.CounterVec
	adjustResolved  *prometheus.CounterVec
	verifyChecks    *prometheus.CounterVec
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	requestCount         uint64
	requestDurationTotal uint64
	punchCommitCount     uint64
	punchRejectCount     uint64
	adjustResolvedCount  uint64
	verifyCheckCount     uint64
	cacheHitCount        uint64
	cacheMissCount       uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	punchCommitted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "punches_committed_total",
		Help: "Total punches committed to the immutable store",
	})

	punchRejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "punches_rejected_total",
		Help: "Total punches rejected by duplicate detection",
	}, []string{"duplicate_type"})

	adjustResolved := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "adjustments_resolved_total",
		Help: "Total adjustment requests resolved",
	}, []string{"status"})

	verifyChecks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "verification_checks_total",
		Help: "Total verification code checks",
	}, []string{"outcome"})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, punchCommitted, punchRejected, adjustResolved, verifyChecks, cacheHitRatio, cacheHits, cacheMisses, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		punchCommitted:  punchCommitted,
		punchRejected:   punchRejected,
		adjustResolved:  adjustResolved,
		verifyChecks:    verifyChecks,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordPunchCommitted counts a successful punch commit.
func (m *MetricsService) RecordPunchCommitted() {
	if m == nil {
		return
	}
	m.punchCommitted.Inc()
	atomic.AddUint64(&m.punchCommitCount, 1)
}

// RecordPunchRejected counts a punch rejected by duplicate detection.
func (m *MetricsService) RecordPunchRejected(duplicateType string) {
	if m == nil {
		return
	}
	m.punchRejected.WithLabelValues(duplicateType).Inc()
	atomic.AddUint64(&m.punchRejectCount, 1)
}

// RecordAdjustmentResolved counts a resolved adjustment by outcome status.
func (m *MetricsService) RecordAdjustmentResolved(status string) {
	if m == nil {
		return
	}
	m.adjustResolved.WithLabelValues(status).Inc()
	atomic.AddUint64(&m.adjustResolvedCount, 1)
}

// RecordVerification counts a verification check by outcome.
func (m *MetricsService) RecordVerification(valid bool) {
	if m == nil {
		return
	}
	outcome := "valid"
	if !valid {
		outcome = "invalid"
	}
	m.verifyChecks.WithLabelValues(outcome).Inc()
	atomic.AddUint64(&m.verifyCheckCount, 1)
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// Snapshot returns aggregated metrics suitable for the admin endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}
	var cacheRatio float64
	if total := hits + misses; total > 0 {
		cacheRatio = float64(hits) / float64(total)
	}

	return models.SystemMetrics{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		PunchesCommitted:         atomic.LoadUint64(&m.punchCommitCount),
		PunchesRejected:          atomic.LoadUint64(&m.punchRejectCount),
		AdjustmentsResolved:      atomic.LoadUint64(&m.adjustResolvedCount),
		VerificationChecks:       atomic.LoadUint64(&m.verifyCheckCount),
		CacheHitRatio:            cacheRatio,
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
