package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recompute outcomes recorded by ObserveRecompute.
const (
	OutcomeCurrent   = "current"
	OutcomeFailed    = "failed"
	OutcomeCollapsed = "collapsed"
)

// MetricsSnapshot is a lightweight JSON view over the collectors.
type MetricsSnapshot struct {
	CacheHitRatio         float64   `json:"cache_hit_ratio"`
	RequestsTotal         uint64    `json:"requests_total"`
	RecomputesTotal       uint64    `json:"recomputes_total"`
	RecomputeFailures     uint64    `json:"recompute_failures"`
	DegradedCategories    uint64    `json:"degraded_categories"`
	AverageRecomputeMs    float64   `json:"average_recompute_ms"`
	CascadeStudentsQueued uint64    `json:"cascade_students_queued"`
	Goroutines            int       `json:"goroutines"`
	GeneratedAt           time.Time `json:"generated_at"`
}

// MetricsService encapsulates Prometheus instrumentation for HTTP, cache and scoring activity.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	cacheLatency      prometheus.Observer
	cacheWrite        prometheus.Observer
	cacheHitRatio     prometheus.Gauge
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	recomputeDuration *prometheus.HistogramVec
	degraded          *prometheus.CounterVec
	cascadeFanout     *prometheus.HistogramVec
	submissions       *prometheus.CounterVec

	cacheHitCount      uint64
	cacheMissCount     uint64
	requestCount       uint64
	recomputeCount     uint64
	recomputeFailures  uint64
	recomputeNanos     uint64
	degradedCount      uint64
	cascadeQueuedCount uint64
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

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

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

	recomputeDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "score_recompute_duration_seconds",
		Help:    "Duration of score profile recomputations",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	degraded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "score_category_degraded_total",
		Help: "Category sub-scores computed as zero because their facts could not be read",
	}, []string{"category"})

	cascadeFanout := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "score_cascade_students",
		Help:    "Students enqueued per cascade",
		Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000},
	}, []string{"trigger"})

	submissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "submissions_total",
		Help: "Submission attempts by result",
	}, []string{"result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		recomputeDuration, degraded, cascadeFanout, submissions, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:          registry,
		handler:           handler,
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheWrite:        cacheWrite,
		cacheHitRatio:     cacheHitRatio,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		recomputeDuration: recomputeDuration,
		degraded:          degraded,
		cascadeFanout:     cascadeFanout,
		submissions:       submissions,
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveRecompute records one recomputation pass.
func (m *MetricsService) ObserveRecompute(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.recomputeDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	atomic.AddUint64(&m.recomputeCount, 1)
	atomic.AddUint64(&m.recomputeNanos, uint64(duration.Nanoseconds()))
	if outcome == OutcomeFailed {
		atomic.AddUint64(&m.recomputeFailures, 1)
	}
}

// RecordDegraded counts a category that fell back to zero.
func (m *MetricsService) RecordDegraded(category string) {
	if m == nil {
		return
	}
	m.degraded.WithLabelValues(category).Inc()
	atomic.AddUint64(&m.degradedCount, 1)
}

// ObserveCascade records how many students a trigger fanned out to.
func (m *MetricsService) ObserveCascade(trigger string, students int) {
	if m == nil {
		return
	}
	m.cascadeFanout.WithLabelValues(trigger).Observe(float64(students))
	atomic.AddUint64(&m.cascadeQueuedCount, uint64(students))
}

// RecordSubmission counts submission outcomes (accepted, duplicate, rejected).
func (m *MetricsService) RecordSubmission(result string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(result).Inc()
}

// Snapshot returns aggregated counters for the admin metrics endpoint.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	recomputes := atomic.LoadUint64(&m.recomputeCount)
	nanos := atomic.LoadUint64(&m.recomputeNanos)

	var ratio float64
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	var avgMs float64
	if recomputes > 0 {
		avgMs = float64(nanos) / float64(recomputes) / float64(time.Millisecond)
	}

	return MetricsSnapshot{
		CacheHitRatio:         ratio,
		RequestsTotal:         atomic.LoadUint64(&m.requestCount),
		RecomputesTotal:       recomputes,
		RecomputeFailures:     atomic.LoadUint64(&m.recomputeFailures),
		DegradedCategories:    atomic.LoadUint64(&m.degradedCount),
		AverageRecomputeMs:    avgMs,
		CascadeStudentsQueued: atomic.LoadUint64(&m.cascadeQueuedCount),
		Goroutines:            runtime.NumGoroutine(),
		GeneratedAt:           time.Now().UTC(),
	}
}
