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

// Admission outcome labels.
const (
	OutcomeAdmitted      = "admitted"
	OutcomeSlotNotFound  = "slot_not_found"
	OutcomeSlotBlocked   = "slot_blocked"
	OutcomeSlotFull      = "slot_full"
	OutcomeDuplicateDay  = "duplicate_day"
	OutcomeDuplicateSlot = "duplicate_slot"
	OutcomeError         = "error"
)

// MetricsService encapsulates Prometheus instrumentation.
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
	admissionDuration prometheus.Observer
	admissions        *prometheus.CounterVec
	cancellations     prometheus.Counter
	slotToggles       prometheus.Counter

	cacheHitCount  uint64
	cacheMissCount uint64
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
		Name:    "calendar_cache_latency_seconds",
		Help:    "Latency for calendar cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "calendar_cache_write_seconds",
		Help:    "Latency for calendar cache writes",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "calendar_cache_hit_ratio",
		Help: "Ratio of calendar cache hits to total lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "calendar_cache_hits_total",
		Help: "Total calendar cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "calendar_cache_misses_total",
		Help: "Total calendar cache misses",
	})

	admissionDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "booking_admission_duration_seconds",
		Help:    "Duration of the booking admission transaction",
		Buckets: prometheus.DefBuckets,
	})

	admissions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_admissions_total",
		Help: "Booking attempts by outcome",
	}, []string{"outcome"})

	cancellations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "booking_cancellations_total",
		Help: "Active bookings cancelled",
	})

	slotToggles := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "slot_block_changes_total",
		Help: "Admin changes to slot blocked flags",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		admissionDuration, admissions, cancellations, slotToggles, goroutines)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheWrite:        cacheWrite,
		cacheHitRatio:     cacheHitRatio,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		admissionDuration: admissionDuration,
		admissions:        admissions,
		cancellations:     cancellations,
		slotToggles:       slotToggles,
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

// Registry returns the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
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

// ObserveAdmission counts one booking attempt by outcome.
func (m *MetricsService) ObserveAdmission(outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.admissions.WithLabelValues(outcome).Inc()
	m.admissionDuration.Observe(duration.Seconds())
}

// IncCancellation counts a cancelled booking.
func (m *MetricsService) IncCancellation() {
	if m == nil {
		return
	}
	m.cancellations.Inc()
}

// IncSlotToggle counts a change to a slot's blocked flag.
func (m *MetricsService) IncSlotToggle() {
	if m == nil {
		return
	}
	m.slotToggles.Inc()
}
