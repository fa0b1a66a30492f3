package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/edusafe-mx/plantel-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer
// and the workflow engines.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	cacheLatency  prometheus.Observer
	cacheHitRatio prometheus.Gauge
	cacheHits     prometheus.Counter
	cacheMisses   prometheus.Counter

	incidentsCreated    *prometheus.CounterVec
	typeCoercions       prometheus.Counter
	incidentTransitions *prometheus.CounterVec
	reviewDecisions     *prometheus.CounterVec
	uploadsRejected     *prometheus.CounterVec

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
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
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

	incidentsCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "incidents_created_total",
		Help: "Incidents persisted, labelled by risk level",
	}, []string{"nivel_riesgo"})

	typeCoercions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "incident_type_coercions_total",
		Help: "Incident type labels coerced to otro",
	})

	incidentTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "incident_transitions_total",
		Help: "Incident lifecycle transitions, labelled by target state",
	}, []string{"estado"})

	reviewDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planning_review_decisions_total",
		Help: "Planning review decisions",
	}, []string{"decision"})

	uploadsRejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "signed_uploads_rejected_total",
		Help: "Rejected signed-document uploads, labelled by reason",
	}, []string{"reason"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheHitRatio,
		cacheHits, cacheMisses, incidentsCreated, typeCoercions, incidentTransitions,
		reviewDecisions, uploadsRejected, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:            registry,
		handler:             handler,
		requestDuration:     requestDuration,
		requestTotal:        requestTotal,
		cacheLatency:        cacheLatency,
		cacheHitRatio:       cacheHitRatio,
		cacheHits:           cacheHits,
		cacheMisses:         cacheMisses,
		incidentsCreated:    incidentsCreated,
		typeCoercions:       typeCoercions,
		incidentTransitions: incidentTransitions,
		reviewDecisions:     reviewDecisions,
		uploadsRejected:     uploadsRejected,
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
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
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

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheLatency == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
}

// RecordIncidentCreated counts a persisted incident by risk level.
func (m *MetricsService) RecordIncidentCreated(level models.RiskLevel) {
	if m == nil {
		return
	}
	m.incidentsCreated.WithLabelValues(string(level)).Inc()
}

// RecordTypeCoercion counts an incident type label coerced to otro.
func (m *MetricsService) RecordTypeCoercion() {
	if m == nil {
		return
	}
	m.typeCoercions.Inc()
}

// RecordIncidentTransition counts a lifecycle transition by target state.
func (m *MetricsService) RecordIncidentTransition(to models.IncidentStatus) {
	if m == nil {
		return
	}
	m.incidentTransitions.WithLabelValues(string(to)).Inc()
}

// RecordReviewDecision counts a planning review decision.
func (m *MetricsService) RecordReviewDecision(decision models.ReviewDecision) {
	if m == nil {
		return
	}
	m.reviewDecisions.WithLabelValues(string(decision)).Inc()
}

// RecordUploadRejected counts a rejected signed-document upload.
func (m *MetricsService) RecordUploadRejected(reason string) {
	if m == nil {
		return
	}
	m.uploadsRejected.WithLabelValues(reason).Inc()
}
