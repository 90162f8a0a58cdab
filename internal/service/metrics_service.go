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

// MetricsService encapsulates Prometheus instrumentation. Domain counters
// are aggregate only; no label ever carries a group, invite, or broadcast
// identifier.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	broadcastsSubmitted prometheus.Counter
	submissionsRejected *prometheus.CounterVec
	invitesCreated      prometheus.Counter
	invitesDecrypted    prometheus.Counter
	invitesDeleted      *prometheus.CounterVec
	invitesSwept        *prometheus.CounterVec

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

	broadcastsSubmitted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "broadcasts_submitted_total",
		Help: "Total broadcasts accepted and stored",
	})

	submissionsRejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "submissions_rejected_total",
		Help: "Total broadcast submissions rejected by anti-abuse gates",
	}, []string{"reason"})

	invitesCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "invites_created_total",
		Help: "Total invites created by broadcast fan-out",
	})

	invitesDecrypted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "invites_decrypted_total",
		Help: "Total invites marked decrypted for the first time",
	})

	invitesDeleted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "invites_deleted_total",
		Help: "Total invites deleted, by deletion type",
	}, []string{"type"})

	invitesSwept := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "invites_swept_total",
		Help: "Total invites removed by the retention sweep, by reason",
	}, []string{"reason"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheHitRatio, cacheHits, cacheMisses,
		broadcastsSubmitted, submissionsRejected, invitesCreated, invitesDecrypted, invitesDeleted, invitesSwept, goroutines)

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
		broadcastsSubmitted: broadcastsSubmitted,
		submissionsRejected: submissionsRejected,
		invitesCreated:      invitesCreated,
		invitesDecrypted:    invitesDecrypted,
		invitesDeleted:      invitesDeleted,
		invitesSwept:        invitesSwept,
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

// ObserveBroadcastSubmitted counts one accepted broadcast and its fan-out.
func (m *MetricsService) ObserveBroadcastSubmitted(inviteCount int) {
	if m == nil {
		return
	}
	m.broadcastsSubmitted.Inc()
	m.invitesCreated.Add(float64(inviteCount))
}

// ObserveSubmissionRejected counts one gate rejection.
func (m *MetricsService) ObserveSubmissionRejected(reason string) {
	if m == nil {
		return
	}
	m.submissionsRejected.WithLabelValues(reason).Inc()
}

// ObserveInviteDecrypted counts one first-time decryption acknowledgement.
func (m *MetricsService) ObserveInviteDecrypted() {
	if m == nil {
		return
	}
	m.invitesDecrypted.Inc()
}

// ObserveInviteDeleted counts one explicit invite deletion.
func (m *MetricsService) ObserveInviteDeleted(deletionType string) {
	if m == nil {
		return
	}
	m.invitesDeleted.WithLabelValues(deletionType).Inc()
}

// ObserveInvitesSwept counts invites removed by a sweep batch.
func (m *MetricsService) ObserveInvitesSwept(reason string, count int) {
	if m == nil {
		return
	}
	m.invitesSwept.WithLabelValues(reason).Add(float64(count))
}
