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

// Ingestion outcome labels.
const (
	IngestOutcomeCreated   = "created"
	IngestOutcomeDuplicate = "duplicate"
	IngestOutcomeTape      = "duplicate_tape"
	IngestOutcomeRejected  = "rejected"
	IngestOutcomeFailed    = "failed"
)

// MetricsSnapshot is a small JSON summary of the process counters.
type MetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	MediaIngested            uint64    `json:"media_ingested"`
	DuplicatesRejected       uint64    `json:"duplicates_rejected"`
	BytesStreamed            uint64    `json:"bytes_streamed"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	ingestTotal     *prometheus.CounterVec
	ingestBytes     *prometheus.CounterVec
	streamBytes     *prometheus.CounterVec
	streamOpen      prometheus.Gauge
	probeTotal      *prometheus.CounterVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	ingestedCount        uint64
	duplicateCount       uint64
	streamedBytes        uint64
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_latency_seconds",
			Help:    "Latency for cache operations",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cache_hit_ratio",
			Help: "Ratio of cache hits to total cache lookups",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total cache misses",
		}),
		ingestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "media_ingest_total",
			Help: "Ingestion attempts by source and outcome",
		}, []string{"source", "outcome"}),
		ingestBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "media_ingest_bytes_total",
			Help: "Bytes accepted by uploads",
		}, []string{"source"}),
		streamBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "media_stream_bytes_total",
			Help: "Bytes sent to clients by response kind",
		}, []string{"kind"}),
		streamOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "media_streams_open",
			Help: "Streams currently being served",
		}),
		probeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "media_probe_total",
			Help: "Post-ingest probe results",
		}, []string{"result"}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(m.requestDuration, m.requestTotal, m.cacheLatency.(prometheus.Histogram), m.cacheHitRatio,
		m.cacheHits, m.cacheMisses, m.ingestTotal, m.ingestBytes, m.streamBytes, m.streamOpen, m.probeTotal, goroutines)

	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
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
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
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
	total := hits + atomic.LoadUint64(&m.cacheMissCount)
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// RecordIngest counts one ingestion attempt.
func (m *MetricsService) RecordIngest(source, outcome string, bytes int64) {
	if m == nil {
		return
	}
	m.ingestTotal.WithLabelValues(source, outcome).Inc()
	switch outcome {
	case IngestOutcomeCreated:
		atomic.AddUint64(&m.ingestedCount, 1)
		if bytes > 0 {
			m.ingestBytes.WithLabelValues(source).Add(float64(bytes))
		}
	case IngestOutcomeDuplicate, IngestOutcomeTape:
		atomic.AddUint64(&m.duplicateCount, 1)
	}
}

// StreamStarted marks a stream as open and returns the func that records its
// completion with the number of bytes sent.
func (m *MetricsService) StreamStarted(partial bool) func(sent int64) {
	if m == nil {
		return func(int64) {}
	}
	kind := "full"
	if partial {
		kind = "partial"
	}
	m.streamOpen.Inc()
	return func(sent int64) {
		m.streamOpen.Dec()
		if sent > 0 {
			m.streamBytes.WithLabelValues(kind).Add(float64(sent))
			atomic.AddUint64(&m.streamedBytes, uint64(sent))
		}
	}
}

// RecordProbe counts a probe result such as "ready" or "failed".
func (m *MetricsService) RecordProbe(result string) {
	if m == nil {
		return
	}
	m.probeTotal.WithLabelValues(result).Inc()
}

// Snapshot returns aggregated counters.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var ratio float64
	if hits+misses > 0 {
		ratio = float64(hits) / float64(hits+misses)
	}
	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return MetricsSnapshot{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		CacheHits:                hits,
		CacheMisses:              misses,
		CacheHitRatio:            ratio,
		MediaIngested:            atomic.LoadUint64(&m.ingestedCount),
		DuplicatesRejected:       atomic.LoadUint64(&m.duplicateCount),
		BytesStreamed:            atomic.LoadUint64(&m.streamedBytes),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
