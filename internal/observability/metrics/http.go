package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	queriesTotal        *prometheus.CounterVec
	queryDuration       *prometheus.HistogramVec
	noContextTotal      *prometheus.CounterVec
	retrievedCandidates *prometheus.HistogramVec
	confidenceTotal     *prometheus.CounterVec
	groundingRiskTotal  *prometheus.CounterVec
	rerankFallbackTotal *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lexqa",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lexqa",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "lexqa",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	queriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lexqa",
			Subsystem: "query",
			Name:      "total",
			Help:      "Total answered legal queries by endpoint.",
		},
		[]string{"service", "endpoint"},
	)
	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lexqa",
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "End-to-end query duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	noContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lexqa",
			Subsystem: "query",
			Name:      "no_context_total",
			Help:      "Total queries answered with the refusal response.",
		},
		[]string{"service", "endpoint"},
	)
	retrievedCandidates := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lexqa",
			Subsystem: "retrieval",
			Name:      "candidates",
			Help:      "Distribution of retrieved passages per query.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "endpoint"},
	)
	confidenceTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lexqa",
			Subsystem: "query",
			Name:      "confidence_total",
			Help:      "Total answered queries by confidence level.",
		},
		[]string{"service", "level"},
	)
	groundingRiskTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lexqa",
			Subsystem: "grounding",
			Name:      "risk_total",
			Help:      "Total answered queries by hallucination risk.",
		},
		[]string{"service", "risk"},
	)
	rerankFallbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lexqa",
			Subsystem: "retrieval",
			Name:      "rerank_fallback_total",
			Help:      "Total queries where reranking failed and fused order was used.",
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		queriesTotal,
		queryDuration,
		noContextTotal,
		retrievedCandidates,
		confidenceTotal,
		groundingRiskTotal,
		rerankFallbackTotal,
	)

	return &HTTPServerMetrics{
		registry:            registry,
		requestTotal:        requestTotal,
		requestDuration:     requestDuration,
		requestInFlight:     requestInFlight,
		queriesTotal:        queriesTotal,
		queryDuration:       queryDuration,
		noContextTotal:      noContextTotal,
		retrievedCandidates: retrievedCandidates,
		confidenceTotal:     confidenceTotal,
		groundingRiskTotal:  groundingRiskTotal,
		rerankFallbackTotal: rerankFallbackTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			r.URL.Path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}

func (m *HTTPServerMetrics) RecordQuery(service, endpoint string, candidateCount int, duration time.Duration) {
	m.queriesTotal.WithLabelValues(service, endpoint).Inc()
	m.retrievedCandidates.WithLabelValues(service, endpoint).Observe(float64(candidateCount))
	m.queryDuration.WithLabelValues(service, endpoint).Observe(duration.Seconds())

	if candidateCount == 0 {
		m.noContextTotal.WithLabelValues(service, endpoint).Inc()
	}
}

func (m *HTTPServerMetrics) RecordConfidence(service, level string) {
	if level == "" {
		level = "unknown"
	}
	m.confidenceTotal.WithLabelValues(service, level).Inc()
}

func (m *HTTPServerMetrics) RecordGroundingRisk(service, risk string) {
	if risk == "" {
		return
	}
	m.groundingRiskTotal.WithLabelValues(service, risk).Inc()
}

func (m *HTTPServerMetrics) RecordRerankFallback(service string) {
	m.rerankFallbackTotal.WithLabelValues(service).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *statusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
