package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/hukumnesia/lexqa/internal/config"
	"github.com/hukumnesia/lexqa/internal/core/domain"
	"github.com/hukumnesia/lexqa/internal/core/ports"
	"github.com/hukumnesia/lexqa/internal/observability/metrics"
)

const serviceName = "lexqa-api"

const (
	maxInFlightRequests = 64
	backpressureWait    = 2 * time.Second
)

type Router struct {
	cfg      config.Config
	querySvc ports.LegalQueryService
	health   func() (string, bool)
	metrics  *metrics.HTTPServerMetrics
}

func NewRouter(cfg config.Config, querySvc ports.LegalQueryService, health func() (string, bool), m *metrics.HTTPServerMetrics) *Router {
	return &Router{
		cfg:      cfg,
		querySvc: querySvc,
		health:   health,
		metrics:  m,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/legal/query", rt.query)
	mux.HandleFunc("/v1/legal/query/stream", rt.queryStream)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, maxInFlightRequests, backpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	status, healthy := "ok", true
	if rt.health != nil {
		status, healthy = rt.health()
	}
	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"status": status})
}

func (rt *Router) query(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	req, ok := decodeQueryRequest(w, r)
	if !ok {
		return
	}

	start := time.Now()
	var resp *domain.QueryResponse
	var err error
	if len(req.History) > 0 {
		resp, err = rt.querySvc.QueryWithHistory(r.Context(), req)
	} else {
		resp, err = rt.querySvc.Query(r.Context(), req)
	}
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
		return
	}

	rt.observe("query", resp, time.Since(start))
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) queryStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	req, ok := decodeQueryRequest(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming is not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	start := time.Now()
	var candidates int
	err := rt.querySvc.QueryStream(r.Context(), req, func(event domain.StreamEvent) error {
		if event.Type == domain.StreamEventMetadata {
			candidates = len(event.Citations)
		}
		if err := writeSSEEvent(w, event); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	})
	if err != nil {
		// Headers are already written; all we can do is terminate the
		// stream with an error event.
		_ = writeSSEEvent(w, domain.StreamEvent{Type: "error", Content: err.Error()})
		flusher.Flush()
		return
	}

	if rt.metrics != nil {
		rt.metrics.RecordQuery(serviceName, "query_stream", candidates, time.Since(start))
	}
}

func (rt *Router) observe(endpoint string, resp *domain.QueryResponse, duration time.Duration) {
	if rt.metrics == nil || resp == nil {
		return
	}
	rt.metrics.RecordQuery(serviceName, endpoint, len(resp.Citations), duration)
	rt.metrics.RecordConfidence(serviceName, string(resp.Confidence))
	if resp.Validation != nil {
		rt.metrics.RecordGroundingRisk(serviceName, string(resp.Validation.HallucinationRisk))
	}
}

func decodeQueryRequest(w http.ResponseWriter, r *http.Request) (domain.QueryRequest, bool) {
	var req domain.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return req, false
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return req, false
	}
	return req, true
}

func writeSSEEvent(w http.ResponseWriter, event domain.StreamEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := w.Write(payload); err != nil {
		return err
	}
	_, err = w.Write([]byte("\n\n"))
	return err
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
