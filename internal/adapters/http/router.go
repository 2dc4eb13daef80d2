package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/akosterin/docqa/internal/core/domain"
	"github.com/akosterin/docqa/internal/core/ports"
	"github.com/akosterin/docqa/internal/observability/metrics"
)

const serviceName = "docqa-api"

type RouterConfig struct {
	RateLimitRPS   float64
	RateLimitBurst int
	MaxInFlight    int
}

type Router struct {
	answers ports.AnswerService
	metrics *metrics.HTTPServerMetrics
	cfg     RouterConfig
}

func NewRouter(answers ports.AnswerService, m *metrics.HTTPServerMetrics, cfg RouterConfig) *Router {
	return &Router{answers: answers, metrics: m, cfg: cfg}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/answers", rt.answerQuery)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.MaxInFlight, 50*time.Millisecond)
	handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type answerRequest struct {
	Query       string   `json:"query"`
	FilterLogic string   `json:"filter_logic"`
	Temperature *float64 `json:"temperature"`
	TimeoutMS   int      `json:"timeout_ms"`
}

func (rt *Router) answerQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	filterLogic, err := parseFilterLogic(req.FilterLogic)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	opts := ports.AnswerOptions{
		FilterLogic:         filterLogic,
		TemperatureOverride: req.Temperature,
	}
	if req.TimeoutMS > 0 {
		opts.Deadline = time.Duration(req.TimeoutMS) * time.Millisecond
	}

	start := time.Now()
	result, err := rt.answers.AnswerQuery(r.Context(), req.Query, opts)
	if err != nil {
		rt.recordAnswerMetrics(nil, "error", time.Since(start))
		status := mapErrorToHTTPStatus(err)
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	status := "ok"
	if result.NoContext {
		status = "no_context"
	}
	rt.recordAnswerMetrics(result, status, time.Since(start))
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) recordAnswerMetrics(result *domain.SynthesisResult, status string, duration time.Duration) {
	if rt.metrics == nil {
		return
	}
	rt.metrics.RecordAnswer(serviceName, status, duration)
	if result == nil {
		return
	}
	if result.CitationShortfall {
		rt.metrics.RecordCitationShortfall(serviceName, string(result.Format.Type))
	}
}

func parseFilterLogic(raw string) (domain.FilterLogic, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "", "OR":
		return domain.FilterLogicOR, nil
	case "AND":
		return domain.FilterLogicAND, nil
	default:
		return "", &filterLogicError{raw: raw}
	}
}

type filterLogicError struct {
	raw string
}

func (e *filterLogicError) Error() string {
	return "filter_logic must be AND or OR, got " + strings.TrimSpace(e.raw)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
