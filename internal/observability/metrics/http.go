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

// HTTPServerMetrics owns a private registry so tests can build isolated
// instances without collector name collisions.
type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	answersTotal           *prometheus.CounterVec
	answerDuration         *prometheus.HistogramVec
	noContextTotal         *prometheus.CounterVec
	citationShortfallTotal *prometheus.CounterVec
	retrievedResults       *prometheus.HistogramVec
	expansionFallbackTotal *prometheus.CounterVec
	rerankFallbackTotal    *prometheus.CounterVec
	modelFallbackDepth     *prometheus.HistogramVec
	llmTokensTotal         *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docqa",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docqa",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	answersTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "pipeline",
			Name:      "answers_total",
			Help:      "Total answered queries by outcome.",
		},
		[]string{"service", "status"},
	)
	answerDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docqa",
			Subsystem: "pipeline",
			Name:      "answer_duration_seconds",
			Help:      "End-to-end answer pipeline duration in seconds.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		},
		[]string{"service"},
	)
	noContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "pipeline",
			Name:      "no_context_total",
			Help:      "Total answers produced without any retrieved sources.",
		},
		[]string{"service"},
	)
	citationShortfallTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "pipeline",
			Name:      "citation_shortfall_total",
			Help:      "Total answers citing fewer distinct sources than the format requires.",
		},
		[]string{"service", "format"},
	)
	retrievedResults := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docqa",
			Subsystem: "pipeline",
			Name:      "retrieved_results",
			Help:      "Distribution of final retrieved results per tier.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "tier"},
	)
	expansionFallbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "pipeline",
			Name:      "expansion_fallback_total",
			Help:      "Total retrievals that fell back to the original query after a failed expansion.",
		},
		[]string{"service"},
	)
	rerankFallbackTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "pipeline",
			Name:      "rerank_fallback_total",
			Help:      "Total tiers that kept fusion order after a failed rerank.",
		},
		[]string{"service", "tier"},
	)
	modelFallbackDepth := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docqa",
			Subsystem: "llm",
			Name:      "model_fallback_depth",
			Help:      "Position in the model chain that produced the answer, 0 = primary.",
			Buckets:   []float64{0, 1, 2, 3},
		},
		[]string{"service"},
	)
	llmTokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docqa",
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Approximate token usage by direction.",
		},
		[]string{"service", "direction", "model"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		answersTotal,
		answerDuration,
		noContextTotal,
		citationShortfallTotal,
		retrievedResults,
		expansionFallbackTotal,
		rerankFallbackTotal,
		modelFallbackDepth,
		llmTokensTotal,
	)

	return &HTTPServerMetrics{
		registry:               registry,
		requestTotal:           requestTotal,
		requestDuration:        requestDuration,
		requestInFlight:        requestInFlight,
		answersTotal:           answersTotal,
		answerDuration:         answerDuration,
		noContextTotal:         noContextTotal,
		citationShortfallTotal: citationShortfallTotal,
		retrievedResults:       retrievedResults,
		expansionFallbackTotal: expansionFallbackTotal,
		rerankFallbackTotal:    rerankFallbackTotal,
		modelFallbackDepth:     modelFallbackDepth,
		llmTokensTotal:         llmTokensTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &metricsStatusRecorder{
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

// RecordAnswer observes one completed pipeline run. Status is one of
// "ok", "no_context" or "error".
func (m *HTTPServerMetrics) RecordAnswer(service, status string, duration time.Duration) {
	if status == "" {
		status = "unknown"
	}
	m.answersTotal.WithLabelValues(service, status).Inc()
	m.answerDuration.WithLabelValues(service).Observe(duration.Seconds())
	if status == "no_context" {
		m.noContextTotal.WithLabelValues(service).Inc()
	}
}

func (m *HTTPServerMetrics) RecordCitationShortfall(service, format string) {
	if format == "" {
		format = "unknown"
	}
	m.citationShortfallTotal.WithLabelValues(service, format).Inc()
}

func (m *HTTPServerMetrics) RecordRetrievedResults(service, tier string, count int) {
	m.retrievedResults.WithLabelValues(service, tier).Observe(float64(count))
}

func (m *HTTPServerMetrics) RecordExpansionFallback(service string) {
	m.expansionFallbackTotal.WithLabelValues(service).Inc()
}

func (m *HTTPServerMetrics) RecordRerankFallback(service, tier string) {
	m.rerankFallbackTotal.WithLabelValues(service, tier).Inc()
}

func (m *HTTPServerMetrics) RecordModelFallbackDepth(service string, depth int) {
	if depth < 0 {
		return
	}
	m.modelFallbackDepth.WithLabelValues(service).Observe(float64(depth))
}

func (m *HTTPServerMetrics) RecordTokenUsage(service, model string, promptTokens, outputTokens int) {
	if model == "" {
		model = "unknown"
	}
	if promptTokens > 0 {
		m.llmTokensTotal.WithLabelValues(service, "in", model).Add(float64(promptTokens))
	}
	if outputTokens > 0 {
		m.llmTokensTotal.WithLabelValues(service, "out", model).Add(float64(outputTokens))
	}
}

type metricsStatusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *metricsStatusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *metricsStatusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *metricsStatusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}

func (w *metricsStatusRecorder) Push(target string, opts *http.PushOptions) error {
	pusher, ok := w.ResponseWriter.(http.Pusher)
	if !ok {
		return http.ErrNotSupported
	}
	return pusher.Push(target, opts)
}
