package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kanugurajesh/Assistly/internal/core/domain"
)

// HTTPServerMetrics owns the API process registry. Besides HTTP traffic it
// implements ports.PipelineObserver and resilience.Observer.
type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge
	rejectedTotal   *prometheus.CounterVec

	ragRequestsTotal     *prometheus.CounterVec
	ragRetrievalHitTotal *prometheus.CounterVec
	ragNoContextTotal    *prometheus.CounterVec
	ragRetrievedChunks   *prometheus.HistogramVec
	ragDuration          *prometheus.HistogramVec
	channelHitsTotal     *prometheus.CounterVec
	channelFailuresTotal *prometheus.CounterVec
	enhancementsTotal    *prometheus.CounterVec
	generationsTotal     *prometheus.CounterVec

	classificationsTotal *prometheus.CounterVec
	routingTotal         *prometheus.CounterVec

	retriesTotal *prometheus.CounterVec
	breakerState *prometheus.GaugeVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paa",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "paa",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "paa",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	rejectedTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paa",
			Subsystem: "http",
			Name:      "rejected_total",
			Help:      "Requests rejected by traffic control, by reason.",
		},
		[]string{"service", "reason"},
	)
	ragRequestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paa",
			Subsystem: "rag",
			Name:      "requests_total",
			Help:      "Total successful RAG requests.",
		},
		[]string{"service", "endpoint"},
	)
	ragRetrievalHitTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paa",
			Subsystem: "rag",
			Name:      "retrieval_hit_total",
			Help:      "Total RAG requests with at least one retrieved source.",
		},
		[]string{"service", "endpoint"},
	)
	ragNoContextTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paa",
			Subsystem: "rag",
			Name:      "no_context_total",
			Help:      "Total RAG requests without retrieved sources.",
		},
		[]string{"service", "endpoint"},
	)
	ragRetrievedChunks := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "paa",
			Subsystem: "rag",
			Name:      "retrieved_chunks",
			Help:      "Distribution of retrieved chunks per successful RAG request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
		[]string{"service", "endpoint"},
	)
	ragDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "paa",
			Subsystem: "rag",
			Name:      "duration_seconds",
			Help:      "RAG execution duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	channelHitsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paa",
			Subsystem: "rag",
			Name:      "channel_hits_total",
			Help:      "Candidates returned per retrieval channel.",
		},
		[]string{"service", "channel"},
	)
	channelFailuresTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paa",
			Subsystem: "rag",
			Name:      "channel_failures_total",
			Help:      "Retrieval channel failures that were degraded to empty results.",
		},
		[]string{"service", "channel"},
	)
	enhancementsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paa",
			Subsystem: "rag",
			Name:      "query_enhancements_total",
			Help:      "Query enhancement attempts by outcome.",
		},
		[]string{"service", "outcome"},
	)
	generationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paa",
			Subsystem: "llm",
			Name:      "generations_total",
			Help:      "Answer generations by status.",
		},
		[]string{"service", "status"},
	)
	classificationsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paa",
			Subsystem: "tickets",
			Name:      "classifications_total",
			Help:      "Ticket classifications by outcome.",
		},
		[]string{"service", "outcome"},
	)
	routingTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paa",
			Subsystem: "tickets",
			Name:      "routing_decisions_total",
			Help:      "Routing decisions by response type and primary topic.",
		},
		[]string{"service", "response_type", "primary_topic"},
	)
	retriesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paa",
			Subsystem: "resilience",
			Name:      "retries_total",
			Help:      "Backend call retries by operation.",
		},
		[]string{"service", "operation"},
	)
	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "paa",
			Subsystem: "resilience",
			Name:      "breaker_open",
			Help:      "1 when the circuit breaker for an operation is not closed.",
		},
		[]string{"service", "operation"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		rejectedTotal,
		ragRequestsTotal,
		ragRetrievalHitTotal,
		ragNoContextTotal,
		ragRetrievedChunks,
		ragDuration,
		channelHitsTotal,
		channelFailuresTotal,
		enhancementsTotal,
		generationsTotal,
		classificationsTotal,
		routingTotal,
		retriesTotal,
		breakerState,
	)

	return &HTTPServerMetrics{
		registry:             registry,
		service:              service,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		rejectedTotal:        rejectedTotal,
		ragRequestsTotal:     ragRequestsTotal,
		ragRetrievalHitTotal: ragRetrievalHitTotal,
		ragNoContextTotal:    ragNoContextTotal,
		ragRetrievedChunks:   ragRetrievedChunks,
		ragDuration:          ragDuration,
		channelHitsTotal:     channelHitsTotal,
		channelFailuresTotal: channelFailuresTotal,
		enhancementsTotal:    enhancementsTotal,
		generationsTotal:     generationsTotal,
		classificationsTotal: classificationsTotal,
		routingTotal:         routingTotal,
		retriesTotal:         retriesTotal,
		breakerState:         breakerState,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the registry so other collectors of the same process can
// share the /metrics endpoint.
func (m *HTTPServerMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
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
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	rest, ok := strings.CutPrefix(path, "/v1/sessions/")
	if !ok || rest == "" || rest == "cleanup" {
		return path
	}
	if _, action, found := strings.Cut(rest, "/"); found {
		return "/v1/sessions/{session_id}/" + action
	}
	return "/v1/sessions/{session_id}"
}

// RegisterSessionGauges exports the session store figures, read at scrape time.
func (m *HTTPServerMetrics) RegisterSessionGauges(snapshot func() domain.MemoryStats) {
	gauge := func(name, help string, value func(domain.MemoryStats) int) prometheus.Collector {
		return prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace:   "paa",
				Subsystem:   "sessions",
				Name:        name,
				Help:        help,
				ConstLabels: prometheus.Labels{"service": m.service},
			},
			func() float64 { return float64(value(snapshot())) },
		)
	}
	m.registry.MustRegister(
		gauge("active", "Sessions that have not expired.", func(s domain.MemoryStats) int { return s.ActiveSessions }),
		gauge("total", "Sessions held in memory, including expired ones not yet swept.", func(s domain.MemoryStats) int { return s.TotalSessions }),
		gauge("messages", "Messages held across all sessions.", func(s domain.MemoryStats) int { return s.TotalMessages }),
	)
}

func (m *HTTPServerMetrics) RecordRAGObservation(endpoint string, sourceCount int, duration time.Duration) {
	m.ragRequestsTotal.WithLabelValues(m.service, endpoint).Inc()
	m.ragRetrievedChunks.WithLabelValues(m.service, endpoint).Observe(float64(sourceCount))
	m.ragDuration.WithLabelValues(m.service, endpoint).Observe(duration.Seconds())

	if sourceCount > 0 {
		m.ragRetrievalHitTotal.WithLabelValues(m.service, endpoint).Inc()
		return
	}
	m.ragNoContextTotal.WithLabelValues(m.service, endpoint).Inc()
}

func (m *HTTPServerMetrics) RecordRejected(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	m.rejectedTotal.WithLabelValues(m.service, reason).Inc()
}

func (m *HTTPServerMetrics) ObserveChannel(channel domain.Channel, hits int, failed bool) {
	if failed {
		m.channelFailuresTotal.WithLabelValues(m.service, string(channel)).Inc()
		return
	}
	if hits > 0 {
		m.channelHitsTotal.WithLabelValues(m.service, string(channel)).Add(float64(hits))
	}
}

func (m *HTTPServerMetrics) ObserveEnhancement(applied bool) {
	outcome := "applied"
	if !applied {
		outcome = "fallback"
	}
	m.enhancementsTotal.WithLabelValues(m.service, outcome).Inc()
}

func (m *HTTPServerMetrics) ObserveGeneration(failed bool) {
	m.generationsTotal.WithLabelValues(m.service, statusLabel(failed)).Inc()
}

func (m *HTTPServerMetrics) ObserveClassification(fallback bool) {
	outcome := "classified"
	if fallback {
		outcome = "fallback"
	}
	m.classificationsTotal.WithLabelValues(m.service, outcome).Inc()
}

func (m *HTTPServerMetrics) ObserveRouting(decision domain.RoutingDecision) {
	topic := string(decision.PrimaryTopic)
	if topic == "" {
		topic = string(domain.TopicUnknown)
	}
	m.routingTotal.WithLabelValues(m.service, string(decision.ResponseType), topic).Inc()
}

func (m *HTTPServerMetrics) ObserveRetry(operation string) {
	m.retriesTotal.WithLabelValues(m.service, operation).Inc()
}

func (m *HTTPServerMetrics) ObserveBreakerState(operation string, state string) {
	open := 0.0
	if state != "closed" {
		open = 1
	}
	m.breakerState.WithLabelValues(m.service, operation).Set(open)
}

func statusLabel(failed bool) string {
	if failed {
		return "error"
	}
	return "success"
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
