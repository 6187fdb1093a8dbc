package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// IndexMetrics covers keyword index rebuilds and the corpus watcher. It
// implements ports.IndexObserver and ports.WatchObserver.
type IndexMetrics struct {
	registry *prometheus.Registry
	service  string

	rebuildTotal    *prometheus.CounterVec
	rebuildDuration *prometheus.HistogramVec
	rebuildInFlight prometheus.Gauge
	indexedChunks   prometheus.Gauge
	eventLag        *prometheus.HistogramVec
	watchPollsTotal *prometheus.CounterVec
}

// NewIndexMetrics registers into registry, or into a fresh one when registry
// is nil.
func NewIndexMetrics(service string, registry *prometheus.Registry) *IndexMetrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	rebuildTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paa",
			Subsystem: "index",
			Name:      "rebuild_total",
			Help:      "Keyword index rebuilds by trigger and status.",
		},
		[]string{"service", "trigger", "status"},
	)
	rebuildDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "paa",
			Subsystem: "index",
			Name:      "rebuild_duration_seconds",
			Help:      "Keyword index rebuild duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	rebuildInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "paa",
			Subsystem: "index",
			Name:      "rebuild_in_flight",
			Help:      "Number of keyword index rebuilds in progress.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	indexedChunks := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "paa",
			Subsystem: "index",
			Name:      "chunks",
			Help:      "Chunks in the keyword index after the last successful rebuild.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	eventLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "paa",
			Subsystem: "index",
			Name:      "event_lag_seconds",
			Help:      "Delay between corpus.updated publication and rebuild start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)
	watchPollsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "paa",
			Subsystem: "corpus_watch",
			Name:      "polls_total",
			Help:      "Corpus fingerprint polls by outcome.",
		},
		[]string{"service", "outcome"},
	)

	registry.MustRegister(rebuildTotal, rebuildDuration, rebuildInFlight, indexedChunks, eventLag, watchPollsTotal)

	return &IndexMetrics{
		registry:        registry,
		service:         service,
		rebuildTotal:    rebuildTotal,
		rebuildDuration: rebuildDuration,
		rebuildInFlight: rebuildInFlight,
		indexedChunks:   indexedChunks,
		eventLag:        eventLag,
		watchPollsTotal: watchPollsTotal,
	}
}

func (m *IndexMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *IndexMetrics) StartRebuild() {
	m.rebuildInFlight.Inc()
}

func (m *IndexMetrics) FinishRebuild(trigger string, chunks int, duration time.Duration, err error) {
	m.rebuildInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	} else {
		m.indexedChunks.Set(float64(chunks))
	}
	if trigger == "" {
		trigger = "unknown"
	}

	m.rebuildTotal.WithLabelValues(m.service, trigger, status).Inc()
	m.rebuildDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

func (m *IndexMetrics) ObserveEventLag(lag time.Duration) {
	if lag < 0 {
		return
	}
	m.eventLag.WithLabelValues(m.service).Observe(lag.Seconds())
}

func (m *IndexMetrics) ObservePoll(changed bool, err error) {
	outcome := "unchanged"
	switch {
	case err != nil:
		outcome = "error"
	case changed:
		outcome = "changed"
	}
	m.watchPollsTotal.WithLabelValues(m.service, outcome).Inc()
}
