package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kanugurajesh/Assistly/internal/core/domain"
)

func TestMiddlewareNormalizesSessionPaths(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	handler := m.Middleware("api", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sessions/"+id, nil))
	}

	got := testutil.ToFloat64(m.requestTotal.WithLabelValues("api", http.MethodGet, "/v1/sessions/{session_id}", "404"))
	if got != 2 {
		t.Fatalf("expected 2 normalized requests, got %v", got)
	}
}

func TestPipelineObservations(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	m.ObserveChannel(domain.ChannelVector, 5, false)
	m.ObserveChannel(domain.ChannelKeyword, 0, true)
	m.ObserveClassification(true)
	m.ObserveRouting(domain.RoutingDecision{ResponseType: domain.ResponseRouted})
	m.ObserveBreakerState("ollama.chat", "open")
	m.ObserveRetry("ollama.chat")

	if v := testutil.ToFloat64(m.channelHitsTotal.WithLabelValues("api", "vector")); v != 5 {
		t.Fatalf("expected 5 vector hits, got %v", v)
	}
	if v := testutil.ToFloat64(m.channelFailuresTotal.WithLabelValues("api", "keyword")); v != 1 {
		t.Fatalf("expected 1 keyword failure, got %v", v)
	}
	if v := testutil.ToFloat64(m.classificationsTotal.WithLabelValues("api", "fallback")); v != 1 {
		t.Fatalf("expected 1 fallback classification, got %v", v)
	}
	if v := testutil.ToFloat64(m.routingTotal.WithLabelValues("api", "routing", "Unknown")); v != 1 {
		t.Fatalf("expected routing decision with Unknown topic, got %v", v)
	}
	if v := testutil.ToFloat64(m.breakerState.WithLabelValues("api", "ollama.chat")); v != 1 {
		t.Fatalf("expected open breaker gauge, got %v", v)
	}
}

func TestSessionGaugesReadSnapshotAtScrape(t *testing.T) {
	m := NewHTTPServerMetrics("api")
	active := 1
	m.RegisterSessionGauges(func() domain.MemoryStats {
		return domain.MemoryStats{ActiveSessions: active, TotalSessions: 4, TotalMessages: 9}
	})
	active = 3

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, `paa_sessions_active{service="api"} 3`) {
		t.Fatalf("expected live active gauge in scrape output:\n%s", body)
	}
}

func TestIndexMetricsSharesRegistry(t *testing.T) {
	api := NewHTTPServerMetrics("api")
	idx := NewIndexMetrics("api", api.Registry())

	idx.StartRebuild()
	idx.FinishRebuild("startup", 120, 50*time.Millisecond, nil)
	idx.StartRebuild()
	idx.FinishRebuild("event", 0, time.Millisecond, errors.New("db down"))
	idx.ObservePoll(false, errors.New("timeout"))

	if v := testutil.ToFloat64(idx.indexedChunks); v != 120 {
		t.Fatalf("expected 120 indexed chunks kept after failed rebuild, got %v", v)
	}
	if v := testutil.ToFloat64(idx.rebuildTotal.WithLabelValues("api", "event", "error")); v != 1 {
		t.Fatalf("expected one failed event rebuild, got %v", v)
	}
	if v := testutil.ToFloat64(idx.rebuildInFlight); v != 0 {
		t.Fatalf("expected no rebuild in flight, got %v", v)
	}

	rec := httptest.NewRecorder()
	api.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "paa_corpus_watch_polls_total") {
		t.Fatalf("expected index metrics on the shared registry")
	}
}

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"/v1/sessions":             "/v1/sessions",
		"/v1/sessions/cleanup":     "/v1/sessions/cleanup",
		"/v1/sessions/abc":         "/v1/sessions/{session_id}",
		"/v1/sessions/abc/context": "/v1/sessions/{session_id}/context",
		"/v1/rag/query":            "/v1/rag/query",
	}
	for in, want := range cases {
		if got := normalizePath(in); got != want {
			t.Fatalf("normalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}
