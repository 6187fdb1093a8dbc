package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kanugurajesh/Assistly/internal/config"
	"github.com/kanugurajesh/Assistly/internal/core/domain"
	"github.com/kanugurajesh/Assistly/internal/infrastructure/session"
	"github.com/kanugurajesh/Assistly/internal/observability/metrics"
)

func newSessionStore() *session.Store {
	return session.NewStore(session.DefaultOptions())
}

type supportFake struct {
	content   string
	sessionID string
}

func (f *supportFake) Respond(_ context.Context, content, sessionID string) (*domain.SupportReply, error) {
	f.content, f.sessionID = content, sessionID
	return &domain.SupportReply{
		SessionID: "s-42",
		Decision:  domain.RoutingDecision{ResponseType: domain.ResponseRouted, PrimaryTopic: domain.TopicConnector},
		Message:   "routed",
	}, nil
}

type classifierFake struct{}

func (classifierFake) Classify(_ context.Context, subject, _ string) domain.Classification {
	if strings.Contains(subject, "SSO") {
		return domain.Classification{Topics: []domain.Topic{domain.TopicSSO}, Sentiment: domain.SentimentFrustrated, Priority: domain.PriorityHigh}
	}
	return domain.FallbackClassification()
}

type rebuilderFake struct {
	chunks int
	err    error
}

func (f rebuilderFake) Rebuild(context.Context) (int, error) { return f.chunks, f.err }

func doRequest(handler http.Handler, method, path string) *httptest.ResponseRecorder {
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(method, path, nil))
	return res
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(res.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode body %q: %v", res.Body.String(), err)
	}
}

func TestRespondPassesContentAndSession(t *testing.T) {
	support := &supportFake{}
	handler := NewRouter(config.Config{}, Dependencies{Support: support}).Handler()

	res := postJSON(t, handler, "/v1/support/respond", map[string]any{"content": "Subject: Snowflake\nFails", "session_id": "abc"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if support.content != "Subject: Snowflake\nFails" || support.sessionID != "abc" {
		t.Fatalf("unexpected call content=%q session=%q", support.content, support.sessionID)
	}
	var reply domain.SupportReply
	decodeBody(t, res, &reply)
	if reply.Decision.PrimaryTopic != domain.TopicConnector || reply.Message != "routed" {
		t.Fatalf("unexpected reply %+v", reply)
	}
}

func TestClassifyTicket(t *testing.T) {
	handler := NewRouter(config.Config{}, Dependencies{Classifier: classifierFake{}}).Handler()

	res := postJSON(t, handler, "/v1/tickets/classify", map[string]any{"subject": "SSO broken", "body": "login loop"})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var cls domain.Classification
	decodeBody(t, res, &cls)
	if len(cls.Topics) != 1 || cls.Topics[0] != domain.TopicSSO || cls.Priority != domain.PriorityHigh {
		t.Fatalf("unexpected classification %+v", cls)
	}

	if res := postJSON(t, handler, "/v1/tickets/classify", map[string]any{}); res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty ticket, got %d", res.Code)
	}
}

func TestSessionLifecycle(t *testing.T) {
	store := newSessionStore()
	handler := NewRouter(config.Config{RAGContextPairs: 3}, Dependencies{Sessions: store}).Handler()

	res := doRequest(handler, http.MethodPost, "/v1/sessions")
	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", res.Code)
	}
	var created map[string]string
	decodeBody(t, res, &created)
	id := created["session_id"]
	if id == "" {
		t.Fatalf("expected session id")
	}

	store.AppendMessage(id, domain.RoleUser, "How do I connect Snowflake?")
	store.AppendMessage(id, domain.RoleAssistant, "Use the Snowflake connector.")

	res = doRequest(handler, http.MethodGet, "/v1/sessions/"+id)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var detail struct {
		Session domain.SessionInfo `json:"session"`
		History []domain.Message   `json:"history"`
	}
	decodeBody(t, res, &detail)
	if detail.Session.MessageCount != 2 || len(detail.History) != 2 {
		t.Fatalf("unexpected session detail %+v", detail)
	}

	res = doRequest(handler, http.MethodGet, "/v1/sessions/"+id+"/context?pairs=1")
	var ctxBody map[string]any
	decodeBody(t, res, &ctxBody)
	if ctxBody["context"] != "User: How do I connect Snowflake?\nAssistant: Use the Snowflake connector." {
		t.Fatalf("unexpected context %q", ctxBody["context"])
	}

	if res := doRequest(handler, http.MethodGet, "/v1/sessions/"+id+"/context?pairs=zero"); res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid pairs, got %d", res.Code)
	}

	if res := doRequest(handler, http.MethodPost, "/v1/sessions/"+id+"/clear"); res.Code != http.StatusOK {
		t.Fatalf("expected 200 on clear, got %d", res.Code)
	}
	if got := len(store.History(id)); got != 0 {
		t.Fatalf("expected cleared history, got %d messages", got)
	}

	if res := doRequest(handler, http.MethodDelete, "/v1/sessions/"+id); res.Code != http.StatusNoContent {
		t.Fatalf("expected 204 on delete, got %d", res.Code)
	}
	if res := doRequest(handler, http.MethodGet, "/v1/sessions/"+id); res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", res.Code)
	}
	if res := doRequest(handler, http.MethodDelete, "/v1/sessions/"+id); res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", res.Code)
	}
}

func TestSessionStatsAndCleanup(t *testing.T) {
	store := newSessionStore()
	first := store.GetOrCreate("")
	handler := NewRouter(config.Config{}, Dependencies{Sessions: store}).Handler()

	res := doRequest(handler, http.MethodGet, "/v1/sessions")
	var stats struct {
		Stats  domain.MemoryStats `json:"stats"`
		Active []string           `json:"active_sessions"`
	}
	decodeBody(t, res, &stats)
	if stats.Stats.ActiveSessions != 1 || len(stats.Active) != 1 || stats.Active[0] != first {
		t.Fatalf("unexpected stats %+v", stats)
	}

	res = doRequest(handler, http.MethodPost, "/v1/sessions/cleanup")
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var cleanup map[string]any
	decodeBody(t, res, &cleanup)
	if cleanup["removed"] != float64(0) {
		t.Fatalf("expected nothing removed, got %v", cleanup["removed"])
	}
}

func TestRebuildIndex(t *testing.T) {
	handler := NewRouter(config.Config{}, Dependencies{Index: rebuilderFake{chunks: 314}}).Handler()
	res := doRequest(handler, http.MethodPost, "/v1/index/rebuild")
	var body map[string]int
	decodeBody(t, res, &body)
	if res.Code != http.StatusOK || body["chunks"] != 314 {
		t.Fatalf("unexpected rebuild response %d %v", res.Code, body)
	}

	handler = NewRouter(config.Config{}, Dependencies{
		Index: rebuilderFake{err: domain.WrapError(domain.ErrCorpusUnavailable, "rebuild", errors.New("db down"))},
	}).Handler()
	if res := doRequest(handler, http.MethodPost, "/v1/index/rebuild"); res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
}

func TestMetricsEndpointServesRegistry(t *testing.T) {
	m := metrics.NewHTTPServerMetrics("api")
	handler := NewRouter(config.Config{}, Dependencies{Retrieval: retrievalErrFake{}, Metrics: m}).Handler()

	if res := postJSON(t, handler, "/v1/rag/query", map[string]any{"question": "snowflake"}); res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	res := doRequest(handler, http.MethodGet, "/metrics")
	if !strings.Contains(res.Body.String(), "paa_rag_no_context_total") {
		t.Fatalf("expected rag metrics in scrape output")
	}
}
