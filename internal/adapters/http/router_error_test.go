package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kanugurajesh/Assistly/internal/config"
	"github.com/kanugurajesh/Assistly/internal/core/domain"
)

type retrievalErrFake struct {
	err error
}

func (f retrievalErrFake) Handle(_ context.Context, query, sessionID string) (*domain.RetrievalResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.RetrievalResponse{SessionID: "s-1", Answer: "ok: " + query, Sources: []string{}}, nil
}

func postJSON(t *testing.T, handler http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestQueryRagMapsDomainInvalidInputTo400(t *testing.T) {
	handler := NewRouter(config.Config{}, Dependencies{
		Retrieval: retrievalErrFake{err: domain.WrapError(domain.ErrInvalidInput, "handle", errors.New("bad query"))},
	}).Handler()

	res := postJSON(t, handler, "/v1/rag/query", map[string]any{"question": "test"})
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestQueryRagHidesTemporaryErrorText(t *testing.T) {
	handler := NewRouter(config.Config{}, Dependencies{
		Retrieval: retrievalErrFake{err: domain.WrapError(domain.ErrTemporary, "vector search", errors.New("qdrant: dial tcp 10.0.0.7:6333"))},
	}).Handler()

	res := postJSON(t, handler, "/v1/rag/query", map[string]any{"question": "test"})
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
	if strings.Contains(res.Body.String(), "10.0.0.7") {
		t.Fatalf("raw backend error leaked: %s", res.Body.String())
	}
}

func TestQueryRagHidesInternalErrorText(t *testing.T) {
	handler := NewRouter(config.Config{}, Dependencies{
		Retrieval: retrievalErrFake{err: errors.New("nil pointer in fusion")},
	}).Handler()

	res := postJSON(t, handler, "/v1/rag/query", map[string]any{"question": "test"})
	if res.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", res.Code)
	}
	if strings.Contains(res.Body.String(), "fusion") {
		t.Fatalf("raw internal error leaked: %s", res.Body.String())
	}
}

func TestQueryRagRejectsEmptyQuestionAndBadJSON(t *testing.T) {
	handler := NewRouter(config.Config{}, Dependencies{Retrieval: retrievalErrFake{}}).Handler()

	if res := postJSON(t, handler, "/v1/rag/query", map[string]any{"question": "  "}); res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank question, got %d", res.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/rag/query", strings.NewReader("{"))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid json, got %d", res.Code)
	}
}

func TestUnconfiguredServiceReturns503(t *testing.T) {
	handler := NewRouter(config.Config{}, Dependencies{}).Handler()

	res := postJSON(t, handler, "/v1/support/respond", map[string]any{"content": "help"})
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
}

func TestReadinessReflectsBackends(t *testing.T) {
	down := errors.New("collection missing")
	handler := NewRouter(config.Config{}, Dependencies{
		Readiness: func(context.Context) error { return down },
	}).Handler()

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if res.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.Code)
	}
}
