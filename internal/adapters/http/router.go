package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kanugurajesh/Assistly/internal/config"
	"github.com/kanugurajesh/Assistly/internal/core/domain"
	"github.com/kanugurajesh/Assistly/internal/core/ports"
	"github.com/kanugurajesh/Assistly/internal/observability/metrics"
)

const maxRequestBodyBytes = 1 << 20

// Dependencies are the inbound services behind the HTTP API. Any of them may
// be nil, in which case the matching routes answer 503.
type Dependencies struct {
	Retrieval  ports.RetrievalService
	Support    ports.SupportDesk
	Classifier ports.TicketClassifier
	Sessions   ports.SessionManager
	Index      ports.IndexRebuilder
	// Readiness reports whether the backends needed for answering are up.
	Readiness func(ctx context.Context) error
	Metrics   *metrics.HTTPServerMetrics
}

type Router struct {
	deps         Dependencies
	contextPairs int

	rateLimitRPS     float64
	rateLimitBurst   int
	maxInFlight      int
	backpressureWait time.Duration
}

func NewRouter(cfg config.Config, deps Dependencies) *Router {
	contextPairs := cfg.RAGContextPairs
	if contextPairs <= 0 {
		contextPairs = 3
	}
	return &Router{
		deps:             deps,
		contextPairs:     contextPairs,
		rateLimitRPS:     cfg.APIRateLimitRPS,
		rateLimitBurst:   cfg.APIRateLimitBurst,
		maxInFlight:      cfg.APIMaxInFlight,
		backpressureWait: time.Duration(cfg.APIBackpressureWaitMillis) * time.Millisecond,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /readyz", rt.readyz)
	if rt.deps.Metrics != nil {
		mux.Handle("GET /metrics", rt.deps.Metrics.Handler())
	}

	mux.HandleFunc("POST /v1/rag/query", rt.queryRAG)
	mux.HandleFunc("POST /v1/support/respond", rt.respond)
	mux.HandleFunc("POST /v1/tickets/classify", rt.classifyTicket)

	mux.HandleFunc("POST /v1/sessions", rt.createSession)
	mux.HandleFunc("GET /v1/sessions", rt.sessionStats)
	mux.HandleFunc("POST /v1/sessions/cleanup", rt.cleanupSessions)
	mux.HandleFunc("GET /v1/sessions/{id}", rt.getSession)
	mux.HandleFunc("DELETE /v1/sessions/{id}", rt.deleteSession)
	mux.HandleFunc("POST /v1/sessions/{id}/clear", rt.clearSession)
	mux.HandleFunc("GET /v1/sessions/{id}/context", rt.sessionContext)

	mux.HandleFunc("POST /v1/index/rebuild", rt.rebuildIndex)

	var handler http.Handler = mux
	var onReject rejectHook
	if rt.deps.Metrics != nil {
		handler = rt.deps.Metrics.Middleware("api", handler)
		onReject = rt.deps.Metrics.RecordRejected
	}
	if rt.maxInFlight > 0 {
		wait := rt.backpressureWait
		if wait < 0 {
			wait = 0
		}
		handler = backpressureMiddleware(handler, rt.maxInFlight, wait, onReject)
	}
	if rt.rateLimitRPS > 0 {
		burst := rt.rateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		handler = rateLimitMiddleware(handler, rate.NewLimiter(rate.Limit(rt.rateLimitRPS), burst), onReject)
	}
	return requestIDMiddleware(accessLogMiddleware(handler))
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) readyz(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Readiness == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := rt.deps.Readiness(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (rt *Router) queryRAG(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Retrieval == nil {
		writeUnavailable(w, r, "retrieval")
		return
	}
	var req struct {
		Question  string `json:"question"`
		SessionID string `json:"session_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "question is required"})
		return
	}

	start := time.Now()
	resp, err := rt.deps.Retrieval.Handle(r.Context(), req.Question, req.SessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rt.deps.Metrics != nil {
		rt.deps.Metrics.RecordRAGObservation("rag_query", len(resp.Sources), time.Since(start))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) respond(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Support == nil {
		writeUnavailable(w, r, "support desk")
		return
	}
	var req struct {
		Content   string `json:"content"`
		SessionID string `json:"session_id"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "content is required"})
		return
	}

	reply, err := rt.deps.Support.Respond(r.Context(), req.Content, req.SessionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (rt *Router) classifyTicket(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Classifier == nil {
		writeUnavailable(w, r, "classifier")
		return
	}
	var req struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Subject) == "" && strings.TrimSpace(req.Body) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "subject or body is required"})
		return
	}
	writeJSON(w, http.StatusOK, rt.deps.Classifier.Classify(r.Context(), req.Subject, req.Body))
}

func (rt *Router) createSession(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Sessions == nil {
		writeUnavailable(w, r, "sessions")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"session_id": rt.deps.Sessions.GetOrCreate("")})
}

func (rt *Router) sessionStats(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Sessions == nil {
		writeUnavailable(w, r, "sessions")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stats":           rt.deps.Sessions.Stats(),
		"active_sessions": rt.deps.Sessions.ListActive(),
	})
}

func (rt *Router) cleanupSessions(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Sessions == nil {
		writeUnavailable(w, r, "sessions")
		return
	}
	removed := rt.deps.Sessions.ForceSweep()
	writeJSON(w, http.StatusOK, map[string]any{
		"removed":       removed,
		"cleanup_stats": rt.deps.Sessions.CleanupStats(),
	})
}

func (rt *Router) getSession(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Sessions == nil {
		writeUnavailable(w, r, "sessions")
		return
	}
	id := r.PathValue("id")
	info, ok := rt.deps.Sessions.Info(id)
	if !ok {
		writeError(w, r, sessionNotFound("get session", id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session": info,
		"history": rt.deps.Sessions.History(id),
	})
}

func (rt *Router) deleteSession(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Sessions == nil {
		writeUnavailable(w, r, "sessions")
		return
	}
	id := r.PathValue("id")
	if !rt.deps.Sessions.Delete(id) {
		writeError(w, r, sessionNotFound("delete session", id))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) clearSession(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Sessions == nil {
		writeUnavailable(w, r, "sessions")
		return
	}
	id := r.PathValue("id")
	if !rt.deps.Sessions.Clear(id) {
		writeError(w, r, sessionNotFound("clear session", id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"session_id": id, "cleared": true})
}

func (rt *Router) sessionContext(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Sessions == nil {
		writeUnavailable(w, r, "sessions")
		return
	}
	id := r.PathValue("id")
	pairs := rt.contextPairs
	if raw := r.URL.Query().Get("pairs"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "pairs must be a positive integer"})
			return
		}
		pairs = n
	}
	if _, ok := rt.deps.Sessions.Info(id); !ok {
		writeError(w, r, sessionNotFound("session context", id))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"pairs":      pairs,
		"context":    rt.deps.Sessions.Context(id, pairs),
	})
}

func (rt *Router) rebuildIndex(w http.ResponseWriter, r *http.Request) {
	if rt.deps.Index == nil {
		writeUnavailable(w, r, "keyword index")
		return
	}
	chunks, err := rt.deps.Index.Rebuild(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"chunks": chunks})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "request body too large"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return false
	}
	return true
}

func sessionNotFound(op, id string) error {
	return domain.WrapError(domain.ErrSessionNotFound, op, fmt.Errorf("id=%s", id))
}

func writeUnavailable(w http.ResponseWriter, r *http.Request, component string) {
	writeError(w, r, domain.WrapError(domain.ErrTemporary, "http", fmt.Errorf("%s is not configured", component)))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
