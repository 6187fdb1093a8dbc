package httpadapter

import (
	"log/slog"
	"net/http"

	"github.com/kanugurajesh/Assistly/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary), domain.IsKind(err, domain.ErrCorpusUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeError answers with the mapped status. Client errors carry the error
// text; server errors carry a fixed message and are logged instead.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	message := err.Error()
	switch {
	case status == http.StatusServiceUnavailable:
		message = "service temporarily unavailable"
		w.Header().Set("Retry-After", "1")
	case status >= http.StatusInternalServerError:
		message = "internal error"
	}
	if status >= http.StatusInternalServerError {
		slog.Error("http_request_failed",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}
	writeJSON(w, status, map[string]string{"error": message})
}
