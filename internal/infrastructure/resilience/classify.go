package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/kanugurajesh/Assistly/internal/core/domain"
)

// HTTPStatusError is a non-2xx answer from an upstream HTTP backend.
type HTTPStatusError struct {
	Backend    string
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "upstream status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("%s %s status: %s", e.Backend, e.Operation, e.Status)
	}
	return fmt.Sprintf("%s %s status: %s: %s", e.Backend, e.Operation, e.Status, strings.TrimSpace(e.Body))
}

// NewHTTPStatusError reads at most 2 KiB of resp.Body into the error.
func NewHTTPStatusError(backend, operation string, resp *http.Response) *HTTPStatusError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &HTTPStatusError{
		Backend:    backend,
		Operation:  operation,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(body),
	}
}

// IsRetryableHTTPStatus reports whether statusCode is worth retrying.
func IsRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// ClassifyHTTPError is the classifier shared by the HTTP backends. statusOf
// extracts a status code from backend-specific error types; it may be nil.
func ClassifyHTTPError(statusOf func(error) (int, bool)) ErrorClassifier {
	return func(err error) ErrorClassification {
		if err == nil {
			return ErrorClassification{}
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return ErrorClassification{Retryable: false, RecordFailure: false}
		}
		if IsCircuitOpen(err) {
			return ErrorClassification{Retryable: true, RecordFailure: true}
		}

		code, ok := 0, false
		var statusErr *HTTPStatusError
		if errors.As(err, &statusErr) {
			code, ok = statusErr.StatusCode, true
		} else if statusOf != nil {
			code, ok = statusOf(err)
		}
		if ok {
			if IsRetryableHTTPStatus(code) {
				return ErrorClassification{Retryable: true, RecordFailure: true}
			}
			return ErrorClassification{Retryable: false, RecordFailure: false}
		}

		var netErr net.Error
		if errors.As(err, &netErr) {
			return ErrorClassification{Retryable: true, RecordFailure: true}
		}
		return ErrorClassification{Retryable: false, RecordFailure: true}
	}
}

// WrapTemporary tags err as domain.ErrTemporary when classifier considers it
// retryable or the breaker rejected the call.
func WrapTemporary(operation string, err error, classifier ErrorClassifier) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classifier == nil {
		classifier = defaultClassifier
	}
	if classifier(err).Retryable || IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}
