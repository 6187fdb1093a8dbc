package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrTemporary         = errors.New("temporary failure")
	ErrConfiguration     = errors.New("configuration error")
	ErrMalformedResponse = errors.New("malformed model response")
	ErrGenerationFailed  = errors.New("answer generation failed")
	ErrSessionNotFound   = errors.New("session not found")
	ErrCorpusUnavailable = errors.New("corpus unavailable")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
