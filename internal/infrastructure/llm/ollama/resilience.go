package ollama

import (
	"github.com/kanugurajesh/Assistly/internal/infrastructure/resilience"
)

var classifyOllamaError = resilience.ClassifyHTTPError(nil)

func wrapTemporaryIfNeeded(operation string, err error) error {
	return resilience.WrapTemporary(operation, err, classifyOllamaError)
}
