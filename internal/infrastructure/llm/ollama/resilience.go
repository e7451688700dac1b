package ollama

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/nyayasetu/legal-rag/internal/core/domain"
	"github.com/nyayasetu/legal-rag/internal/infrastructure/resilience"
)

// The two model-server calls fail differently. Embeddings are cheap and
// idempotent, so any transient status is worth an in-place retry. A full
// generation is the expensive leg of a question; reissuing it against a
// struggling server mostly burns the request deadline, so only statuses that
// clear quickly are retried and server faults feed the breaker instead.
var (
	embedRetryStatuses = map[int]bool{
		http.StatusRequestTimeout:      true,
		http.StatusTooManyRequests:     true,
		http.StatusInternalServerError: true,
		http.StatusBadGateway:          true,
		http.StatusServiceUnavailable:  true,
		http.StatusGatewayTimeout:      true,
	}
	generateRetryStatuses = map[int]bool{
		http.StatusTooManyRequests:    true,
		http.StatusServiceUnavailable: true,
	}
)

func classifierFor(operation string) resilience.ErrorClassifier {
	if operation == opGenerate {
		return classifyGenerateError
	}
	return classifyEmbedError
}

func classifyEmbedError(err error) resilience.ErrorClassification {
	return classifyModelError(err, embedRetryStatuses)
}

func classifyGenerateError(err error) resilience.ErrorClassification {
	return classifyModelError(err, generateRetryStatuses)
}

func classifyModelError(err error, retryable map[int]bool) resilience.ErrorClassification {
	switch {
	case err == nil:
		return resilience.ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// The caller gave up. Neither a retry nor a breaker hit.
		return resilience.ErrorClassification{}
	case resilience.IsCircuitOpen(err):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if retryable[statusErr.StatusCode] {
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		}
		// A 4xx is the request's fault and proves the server is up. Server
		// faults count against the breaker even when not worth retrying.
		return resilience.ErrorClassification{
			RecordFailure: statusErr.StatusCode >= http.StatusInternalServerError,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{RecordFailure: true}
}

// wrapTemporaryIfNeeded marks retryable and breaker failures as temporary so
// the transport layer can answer 503 instead of 500.
func wrapTemporaryIfNeeded(operation string, err error) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classifierFor(operation)(err).Retryable || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return err
}

type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "ollama status error"
	}
	msg := fmt.Sprintf("ollama %s status: %s", e.Operation, e.Status)
	if body := strings.TrimSpace(e.Body); body != "" {
		msg += ": " + body
	}
	return msg
}
