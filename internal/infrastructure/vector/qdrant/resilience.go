package qdrant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/nyayasetu/legal-rag/internal/core/domain"
	"github.com/nyayasetu/legal-rag/internal/infrastructure/resilience"
)

// Every Qdrant call here is idempotent: upserts carry point IDs, deletes
// tolerate absence, searches are reads. Anything transient is safe to retry.
var retryStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

func classifyQdrantError(err error) resilience.ErrorClassification {
	switch {
	case err == nil:
		return resilience.ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.ErrorClassification{}
	case resilience.IsCircuitOpen(err):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var statusErr *statusError
	if errors.As(err, &statusErr) {
		if retryStatuses[statusErr.statusCode] {
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		}
		return resilience.ErrorClassification{
			RecordFailure: statusErr.statusCode >= http.StatusInternalServerError,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{RecordFailure: true}
}

// wrapTransient marks retryable and breaker failures as temporary so a Qdrant
// blip surfaces as 503, not 500.
func wrapTransient(operation string, err error) error {
	if err == nil || domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	if classifyQdrantError(err).Retryable || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, "qdrant "+operation, err)
	}
	return err
}

type statusError struct {
	operation  string
	statusCode int
	status     string
	body       string
}

func newStatusError(operation string, resp *http.Response) *statusError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &statusError{
		operation:  operation,
		statusCode: resp.StatusCode,
		status:     resp.Status,
		body:       strings.TrimSpace(string(raw)),
	}
}

func (e *statusError) Error() string {
	if e == nil {
		return "qdrant status error"
	}
	msg := fmt.Sprintf("qdrant %s status: %s", e.operation, e.status)
	if e.body != "" {
		msg += ": " + e.body
	}
	return msg
}
