package ollama

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nyayasetu/legal-rag/internal/core/domain"
	"github.com/nyayasetu/legal-rag/internal/infrastructure/resilience"
)

func statusErr(op string, code int) error {
	return &HTTPStatusError{Operation: op, StatusCode: code, Status: http.StatusText(code)}
}

func TestClassifyEmbedRetriesServerFaults(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		class := classifyEmbedError(statusErr(opEmbed, code))
		if !class.Retryable || !class.RecordFailure {
			t.Fatalf("embed status %d: got %+v, want retryable and recorded", code, class)
		}
	}
	if class := classifyEmbedError(statusErr(opEmbed, 400)); class.Retryable || class.RecordFailure {
		t.Fatalf("embed 400 must be permanent and unrecorded, got %+v", class)
	}
}

func TestClassifyGenerateSkipsExpensiveRetries(t *testing.T) {
	// A failed generation is not reissued on a plain server fault, but the
	// fault still counts toward the breaker.
	for _, code := range []int{500, 502, 504} {
		class := classifyGenerateError(statusErr(opGenerate, code))
		if class.Retryable {
			t.Fatalf("generate status %d must not be retried, got %+v", code, class)
		}
		if !class.RecordFailure {
			t.Fatalf("generate status %d must count toward the breaker, got %+v", code, class)
		}
	}
	for _, code := range []int{429, 503} {
		if class := classifyGenerateError(statusErr(opGenerate, code)); !class.Retryable {
			t.Fatalf("generate status %d should be retried, got %+v", code, class)
		}
	}
}

func TestClassifyCancelledContextIsNeutral(t *testing.T) {
	for _, err := range []error{context.Canceled, context.DeadlineExceeded} {
		if class := classifyEmbedError(err); class.Retryable || class.RecordFailure {
			t.Fatalf("%v: got %+v, want neutral", err, class)
		}
	}
}

func TestWrapTemporaryMarksRetryableFailures(t *testing.T) {
	wrapped := wrapTemporaryIfNeeded(opEmbed, statusErr(opEmbed, 503))
	if !domain.IsKind(wrapped, domain.ErrTemporary) {
		t.Fatalf("retryable embed failure must surface as temporary, got %v", wrapped)
	}
	plain := wrapTemporaryIfNeeded(opGenerate, statusErr(opGenerate, 400))
	if domain.IsKind(plain, domain.ErrTemporary) {
		t.Fatalf("client fault must not be marked temporary, got %v", plain)
	}
}

func TestEmbedRetriesThroughExecutor(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "loading model", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"embeddings":[[0.1,0.2]]}`))
	}))
	defer server.Close()

	exec := resilience.NewExecutor(resilience.Config{Retry: resilience.RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
		Multiplier:     2,
	}})
	embedder := NewEmbedder(New(server.URL, "llama3.1:8b", "nomic-embed-text", exec), 1000)

	vectors, err := embedder.Embed(context.Background(), []string{"annual leave"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(vectors) != 1 {
		t.Fatalf("expected 1 vector, got %d", len(vectors))
	}
	if calls.Load() != 2 {
		t.Fatalf("expected retry after 503, got %d calls", calls.Load())
	}
}
