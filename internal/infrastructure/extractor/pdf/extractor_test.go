package pdf

import (
	"context"
	"path/filepath"
	"testing"
)

func TestExtractMissingFile(t *testing.T) {
	extractor := NewExtractor()
	_, err := extractor.Extract(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestExtractCancelledContext(t *testing.T) {
	extractor := NewExtractor()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The file does not exist either, but the call must not panic and must
	// surface an error.
	if _, err := extractor.Extract(ctx, filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Fatalf("expected error")
	}
}
