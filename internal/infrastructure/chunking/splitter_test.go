package chunking

import (
	"strings"
	"testing"
	"time"
)

func TestNewSplitterRejectsBadParameters(t *testing.T) {
	if _, err := NewSplitter(0, 0, 50); err == nil {
		t.Fatalf("expected error for zero chunk size")
	}
	if _, err := NewSplitter(500, -1, 50); err == nil {
		t.Fatalf("expected error for negative overlap")
	}
	if _, err := NewSplitter(500, 500, 50); err == nil {
		t.Fatalf("expected error for overlap == chunk size")
	}
	if _, err := NewSplitter(500, 600, 50); err == nil {
		t.Fatalf("expected error for overlap > chunk size")
	}
}

func TestSplitEmptyText(t *testing.T) {
	s, err := NewSplitter(500, 50, 50)
	if err != nil {
		t.Fatalf("NewSplitter() error = %v", err)
	}
	if got := s.Split("   \n  "); got != nil {
		t.Fatalf("expected nil for blank text, got %v", got)
	}
}

func TestSplitShortTextSingleChunk(t *testing.T) {
	s, err := NewSplitter(500, 50, 50)
	if err != nil {
		t.Fatalf("NewSplitter() error = %v", err)
	}
	text := "This single sentence is comfortably above the floor limit."
	got := s.Split(text)
	if len(got) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(got))
	}
	if got[0] != text {
		t.Fatalf("chunk altered: %q", got[0])
	}
}

func TestSplitDropsSubFloorFragments(t *testing.T) {
	s, err := NewSplitter(500, 50, 50)
	if err != nil {
		t.Fatalf("NewSplitter() error = %v", err)
	}
	if got := s.Split("Too short to keep."); len(got) != 0 {
		t.Fatalf("expected sub-floor fragment dropped, got %v", got)
	}
}

func TestSplitChunkLengthBounds(t *testing.T) {
	s, err := NewSplitter(500, 50, 50)
	if err != nil {
		t.Fatalf("NewSplitter() error = %v", err)
	}
	text := strings.Repeat("The statute regulates employment terms in precise detail. ", 100)
	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		n := len([]rune(chunk))
		if n > 500 {
			t.Fatalf("chunk %d exceeds chunk size: %d runes", i, n)
		}
		if n < 50 {
			t.Fatalf("chunk %d below floor: %d runes", i, n)
		}
	}
}

func TestSplitOverlapCarriesText(t *testing.T) {
	s, err := NewSplitter(100, 20, 10)
	if err != nil {
		t.Fatalf("NewSplitter() error = %v", err)
	}
	// No boundary characters, so windows advance by exactly size-overlap.
	text := strings.Repeat("abcdefghij", 30)
	chunks := s.Split(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		prevTail := chunks[i-1][len(chunks[i-1])-20:]
		if !strings.HasPrefix(chunks[i], prevTail) {
			t.Fatalf("chunk %d does not start with the previous tail", i)
		}
	}
}

func TestSplitSnapsToSentenceBoundary(t *testing.T) {
	s, err := NewSplitter(100, 10, 10)
	if err != nil {
		t.Fatalf("NewSplitter() error = %v", err)
	}
	// A period at position 80 sits past half the window, so the first
	// chunk should end there instead of cutting a word at 100.
	text := strings.Repeat("x", 79) + ". " + strings.Repeat("y", 120)
	chunks := s.Split(text)
	if len(chunks) == 0 {
		t.Fatalf("expected chunks")
	}
	if !strings.HasSuffix(chunks[0], ".") {
		t.Fatalf("first chunk should end at the sentence boundary, got %q", chunks[0])
	}
}

func TestSplitIgnoresEarlyBoundary(t *testing.T) {
	s, err := NewSplitter(100, 10, 10)
	if err != nil {
		t.Fatalf("NewSplitter() error = %v", err)
	}
	// The only boundary sits before half the window; snapping there would
	// produce degenerate chunks, so the window must cut at full size.
	text := strings.Repeat("x", 20) + ". " + strings.Repeat("y", 200)
	chunks := s.Split(text)
	if len([]rune(chunks[0])) != 100 {
		t.Fatalf("expected full-size first chunk, got %d runes", len([]rune(chunks[0])))
	}
}

func TestSplitTerminatesOnBoundaryDenseText(t *testing.T) {
	s, err := NewSplitter(100, 80, 10)
	if err != nil {
		t.Fatalf("NewSplitter() error = %v", err)
	}
	// Heavy overlap plus frequent boundaries used to stall the window.
	text := strings.Repeat("Short sentence here. ", 50)
	done := make(chan []string, 1)
	go func() { done <- s.Split(text) }()
	select {
	case chunks := <-done:
		if len(chunks) == 0 {
			t.Fatalf("expected chunks")
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("Split did not terminate")
	}
}
