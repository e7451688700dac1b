package chunking

import (
	"fmt"
	"strings"
)

// Splitter windows text into overlapping character chunks. The right edge of
// each window snaps back to the last sentence or line boundary, but only when
// that boundary sits past half the window, so a boundary-dense stretch cannot
// produce degenerate tiny chunks. Trimmed chunks shorter than minChars are
// dropped.
type Splitter struct {
	chunkSize int
	overlap   int
	minChars  int
}

func NewSplitter(chunkSize, overlap, minChars int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("overlap must not be negative, got %d", overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("overlap (%d) must be smaller than chunk size (%d)", overlap, chunkSize)
	}
	if minChars <= 0 {
		minChars = 50
	}
	return &Splitter{
		chunkSize: chunkSize,
		overlap:   overlap,
		minChars:  minChars,
	}, nil
}

func (s *Splitter) Split(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	out := make([]string, 0, len(runes)/s.chunkSize+1)
	start := 0
	for start < len(runes) {
		end := start + s.chunkSize
		if end >= len(runes) {
			end = len(runes)
		} else if snap := lastBoundary(runes, start, end); snap > start+s.chunkSize/2 {
			end = snap
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if len([]rune(chunk)) >= s.minChars {
			out = append(out, chunk)
		}

		if end == len(runes) {
			break
		}
		next := end - s.overlap
		if next <= start {
			// Boundary snapping plus a large overlap can stall the window.
			next = end
		}
		start = next
	}
	return out
}

// lastBoundary returns the position just after the last period or newline
// inside (start, end), or -1 when the window has none.
func lastBoundary(runes []rune, start, end int) int {
	for i := end - 1; i > start; i-- {
		if runes[i] == '.' || runes[i] == '\n' {
			return i + 1
		}
	}
	return -1
}
