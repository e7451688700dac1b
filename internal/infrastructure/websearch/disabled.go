package websearch

import (
	"context"

	"github.com/nyayasetu/legal-rag/internal/core/domain"
)

// Disabled is the default snippet provider: it supplies nothing. A real
// provider plugs in behind the same port; the pipeline treats an empty result
// and a disabled provider identically.
type Disabled struct{}

func NewDisabled() *Disabled {
	return &Disabled{}
}

func (*Disabled) Search(context.Context, string, int) ([]domain.WebSnippet, error) {
	return nil, nil
}
