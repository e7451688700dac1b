package ports

import (
	"context"

	"github.com/nyayasetu/legal-rag/internal/core/domain"
)

// PageExtractor pulls raw text per page from a source file.
type PageExtractor interface {
	Extract(ctx context.Context, path string) ([]domain.Page, error)
}

// Chunker splits page text into overlapping windows.
type Chunker interface {
	Split(text string) []string
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex owns chunk storage and nearest-neighbor search.
type VectorIndex interface {
	Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error
	Search(ctx context.Context, queryVector []float32, limit int) ([]domain.RetrievedChunk, error)
	Count(ctx context.Context) (int, error)
	Reset(ctx context.Context) error
}

// AnswerGenerator runs an assembled prompt through the generation model.
type AnswerGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// SnippetSearcher supplies optional external context snippets. Implementations
// may be disabled; the pipeline never depends on one being present.
type SnippetSearcher interface {
	Search(ctx context.Context, query string, n int) ([]domain.WebSnippet, error)
}

// CorpusCatalog records per-file ingestion outcomes.
type CorpusCatalog interface {
	RecordFile(ctx context.Context, file *domain.CorpusFile) error
	ListFiles(ctx context.Context) ([]domain.CorpusFile, error)
	Clear(ctx context.Context) error
}

// ReingestQueue publishes/consumes force-reingestion requests.
type ReingestQueue interface {
	PublishReingestRequested(ctx context.Context, corpusDir string) error
	SubscribeReingestRequested(ctx context.Context, handler func(context.Context, string) error) error
}
