package ports

import (
	"context"

	"github.com/nyayasetu/legal-rag/internal/core/domain"
)

// CorpusIngestor is the inbound contract for corpus ingestion.
type CorpusIngestor interface {
	IngestCorpus(ctx context.Context, sourceDir string, force bool) (int, error)
}

// QuestionAnswerer is the inbound contract for retrieval-augmented answering.
type QuestionAnswerer interface {
	Answer(ctx context.Context, question string, topK int, useWebSearch bool) (*domain.Answer, error)
	CollectionSize(ctx context.Context) (int, error)
}

// CorpusReader is the inbound read model for ingested file state.
type CorpusReader interface {
	ListFiles(ctx context.Context) ([]domain.CorpusFile, error)
}
