package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/nyayasetu/legal-rag/internal/config"
	"github.com/nyayasetu/legal-rag/internal/core/ports"
	"github.com/nyayasetu/legal-rag/internal/core/usecase"
	"github.com/nyayasetu/legal-rag/internal/infrastructure/chunking"
	pdfextractor "github.com/nyayasetu/legal-rag/internal/infrastructure/extractor/pdf"
	"github.com/nyayasetu/legal-rag/internal/infrastructure/llm/ollama"
	"github.com/nyayasetu/legal-rag/internal/infrastructure/llm/tokens"
	natsqueue "github.com/nyayasetu/legal-rag/internal/infrastructure/queue/nats"
	"github.com/nyayasetu/legal-rag/internal/infrastructure/repository/postgres"
	"github.com/nyayasetu/legal-rag/internal/infrastructure/resilience"
	"github.com/nyayasetu/legal-rag/internal/infrastructure/vector/qdrant"
	"github.com/nyayasetu/legal-rag/internal/infrastructure/websearch"
	"github.com/nyayasetu/legal-rag/internal/observability/metrics"
)

type App struct {
	Config config.Config

	Queue   ports.ReingestQueue
	Catalog ports.CorpusReader

	IngestUC ports.CorpusIngestor
	QueryUC  ports.QuestionAnswerer

	Metrics  *metrics.HTTPServerMetrics
	Pipeline *metrics.PipelineMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	catalog := postgres.NewCorpusRepository(db)
	if err := catalog.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := natsqueue.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, natsqueue.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, executor)
	embedder := ollama.NewEmbedder(ollamaClient, cfg.EmbedRatePerSec)
	generator := ollama.NewGenerator(ollamaClient, ollama.GenOptions{
		Temperature:   cfg.Temperature,
		TopP:          cfg.TopP,
		RepeatPenalty: cfg.RepeatPenalty,
		MaxTokens:     cfg.MaxOutputTokens,
	})

	vectorIndex := qdrant.New(cfg.QdrantURL, cfg.Collection, executor)

	chunker, err := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap, cfg.MinChunkChars)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("init splitter: %w", err)
	}

	extractor := pdfextractor.NewExtractor()

	counter, err := tokens.NewCounter(cfg.TokenEncoding)
	if err != nil {
		slog.Warn("token encoding unavailable, using approximate counter", "encoding", cfg.TokenEncoding, "error", err)
		counter = nil
	}
	prompts := usecase.NewPromptBuilder(cfg.MaxInputTokens, cfg.ChunkSnippetChars, counter)

	var searcher ports.SnippetSearcher = websearch.NewDisabled()

	httpMetrics := metrics.NewHTTPServerMetrics(service)
	pipeline := metrics.NewPipelineMetrics(service, httpMetrics.Registry())

	ingestUC := usecase.NewIngestUseCase(
		extractor,
		chunker,
		embedder,
		vectorIndex,
		catalog,
		usecase.IngestOptions{EmbedBatchSize: cfg.EmbedBatchSize},
		pipeline,
	)
	queryUC := usecase.NewQueryUseCase(
		embedder,
		vectorIndex,
		generator,
		searcher,
		prompts,
		usecase.QueryOptions{
			TopKDefault:        cfg.TopKDefault,
			TopKMax:            cfg.TopKMax,
			MinWordLen:         cfg.MinWordLen,
			AnswerMinOverlap:   cfg.AnswerMinOverlap,
			SourceSnippetChars: cfg.SourceSnippetChars,
			WebSnippets:        cfg.WebSnippetsCount,
		},
		pipeline,
	)

	return &App{
		Config:  cfg,
		Queue:   queue,
		Catalog: catalog,

		IngestUC: ingestUC,
		QueryUC:  queryUC,

		Metrics:  httpMetrics,
		Pipeline: pipeline,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
