package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nyayasetu/legal-rag/internal/core/domain"
	"github.com/nyayasetu/legal-rag/internal/core/ports"
)

// IngestObserver receives the outcome of each ingestion run.
type IngestObserver interface {
	ObserveIngest(files, chunks int, elapsed time.Duration, err error)
}

type IngestOptions struct {
	EmbedBatchSize int
}

func (o IngestOptions) normalize() IngestOptions {
	out := o
	if out.EmbedBatchSize <= 0 {
		out.EmbedBatchSize = 32
	}
	return out
}

// IngestUseCase turns a directory of PDFs into an indexed chunk collection.
// At most one ingestion runs at a time; a second concurrent call fails with
// ErrIngestInProgress instead of queueing.
type IngestUseCase struct {
	extractor ports.PageExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
	index     ports.VectorIndex
	catalog   ports.CorpusCatalog
	opts      IngestOptions
	observer  IngestObserver

	mu sync.Mutex
}

func NewIngestUseCase(
	extractor ports.PageExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
	index ports.VectorIndex,
	catalog ports.CorpusCatalog,
	opts IngestOptions,
	observer IngestObserver,
) *IngestUseCase {
	return &IngestUseCase{
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
		index:     index,
		catalog:   catalog,
		opts:      opts.normalize(),
		observer:  observer,
	}
}

// IngestCorpus ingests every PDF under sourceDir. Without force it is a no-op
// on an already populated collection, returning the existing count. With
// force the collection is dropped and rebuilt from the current corpus only.
func (uc *IngestUseCase) IngestCorpus(ctx context.Context, sourceDir string, force bool) (int, error) {
	if !uc.mu.TryLock() {
		return 0, domain.WrapError(domain.ErrIngestInProgress, "ingest corpus", errors.New("another ingestion holds the collection"))
	}
	defer uc.mu.Unlock()

	start := time.Now()
	files, chunks, err := uc.ingest(ctx, sourceDir, force)
	if uc.observer != nil {
		uc.observer.ObserveIngest(files, chunks, time.Since(start), err)
	}
	return chunks, err
}

func (uc *IngestUseCase) ingest(ctx context.Context, sourceDir string, force bool) (int, int, error) {
	paths, err := listPDFs(sourceDir)
	if err != nil {
		return 0, 0, err
	}

	existing, err := uc.index.Count(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("count collection: %w", err)
	}
	if existing > 0 && !force {
		slog.Info("collection already populated, skipping ingestion", "chunks", existing)
		return 0, existing, nil
	}
	if force {
		if err := uc.index.Reset(ctx); err != nil {
			return 0, 0, fmt.Errorf("reset collection: %w", err)
		}
		if err := uc.catalog.Clear(ctx); err != nil {
			slog.Warn("clear corpus catalog failed", "error", err)
		}
	}

	if len(paths) == 0 {
		slog.Warn("no pdf files found in corpus directory", "dir", sourceDir)
		return 0, 0, nil
	}

	chunks := uc.collectChunks(ctx, paths)
	if len(chunks) == 0 {
		slog.Warn("corpus yielded no extractable text", "dir", sourceDir, "files", len(paths))
		return len(paths), 0, nil
	}

	if err := uc.embedAndIndex(ctx, chunks); err != nil {
		return len(paths), 0, err
	}

	slog.Info("corpus ingested", "files", len(paths), "chunks", len(chunks))
	return len(paths), len(chunks), nil
}

// collectChunks extracts and chunks every file. A file that cannot be read is
// logged, recorded as failed, and skipped; it never aborts the batch.
func (uc *IngestUseCase) collectChunks(ctx context.Context, paths []string) []domain.Chunk {
	var chunks []domain.Chunk
	for _, path := range paths {
		name := filepath.Base(path)

		pages, err := uc.extractor.Extract(ctx, path)
		if err != nil {
			slog.Error("pdf extraction failed, skipping file", "file", name, "error", err)
			uc.recordFile(ctx, name, 0, 0, domain.FileFailed, err)
			continue
		}

		fileChunks := 0
		for _, page := range pages {
			for _, text := range uc.chunker.Split(page.Text) {
				chunks = append(chunks, domain.NewChunk(uuid.NewString(), name, page.Number, text))
				fileChunks++
			}
		}

		status := domain.FileIngested
		if fileChunks == 0 {
			status = domain.FileSkipped
		}
		uc.recordFile(ctx, name, len(pages), fileChunks, status, nil)
	}
	return chunks
}

func (uc *IngestUseCase) embedAndIndex(ctx context.Context, chunks []domain.Chunk) error {
	batchSize := uc.opts.EmbedBatchSize
	for start := 0; start < len(chunks); start += batchSize {
		end := start + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Text
		}

		vectors, err := uc.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed chunk batch: %w", err)
		}
		if len(vectors) != len(batch) {
			return domain.WrapError(
				domain.ErrInvalidInput,
				"embed chunk batch",
				fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(batch)),
			)
		}

		if err := uc.index.Upsert(ctx, batch, vectors); err != nil {
			return fmt.Errorf("index chunk batch: %w", err)
		}
	}
	return nil
}

// recordFile is bookkeeping only; catalog failures never fail ingestion.
func (uc *IngestUseCase) recordFile(ctx context.Context, name string, pages, chunks int, status domain.FileStatus, cause error) {
	now := time.Now().UTC()
	file := &domain.CorpusFile{
		ID:        uuid.NewString(),
		Filename:  name,
		Pages:     pages,
		Chunks:    chunks,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if cause != nil {
		file.Error = cause.Error()
	}
	if err := uc.catalog.RecordFile(ctx, file); err != nil {
		slog.Warn("record corpus file failed", "file", name, "error", err)
	}
}

func listPDFs(sourceDir string) ([]string, error) {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCorpusMissing, "read corpus directory", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			paths = append(paths, filepath.Join(sourceDir, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
