package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nyayasetu/legal-rag/internal/core/domain"
	"github.com/nyayasetu/legal-rag/internal/core/ports"
)

// Terminal states of the query path, exported to the pipeline metrics.
const (
	OutcomeAnswered         = "answered"
	OutcomeNoKnowledge      = "no_knowledge"
	OutcomeIrrelevant       = "irrelevant"
	OutcomeLowDetail        = "low_detail"
	OutcomeGenerationFailed = "generation_failed"
)

// QueryObserver receives the terminal state of each query. Implementations
// must be safe for concurrent use.
type QueryObserver interface {
	ObserveQuery(outcome string, retrieved int, elapsed time.Duration)
}

type QueryOptions struct {
	TopKDefault int
	TopKMax     int

	MinWordLen       int
	AnswerMinOverlap float64

	SourceSnippetChars int
	WebSnippets        int
	MinSentences       int
}

func (o QueryOptions) normalize() QueryOptions {
	out := o
	if out.TopKDefault <= 0 {
		out.TopKDefault = 3
	}
	if out.TopKMax <= 0 {
		out.TopKMax = 5
	}
	if out.MinWordLen <= 0 {
		out.MinWordLen = 3
	}
	if out.AnswerMinOverlap <= 0 {
		out.AnswerMinOverlap = 0.3
	}
	if out.SourceSnippetChars <= 0 {
		out.SourceSnippetChars = 200
	}
	if out.WebSnippets <= 0 {
		out.WebSnippets = 3
	}
	if out.MinSentences <= 0 {
		out.MinSentences = 2
	}
	return out
}

// QueryUseCase answers one question per call. It holds no per-query state, so
// concurrent calls are independent.
type QueryUseCase struct {
	embedder  ports.Embedder
	index     ports.VectorIndex
	generator ports.AnswerGenerator
	searcher  ports.SnippetSearcher
	prompts   *PromptBuilder
	opts      QueryOptions
	observer  QueryObserver
}

func NewQueryUseCase(
	embedder ports.Embedder,
	index ports.VectorIndex,
	generator ports.AnswerGenerator,
	searcher ports.SnippetSearcher,
	prompts *PromptBuilder,
	opts QueryOptions,
	observer QueryObserver,
) *QueryUseCase {
	return &QueryUseCase{
		embedder:  embedder,
		index:     index,
		generator: generator,
		searcher:  searcher,
		prompts:   prompts,
		opts:      opts.normalize(),
		observer:  observer,
	}
}

func (uc *QueryUseCase) CollectionSize(ctx context.Context) (int, error) {
	count, err := uc.index.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count collection: %w", err)
	}
	return count, nil
}

func (uc *QueryUseCase) Answer(
	ctx context.Context,
	question string,
	topK int,
	useWebSearch bool,
) (*domain.Answer, error) {
	start := time.Now()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "answer question", errors.New("empty question"))
	}
	topK = uc.clampTopK(topK)

	candidates, err := uc.retrieve(ctx, question, topK)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		// The index had nothing at all, which is distinct from candidates
		// being filtered away.
		return uc.finish(start, &domain.Answer{
			Text:    answerNoKnowledge,
			Sources: []domain.Source{},
		}, OutcomeNoKnowledge, 0), nil
	}

	webSnippets, usedWeb := uc.searchExternal(ctx, question, useWebSearch)

	prompt := uc.prompts.Build(question, candidates, webSnippets)
	raw, err := uc.generator.Generate(ctx, prompt)

	var text, outcome string
	if err != nil {
		slog.Error("answer generation failed", "error", err)
		text, outcome = answerGenerationFailed, OutcomeGenerationFailed
	} else {
		text, outcome = uc.clean(raw, question)
	}

	answer := &domain.Answer{
		Text:          text,
		Sources:       uc.sourcesFrom(candidates),
		WebSources:    webSnippets,
		UsedWebSearch: usedWeb,
	}
	return uc.finish(start, answer, outcome, len(candidates)), nil
}

// retrieve over-fetches candidates, applies the lexical filter, and truncates
// to topK. Filtering away every candidate falls back to the unfiltered head:
// an over-aggressive filter must not turn a populated index into an empty
// result.
func (uc *QueryUseCase) retrieve(ctx context.Context, question string, topK int) ([]domain.RetrievedChunk, error) {
	queryVector, err := uc.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	fetch := topK * 2
	if fetch < 10 {
		fetch = 10
	}
	candidates, err := uc.index.Search(ctx, queryVector, fetch)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	kept := filterCandidates(question, candidates, uc.opts.MinWordLen)
	if len(kept) == 0 {
		kept = candidates
	}
	return truncateUnique(kept, topK), nil
}

func (uc *QueryUseCase) searchExternal(ctx context.Context, question string, useWebSearch bool) ([]domain.WebSnippet, bool) {
	if !useWebSearch || uc.searcher == nil {
		return nil, false
	}
	snippets, err := uc.searcher.Search(ctx, question, uc.opts.WebSnippets)
	if err != nil {
		slog.Warn("external snippet search failed", "error", err)
		return nil, false
	}
	return snippets, len(snippets) > 0
}

// clean applies the post-processing contract: sentence dedupe, the lexical
// relevance gate, and the minimum-substance check, in that order.
func (uc *QueryUseCase) clean(raw, question string) (string, string) {
	sentences := dedupeSentences(raw)
	if len(sentences) == 0 {
		return answerNotFound, OutcomeIrrelevant
	}

	cleaned := strings.Join(sentences, " ")
	if !answerTiesBack(question, cleaned, uc.opts.MinWordLen, uc.opts.AnswerMinOverlap) {
		return answerNotFound, OutcomeIrrelevant
	}
	if len(sentences) < uc.opts.MinSentences {
		return answerLowDetail, OutcomeLowDetail
	}
	return cleaned, OutcomeAnswered
}

func (uc *QueryUseCase) sourcesFrom(chunks []domain.RetrievedChunk) []domain.Source {
	out := make([]domain.Source, 0, len(chunks))
	for _, chunk := range chunks {
		out = append(out, domain.Source{
			Source:  chunk.Source,
			Page:    chunk.Page,
			Snippet: truncateRunes(chunk.Text, uc.opts.SourceSnippetChars),
		})
	}
	return out
}

func (uc *QueryUseCase) clampTopK(topK int) int {
	if topK <= 0 {
		return uc.opts.TopKDefault
	}
	if topK > uc.opts.TopKMax {
		return uc.opts.TopKMax
	}
	return topK
}

func (uc *QueryUseCase) finish(start time.Time, answer *domain.Answer, outcome string, retrieved int) *domain.Answer {
	answer.Elapsed = time.Since(start)
	if uc.observer != nil {
		uc.observer.ObserveQuery(outcome, retrieved, answer.Elapsed)
	}
	return answer
}

// truncateUnique drops duplicate chunk ids, then caps the list at topK.
func truncateUnique(chunks []domain.RetrievedChunk, topK int) []domain.RetrievedChunk {
	seen := make(map[string]struct{}, len(chunks))
	out := make([]domain.RetrievedChunk, 0, topK)
	for _, chunk := range chunks {
		if _, ok := seen[chunk.ID]; ok {
			continue
		}
		seen[chunk.ID] = struct{}{}
		out = append(out, chunk)
		if len(out) == topK {
			break
		}
	}
	return out
}
