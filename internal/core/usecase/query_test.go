package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/nyayasetu/legal-rag/internal/core/domain"
)

type embedderFake struct {
	query string
	err   error
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.query = text
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2}, nil
}

type indexFake struct {
	limit     int
	results   []domain.RetrievedChunk
	count     int
	searchErr error
}

func (f *indexFake) Upsert(context.Context, []domain.Chunk, [][]float32) error { return nil }
func (f *indexFake) Search(_ context.Context, _ []float32, limit int) ([]domain.RetrievedChunk, error) {
	f.limit = limit
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.results, nil
}
func (f *indexFake) Count(context.Context) (int, error) { return f.count, nil }
func (f *indexFake) Reset(context.Context) error        { return nil }

type generatorFake struct {
	prompt string
	text   string
	err    error
}

func (f *generatorFake) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

type searcherFake struct {
	snippets []domain.WebSnippet
	err      error
	calls    int
}

func (f *searcherFake) Search(context.Context, string, int) ([]domain.WebSnippet, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.snippets, nil
}

func lawChunks(n int) []domain.RetrievedChunk {
	out := make([]domain.RetrievedChunk, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.RetrievedChunk{
			ID:     "chunk-" + string(rune('a'+i)),
			Source: "labor_law.pdf",
			Page:   i + 1,
			Text:   "Employees are entitled to annual leave under the labor statute.",
		})
	}
	return out
}

func newQueryUC(embedder *embedderFake, index *indexFake, generator *generatorFake, searcher *searcherFake) *QueryUseCase {
	prompts := NewPromptBuilder(512, 400, nil)
	if searcher == nil {
		return NewQueryUseCase(embedder, index, generator, nil, prompts, QueryOptions{}, nil)
	}
	return NewQueryUseCase(embedder, index, generator, searcher, prompts, QueryOptions{}, nil)
}

func TestAnswerDefaultTopKOverFetches(t *testing.T) {
	index := &indexFake{results: lawChunks(3)}
	generator := &generatorFake{text: "Employees are entitled to annual leave. The leave accrues under the labor statute."}
	uc := newQueryUC(&embedderFake{}, index, generator, nil)

	answer, err := uc.Answer(context.Background(), "What annual leave are employees entitled to?", 0, false)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if index.limit != 10 {
		t.Fatalf("expected over-fetch limit=10, got %d", index.limit)
	}
	if len(answer.Sources) != 3 {
		t.Fatalf("expected 3 sources, got %d", len(answer.Sources))
	}
	if answer.Text != "Employees are entitled to annual leave. The leave accrues under the labor statute." {
		t.Fatalf("unexpected answer text: %s", answer.Text)
	}
}

func TestAnswerClampsTopKToMax(t *testing.T) {
	index := &indexFake{results: lawChunks(8)}
	generator := &generatorFake{text: "Employees are entitled to annual leave. Accrual follows the labor statute."}
	uc := newQueryUC(&embedderFake{}, index, generator, nil)

	answer, err := uc.Answer(context.Background(), "What annual leave are employees entitled to?", 50, false)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if len(answer.Sources) != 5 {
		t.Fatalf("expected sources capped at 5, got %d", len(answer.Sources))
	}
}

func TestAnswerEmptyQuestion(t *testing.T) {
	uc := newQueryUC(&embedderFake{}, &indexFake{}, &generatorFake{}, nil)

	_, err := uc.Answer(context.Background(), "   ", 3, false)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAnswerEmptyIndexReturnsNoKnowledge(t *testing.T) {
	generator := &generatorFake{text: "should not be called"}
	uc := newQueryUC(&embedderFake{}, &indexFake{}, generator, nil)

	answer, err := uc.Answer(context.Background(), "What does the statute say about leave?", 3, false)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Text != answerNoKnowledge {
		t.Fatalf("expected no-knowledge answer, got %s", answer.Text)
	}
	if answer.Sources == nil || len(answer.Sources) != 0 {
		t.Fatalf("expected empty non-nil sources, got %#v", answer.Sources)
	}
	if generator.prompt != "" {
		t.Fatalf("generator must not run on an empty index")
	}
}

func TestAnswerFilteredToZeroFallsBackToUnfiltered(t *testing.T) {
	// No candidate contains any question keyword, so the lexical filter
	// drops all of them; retrieval must fall back to the unfiltered head.
	index := &indexFake{results: []domain.RetrievedChunk{
		{ID: "c1", Source: "tax.pdf", Page: 2, Text: "Corporate income is taxed at the standard rate."},
	}}
	generator := &generatorFake{text: "The documents describe corporate taxation rules. Nothing covers maritime salvage procedures."}
	uc := newQueryUC(&embedderFake{}, index, generator, nil)

	answer, err := uc.Answer(context.Background(), "Explain maritime salvage procedures thoroughly", 3, false)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if len(answer.Sources) != 1 {
		t.Fatalf("expected fallback to unfiltered candidate, got %d sources", len(answer.Sources))
	}
}

func TestAnswerDropsDuplicateChunkIDs(t *testing.T) {
	dup := domain.RetrievedChunk{ID: "same", Source: "labor_law.pdf", Page: 1,
		Text: "Employees are entitled to annual leave under the statute."}
	index := &indexFake{results: []domain.RetrievedChunk{dup, dup, dup}}
	generator := &generatorFake{text: "Employees are entitled to annual leave. The entitlement is statutory."}
	uc := newQueryUC(&embedderFake{}, index, generator, nil)

	answer, err := uc.Answer(context.Background(), "What annual leave are employees entitled to?", 3, false)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if len(answer.Sources) != 1 {
		t.Fatalf("expected duplicate ids collapsed to 1 source, got %d", len(answer.Sources))
	}
}

func TestAnswerGenerationFailureFallsBack(t *testing.T) {
	index := &indexFake{results: lawChunks(2)}
	generator := &generatorFake{err: errors.New("model offline")}
	uc := newQueryUC(&embedderFake{}, index, generator, nil)

	answer, err := uc.Answer(context.Background(), "What annual leave are employees entitled to?", 2, false)
	if err != nil {
		t.Fatalf("generation failure must not surface as an error, got %v", err)
	}
	if answer.Text != answerGenerationFailed {
		t.Fatalf("expected generation-failed fallback, got %s", answer.Text)
	}
	if len(answer.Sources) != 2 {
		t.Fatalf("sources must survive a generation failure, got %d", len(answer.Sources))
	}
}

func TestAnswerIrrelevantOutputReplaced(t *testing.T) {
	index := &indexFake{results: lawChunks(1)}
	generator := &generatorFake{text: "Bananas ripen faster in warm climates. Ethylene gas accelerates the ripening."}
	uc := newQueryUC(&embedderFake{}, index, generator, nil)

	answer, err := uc.Answer(context.Background(), "What annual leave are employees entitled to?", 1, false)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Text != answerNotFound {
		t.Fatalf("expected not-found fallback for off-topic output, got %s", answer.Text)
	}
}

func TestAnswerWeakKeywordOverlapReplaced(t *testing.T) {
	index := &indexFake{results: lawChunks(1)}
	// The output mentions one question keyword out of ten. A single lexical
	// hit is not enough to present this as an answer.
	generator := &generatorFake{text: "Employees sometimes relocate for work. Moving costs vary by region."}
	uc := newQueryUC(&embedderFake{}, index, generator, nil)

	answer, err := uc.Answer(context.Background(), "What severance compensation procedures apply when employees face termination dismissal?", 1, false)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Text != answerNotFound {
		t.Fatalf("expected not-found fallback for weak keyword overlap, got %s", answer.Text)
	}
}

func TestQueryOptionsNormalizeAnswerOverlap(t *testing.T) {
	opts := QueryOptions{}.normalize()
	if opts.AnswerMinOverlap != 0.3 {
		t.Fatalf("zero overlap must normalize to 0.3, got %g", opts.AnswerMinOverlap)
	}
	explicit := QueryOptions{AnswerMinOverlap: 0.5}.normalize()
	if explicit.AnswerMinOverlap != 0.5 {
		t.Fatalf("explicit overlap must survive normalize, got %g", explicit.AnswerMinOverlap)
	}
}

func TestAnswerSingleSentenceIsLowDetail(t *testing.T) {
	index := &indexFake{results: lawChunks(1)}
	generator := &generatorFake{text: "Employees are entitled to annual leave."}
	uc := newQueryUC(&embedderFake{}, index, generator, nil)

	answer, err := uc.Answer(context.Background(), "What annual leave are employees entitled to?", 1, false)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Text != answerLowDetail {
		t.Fatalf("expected low-detail fallback, got %s", answer.Text)
	}
}

func TestAnswerSourceSnippetsTruncated(t *testing.T) {
	long := strings.Repeat("annual leave entitlement ", 30)
	index := &indexFake{results: []domain.RetrievedChunk{
		{ID: "c1", Source: "labor_law.pdf", Page: 4, Text: long},
	}}
	generator := &generatorFake{text: "Employees accrue annual leave entitlement monthly. Unused leave entitlement carries over."}
	uc := newQueryUC(&embedderFake{}, index, generator, nil)

	answer, err := uc.Answer(context.Background(), "How does annual leave entitlement accrue?", 1, false)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if got := len([]rune(answer.Sources[0].Snippet)); got > 200 {
		t.Fatalf("snippet exceeds 200 runes: %d", got)
	}
}

func TestAnswerWebSearchUsedWhenEnabled(t *testing.T) {
	index := &indexFake{results: lawChunks(1)}
	generator := &generatorFake{text: "Employees are entitled to annual leave. The entitlement accrues monthly."}
	searcher := &searcherFake{snippets: []domain.WebSnippet{{Source: "gov.example", Snippet: "leave rules"}}}
	uc := newQueryUC(&embedderFake{}, index, generator, searcher)

	answer, err := uc.Answer(context.Background(), "What annual leave are employees entitled to?", 1, true)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if !answer.UsedWebSearch {
		t.Fatalf("expected used_web_search=true")
	}
	if len(answer.WebSources) != 1 {
		t.Fatalf("expected 1 web source, got %d", len(answer.WebSources))
	}
}

func TestAnswerWebSearchFailureIsNonFatal(t *testing.T) {
	index := &indexFake{results: lawChunks(1)}
	generator := &generatorFake{text: "Employees are entitled to annual leave. The entitlement accrues monthly."}
	searcher := &searcherFake{err: errors.New("provider down")}
	uc := newQueryUC(&embedderFake{}, index, generator, searcher)

	answer, err := uc.Answer(context.Background(), "What annual leave are employees entitled to?", 1, true)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.UsedWebSearch {
		t.Fatalf("failed search must not report used_web_search")
	}
}

func TestAnswerWebSearchSkippedWhenDisabled(t *testing.T) {
	index := &indexFake{results: lawChunks(1)}
	generator := &generatorFake{text: "Employees are entitled to annual leave. The entitlement accrues monthly."}
	searcher := &searcherFake{snippets: []domain.WebSnippet{{Source: "gov.example", Snippet: "leave"}}}
	uc := newQueryUC(&embedderFake{}, index, generator, searcher)

	_, err := uc.Answer(context.Background(), "What annual leave are employees entitled to?", 1, false)
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if searcher.calls != 0 {
		t.Fatalf("searcher must not run when web search is off")
	}
}

func TestAnswerEmbedError(t *testing.T) {
	uc := newQueryUC(&embedderFake{err: errors.New("embed fail")}, &indexFake{}, &generatorFake{}, nil)
	if _, err := uc.Answer(context.Background(), "What about leave?", 3, false); err == nil {
		t.Fatalf("expected error")
	}
}

func TestAnswerSearchError(t *testing.T) {
	index := &indexFake{searchErr: errors.New("index down")}
	uc := newQueryUC(&embedderFake{}, index, &generatorFake{}, nil)
	if _, err := uc.Answer(context.Background(), "What about leave?", 3, false); err == nil {
		t.Fatalf("expected error")
	}
}

func TestCollectionSize(t *testing.T) {
	uc := newQueryUC(&embedderFake{}, &indexFake{count: 42}, &generatorFake{}, nil)
	size, err := uc.CollectionSize(context.Background())
	if err != nil {
		t.Fatalf("CollectionSize() error = %v", err)
	}
	if size != 42 {
		t.Fatalf("expected 42, got %d", size)
	}
}
