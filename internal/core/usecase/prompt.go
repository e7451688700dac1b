package usecase

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/nyayasetu/legal-rag/internal/core/domain"
)

// minQuestionRunes bounds how far an oversized question is trimmed before
// the builder gives up and ships it as is.
const minQuestionRunes = 16

// TokenCounter reports how many model tokens a string costs. The concrete
// counter is injected so the core does not depend on a tokenizer library.
type TokenCounter func(text string) int

// PromptBuilder assembles a bounded instruction prompt from retrieved chunks,
// optional external snippets, and the question. Source blocks are numbered so
// generated citations stay traceable to the answer's source list.
type PromptBuilder struct {
	maxInputTokens int
	snippetChars   int
	countTokens    TokenCounter
}

func NewPromptBuilder(maxInputTokens, snippetChars int, counter TokenCounter) *PromptBuilder {
	if counter == nil {
		counter = ApproximateTokens
	}
	return &PromptBuilder{
		maxInputTokens: maxInputTokens,
		snippetChars:   snippetChars,
		countTokens:    counter,
	}
}

// ApproximateTokens is the fallback counter when no tokenizer is available:
// roughly four characters per token for English text.
func ApproximateTokens(text string) int {
	return len(text)/4 + 1
}

const promptInstructions = `You are a legal information assistant. Answer the question using only the context below.
If the context does not contain enough information to answer, say so explicitly.
Cite the document a statement comes from. Do not invent facts that are not in the context.`

func (b *PromptBuilder) Build(question string, chunks []domain.RetrievedChunk, extra []domain.WebSnippet) string {
	var sb strings.Builder
	sb.WriteString(promptInstructions)
	sb.WriteString("\n\nContext:\n")

	used := b.countTokens(sb.String())
	suffix := "\nQuestion: " + question + "\nAnswer:"
	budget := b.maxInputTokens - b.countTokens(suffix)

	// A pasted wall of text as the question can eat the whole window and push
	// the budget negative. Halve the question until context blocks fit again
	// rather than shipping an oversized prompt with no context.
	for budget <= used && utf8.RuneCountInString(question) > minQuestionRunes {
		question = truncateRunes(question, utf8.RuneCountInString(question)/2)
		suffix = "\nQuestion: " + question + "\nAnswer:"
		budget = b.maxInputTokens - b.countTokens(suffix)
	}

	for i, chunk := range chunks {
		block := fmt.Sprintf("Document %d from %s (Page %d):\n%s\n\n",
			i+1, chunk.Source, chunk.Page, truncateRunes(chunk.Text, b.snippetChars))
		cost := b.countTokens(block)
		if used+cost > budget {
			break
		}
		sb.WriteString(block)
		used += cost
	}

	for i, snippet := range extra {
		block := fmt.Sprintf("External source %d (%s):\n%s\n\n",
			i+1, snippet.Source, truncateRunes(snippet.Snippet, b.snippetChars))
		cost := b.countTokens(block)
		if used+cost > budget {
			break
		}
		sb.WriteString(block)
		used += cost
	}

	sb.WriteString(suffix)
	return sb.String()
}

func truncateRunes(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return strings.TrimSpace(string(runes[:limit]))
}
