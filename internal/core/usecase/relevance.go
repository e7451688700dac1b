package usecase

import (
	"strings"
	"unicode"

	"github.com/nyayasetu/legal-rag/internal/core/domain"
)

// Lexical relevance is used twice: to filter retrieval candidates before
// truncating to top-k, and to check that a generated answer ties back to the
// question. The word-length cutoff and overlap ratio are tuning knobs, not
// correctness logic.

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// questionKeywords returns the distinct lowercase question words longer than
// minWordLen, in question order.
func questionKeywords(question string, minWordLen int) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, token := range tokenize(question) {
		if len([]rune(token)) <= minWordLen {
			continue
		}
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		out = append(out, token)
	}
	return out
}

// filterCandidates keeps candidates containing at least one question keyword.
// Questions of two tokens or fewer bypass the filter entirely: lexical
// overlap is unreliable on short queries.
func filterCandidates(question string, candidates []domain.RetrievedChunk, minWordLen int) []domain.RetrievedChunk {
	if len(tokenize(question)) <= 2 {
		return candidates
	}
	keywords := questionKeywords(question, minWordLen)
	if len(keywords) == 0 {
		return candidates
	}

	out := make([]domain.RetrievedChunk, 0, len(candidates))
	for _, candidate := range candidates {
		lower := strings.ToLower(candidate.Text)
		for _, keyword := range keywords {
			if strings.Contains(lower, keyword) {
				out = append(out, candidate)
				break
			}
		}
	}
	return out
}

// answerTiesBack reports whether the answer shares enough question keywords
// to be presented as an answer to this question. Zero hits always fails;
// above that the hit ratio must reach minOverlap.
func answerTiesBack(question, answer string, minWordLen int, minOverlap float64) bool {
	keywords := questionKeywords(question, minWordLen)
	if len(keywords) == 0 {
		return true
	}

	lower := strings.ToLower(answer)
	hits := 0
	for _, keyword := range keywords {
		if strings.Contains(lower, keyword) {
			hits++
		}
	}
	if hits == 0 {
		return false
	}
	return float64(hits)/float64(len(keywords)) >= minOverlap
}
