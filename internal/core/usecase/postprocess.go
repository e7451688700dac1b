package usecase

import (
	"sort"
	"strings"
)

const sentenceNoiseFloor = 10

// Fallback answers for each terminal state of the query path. The system
// never returns raw model output it cannot tie back to the question.
const (
	answerNoKnowledge = "I couldn't find information about this topic in the ingested documents. " +
		"The corpus may be empty or may not cover this area. Try ingesting relevant documents first."

	answerNotFound = "I couldn't find a reliable answer to this question in the available documents. " +
		"Please try rephrasing your question with more specific terms."

	answerLowDetail = "The documents touch on this topic, but I couldn't extract enough specific detail " +
		"to give a complete answer. Try asking about a narrower aspect of the topic, or rephrase the " +
		"question with the exact terms you are interested in."

	answerGenerationFailed = "Something went wrong while generating the answer. " +
		"The relevant passages found in the documents are listed as sources below; please try again."
)

// splitSentences splits on sentence terminators, keeping non-empty trimmed
// sentences.
func splitSentences(text string) []string {
	var out []string
	var current strings.Builder
	for _, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(current.String()); s != "" {
				out = append(out, s)
			}
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		out = append(out, s)
	}
	return out
}

// sentenceFingerprint is a cheap near-duplicate key: the sorted set of the
// sentence's first few distinct lowercase words. Reworded repetitions of the
// same opening collapse to one fingerprint.
func sentenceFingerprint(sentence string) string {
	const fingerprintWords = 5
	seen := make(map[string]struct{})
	var words []string
	for _, token := range tokenize(sentence) {
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		words = append(words, token)
		if len(words) == fingerprintWords {
			break
		}
	}
	sort.Strings(words)
	return strings.Join(words, " ")
}

// dedupeSentences drops repeated sentences and sub-noise-floor fragments,
// preserving first-occurrence order.
func dedupeSentences(text string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, sentence := range splitSentences(text) {
		if len([]rune(sentence)) < sentenceNoiseFloor {
			continue
		}
		fingerprint := sentenceFingerprint(sentence)
		if _, ok := seen[fingerprint]; ok {
			continue
		}
		seen[fingerprint] = struct{}{}
		out = append(out, sentence)
	}
	return out
}
