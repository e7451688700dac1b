package domain

import "time"

// RetrievedChunk is one vector-search candidate. Distance is the index's
// similarity distance, ascending = closer.
type RetrievedChunk struct {
	ID       string  `json:"id"`
	Source   string  `json:"source"`
	Page     int     `json:"page"`
	Text     string  `json:"text"`
	Distance float64 `json:"distance"`
}

// Source is a citation snippet attached to an answer.
type Source struct {
	Source  string `json:"source"`
	Page    int    `json:"page"`
	Snippet string `json:"snippet"`
}

// WebSnippet is context supplied by an external snippet provider.
type WebSnippet struct {
	Source  string `json:"source"`
	Snippet string `json:"snippet"`
}

// Answer is the per-query result. Owned by the calling request, never
// persisted.
type Answer struct {
	Text          string        `json:"text"`
	Sources       []Source      `json:"sources"`
	WebSources    []WebSnippet  `json:"web_sources,omitempty"`
	UsedWebSearch bool          `json:"used_web_search"`
	Elapsed       time.Duration `json:"-"`
}
