package domain

import (
	"strings"
	"time"
)

type FileStatus string

const (
	FileIngested FileStatus = "ingested"
	FileSkipped  FileStatus = "skipped"
	FileFailed   FileStatus = "failed"
)

// Page is one extracted PDF page. Pages live only between extraction and
// chunking; they are never persisted on their own.
type Page struct {
	Number int
	Text   string
}

// Chunk is the atomic retrieval unit. Created at ingestion, stored in the
// vector index, never mutated afterwards.
type Chunk struct {
	ID        string `json:"id"`
	Source    string `json:"source"`
	Page      int    `json:"page"`
	Text      string `json:"text"`
	WordCount int    `json:"word_count"`
	CharCount int    `json:"char_count"`
}

func NewChunk(id, source string, page int, text string) Chunk {
	return Chunk{
		ID:        id,
		Source:    source,
		Page:      page,
		Text:      text,
		WordCount: len(strings.Fields(text)),
		CharCount: len(text),
	}
}

// CorpusFile is the catalog record for one source file of an ingestion run.
type CorpusFile struct {
	ID        string     `json:"id"`
	Filename  string     `json:"filename"`
	Pages     int        `json:"pages"`
	Chunks    int        `json:"chunks"`
	Status    FileStatus `json:"status"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
