package pdf

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/nyayasetu/legal-rag/internal/core/domain"
)

// Extractor pulls plain text per page from a PDF file. Pages whose extracted
// text is empty or whitespace-only are skipped without error.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, path string) ([]domain.Page, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	total := reader.NumPage()
	pages := make([]domain.Page, 0, total)
	for number := 1; number <= total; number++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := pageText(reader, number)
		if err != nil {
			// Page-local failure: the rest of the file is still usable.
			slog.Warn("pdf page extraction failed",
				"path", path,
				"page", number,
				"error", err,
			)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, domain.Page{Number: number, Text: text})
	}
	return pages, nil
}

// pageText isolates the library call: it panics on some malformed content
// streams, and a bad page must not take down the whole ingestion batch.
func pageText(reader *pdf.Reader, number int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("page content panic: %v", r)
		}
	}()

	page := reader.Page(number)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}
