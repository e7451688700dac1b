package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/nyayasetu/legal-rag/internal/core/domain"
	"github.com/nyayasetu/legal-rag/internal/infrastructure/resilience"
)

// Client stores chunk vectors in one Qdrant collection. The collection is
// created lazily on first upsert (get_or_create); Reset drops it and lets the
// next upsert recreate it, so a query racing a reset sees an absent
// collection (empty results), never a half-deleted one.
type Client struct {
	baseURL    string
	collection string
	httpClient *http.Client
	executor   *resilience.Executor

	ensureMu          sync.Mutex
	ensuredCollection bool
	ensuredVectorSize int
}

func New(baseURL, collection string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		executor:   executor,
	}
}

func (c *Client) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) == 0 || len(vectors) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunks/vectors mismatch: %d/%d", len(chunks), len(vectors))
	}

	if err := c.ensureCollection(ctx, len(vectors[0])); err != nil {
		return err
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	points := make([]point, 0, len(chunks))
	for i, chunk := range chunks {
		points = append(points, point{
			ID:     chunk.ID,
			Vector: vectors[i],
			Payload: map[string]any{
				"source":     chunk.Source,
				"page":       chunk.Page,
				"text":       chunk.Text,
				"word_count": chunk.WordCount,
			},
		})
	}

	body, err := json.Marshal(map[string]any{"points": points})
	if err != nil {
		return fmt.Errorf("marshal upsert body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, c.collection)
	err = c.do(ctx, "upsert", http.MethodPut, url, body, func(resp *http.Response) error {
		if resp.StatusCode >= 300 {
			return newStatusError("upsert", resp)
		}
		return nil
	})
	return wrapTransient("upsert", err)
}

func (c *Client) Search(ctx context.Context, queryVector []float32, limit int) ([]domain.RetrievedChunk, error) {
	body, err := json.Marshal(map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal search body: %w", err)
	}

	var out []domain.RetrievedChunk
	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, c.collection)
	err = c.do(ctx, "search", http.MethodPost, url, body, func(resp *http.Response) error {
		out = nil

		// The collection may not exist yet, or a reset may be in flight.
		// Either way the index holds nothing.
		if resp.StatusCode == http.StatusNotFound {
			return nil
		}
		if resp.StatusCode >= 300 {
			return newStatusError("search", resp)
		}

		var searchResp struct {
			Result []struct {
				ID      string         `json:"id"`
				Score   float64        `json:"score"`
				Payload map[string]any `json:"payload"`
			} `json:"result"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
			return fmt.Errorf("decode search response: %w", err)
		}

		out = make([]domain.RetrievedChunk, 0, len(searchResp.Result))
		for _, r := range searchResp.Result {
			out = append(out, domain.RetrievedChunk{
				ID:     r.ID,
				Source: stringPayload(r.Payload, "source"),
				Page:   intPayload(r.Payload, "page"),
				Text:   stringPayload(r.Payload, "text"),
				// Cosine similarity in [-1,1] mapped to a distance where
				// lower is closer.
				Distance: 1 - r.Score,
			})
		}
		return nil
	})
	if err != nil {
		return nil, wrapTransient("search", err)
	}
	return out, nil
}

func (c *Client) Count(ctx context.Context) (int, error) {
	body, err := json.Marshal(map[string]any{"exact": true})
	if err != nil {
		return 0, fmt.Errorf("marshal count body: %w", err)
	}

	var count int
	url := fmt.Sprintf("%s/collections/%s/points/count", c.baseURL, c.collection)
	err = c.do(ctx, "count", http.MethodPost, url, body, func(resp *http.Response) error {
		count = 0
		if resp.StatusCode == http.StatusNotFound {
			return nil
		}
		if resp.StatusCode >= 300 {
			return newStatusError("count", resp)
		}

		var countResp struct {
			Result struct {
				Count int `json:"count"`
			} `json:"result"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&countResp); err != nil {
			return fmt.Errorf("decode count response: %w", err)
		}
		count = countResp.Result.Count
		return nil
	})
	if err != nil {
		return 0, wrapTransient("count", err)
	}
	return count, nil
}

// Reset drops the collection. Recreation happens on the next upsert, when the
// vector size is known again.
func (c *Client) Reset(ctx context.Context) error {
	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	err := c.do(ctx, "reset", http.MethodDelete, url, nil, func(resp *http.Response) error {
		if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
			return newStatusError("delete collection", resp)
		}
		return nil
	})
	if err != nil {
		return wrapTransient("reset", err)
	}

	c.ensureMu.Lock()
	c.ensuredCollection = false
	c.ensuredVectorSize = 0
	c.ensureMu.Unlock()
	return nil
}

func (c *Client) ensureCollection(ctx context.Context, vectorSize int) error {
	c.ensureMu.Lock()
	if c.ensuredCollection && c.ensuredVectorSize == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	body, err := json.Marshal(map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	})
	if err != nil {
		return fmt.Errorf("marshal create collection body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, c.collection)
	err = c.do(ctx, "ensure", http.MethodPut, url, body, func(resp *http.Response) error {
		// 200/201 for create, 409 when it already exists.
		if resp.StatusCode >= 300 && resp.StatusCode != http.StatusConflict {
			return newStatusError("ensure collection", resp)
		}
		return nil
	})
	if err != nil {
		return wrapTransient("ensure collection", err)
	}

	c.ensureMu.Lock()
	c.ensuredCollection = true
	c.ensuredVectorSize = vectorSize
	c.ensureMu.Unlock()
	return nil
}

// do issues one request through the retry and breaker layer. The accept
// callback runs once per attempt and must reset any captured state before
// writing results.
func (c *Client) do(ctx context.Context, operation, method, url string, body []byte, accept func(*http.Response) error) error {
	call := func(callCtx context.Context) error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(callCtx, method, url, reader)
		if err != nil {
			return fmt.Errorf("create %s request: %w", operation, err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("qdrant %s request: %w", operation, err)
		}
		defer resp.Body.Close()
		return accept(resp)
	}

	if c.executor != nil {
		return c.executor.Execute(ctx, "qdrant."+operation, call, classifyQdrantError)
	}
	return call(ctx)
}

func stringPayload(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func intPayload(payload map[string]any, key string) int {
	switch v := payload[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return 0
	}
}
