package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/nyayasetu/legal-rag/internal/infrastructure/resilience"
)

const (
	opEmbed    = "embed"
	opGenerate = "generate"
)

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, genModel, embedModel string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

type Embedder struct {
	client  *Client
	limiter *rate.Limiter
}

// NewEmbedder paces embedding calls so a large ingestion batch cannot starve
// concurrent query embeddings on the same model server.
func NewEmbedder(client *Client, callsPerSec float64) *Embedder {
	if callsPerSec <= 0 {
		callsPerSec = 4
	}
	return &Embedder{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(callsPerSec), 1),
	}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.call(ctx, opEmbed, "/api/embed", request, &response); err != nil {
		return nil, err
	}
	if len(response.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embed result mismatch: got %d vectors for %d inputs", len(response.Embeddings), len(texts))
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

// GenOptions are the decoding controls sent with every generation request.
// The repetition penalty above 1 plus nucleus sampling suppress the looping
// output small models tend to produce.
type GenOptions struct {
	Temperature   float64
	TopP          float64
	RepeatPenalty float64
	MaxTokens     int
}

type Generator struct {
	client *Client
	opts   GenOptions
}

func NewGenerator(client *Client, opts GenOptions) *Generator {
	if opts.Temperature <= 0 {
		opts.Temperature = 0.7
	}
	if opts.TopP <= 0 {
		opts.TopP = 0.9
	}
	if opts.RepeatPenalty <= 1 {
		opts.RepeatPenalty = 1.15
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 256
	}
	return &Generator{client: client, opts: opts}
}

func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	request := map[string]any{
		"model":  g.client.genModel,
		"prompt": prompt,
		"stream": false,
		"options": map[string]any{
			"temperature":    g.opts.Temperature,
			"top_p":          g.opts.TopP,
			"repeat_penalty": g.opts.RepeatPenalty,
			"num_predict":    g.opts.MaxTokens,
		},
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := g.client.call(ctx, opGenerate, "/api/generate", request, &response); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func (c *Client) call(ctx context.Context, operation, path string, payload, out any) error {
	do := func(callCtx context.Context) error {
		return c.postJSON(callCtx, path, payload, out, operation)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "ollama."+operation, do, classifierFor(operation))
	} else {
		err = do(ctx)
	}
	return wrapTemporaryIfNeeded(operation, err)
}
