package ollama

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/drhp-retrieval/internal/core/domain"
	"github.com/kirillkom/drhp-retrieval/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL string, timeout time.Duration, executor *resilience.Executor) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

func (c *Client) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	if c.executor == nil {
		return fn(ctx)
	}
	return c.executor.Execute(ctx, operation, fn, classifyOllamaError)
}

// Embedder turns chunk and question text into vectors with one shared model.
// The model is checked on first use. A successful check is kept until Ollama
// reports the model missing; a failed one is retried on the next call.
type Embedder struct {
	client *Client
	model  string

	mu    sync.Mutex
	ready bool
}

func NewEmbedder(client *Client, model string) *Embedder {
	return &Embedder{client: client, model: model}
}

func (e *Embedder) Model() string {
	return e.model
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := e.ensureModel(ctx); err != nil {
		return nil, err
	}

	request := map[string]any{
		"model": e.model,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	err := e.client.call(ctx, "ollama.embed", func(callCtx context.Context) error {
		return statusError("ollama.embed", e.model, e.client.postJSON(callCtx, "/api/embed", request, &response, "embed"))
	})
	if err != nil {
		if domain.IsKind(err, domain.ErrEmbeddingUnavailable) {
			e.forgetModel()
		}
		return nil, wrapTemporaryIfNeeded("ollama.embed", err)
	}
	if len(response.Embeddings) != len(texts) {
		return nil, domain.WrapError(
			domain.ErrInvalidInput,
			"ollama.embed",
			fmt.Errorf("got %d vectors for %d texts", len(response.Embeddings), len(texts)),
		)
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

func (e *Embedder) ensureModel(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ready {
		return nil
	}

	request := map[string]any{"model": e.model}
	var response struct {
		Details map[string]any `json:"details"`
	}
	err := e.client.call(ctx, "ollama.show", func(callCtx context.Context) error {
		return statusError("ollama.show", e.model, e.client.postJSON(callCtx, "/api/show", request, &response, "show"))
	})
	switch {
	case err == nil:
		e.ready = true
		return nil
	case domain.IsKind(err, domain.ErrEmbeddingUnavailable):
		return err
	default:
		return domain.WrapError(domain.ErrEmbeddingUnavailable, "ollama.show", err)
	}
}

// forgetModel makes the next call check the model again, e.g. after it was
// removed from the Ollama host.
func (e *Embedder) forgetModel() {
	e.mu.Lock()
	e.ready = false
	e.mu.Unlock()
}
