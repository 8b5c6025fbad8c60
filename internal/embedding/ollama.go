package embedding

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/ollama/ollama/api"
)

// OllamaEmbedder generates embeddings using the Ollama API.
type OllamaEmbedder struct {
	client        *api.Client
	model         string
	dimension     int
	maxRetries    uint
	timeout       time.Duration
	maxConcurrent int
}

// NewOllamaEmbedder creates an embedder against the given Ollama host.
// An empty host falls back to the local default.
func NewOllamaEmbedder(host, model string, dimension int) (*OllamaEmbedder, error) {
	if host == "" {
		host = "http://localhost:11434"
	}
	hostURL, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("parse ollama host: %w", err)
	}

	return &OllamaEmbedder{
		client:        api.NewClient(hostURL, http.DefaultClient),
		model:         model,
		dimension:     dimension,
		maxRetries:    3,
		timeout:       30 * time.Second,
		maxConcurrent: 3, // limit concurrent requests to the local model server
	}, nil
}

// Dimension returns the embedding vector length.
func (e *OllamaEmbedder) Dimension() int {
	return e.dimension
}

// Embed generates an embedding for a single text, retrying transient
// failures with backoff.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	var embedding []float32

	err := retry.Do(
		func() error {
			var err error
			embedding, err = e.createEmbedding(ctx, text)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(e.maxRetries),
		retry.Delay(time.Second),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedding after %d attempts: %w", e.maxRetries, err)
	}
	return embedding, nil
}

func (e *OllamaEmbedder) createEmbedding(ctx context.Context, text string) ([]float32, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.Embed(ctxWithTimeout, &api.EmbedRequest{
		Model: e.model,
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("embed request: empty response for model %s", e.model)
	}

	embedding := resp.Embeddings[0]
	if e.dimension > 0 && len(embedding) != e.dimension {
		return nil, fmt.Errorf("embed request: got %d dimensions, want %d", len(embedding), e.dimension)
	}
	return embedding, nil
}

// EmbedBatch generates embeddings for multiple texts in parallel. The
// result preserves input order. A single failure aborts the batch.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	semaphore := make(chan struct{}, e.maxConcurrent)
	errChan := make(chan error, len(texts))

	var wg sync.WaitGroup
	for i := range texts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(i int) {
			defer wg.Done()
			defer func() { <-semaphore }()

			embedding, err := e.Embed(ctx, texts[i])
			if err != nil {
				errChan <- fmt.Errorf("embed text %d: %w", i, err)
				return
			}
			embeddings[i] = embedding
		}(i)
	}

	wg.Wait()
	close(errChan)

	if err := <-errChan; err != nil {
		return nil, err
	}
	return embeddings, nil
}
