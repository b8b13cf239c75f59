// Package embedding generates vector embeddings for text chunks.
package embedding

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/sync/errgroup"

	"github.com/vincentnw/studypal/internal/chunker"
)

// Embedder turns one text into its embedding vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbeddedChunk pairs a chunk with its embedding vector.
type EmbeddedChunk struct {
	chunker.Chunk
	Vector []float32
}

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint.
type OpenAIEmbedder struct {
	impl *embeddings.EmbedderImpl
}

var _ Embedder = (*OpenAIEmbedder)(nil)

// NewOpenAI creates an embedder against an OpenAI-compatible API.
// baseURL may be empty to use the service default.
func NewOpenAI(baseURL, apiKey, model string) (*OpenAIEmbedder, error) {
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("initializing embedding model: %w", err)
	}
	impl, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	return &OpenAIEmbedder{impl: impl}, nil
}

// Embed returns the embedding vector for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := e.impl.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embedding text: %w", err)
	}
	return vec, nil
}

// EmbedAll embeds every chunk, preserving order: the Nth result corresponds
// to the Nth input chunk. Any single failure fails the whole batch; no
// partial results are returned. Returns nil for empty input.
//
// concurrency bounds the number of in-flight embedding calls; values <= 0
// mean strictly sequential.
func EmbedAll(ctx context.Context, e Embedder, chunks []chunker.Chunk, concurrency int) ([]EmbeddedChunk, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	results := make([]EmbeddedChunk, len(chunks))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, ch := range chunks {
		g.Go(func() error {
			vec, err := e.Embed(gCtx, ch.Text)
			if err != nil {
				return fmt.Errorf("embedding chunk %d: %w", ch.Index, err)
			}
			results[i] = EmbeddedChunk{Chunk: ch, Vector: vec}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
