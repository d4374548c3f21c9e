package search

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// DefaultEmbeddingModel is the Gemini embedding model used unless overridden.
const DefaultEmbeddingModel = "gemini-embedding-001"

// GeminiEmbedder implements Embedder on top of the Gemini API.
type GeminiEmbedder struct {
	client *genai.Client
	model  string
}

// GeminiOption configures the embedder.
type GeminiOption func(*GeminiEmbedder)

// WithModel overrides the embedding model.
func WithModel(model string) GeminiOption {
	return func(e *GeminiEmbedder) {
		e.model = model
	}
}

// NewGeminiEmbedder creates an embedding client against the Gemini API.
func NewGeminiEmbedder(ctx context.Context, apiKey string, opts ...GeminiOption) (*GeminiEmbedder, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	e := &GeminiEmbedder{
		client: client,
		model:  DefaultEmbeddingModel,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Embed converts text into a dense vector.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	contents := genai.Text(text)
	result, err := e.client.Models.EmbedContent(ctx, e.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to embed content: %w", err)
	}

	if len(result.Embeddings) == 0 || len(result.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return result.Embeddings[0].Values, nil
}
