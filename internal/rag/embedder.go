package rag

import (
	"context"
	"fmt"

	"github.com/philippgille/chromem-go"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

const DefaultEmbeddingModel = "text-embedding-3-small"

// NewOpenAIEmbedding returns an embedding function backed by the OpenAI
// embeddings API.
func NewOpenAIEmbedding(apiKey, model string) (chromem.EmbeddingFunc, error) {
	if model == "" {
		model = DefaultEmbeddingModel
	}

	client, err := openai.New(openai.WithToken(apiKey), openai.WithEmbeddingModel(model))
	if err != nil {
		return nil, fmt.Errorf("could not create embeddings client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("could not create embedder: %w", err)
	}

	return EmbeddingFunc(embedder), nil
}

// EmbeddingFunc adapts a langchaingo embedder to the vector store.
func EmbeddingFunc(embedder embeddings.Embedder) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return embedder.EmbedQuery(ctx, text)
	}
}
