package ai

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/sashabaranov/go-openai"

	"github.com/neoosi/neoosi-core/internal/core/domain"
	"github.com/neoosi/neoosi-core/internal/core/ports/driven"
)

// Ensure OpenAIEmbedding implements EmbeddingService
var _ driven.EmbeddingService = (*OpenAIEmbedding)(nil)

// OpenAIEmbedding implements EmbeddingService over an OpenAI-compatible
// embeddings endpoint
type OpenAIEmbedding struct {
	client     *openai.Client
	model      string
	dimensions atomic.Int64
}

// Known embedding dimensions; the real size is taken from the first response.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
	"text-embedding-004":     768,
	"gemini-embedding-001":   3072,
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
}

const defaultEmbeddingModel = "text-embedding-3-small"

// NewOpenAIEmbedding creates a new embedding service
func NewOpenAIEmbedding(settings *domain.BackendSettings) (*OpenAIEmbedding, error) {
	if settings.Provider.RequiresAPIKey() && settings.APIKey == "" {
		return nil, fmt.Errorf("%s embedding: API key is required", settings.Provider)
	}

	model := settings.Model
	if model == "" {
		model = defaultEmbeddingModel
	}

	e := &OpenAIEmbedding{
		client: newClient(settings),
		model:  model,
	}
	if dims, ok := modelDimensions[model]; ok {
		e.dimensions.Store(int64(dims))
	}
	return e, nil
}

// Embed generates embeddings for multiple texts
func (e *OpenAIEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, classifyError("embed", err)
	}

	// Responses carry an index; order them like the input
	embeddings := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(embeddings) {
			return nil, fmt.Errorf("embed: response index %d out of range", d.Index)
		}
		embeddings[d.Index] = d.Embedding
	}
	for i, v := range embeddings {
		if len(v) == 0 {
			return nil, fmt.Errorf("embed: no embedding returned for input %d", i)
		}
	}

	e.dimensions.Store(int64(len(embeddings[0])))
	return embeddings, nil
}

// EmbedQuery generates an embedding for a question
func (e *OpenAIEmbedding) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	embeddings, err := e.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	return embeddings[0], nil
}

// Dimensions returns the embedding dimension size, 0 while unknown
func (e *OpenAIEmbedding) Dimensions() int {
	return int(e.dimensions.Load())
}

// Model returns the model name being used
func (e *OpenAIEmbedding) Model() string {
	return e.model
}

// HealthCheck verifies the embedding service is available
func (e *OpenAIEmbedding) HealthCheck(ctx context.Context) error {
	_, err := e.EmbedQuery(ctx, "health check")
	return err
}

// Close releases resources held by the embedding service
func (e *OpenAIEmbedding) Close() error {
	return nil
}
