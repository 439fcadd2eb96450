package ai

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/neoosi/neoosi-core/internal/core/domain"
	"github.com/neoosi/neoosi-core/internal/core/ports/driven"
)

// Ensure OpenAIGenerator implements Generator
var _ driven.Generator = (*OpenAIGenerator)(nil)

// OpenAIGenerator implements Generator with chat completions
type OpenAIGenerator struct {
	name        string
	client      *openai.Client
	model       string
	temperature float32
}

// NewOpenAIGenerator creates a named generation backend
func NewOpenAIGenerator(name string, settings *domain.BackendSettings) (*OpenAIGenerator, error) {
	if settings.Provider.RequiresAPIKey() && settings.APIKey == "" {
		return nil, fmt.Errorf("%s generator: API key is required", settings.Provider)
	}
	if settings.Model == "" {
		return nil, fmt.Errorf("%s generator: model is required", settings.Provider)
	}

	return &OpenAIGenerator{
		name:        name,
		client:      newClient(settings),
		model:       settings.Model,
		temperature: 0.2,
	}, nil
}

// Generate sends prior turns as alternating user/assistant messages
// followed by prompt.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string, history []*domain.ChatTurn) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2*len(history)+1)
	for _, turn := range history {
		messages = append(messages,
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: turn.Question},
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: turn.Answer},
		)
	}
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: prompt})

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    messages,
		Temperature: g.temperature,
	})
	if err != nil {
		return "", classifyError(g.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: no choices returned", g.name)
	}
	return resp.Choices[0].Message.Content, nil
}

// Name identifies the backend in logs and metrics
func (g *OpenAIGenerator) Name() string {
	return g.name
}

// Model returns the model name being used
func (g *OpenAIGenerator) Model() string {
	return g.model
}

// Ping lists models to verify the endpoint and credentials
func (g *OpenAIGenerator) Ping(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return classifyError(g.name, err)
	}
	return nil
}

// Close releases resources held by the backend
func (g *OpenAIGenerator) Close() error {
	return nil
}
