package driven

import (
	"context"

	"github.com/neoosi/neoosi-core/internal/core/domain"
)

// Generator is one text-generation backend instance.
//
// Implementations must report transient failures (service overloaded) by
// wrapping domain.ErrBackendOverloaded so the gateway can retry them.
type Generator interface {
	// Generate returns the completion for prompt. history holds prior turns
	// of the conversation, oldest first; nil for single-shot calls.
	Generate(ctx context.Context, prompt string, history []*domain.ChatTurn) (string, error)

	// Name identifies the backend in logs and metrics (e.g. "primary")
	Name() string

	// Model returns the model name being used
	Model() string

	// Ping verifies the backend is available
	Ping(ctx context.Context) error

	// Close releases resources held by the backend
	Close() error
}
