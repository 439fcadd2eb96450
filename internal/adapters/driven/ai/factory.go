package ai

import (
	"fmt"

	"github.com/neoosi/neoosi-core/internal/core/domain"
	"github.com/neoosi/neoosi-core/internal/core/ports/driven"
)

// Ensure Factory implements AIServiceFactory
var _ driven.AIServiceFactory = (*Factory)(nil)

// Factory creates AI services based on configuration
type Factory struct{}

// NewFactory creates a new AI service factory
func NewFactory() *Factory {
	return &Factory{}
}

// CreateEmbeddingService creates an embedding service from settings
func (f *Factory) CreateEmbeddingService(settings *domain.BackendSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}
	if !settings.Provider.IsValid() {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, settings.Provider)
	}
	svc, err := NewOpenAIEmbedding(settings)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// CreateGenerator creates a named generation backend from settings
func (f *Factory) CreateGenerator(name string, settings *domain.BackendSettings) (driven.Generator, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}
	if !settings.Provider.IsValid() {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidProvider, settings.Provider)
	}
	gen, err := NewOpenAIGenerator(name, settings)
	if err != nil {
		return nil, err
	}
	return gen, nil
}
