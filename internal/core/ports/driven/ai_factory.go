package driven

import (
	"github.com/neoosi/neoosi-core/internal/core/domain"
)

// AIServiceFactory creates AI services based on configuration
type AIServiceFactory interface {
	// CreateEmbeddingService creates an embedding service from settings
	// Returns nil, nil if settings are not configured
	CreateEmbeddingService(settings *domain.BackendSettings) (EmbeddingService, error)

	// CreateGenerator creates a named generation backend from settings
	// Returns nil, nil if settings are not configured
	CreateGenerator(name string, settings *domain.BackendSettings) (Generator, error)
}
