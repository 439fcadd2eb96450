package domain

import "sync"

// RuntimeConfig tracks which backends are in use and which capabilities
// are currently available. Thread-safe for concurrent access.
type RuntimeConfig struct {
	mu sync.RWMutex

	// Static (set at startup, read-only)
	HistoryBackend string // "redis" or "postgres"
	QueueBackend   string // "redis", "postgres" or "inline"

	// Dynamic capability flags
	embeddingAvailable  bool
	generationAvailable bool
}

// NewRuntimeConfig creates a new RuntimeConfig with initial values
func NewRuntimeConfig(historyBackend, queueBackend string) *RuntimeConfig {
	return &RuntimeConfig{
		HistoryBackend: historyBackend,
		QueueBackend:   queueBackend,
	}
}

// EmbeddingAvailable returns whether the embedding backend is configured
func (c *RuntimeConfig) EmbeddingAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.embeddingAvailable
}

// GenerationAvailable returns whether a generation backend is configured
func (c *RuntimeConfig) GenerationAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generationAvailable
}

// SetEmbeddingAvailable updates the embedding availability flag
func (c *RuntimeConfig) SetEmbeddingAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.embeddingAvailable = available
}

// SetGenerationAvailable updates the generation availability flag
func (c *RuntimeConfig) SetGenerationAvailable(available bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generationAvailable = available
}

// CanRetrieve returns true if hybrid retrieval is possible
func (c *RuntimeConfig) CanRetrieve() bool {
	return c.EmbeddingAvailable()
}

// EffectiveRetriever returns the best retriever for the configured one.
// Hybrid retrieval needs embeddings; without them every answer is advisory.
func (c *RuntimeConfig) EffectiveRetriever(configured RetrieverKind) RetrieverKind {
	if configured == RetrieverHybrid && !c.CanRetrieve() {
		return RetrieverPassthrough
	}
	return configured
}
