package driven

import (
	"context"

	"github.com/neoosi/neoosi-core/internal/core/domain"
)

// VectorIndex is an immutable nearest-neighbour structure over chunk embeddings.
// Safe for concurrent queries.
type VectorIndex interface {
	// Query returns up to k chunks ordered by decreasing similarity.
	// Fewer than k are returned when the index is smaller.
	Query(vector []float32, k int) ([]domain.ScoredChunk, error)

	// Len returns the number of indexed chunks
	Len() int

	// Dimensions returns the embedding dimension, 0 for an empty index
	Dimensions() int
}

// VectorIndexBuilder constructs a VectorIndex from embedded chunks.
// Every chunk must carry an embedding of the same dimension.
type VectorIndexBuilder func(chunks []*domain.Chunk) (VectorIndex, error)

// IndexStore persists index artifacts
type IndexStore interface {
	// Save writes the artifact atomically: a concurrent or later Load sees
	// either the previous artifact or this one, never a partial write.
	Save(ctx context.Context, artifact *domain.IndexArtifact) error

	// Load restores the last saved artifact.
	// Returns domain.ErrNotFound when nothing was saved yet and
	// *domain.IndexLoadError when the artifact is corrupt or incompatible.
	Load(ctx context.Context) (*domain.IndexArtifact, error)

	// Stat reads the metadata of the last saved artifact without its
	// chunks. Errors as Load.
	Stat(ctx context.Context) (*domain.IndexArtifact, error)

	// Location describes where artifacts live (for logs)
	Location() string

	// Close releases resources held by the store
	Close() error
}
