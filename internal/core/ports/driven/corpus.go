package driven

import (
	"context"

	"github.com/neoosi/neoosi-core/internal/core/domain"
)

// CorpusSource reads the raw documents of the corpus.
// Documents are returned with raw Content; normalisation happens downstream.
type CorpusSource interface {
	// Documents lists every document of the corpus, sorted by ID
	Documents(ctx context.Context) ([]*domain.Document, error)

	// Location describes where the corpus lives (for logs and errors)
	Location() string
}
