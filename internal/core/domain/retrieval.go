package domain

import (
	"fmt"
	"time"
)

// RetrieverKind selects the retrieval strategy at construction time
type RetrieverKind string

const (
	RetrieverHybrid      RetrieverKind = "hybrid"      // Keyword + vector, expanded to whole documents
	RetrieverPassthrough RetrieverKind = "passthrough" // No retrieval, every answer is advisory
)

// IsValid returns true if this is a known retriever
func (k RetrieverKind) IsValid() bool {
	return k == RetrieverHybrid || k == RetrieverPassthrough
}

// Context assembly markers
const (
	// NoRelevantData is returned by the context assembler for an empty retrieval result
	NoRelevantData = "NO_RELEVANT_DATA"

	// ContextTruncatedMarker ends a context that exceeded its budget
	ContextTruncatedMarker = "[context truncated]"

	// ContextSeparator joins source blocks
	ContextSeparator = "\n\n---\n\n"
)

// RetrievalSettings holds the tunables of the grounding pipeline.
// All sizes are counted in runes.
type RetrievalSettings struct {
	Retriever RetrieverKind `json:"retriever"`

	// Segmentation
	ChunkSize    int `json:"chunk_size"`
	ChunkOverlap int `json:"chunk_overlap"`

	// TopK is the vector recall width; the index is queried for TopK*2
	// neighbours before restriction to routed documents.
	TopK int `json:"top_k"`

	// MinTermLength drops shorter query tokens in keyword extraction
	MinTermLength int `json:"min_term_length"`

	// ContextBudget is the hard cap on assembled context length
	ContextBudget int `json:"context_budget"`

	// Generation gateway
	MaxAttempts int           `json:"max_attempts"` // Primary attempts before the secondary is tried
	BaseBackoff time.Duration `json:"base_backoff"` // Wait before retry i is BaseBackoff * 2^i

	// Index build
	EmbeddingBatchSize int     `json:"embedding_batch_size"`
	EmbeddingRPS       float64 `json:"embedding_rps"` // 0 disables rate limiting

	// HistoryTurns is how many stored turns are sent with an answer request.
	// 0 keeps every answer call single-shot.
	HistoryTurns int `json:"history_turns"`
}

// DefaultRetrievalSettings returns sensible defaults
func DefaultRetrievalSettings() RetrievalSettings {
	return RetrievalSettings{
		Retriever:          RetrieverHybrid,
		ChunkSize:          1000,
		ChunkOverlap:       200,
		TopK:               5,
		MinTermLength:      3,
		ContextBudget:      20000,
		MaxAttempts:        3,
		BaseBackoff:        time.Second,
		EmbeddingBatchSize: 64,
		EmbeddingRPS:       0,
		HistoryTurns:       0,
	}
}

// Validate checks the settings for values the pipeline cannot work with
func (s RetrievalSettings) Validate() error {
	if !s.Retriever.IsValid() {
		return fmt.Errorf("%w: unknown retriever %q", ErrInvalidInput, s.Retriever)
	}
	if s.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunk size must be positive", ErrInvalidInput)
	}
	if s.ChunkOverlap < 0 || s.ChunkOverlap >= s.ChunkSize {
		return fmt.Errorf("%w: chunk overlap must be in [0, chunk size)", ErrInvalidInput)
	}
	if s.TopK <= 0 {
		return fmt.Errorf("%w: top k must be positive", ErrInvalidInput)
	}
	if s.ContextBudget <= 0 {
		return fmt.Errorf("%w: context budget must be positive", ErrInvalidInput)
	}
	if s.MaxAttempts <= 0 {
		return fmt.Errorf("%w: max attempts must be positive", ErrInvalidInput)
	}
	if s.EmbeddingBatchSize <= 0 {
		return fmt.Errorf("%w: embedding batch size must be positive", ErrInvalidInput)
	}
	if s.HistoryTurns < 0 {
		return fmt.Errorf("%w: history turns must not be negative", ErrInvalidInput)
	}
	return nil
}

// DocumentSet is a restriction on source documents. The empty set means
// every document.
type DocumentSet map[string]struct{}

// NewDocumentSet builds a set from ids
func NewDocumentSet(ids ...string) DocumentSet {
	s := make(DocumentSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// All reports whether the set places no restriction
func (s DocumentSet) All() bool {
	return len(s) == 0
}

// Allows reports whether chunks of documentID pass the restriction
func (s DocumentSet) Allows(documentID string) bool {
	if s.All() {
		return true
	}
	_, ok := s[documentID]
	return ok
}

// Add inserts ids into the set
func (s DocumentSet) Add(ids ...string) {
	for _, id := range ids {
		s[id] = struct{}{}
	}
}

// ScoredChunk is a vector index hit
type ScoredChunk struct {
	Chunk *Chunk  `json:"chunk"`
	Score float64 `json:"score"` // Cosine similarity, higher is closer
}

// KeywordMatches partitions chunks by how many query terms they contain
type KeywordMatches struct {
	Strong []*Chunk // Every term present
	Weak   []*Chunk // At least one term present, so a superset of Strong
}
