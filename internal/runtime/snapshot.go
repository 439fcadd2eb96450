package runtime

import (
	"sort"
	"time"

	"github.com/neoosi/neoosi-core/internal/core/domain"
	"github.com/neoosi/neoosi-core/internal/core/ports/driven"
)

// Snapshot is one immutable generation of the index: the vector structure
// plus every chunk grouped by document for keyword matching and expansion.
type Snapshot struct {
	Index       driven.VectorIndex
	Source      domain.IndexSource
	Model       string
	Fingerprint string
	BuiltAt     time.Time

	chunks     []*domain.Chunk
	byDocument map[string][]*domain.Chunk
}

// SnapshotMeta describes where a snapshot came from
type SnapshotMeta struct {
	Source      domain.IndexSource
	Model       string
	Fingerprint string
	BuiltAt     time.Time
}

// NewSnapshot groups chunks by document, ordered by position.
func NewSnapshot(index driven.VectorIndex, chunks []*domain.Chunk, meta SnapshotMeta) *Snapshot {
	s := &Snapshot{
		Index:       index,
		Source:      meta.Source,
		Model:       meta.Model,
		Fingerprint: meta.Fingerprint,
		BuiltAt:     meta.BuiltAt,
		chunks:      make([]*domain.Chunk, len(chunks)),
		byDocument:  make(map[string][]*domain.Chunk),
	}
	copy(s.chunks, chunks)

	sort.SliceStable(s.chunks, func(i, j int) bool {
		if s.chunks[i].DocumentID != s.chunks[j].DocumentID {
			return s.chunks[i].DocumentID < s.chunks[j].DocumentID
		}
		return s.chunks[i].Position < s.chunks[j].Position
	})
	for _, c := range s.chunks {
		s.byDocument[c.DocumentID] = append(s.byDocument[c.DocumentID], c)
	}
	return s
}

// Chunks returns every chunk ordered by document id, then position.
// The slice must not be modified.
func (s *Snapshot) Chunks() []*domain.Chunk {
	return s.chunks
}

// DocumentChunks returns the chunks of one document ordered by position
func (s *Snapshot) DocumentChunks(documentID string) []*domain.Chunk {
	return s.byDocument[documentID]
}

// Documents returns the number of distinct documents
func (s *Snapshot) Documents() int {
	return len(s.byDocument)
}

// Status reports the snapshot as an index status
func (s *Snapshot) Status() *domain.IndexStatus {
	builtAt := s.BuiltAt
	status := &domain.IndexStatus{
		Ready:       true,
		Source:      s.Source,
		Documents:   s.Documents(),
		Chunks:      len(s.chunks),
		Model:       s.Model,
		Fingerprint: s.Fingerprint,
		BuiltAt:     &builtAt,
	}
	if s.Index != nil {
		status.Dimensions = s.Index.Dimensions()
	}
	return status
}
