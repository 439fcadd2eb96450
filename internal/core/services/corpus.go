package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/neoosi/neoosi-core/internal/core/domain"
	"github.com/neoosi/neoosi-core/internal/core/ports/driven"
)

// Corpus is the segmented corpus, documents sorted by id and chunks
// grouped by document in position order.
type Corpus struct {
	Documents []*domain.Document
	Chunks    []*domain.Chunk
}

// CorpusLoader reads source documents, normalises them and segments them
// into chunks.
type CorpusLoader struct {
	source      driven.CorpusSource
	normalisers driven.NormaliserRegistry
	pipeline    driven.PostProcessorPipeline
	logger      *slog.Logger
}

// NewCorpusLoader creates a new CorpusLoader
func NewCorpusLoader(
	source driven.CorpusSource,
	normalisers driven.NormaliserRegistry,
	pipeline driven.PostProcessorPipeline,
	logger *slog.Logger,
) *CorpusLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &CorpusLoader{
		source:      source,
		normalisers: normalisers,
		pipeline:    pipeline,
		logger:      logger,
	}
}

// Load reads and segments the whole corpus.
// Returns *domain.IngestError when the source cannot be read or yields no text.
func (l *CorpusLoader) Load(ctx context.Context) (*Corpus, error) {
	docs, err := l.source.Documents(ctx)
	if err != nil {
		return nil, &domain.IngestError{Source: l.source.Location(), Err: err}
	}

	// Ids are cited in answers, which lose markup characters
	seen := make(map[string]string, len(docs))
	for _, doc := range docs {
		id := domain.DocumentID(doc.ID)
		if id == "" {
			return nil, &domain.IngestError{Source: l.source.Location(), Err: fmt.Errorf("document %q has no usable id", doc.ID)}
		}
		if prev, dup := seen[id]; dup {
			return nil, &domain.IngestError{
				Source: l.source.Location(),
				Err:    fmt.Errorf("documents %q and %q share id %q", prev, doc.ID, id),
			}
		}
		seen[id] = doc.ID
		doc.ID = id
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })

	corpus := &Corpus{}
	for _, doc := range docs {
		if n := l.normalisers.Get(doc.MimeType); n != nil {
			doc.Content = n.Normalise(doc.Content, doc.MimeType)
		}

		pieces := l.pipeline.Process(doc.Content)
		if len(pieces) == 0 {
			l.logger.Warn("skipping empty document", "doc_id", doc.ID, "path", doc.Path)
			continue
		}

		for _, p := range pieces {
			corpus.Chunks = append(corpus.Chunks, &domain.Chunk{
				ID:         domain.ChunkID(doc.ID, p.Position),
				DocumentID: doc.ID,
				Content:    p.Content,
				Position:   p.Position,
				StartChar:  p.StartOffset,
				EndChar:    p.EndOffset,
			})
		}
		corpus.Documents = append(corpus.Documents, doc)

		l.logger.Debug("document segmented", "doc_id", doc.ID, "chunks", len(pieces))
	}

	if len(corpus.Chunks) == 0 {
		return nil, &domain.IngestError{Source: l.source.Location()}
	}

	l.logger.Info("corpus loaded",
		"source", l.source.Location(),
		"documents", len(corpus.Documents),
		"chunks", len(corpus.Chunks))

	return corpus, nil
}
