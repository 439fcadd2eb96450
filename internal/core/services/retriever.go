package services

import (
	"context"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel/attribute"

	"github.com/neoosi/neoosi-core/internal/core/domain"
	"github.com/neoosi/neoosi-core/internal/observability"
	"github.com/neoosi/neoosi-core/internal/runtime"
)

// Retriever selects the chunks that ground an answer.
// An empty result means "no relevant data", never an error.
type Retriever interface {
	Retrieve(ctx context.Context, question string, docs domain.DocumentSet) ([]*domain.Chunk, error)
	Kind() domain.RetrieverKind
}

// NewRetriever builds the retriever selected by settings. Hybrid retrieval
// degrades to passthrough when no embedding backend is configured.
func NewRetriever(settings domain.RetrievalSettings, services *runtime.Services, metrics *observability.Metrics, logger *slog.Logger) Retriever {
	kind := services.Config().EffectiveRetriever(settings.Retriever)
	if kind == domain.RetrieverPassthrough {
		return PassthroughRetriever{}
	}
	return NewHybridRetriever(services, NewKeywordFilter(settings.MinTermLength), settings.TopK, metrics, logger)
}

// PassthroughRetriever never retrieves; every answer is advisory.
type PassthroughRetriever struct{}

func (PassthroughRetriever) Retrieve(ctx context.Context, question string, docs domain.DocumentSet) ([]*domain.Chunk, error) {
	return nil, nil
}

func (PassthroughRetriever) Kind() domain.RetrieverKind {
	return domain.RetrieverPassthrough
}

// HybridRetriever combines keyword matches with vector neighbours and
// expands every hit to its whole document.
type HybridRetriever struct {
	services *runtime.Services
	keywords *KeywordFilter
	topK     int
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewHybridRetriever creates a hybrid retriever querying topK*2 neighbours.
func NewHybridRetriever(services *runtime.Services, keywords *KeywordFilter, topK int, metrics *observability.Metrics, logger *slog.Logger) *HybridRetriever {
	if logger == nil {
		logger = slog.Default()
	}
	if topK <= 0 {
		topK = domain.DefaultRetrievalSettings().TopK
	}
	return &HybridRetriever{
		services: services,
		keywords: keywords,
		topK:     topK,
		metrics:  metrics,
		logger:   logger,
	}
}

func (r *HybridRetriever) Kind() domain.RetrieverKind {
	return domain.RetrieverHybrid
}

// Retrieve returns the chunks of every document touched by a keyword or
// vector hit, ordered by document id then position. The result can be far
// larger than topK; the context budget bounds it downstream.
//
// Returns domain.ErrIndexNotReady before the first snapshot and
// *domain.EmbeddingError when the question cannot be embedded.
func (r *HybridRetriever) Retrieve(ctx context.Context, question string, docs domain.DocumentSet) (chunks []*domain.Chunk, err error) {
	ctx, span := observability.StartSpan(ctx, "retriever.retrieve",
		attribute.Int("routed_documents", len(docs)))
	defer func() {
		span.SetAttributes(attribute.Int("chunks", len(chunks)))
		observability.EndSpan(span, err)
	}()

	snapshot := r.services.Snapshot()
	if snapshot == nil {
		return nil, domain.ErrIndexNotReady
	}

	terms := r.keywords.ExtractTerms(question)

	universe := snapshot.Chunks()
	if !docs.All() {
		universe = make([]*domain.Chunk, 0, len(universe))
		for _, c := range snapshot.Chunks() {
			if docs.Allows(c.DocumentID) {
				universe = append(universe, c)
			}
		}
	}
	matches := r.keywords.Classify(terms, universe)

	vectorHits, err := r.vectorSearch(ctx, snapshot, question, docs)
	if err != nil {
		return nil, err
	}

	merged := MergeChunks(matches.Strong, matches.Weak, vectorHits)

	r.logger.Debug("retrieval candidates",
		"terms", terms,
		"strong", len(matches.Strong),
		"weak", len(matches.Weak),
		"vector", len(vectorHits),
		"merged", len(merged))

	if len(merged) == 0 {
		r.metrics.ObserveRetrieval(0)
		return nil, nil
	}

	chunks = ExpandDocuments(snapshot, merged)
	r.metrics.ObserveRetrieval(len(chunks))
	return chunks, nil
}

// vectorSearch queries the global index for topK*2 neighbours and keeps
// those inside docs.
func (r *HybridRetriever) vectorSearch(ctx context.Context, snapshot *runtime.Snapshot, question string, docs domain.DocumentSet) ([]*domain.Chunk, error) {
	embedder := r.services.EmbeddingService()
	if embedder == nil || snapshot.Index == nil {
		return nil, nil
	}

	vector, err := embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, &domain.EmbeddingError{Model: embedder.Model(), Err: err}
	}

	hits, err := snapshot.Index.Query(vector, r.topK*2)
	if err != nil {
		return nil, &domain.EmbeddingError{Model: embedder.Model(), Err: err}
	}

	result := make([]*domain.Chunk, 0, len(hits))
	for _, hit := range hits {
		if docs.Allows(hit.Chunk.DocumentID) {
			result = append(result, hit.Chunk)
		}
	}
	return result, nil
}

// MergeChunks concatenates groups in order, keeping the first chunk seen
// for each distinct text.
func MergeChunks(groups ...[]*domain.Chunk) []*domain.Chunk {
	seen := make(map[string]struct{})
	var merged []*domain.Chunk
	for _, group := range groups {
		for _, c := range group {
			if _, dup := seen[c.Content]; dup {
				continue
			}
			seen[c.Content] = struct{}{}
			merged = append(merged, c)
		}
	}
	return merged
}

// ExpandDocuments replaces hits with every chunk of the documents they
// belong to, ordered by document id then position.
func ExpandDocuments(snapshot *runtime.Snapshot, hits []*domain.Chunk) []*domain.Chunk {
	touched := domain.NewDocumentSet()
	for _, c := range hits {
		touched.Add(c.DocumentID)
	}

	ids := make([]string, 0, len(touched))
	for id := range touched {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var expanded []*domain.Chunk
	for _, id := range ids {
		expanded = append(expanded, snapshot.DocumentChunks(id)...)
	}
	return expanded
}
