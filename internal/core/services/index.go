package services

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/neoosi/neoosi-core/internal/core/domain"
	"github.com/neoosi/neoosi-core/internal/core/ports/driven"
	"github.com/neoosi/neoosi-core/internal/core/ports/driving"
	"github.com/neoosi/neoosi-core/internal/observability"
	"github.com/neoosi/neoosi-core/internal/runtime"
)

// Verify interface compliance
var _ driving.IndexService = (*indexService)(nil)

const (
	// RebuildLockName guards rebuilds across instances
	RebuildLockName = "index-rebuild"
	rebuildLockTTL  = 30 * time.Minute
)

// IndexServiceConfig holds dependencies for the index service.
type IndexServiceConfig struct {
	Loader   *CorpusLoader
	Store    driven.IndexStore // Optional; without it every start embeds the corpus
	Services *runtime.Services
	Builder  driven.VectorIndexBuilder
	Lock     driven.DistributedLock // Optional
	Settings domain.RetrievalSettings
	Metrics  *observability.Metrics
	Logger   *slog.Logger
}

type indexService struct {
	loader   *CorpusLoader
	store    driven.IndexStore
	services *runtime.Services
	builder  driven.VectorIndexBuilder
	lock     driven.DistributedLock
	settings domain.RetrievalSettings
	limiter  *rate.Limiter
	metrics  *observability.Metrics
	logger   *slog.Logger

	group      singleflight.Group
	rebuilding atomic.Bool
	publishMu  sync.Mutex
}

// NewIndexService creates the owner of the live index.
func NewIndexService(cfg IndexServiceConfig) driving.IndexService {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &indexService{
		loader:   cfg.Loader,
		store:    cfg.Store,
		services: cfg.Services,
		builder:  cfg.Builder,
		lock:     cfg.Lock,
		settings: cfg.Settings,
		metrics:  cfg.Metrics,
		logger:   logger,
	}
	if s.settings.EmbeddingBatchSize <= 0 {
		s.settings.EmbeddingBatchSize = domain.DefaultRetrievalSettings().EmbeddingBatchSize
	}
	if cfg.Settings.EmbeddingRPS > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.Settings.EmbeddingRPS), 1)
	}
	return s
}

// Initialize publishes the persisted index when it is still valid for the
// corpus and builds a new one otherwise.
func (s *indexService) Initialize(ctx context.Context) (err error) {
	ctx, span := observability.StartSpan(ctx, "index.initialize")
	defer func() { observability.EndSpan(span, err) }()

	start := time.Now()

	corpus, err := s.loader.Load(ctx)
	if err != nil {
		return err
	}
	fingerprint := Fingerprint(corpus, s.settings)

	if snapshot, ok := s.restore(ctx, fingerprint); ok {
		s.publish(snapshot, start)
		return nil
	}

	snapshot, err := s.build(ctx, corpus, fingerprint)
	if err != nil {
		return err
	}
	s.publish(snapshot, start)
	return nil
}

// restore loads the persisted artifact. Any problem is logged and reported
// as !ok so the caller builds from source.
func (s *indexService) restore(ctx context.Context, fingerprint string) (*runtime.Snapshot, bool) {
	embedder := s.services.EmbeddingService()
	if s.store == nil || embedder == nil {
		return nil, false
	}

	artifact, err := s.store.Load(ctx)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		s.logger.Info("no persisted index, building", "location", s.store.Location())
		return nil, false
	case err != nil:
		s.logger.Warn("persisted index unusable, rebuilding", "location", s.store.Location(), "error", err)
		return nil, false
	}

	var reason string
	switch {
	case artifact.Version != domain.IndexArtifactVersion:
		reason = "artifact version " + strconv.Itoa(artifact.Version)
	case artifact.Fingerprint != fingerprint:
		reason = "corpus or segmentation changed"
	case artifact.Model != embedder.Model():
		reason = "embedding model changed from " + artifact.Model
	}
	if reason != "" {
		loadErr := &domain.IndexLoadError{Path: s.store.Location(), Reason: reason}
		s.logger.Warn("persisted index is stale, rebuilding", "error", loadErr)
		return nil, false
	}

	index, err := s.builder(artifact.Chunks)
	if err != nil {
		loadErr := &domain.IndexLoadError{Path: s.store.Location(), Reason: "invalid embeddings", Err: err}
		s.logger.Warn("persisted index unusable, rebuilding", "error", loadErr)
		return nil, false
	}

	s.logger.Info("index loaded", "location", s.store.Location(), "chunks", len(artifact.Chunks))
	return runtime.NewSnapshot(index, artifact.Chunks, runtime.SnapshotMeta{
		Source:      domain.IndexSourceLoaded,
		Model:       artifact.Model,
		Fingerprint: artifact.Fingerprint,
		BuiltAt:     artifact.BuiltAt,
	}), true
}

// Rebuild re-ingests and re-embeds the corpus. Concurrent calls in this
// process share one run; a run in another instance yields
// domain.ErrRebuildInProgress.
func (s *indexService) Rebuild(ctx context.Context) (*domain.IndexStatus, error) {
	v, err, shared := s.group.Do("rebuild", func() (interface{}, error) {
		return s.rebuild(ctx)
	})
	if shared {
		s.logger.Debug("joined running index rebuild")
	}
	if err != nil {
		return nil, err
	}
	return v.(*domain.IndexStatus), nil
}

func (s *indexService) rebuild(ctx context.Context) (status *domain.IndexStatus, err error) {
	ctx, span := observability.StartSpan(ctx, "index.rebuild")
	defer func() { observability.EndSpan(span, err) }()

	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx, RebuildLockName, rebuildLockTTL)
		if err != nil {
			return nil, fmt.Errorf("acquire rebuild lock: %w", err)
		}
		if !acquired {
			return nil, domain.ErrRebuildInProgress
		}
		defer func() {
			if err := s.lock.Release(context.WithoutCancel(ctx), RebuildLockName); err != nil {
				s.logger.Warn("failed to release rebuild lock", "error", err)
			}
		}()
	}

	s.rebuilding.Store(true)
	defer s.rebuilding.Store(false)

	start := time.Now()
	s.logger.Info("index rebuild started")

	corpus, err := s.loader.Load(ctx)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.build(ctx, corpus, Fingerprint(corpus, s.settings))
	if err != nil {
		s.logger.Error("index rebuild failed, keeping current index", "error", err)
		return nil, err
	}
	s.publish(snapshot, start)

	status = snapshot.Status()
	span.SetAttributes(
		attribute.Int("index.documents", status.Documents),
		attribute.Int("index.chunks", status.Chunks),
	)
	return status, nil
}

// build embeds every chunk, constructs the vector index and persists it.
// Without an embedding backend the snapshot carries chunks only.
func (s *indexService) build(ctx context.Context, corpus *Corpus, fingerprint string) (*runtime.Snapshot, error) {
	meta := runtime.SnapshotMeta{
		Source:      domain.IndexSourceBuilt,
		Fingerprint: fingerprint,
		BuiltAt:     time.Now().UTC(),
	}

	embedder := s.services.EmbeddingService()
	if embedder == nil {
		s.logger.Warn("no embedding backend configured, index holds chunks only")
		return runtime.NewSnapshot(nil, corpus.Chunks, meta), nil
	}
	meta.Model = embedder.Model()

	if err := s.embedAll(ctx, embedder, corpus.Chunks); err != nil {
		return nil, err
	}

	index, err := s.builder(corpus.Chunks)
	if err != nil {
		return nil, fmt.Errorf("build vector index: %w", err)
	}

	if s.store != nil {
		artifact := &domain.IndexArtifact{
			Version:     domain.IndexArtifactVersion,
			Fingerprint: fingerprint,
			Model:       meta.Model,
			Dimensions:  index.Dimensions(),
			BuiltAt:     meta.BuiltAt,
			Chunks:      corpus.Chunks,
		}
		// The artifact only speeds up the next start.
		if err := s.store.Save(ctx, artifact); err != nil {
			s.logger.Warn("failed to persist index", "location", s.store.Location(), "error", err)
		}
	}

	return runtime.NewSnapshot(index, corpus.Chunks, meta), nil
}

func (s *indexService) embedAll(ctx context.Context, embedder driven.EmbeddingService, chunks []*domain.Chunk) error {
	batch := s.settings.EmbeddingBatchSize

	for from := 0; from < len(chunks); from += batch {
		to := from + batch
		if to > len(chunks) {
			to = len(chunks)
		}

		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		texts := make([]string, to-from)
		for i, c := range chunks[from:to] {
			texts[i] = c.Content
		}

		vectors, err := embedder.Embed(ctx, texts)
		if err != nil {
			return &domain.EmbeddingError{Model: embedder.Model(), Err: err}
		}
		if len(vectors) != len(texts) {
			return &domain.EmbeddingError{
				Model: embedder.Model(),
				Err:   fmt.Errorf("got %d vectors for %d texts", len(vectors), len(texts)),
			}
		}
		for i, c := range chunks[from:to] {
			c.Embedding = vectors[i]
		}

		s.logger.Debug("embedded batch", "from", from, "to", to, "total", len(chunks))
	}
	return nil
}

func (s *indexService) publish(snapshot *runtime.Snapshot, start time.Time) {
	s.publishMu.Lock()
	s.services.Publish(snapshot)
	s.publishMu.Unlock()
	s.published(snapshot, start)
}

// publishIfNewer swaps snapshot in only when it was built after the live
// index.
func (s *indexService) publishIfNewer(snapshot *runtime.Snapshot, start time.Time) bool {
	s.publishMu.Lock()
	if !s.newerThanLive(snapshot.BuiltAt) {
		s.publishMu.Unlock()
		return false
	}
	s.services.Publish(snapshot)
	s.publishMu.Unlock()
	s.published(snapshot, start)
	return true
}

func (s *indexService) newerThanLive(builtAt time.Time) bool {
	live := s.services.Snapshot()
	return live == nil || builtAt.After(live.BuiltAt)
}

func (s *indexService) published(snapshot *runtime.Snapshot, start time.Time) {
	s.metrics.ObserveIndexPublished(string(snapshot.Source), len(snapshot.Chunks()), time.Since(start))
	s.logger.Info("index published",
		"source", snapshot.Source,
		"documents", snapshot.Documents(),
		"chunks", len(snapshot.Chunks()),
		"duration", time.Since(start))
}

// Refresh adopts an artifact that another instance, usually a worker,
// saved after the live index was built. The artifact is trusted as built
// from the shared corpus, so only its embedding model is checked.
func (s *indexService) Refresh(ctx context.Context) (bool, error) {
	embedder := s.services.EmbeddingService()
	if s.store == nil || embedder == nil || s.rebuilding.Load() {
		return false, nil
	}

	meta, err := s.store.Stat(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !s.newerThanLive(meta.BuiltAt) {
		return false, nil
	}
	if meta.Model != embedder.Model() {
		return false, &domain.IndexLoadError{Path: s.store.Location(), Reason: "embedding model " + meta.Model}
	}

	start := time.Now()
	artifact, err := s.store.Load(ctx)
	if err != nil {
		return false, err
	}
	index, err := s.builder(artifact.Chunks)
	if err != nil {
		return false, &domain.IndexLoadError{Path: s.store.Location(), Reason: "invalid embeddings", Err: err}
	}

	snapshot := runtime.NewSnapshot(index, artifact.Chunks, runtime.SnapshotMeta{
		Source:      domain.IndexSourceLoaded,
		Model:       artifact.Model,
		Fingerprint: artifact.Fingerprint,
		BuiltAt:     artifact.BuiltAt,
	})
	return s.publishIfNewer(snapshot, start), nil
}

// Status describes the live index
func (s *indexService) Status() *domain.IndexStatus {
	snapshot := s.services.Snapshot()
	if snapshot == nil {
		return &domain.IndexStatus{Rebuilding: s.rebuilding.Load()}
	}
	status := snapshot.Status()
	status.Rebuilding = s.rebuilding.Load()
	return status
}

// Fingerprint hashes the corpus text and segmentation settings. A persisted
// index is reused only while its fingerprint matches.
func Fingerprint(corpus *Corpus, settings domain.RetrievalSettings) string {
	h, _ := blake2b.New256(nil)
	fmt.Fprintf(h, "size=%d;overlap=%d;", settings.ChunkSize, settings.ChunkOverlap)
	for _, doc := range corpus.Documents {
		h.Write([]byte(doc.ID))
		h.Write([]byte{0})
		h.Write([]byte(doc.Content))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
