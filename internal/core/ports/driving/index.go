package driving

import (
	"context"

	"github.com/neoosi/neoosi-core/internal/core/domain"
)

// IndexService owns the live vector index
type IndexService interface {
	// Initialize publishes the first index: the persisted artifact when it
	// matches the corpus, a fresh build otherwise. Returns *domain.IngestError
	// for an empty corpus.
	Initialize(ctx context.Context) error

	// Rebuild re-ingests and re-embeds the whole corpus and swaps the new
	// index in atomically. Concurrent callers share one rebuild.
	Rebuild(ctx context.Context) (*domain.IndexStatus, error)

	// Status describes the live index
	Status() *domain.IndexStatus

	// Refresh publishes the persisted artifact when another instance saved
	// one newer than the live index. Reports whether the index changed.
	Refresh(ctx context.Context) (bool, error)
}

// TaskService schedules background maintenance
type TaskService interface {
	// EnqueueRebuild schedules an index rebuild. Without a queue the rebuild
	// runs in the background of this process and the returned task is
	// processing.
	EnqueueRebuild(ctx context.Context, requestedBy, reason string) (*domain.Task, error)

	// GetTask returns a task by ID or domain.ErrNotFound
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)
}
