package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/neoosi/neoosi-core/internal/core/domain"
	"github.com/neoosi/neoosi-core/internal/core/ports/driven"
	"github.com/neoosi/neoosi-core/internal/core/ports/driving"
)

// Verify interface compliance
var _ driving.TaskService = (*taskService)(nil)

// maxInlineTasks bounds the in-memory record of inline rebuilds
const maxInlineTasks = 64

// taskService hands rebuilds to the worker queue. Without a queue it runs
// them in the background of this process and remembers the most recent
// tasks in memory.
type taskService struct {
	queue  driven.TaskQueue
	index  driving.IndexService
	logger *slog.Logger

	mu      sync.Mutex
	inline  map[string]*domain.Task
	order   []string // inline task ids, oldest first
	running sync.WaitGroup
}

// NewTaskService creates a new TaskService. queue may be nil.
func NewTaskService(queue driven.TaskQueue, index driving.IndexService, logger *slog.Logger) driving.TaskService {
	if logger == nil {
		logger = slog.Default()
	}
	return &taskService{
		queue:  queue,
		index:  index,
		logger: logger,
		inline: make(map[string]*domain.Task),
	}
}

// EnqueueRebuild schedules an index rebuild
func (s *taskService) EnqueueRebuild(ctx context.Context, requestedBy, reason string) (*domain.Task, error) {
	task := domain.NewRebuildIndexTask(requestedBy, reason)

	if s.queue != nil {
		if err := s.queue.Enqueue(ctx, task); err != nil {
			return nil, fmt.Errorf("enqueue rebuild: %w", err)
		}
		s.logger.Info("enqueued index rebuild", "task_id", task.ID, "requested_by", requestedBy, "reason", reason)
		return task, nil
	}

	task.MarkProcessing()
	s.remember(task)

	// The rebuild outlives the request that asked for it
	rebuildCtx := context.WithoutCancel(ctx)
	s.running.Add(1)
	go func(task domain.Task) {
		defer s.running.Done()

		if _, err := s.index.Rebuild(rebuildCtx); err != nil {
			s.logger.Error("inline index rebuild failed", "task_id", task.ID, "error", err)
			task.MarkFailed(err.Error())
		} else {
			task.MarkCompleted()
		}
		s.update(&task)
	}(*task)

	s.logger.Info("started inline index rebuild", "task_id", task.ID, "requested_by", requestedBy, "reason", reason)
	return task, nil
}

// GetTask returns a task by ID
func (s *taskService) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	if taskID == "" {
		return nil, domain.ErrInvalidInput
	}

	s.mu.Lock()
	task, ok := s.inline[taskID]
	s.mu.Unlock()
	if ok {
		return task, nil
	}

	if s.queue == nil {
		return nil, domain.ErrNotFound
	}
	task, err := s.queue.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, domain.ErrNotFound
	}
	return task, nil
}

// remember records a new task, evicting the oldest record past
// maxInlineTasks.
func (s *taskService) remember(task *domain.Task) {
	stored := *task

	s.mu.Lock()
	defer s.mu.Unlock()

	s.inline[stored.ID] = &stored
	s.order = append(s.order, stored.ID)

	for len(s.order) > maxInlineTasks {
		delete(s.inline, s.order[0])
		s.order = s.order[1:]
	}
}

// update replaces the record of task unless it was already evicted
func (s *taskService) update(task *domain.Task) {
	stored := *task

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.inline[stored.ID]; ok {
		s.inline[stored.ID] = &stored
	}
}

// wait blocks until inline rebuilds have finished
func (s *taskService) wait() {
	s.running.Wait()
}
