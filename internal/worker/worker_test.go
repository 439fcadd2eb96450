package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neoosi/neoosi-core/internal/core/domain"
	"github.com/neoosi/neoosi-core/internal/core/ports/driven/mocks"
	"github.com/neoosi/neoosi-core/internal/observability"
)

// stubIndex counts rebuilds and returns err from each
type stubIndex struct {
	mu      sync.Mutex
	calls   int
	err     error
	started chan struct{}
	release chan struct{}

	refreshes  int
	refreshed  bool
	refreshErr error
}

func (s *stubIndex) Initialize(ctx context.Context) error { return nil }

func (s *stubIndex) Rebuild(ctx context.Context) (*domain.IndexStatus, error) {
	s.mu.Lock()
	s.calls++
	err := s.err
	s.mu.Unlock()

	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.release != nil {
		<-s.release
	}
	if err != nil {
		return nil, err
	}
	return &domain.IndexStatus{Ready: true, Documents: 8, Chunks: 120, Dimensions: 1536}, nil
}

func (s *stubIndex) Status() *domain.IndexStatus { return &domain.IndexStatus{} }

func (s *stubIndex) Refresh(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refreshes++
	return s.refreshed, s.refreshErr
}

func (s *stubIndex) Refreshes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshes
}

func (s *stubIndex) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// errQueue fails every dequeue
type errQueue struct {
	*mocks.MockTaskQueue
	mu    sync.Mutex
	calls int
}

func (q *errQueue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	q.mu.Lock()
	q.calls++
	q.mu.Unlock()
	return nil, errors.New("redis down")
}

func (q *errQueue) Ping(ctx context.Context) error { return errors.New("redis down") }

func newTestWorker(queue *mocks.MockTaskQueue, index *stubIndex) (*Worker, *observability.Metrics) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	return NewWorker(WorkerConfig{
		TaskQueue:      queue,
		Index:          index,
		Metrics:        metrics,
		DequeueTimeout: 1,
	}), metrics
}

func TestNewWorker_Defaults(t *testing.T) {
	w := NewWorker(WorkerConfig{TaskQueue: mocks.NewMockTaskQueue()})

	assert.Equal(t, 1, w.concurrency)
	assert.Equal(t, 5, w.dequeueTimeout)
	assert.Equal(t, time.Second, w.errorBackoff)
	assert.NotNil(t, w.logger)
}

func TestWorker_ProcessesRebuild(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	index := &stubIndex{}
	w, metrics := newTestWorker(queue, index)

	task := domain.NewRebuildIndexTask("admin-1", "corpus updated")
	require.NoError(t, queue.Enqueue(context.Background(), task))

	require.NoError(t, w.Start(context.Background()))
	require.Eventually(t, func() bool {
		got, _ := queue.GetTask(context.Background(), task.ID)
		return got.Status == domain.TaskStatusCompleted
	}, time.Second, 5*time.Millisecond)
	w.Stop()

	assert.Equal(t, 1, index.Calls())
	assert.Equal(t, []string{task.ID}, queue.Acked)
	assert.Empty(t, queue.Nacked)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TasksTotal.WithLabelValues("rebuild_index", "completed")))
}

func TestWorker_NacksFailedRebuild(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	index := &stubIndex{err: domain.ErrRebuildInProgress}
	w, metrics := newTestWorker(queue, index)

	task := domain.NewRebuildIndexTask("", "")
	require.NoError(t, queue.Enqueue(context.Background(), task))

	require.NoError(t, w.Start(context.Background()))
	require.Eventually(t, func() bool {
		got, _ := queue.GetTask(context.Background(), task.ID)
		return got.Status == domain.TaskStatusFailed
	}, time.Second, 5*time.Millisecond)
	w.Stop()

	assert.Equal(t, []string{task.ID}, queue.Nacked)
	assert.Empty(t, queue.Acked)
	got, _ := queue.GetTask(context.Background(), task.ID)
	assert.Equal(t, domain.ErrRebuildInProgress.Error(), got.Error)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.TasksTotal.WithLabelValues("rebuild_index", "failed")))
}

func TestWorker_UnknownTaskType(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	index := &stubIndex{}
	w, _ := newTestWorker(queue, index)

	task := domain.NewTask("compact_history", "", nil)
	require.NoError(t, queue.Enqueue(context.Background(), task))

	require.NoError(t, w.Start(context.Background()))
	require.Eventually(t, func() bool {
		got, _ := queue.GetTask(context.Background(), task.ID)
		return got.Status == domain.TaskStatusFailed
	}, time.Second, 5*time.Millisecond)
	w.Stop()

	assert.Equal(t, 0, index.Calls())
	got, _ := queue.GetTask(context.Background(), task.ID)
	assert.Contains(t, got.Error, "unknown task type")
}

func TestWorker_StopWaitsForRunningTask(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	index := &stubIndex{started: make(chan struct{}, 1), release: make(chan struct{})}
	w, _ := newTestWorker(queue, index)

	task := domain.NewRebuildIndexTask("", "")
	require.NoError(t, queue.Enqueue(context.Background(), task))
	require.NoError(t, w.Start(context.Background()))

	select {
	case <-index.started:
	case <-time.After(time.Second):
		t.Fatal("rebuild did not start")
	}

	stopped := make(chan struct{})
	go func() {
		w.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		t.Fatal("Stop returned while a task was running")
	case <-time.After(20 * time.Millisecond):
	}

	close(index.release)
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
	assert.Equal(t, []string{task.ID}, queue.Acked)
}

func TestWorker_StartTwiceAndStopIdle(t *testing.T) {
	w, _ := newTestWorker(mocks.NewMockTaskQueue(), &stubIndex{})

	w.Stop() // not running

	require.NoError(t, w.Start(context.Background()))
	require.NoError(t, w.Start(context.Background()))
	assert.True(t, w.Health(context.Background()).Running)

	w.Stop()
	w.Wait()
	assert.False(t, w.Health(context.Background()).Running)
}

func TestWorker_ContextCancel(t *testing.T) {
	w, _ := newTestWorker(mocks.NewMockTaskQueue(), &stubIndex{})

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	cancel()

	done := make(chan struct{})
	go func() {
		w.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
}

func TestWorker_DequeueErrorBacksOff(t *testing.T) {
	queue := &errQueue{MockTaskQueue: mocks.NewMockTaskQueue()}
	w := NewWorker(WorkerConfig{TaskQueue: queue, Index: &stubIndex{}, ErrorBackoff: time.Hour})

	require.NoError(t, w.Start(context.Background()))
	time.Sleep(20 * time.Millisecond)
	w.Stop()

	queue.mu.Lock()
	defer queue.mu.Unlock()
	assert.Equal(t, 1, queue.calls, "the worker waits before dequeuing again")
}

func TestWorker_Health(t *testing.T) {
	w, _ := newTestWorker(mocks.NewMockTaskQueue(), &stubIndex{})
	health := w.Health(context.Background())
	assert.False(t, health.Running)
	assert.True(t, health.QueueHealth)
	assert.Empty(t, health.Error)

	broken := NewWorker(WorkerConfig{TaskQueue: &errQueue{MockTaskQueue: mocks.NewMockTaskQueue()}})
	health = broken.Health(context.Background())
	assert.False(t, health.QueueHealth)
	assert.Equal(t, "redis down", health.Error)
}
