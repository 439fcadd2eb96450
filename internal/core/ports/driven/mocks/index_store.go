package mocks

import (
	"context"
	"sync"

	"github.com/neoosi/neoosi-core/internal/core/domain"
	"github.com/neoosi/neoosi-core/internal/core/ports/driven"
)

// Ensure MockIndexStore implements IndexStore
var _ driven.IndexStore = (*MockIndexStore)(nil)

// MockIndexStore keeps the last saved artifact in memory
type MockIndexStore struct {
	mu       sync.Mutex
	artifact *domain.IndexArtifact

	SaveCalls int
	LoadCalls int
	StatCalls int

	SaveFn func(artifact *domain.IndexArtifact) error
	LoadFn func() (*domain.IndexArtifact, error)
}

// NewMockIndexStore creates a new MockIndexStore
func NewMockIndexStore() *MockIndexStore {
	return &MockIndexStore{}
}

func (m *MockIndexStore) Save(ctx context.Context, artifact *domain.IndexArtifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCalls++
	if m.SaveFn != nil {
		return m.SaveFn(artifact)
	}
	m.artifact = artifact
	return nil
}

func (m *MockIndexStore) Load(ctx context.Context) (*domain.IndexArtifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LoadCalls++
	if m.LoadFn != nil {
		return m.LoadFn()
	}
	if m.artifact == nil {
		return nil, domain.ErrNotFound
	}
	return m.artifact, nil
}

func (m *MockIndexStore) Stat(ctx context.Context) (*domain.IndexArtifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.StatCalls++
	if m.artifact == nil {
		return nil, domain.ErrNotFound
	}
	meta := *m.artifact
	meta.Chunks = nil
	return &meta, nil
}

func (m *MockIndexStore) Location() string {
	return "memory"
}

func (m *MockIndexStore) Close() error {
	return nil
}

// Artifact returns the last saved artifact
func (m *MockIndexStore) Artifact() *domain.IndexArtifact {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.artifact
}
