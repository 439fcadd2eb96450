package mocks

import (
	"context"
	"sync"

	"github.com/neoosi/neoosi-core/internal/core/domain"
	"github.com/neoosi/neoosi-core/internal/core/ports/driven"
)

// Ensure MockChatHistoryStore implements ChatHistoryStore
var _ driven.ChatHistoryStore = (*MockChatHistoryStore)(nil)

// MockChatHistoryStore is an in-memory ChatHistoryStore for testing.
// Every successful Append is also sent to Appended when it is non-nil.
type MockChatHistoryStore struct {
	mu    sync.Mutex
	turns []*domain.ChatTurn

	Appended chan *domain.ChatTurn
	AppendFn func(turn *domain.ChatTurn) error
	ListFn   func(userID string, category domain.ChatCategory, limit int) ([]*domain.ChatTurn, error)
	PingFn   func() error
}

// NewMockChatHistoryStore creates a new MockChatHistoryStore
func NewMockChatHistoryStore() *MockChatHistoryStore {
	return &MockChatHistoryStore{}
}

func (m *MockChatHistoryStore) Append(ctx context.Context, turn *domain.ChatTurn) error {
	if m.AppendFn != nil {
		if err := m.AppendFn(turn); err != nil {
			return err
		}
	}

	m.mu.Lock()
	m.turns = append(m.turns, turn)
	m.mu.Unlock()

	if m.Appended != nil {
		m.Appended <- turn
	}
	return nil
}

func (m *MockChatHistoryStore) List(ctx context.Context, userID string, category domain.ChatCategory, limit int) ([]*domain.ChatTurn, error) {
	if m.ListFn != nil {
		return m.ListFn(userID, category, limit)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*domain.ChatTurn
	for _, t := range m.turns {
		if t.UserID == userID && t.Category == category {
			result = append(result, t)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result, nil
}

func (m *MockChatHistoryStore) Ping(ctx context.Context) error {
	if m.PingFn != nil {
		return m.PingFn()
	}
	return nil
}

// Seed stores turns directly (for test setup)
func (m *MockChatHistoryStore) Seed(turns ...*domain.ChatTurn) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns = append(m.turns, turns...)
}

// Len returns the number of stored turns
func (m *MockChatHistoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.turns)
}
