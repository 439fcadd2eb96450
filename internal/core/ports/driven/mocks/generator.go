package mocks

import (
	"context"
	"sync"

	"github.com/neoosi/neoosi-core/internal/core/domain"
	"github.com/neoosi/neoosi-core/internal/core/ports/driven"
)

// Ensure MockGenerator implements Generator
var _ driven.Generator = (*MockGenerator)(nil)

// MockResponse is one scripted Generate result
type MockResponse struct {
	Text string
	Err  error
}

// GenerateCall records the arguments of one Generate call
type GenerateCall struct {
	Prompt  string
	History []*domain.ChatTurn
}

// MockGenerator is a scripted Generator for testing.
// Scripted responses are consumed in order; afterwards DefaultText is returned.
// GenerateFn, when set, takes precedence over the script.
type MockGenerator struct {
	mu        sync.Mutex
	name      string
	model     string
	responses []MockResponse
	calls     []GenerateCall

	DefaultText string
	GenerateFn  func(ctx context.Context, prompt string, history []*domain.ChatTurn) (string, error)
	PingFn      func() error
}

// NewMockGenerator creates a new MockGenerator
func NewMockGenerator(name string) *MockGenerator {
	return &MockGenerator{
		name:        name,
		model:       "mock-chat-model",
		DefaultText: "ok",
	}
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string, history []*domain.ChatTurn) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, GenerateCall{Prompt: prompt, History: history})
	fn := m.GenerateFn
	var next *MockResponse
	if fn == nil && len(m.responses) > 0 {
		r := m.responses[0]
		m.responses = m.responses[1:]
		next = &r
	}
	def := m.DefaultText
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, prompt, history)
	}
	if next != nil {
		return next.Text, next.Err
	}
	return def, nil
}

func (m *MockGenerator) Name() string {
	return m.name
}

func (m *MockGenerator) Model() string {
	return m.model
}

func (m *MockGenerator) Ping(ctx context.Context) error {
	if m.PingFn != nil {
		return m.PingFn()
	}
	return nil
}

func (m *MockGenerator) Close() error {
	return nil
}

// Helper methods for testing

// Script appends responses to the script
func (m *MockGenerator) Script(responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, responses...)
}

// CallCount returns the number of Generate calls
func (m *MockGenerator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns a copy of the recorded calls
func (m *MockGenerator) Calls() []GenerateCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]GenerateCall(nil), m.calls...)
}

// LastPrompt returns the prompt of the most recent call
func (m *MockGenerator) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return ""
	}
	return m.calls[len(m.calls)-1].Prompt
}
