package mocks

import (
	"sync"
	"unicode/utf8"

	"github.com/neoosi/neoosi-core/internal/core/ports/driven"
)

// MockNormaliser applies NormaliseFn, or returns content unchanged
type MockNormaliser struct {
	Types       []string
	Rank        int
	NormaliseFn func(content, mimeType string) string
}

func (m *MockNormaliser) Normalise(content, mimeType string) string {
	if m.NormaliseFn != nil {
		return m.NormaliseFn(content, mimeType)
	}
	return content
}

func (m *MockNormaliser) SupportedTypes() []string { return m.Types }
func (m *MockNormaliser) Priority() int            { return m.Rank }

// MockNormaliserRegistry maps exact MIME types to normalisers and records
// every lookup.
type MockNormaliserRegistry struct {
	mu      sync.Mutex
	byType  map[string]driven.Normaliser
	lookups []string
}

func NewMockNormaliserRegistry() *MockNormaliserRegistry {
	return &MockNormaliserRegistry{byType: make(map[string]driven.Normaliser)}
}

func (m *MockNormaliserRegistry) Get(mimeType string) driven.Normaliser {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups = append(m.lookups, mimeType)
	return m.byType[mimeType]
}

func (m *MockNormaliserRegistry) GetAll(mimeType string) []driven.Normaliser {
	if n := m.Get(mimeType); n != nil {
		return []driven.Normaliser{n}
	}
	return nil
}

func (m *MockNormaliserRegistry) Register(n driven.Normaliser) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range n.SupportedTypes() {
		m.byType[t] = n
	}
}

func (m *MockNormaliserRegistry) List() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, 0, len(m.byType))
	for t := range m.byType {
		types = append(types, t)
	}
	return types
}

// Lookups returns the MIME types passed to Get, in call order
func (m *MockNormaliserRegistry) Lookups() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.lookups...)
}

// MockPostProcessorPipeline returns ProcessFn's chunks, or the whole
// content as one chunk. Empty content yields no chunks.
type MockPostProcessorPipeline struct {
	ProcessFn func(content string) []driven.Chunk
}

func NewMockPostProcessorPipeline() *MockPostProcessorPipeline {
	return &MockPostProcessorPipeline{}
}

func (m *MockPostProcessorPipeline) Process(content string) []driven.Chunk {
	if m.ProcessFn != nil {
		return m.ProcessFn(content)
	}
	if content == "" {
		return nil
	}
	return []driven.Chunk{{Content: content, EndOffset: utf8.RuneCountInString(content)}}
}

func (m *MockPostProcessorPipeline) Add(driven.PostProcessor) {}

func (m *MockPostProcessorPipeline) List() []string { return []string{"mock"} }
