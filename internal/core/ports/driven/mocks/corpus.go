package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/neoosi/neoosi-core/internal/core/domain"
	"github.com/neoosi/neoosi-core/internal/core/ports/driven"
)

// Ensure MockCorpusSource implements CorpusSource
var _ driven.CorpusSource = (*MockCorpusSource)(nil)

// MockCorpusSource serves documents from memory
type MockCorpusSource struct {
	mu   sync.Mutex
	docs map[string]*domain.Document

	DocumentsFn func() ([]*domain.Document, error)
}

// NewMockCorpusSource creates a corpus of plain-text documents keyed by id
func NewMockCorpusSource(texts map[string]string) *MockCorpusSource {
	m := &MockCorpusSource{docs: make(map[string]*domain.Document)}
	for id, text := range texts {
		m.docs[id] = &domain.Document{ID: id, Path: id + ".txt", Title: id, MimeType: "text/plain", Content: text}
	}
	return m
}

func (m *MockCorpusSource) Documents(ctx context.Context) ([]*domain.Document, error) {
	if m.DocumentsFn != nil {
		return m.DocumentsFn()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	docs := make([]*domain.Document, 0, len(m.docs))
	for _, d := range m.docs {
		copied := *d
		docs = append(docs, &copied)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (m *MockCorpusSource) Location() string {
	return "memory"
}

// Put adds or replaces a document
func (m *MockCorpusSource) Put(id, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[id] = &domain.Document{ID: id, Path: id + ".txt", Title: id, MimeType: "text/plain", Content: text}
}
