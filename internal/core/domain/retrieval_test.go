package domain

import (
	"errors"
	"testing"
	"time"
)

func TestDefaultRetrievalSettings(t *testing.T) {
	s := DefaultRetrievalSettings()

	if s.Retriever != RetrieverHybrid {
		t.Errorf("expected hybrid retriever, got %s", s.Retriever)
	}
	if s.ChunkSize != 1000 || s.ChunkOverlap != 200 {
		t.Errorf("expected 1000/200 segmentation, got %d/%d", s.ChunkSize, s.ChunkOverlap)
	}
	if s.ContextBudget != 20000 {
		t.Errorf("expected context budget 20000, got %d", s.ContextBudget)
	}
	if s.MaxAttempts != 3 {
		t.Errorf("expected 3 attempts, got %d", s.MaxAttempts)
	}
	if s.BaseBackoff != time.Second {
		t.Errorf("expected 1s base backoff, got %v", s.BaseBackoff)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestRetrievalSettingsValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*RetrievalSettings)
	}{
		{"unknown retriever", func(s *RetrievalSettings) { s.Retriever = "bm25" }},
		{"zero chunk size", func(s *RetrievalSettings) { s.ChunkSize = 0 }},
		{"overlap equals size", func(s *RetrievalSettings) { s.ChunkOverlap = s.ChunkSize }},
		{"negative overlap", func(s *RetrievalSettings) { s.ChunkOverlap = -1 }},
		{"zero top k", func(s *RetrievalSettings) { s.TopK = 0 }},
		{"zero budget", func(s *RetrievalSettings) { s.ContextBudget = 0 }},
		{"zero attempts", func(s *RetrievalSettings) { s.MaxAttempts = 0 }},
		{"zero batch", func(s *RetrievalSettings) { s.EmbeddingBatchSize = 0 }},
		{"negative history", func(s *RetrievalSettings) { s.HistoryTurns = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultRetrievalSettings()
			tt.modify(&s)
			err := s.Validate()
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestDocumentSet(t *testing.T) {
	all := NewDocumentSet()
	if !all.All() {
		t.Error("empty set should mean all documents")
	}
	if !all.Allows("anything") {
		t.Error("empty set should allow every document")
	}

	s := NewDocumentSet("a", "b")
	s.Add("c")
	if s.All() {
		t.Error("non-empty set should restrict")
	}
	for _, id := range []string{"a", "b", "c"} {
		if !s.Allows(id) {
			t.Errorf("expected %s to be allowed", id)
		}
	}
	if s.Allows("d") {
		t.Error("expected d to be rejected")
	}
}
