package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/neoosi/neoosi-core/internal/core/domain"
)

func newTestEmbedding(t *testing.T, baseURL string) *OpenAIEmbedding {
	t.Helper()
	svc, err := NewOpenAIEmbedding(&domain.BackendSettings{
		Provider: domain.AIProviderOpenAI,
		Model:    "text-embedding-3-small",
		APIKey:   "sk-test",
		BaseURL:  baseURL,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return svc
}

func TestNewOpenAIEmbedding_RequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIEmbedding(&domain.BackendSettings{Provider: domain.AIProviderOpenAI, Model: "text-embedding-3-small"})
	if err == nil {
		t.Error("expected error for empty API key")
	}
}

func TestNewOpenAIEmbedding_Dimensions(t *testing.T) {
	testCases := []struct {
		model      string
		dimensions int
	}{
		{"text-embedding-3-small", 1536},
		{"text-embedding-3-large", 3072},
		{"text-embedding-004", 768},
		{"unknown-model", 0}, // known after the first response
	}

	for _, tc := range testCases {
		t.Run(tc.model, func(t *testing.T) {
			svc, err := NewOpenAIEmbedding(&domain.BackendSettings{Provider: domain.AIProviderOpenAI, Model: tc.model, APIKey: "sk-test"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if svc.Dimensions() != tc.dimensions {
				t.Errorf("expected dimensions %d, got %d", tc.dimensions, svc.Dimensions())
			}
		})
	}
}

func TestOpenAIEmbedding_Embed_EmptyInput(t *testing.T) {
	svc := newTestEmbedding(t, "http://127.0.0.1:1")

	result, err := svc.Embed(context.Background(), []string{})
	if err != nil {
		t.Errorf("unexpected error for empty input: %v", err)
	}
	if result != nil {
		t.Error("expected nil result for empty input")
	}
}

func TestOpenAIEmbedding_Embed_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/embeddings" {
			t.Errorf("expected /embeddings, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			t.Error("expected Authorization header")
		}

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		if len(req.Input) != 2 || req.Model != "text-embedding-3-small" {
			t.Errorf("unexpected request: %+v", req)
		}

		// Out of order on purpose
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","model":"text-embedding-3-small","data":[
			{"object":"embedding","index":1,"embedding":[0.4,0.5,0.6]},
			{"object":"embedding","index":0,"embedding":[0.1,0.2,0.3]}
		]}`))
	}))
	defer server.Close()

	svc := newTestEmbedding(t, server.URL)

	result, err := svc.Embed(context.Background(), []string{"вывоз мусора", "отопление"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 2 {
		t.Fatalf("expected 2 embeddings, got %d", len(result))
	}
	if result[0][0] != 0.1 || result[1][0] != 0.4 {
		t.Errorf("embeddings not ordered by index: %v", result)
	}
	if svc.Dimensions() != 3 {
		t.Errorf("expected dimensions from response, got %d", svc.Dimensions())
	}
}

func TestOpenAIEmbedding_EmbedQuery_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer server.Close()

	svc := newTestEmbedding(t, server.URL)

	result, err := svc.EmbedQuery(context.Background(), "Что такое ОСИ?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 3 {
		t.Errorf("expected 3 dimensions, got %d", len(result))
	}
}

func TestOpenAIEmbedding_Embed_MissingVector(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[0.1]}]}`))
	}))
	defer server.Close()

	svc := newTestEmbedding(t, server.URL)

	if _, err := svc.Embed(context.Background(), []string{"a", "b"}); err == nil {
		t.Error("expected error when a vector is missing")
	}
}

func TestOpenAIEmbedding_Embed_Errors(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		body          string
		wantTransient bool
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"Invalid API key","type":"invalid_request_error","code":"invalid_api_key"}}`, false},
		{"overloaded", http.StatusServiceUnavailable, `{"error":{"message":"The model is overloaded","type":"server_error"}}`, true},
		{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down","type":"rate_limit"}}`, true},
		{"plain text failure", http.StatusBadGateway, `bad gateway`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			svc := newTestEmbedding(t, server.URL)

			_, err := svc.Embed(context.Background(), []string{"test"})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, domain.ErrBackendOverloaded); got != tt.wantTransient {
				t.Errorf("transient = %v, want %v (err: %v)", got, tt.wantTransient, err)
			}
		})
	}
}

func TestOpenAIEmbedding_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"object":"embedding","index":0,"embedding":[1]}]}`))
	}))
	defer server.Close()

	svc := newTestEmbedding(t, server.URL)
	if err := svc.HealthCheck(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Errorf("unexpected error from Close: %v", err)
	}
}
