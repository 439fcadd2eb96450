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

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

const chatResponse = `{"id":"1","object":"chat.completion","model":"gemini-2.5-flash","choices":[
	{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Взносы платят собственники."}}]}`

func newTestGenerator(t *testing.T, baseURL string) *OpenAIGenerator {
	t.Helper()
	gen, err := NewOpenAIGenerator("primary", &domain.BackendSettings{
		Provider: domain.AIProviderGemini,
		Model:    "gemini-2.5-flash",
		APIKey:   "key",
		BaseURL:  baseURL,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return gen
}

func TestNewOpenAIGenerator_Validation(t *testing.T) {
	if _, err := NewOpenAIGenerator("primary", &domain.BackendSettings{Provider: domain.AIProviderOpenAI, Model: "gpt-4o-mini"}); err == nil {
		t.Error("expected error for missing API key")
	}
	if _, err := NewOpenAIGenerator("primary", &domain.BackendSettings{Provider: domain.AIProviderOllama}); err == nil {
		t.Error("expected error for missing model")
	}
	if _, err := NewOpenAIGenerator("primary", &domain.BackendSettings{Provider: domain.AIProviderOllama, Model: "llama3"}); err != nil {
		t.Errorf("ollama needs no API key: %v", err)
	}
}

func TestOpenAIGenerator_Generate(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("expected /chat/completions, got %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatResponse))
	}))
	defer server.Close()

	gen := newTestGenerator(t, server.URL)

	history := []*domain.ChatTurn{domain.NewChatTurn("u1", domain.ChatCategoryGeneral, "Что такое ОСИ?", "Объединение собственников.")}
	text, err := gen.Generate(context.Background(), "Кто платит взносы?", history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "Взносы платят собственники." {
		t.Errorf("unexpected text %q", text)
	}

	if got.Model != "gemini-2.5-flash" {
		t.Errorf("expected model gemini-2.5-flash, got %s", got.Model)
	}
	if len(got.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got.Messages))
	}
	wantRoles := []string{"user", "assistant", "user"}
	for i, m := range got.Messages {
		if m.Role != wantRoles[i] {
			t.Errorf("message %d: expected role %s, got %s", i, wantRoles[i], m.Role)
		}
	}
	if got.Messages[2].Content != "Кто платит взносы?" {
		t.Errorf("prompt must be the last message, got %q", got.Messages[2].Content)
	}
}

func TestOpenAIGenerator_Overloaded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"code":503,"message":"The model is overloaded. Please try again later.","status":"UNAVAILABLE"}}`))
	}))
	defer server.Close()

	_, err := newTestGenerator(t, server.URL).Generate(context.Background(), "prompt", nil)
	if !errors.Is(err, domain.ErrBackendOverloaded) {
		t.Errorf("expected ErrBackendOverloaded, got %v", err)
	}
}

func TestOpenAIGenerator_BadRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad model","type":"invalid_request_error"}}`))
	}))
	defer server.Close()

	_, err := newTestGenerator(t, server.URL).Generate(context.Background(), "prompt", nil)
	if err == nil || errors.Is(err, domain.ErrBackendOverloaded) {
		t.Errorf("expected a non-transient error, got %v", err)
	}
}

func TestOpenAIGenerator_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"1","object":"chat.completion","choices":[]}`))
	}))
	defer server.Close()

	if _, err := newTestGenerator(t, server.URL).Generate(context.Background(), "prompt", nil); err == nil {
		t.Error("expected error for empty choices")
	}
}

func TestOpenAIGenerator_Ping(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("expected /models, got %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"gemini-2.5-flash","object":"model"}]}`))
	}))
	defer server.Close()

	if err := newTestGenerator(t, server.URL).Ping(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
