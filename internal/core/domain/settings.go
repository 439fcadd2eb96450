package domain

import "strings"

// AIProvider identifies the AI backend family. Every provider is reached
// through an OpenAI-compatible API.
type AIProvider string

const (
	AIProviderOpenAI AIProvider = "openai"
	AIProviderGemini AIProvider = "gemini"
	AIProviderOllama AIProvider = "ollama"
)

// Default OpenAI-compatible endpoints per provider.
const (
	GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	OllamaBaseURL = "http://localhost:11434/v1"
)

// BackendSettings configures one AI backend (embedding or generation).
type BackendSettings struct {
	Provider AIProvider `json:"provider"`
	Model    string     `json:"model"`
	APIKey   string     `json:"-"` // Never serialize to JSON
	BaseURL  string     `json:"base_url,omitempty"`
}

// IsConfigured returns true if the backend can be constructed
func (b *BackendSettings) IsConfigured() bool {
	if b.Provider == "" || b.Model == "" {
		return false
	}
	if b.Provider.RequiresAPIKey() && b.APIKey == "" {
		return false
	}
	return true
}

// EffectiveBaseURL returns the configured base URL or the provider default.
// An empty result means the client library default (api.openai.com).
func (b *BackendSettings) EffectiveBaseURL() string {
	if b.BaseURL != "" {
		return strings.TrimRight(b.BaseURL, "/")
	}
	switch b.Provider {
	case AIProviderGemini:
		return strings.TrimRight(GeminiBaseURL, "/")
	case AIProviderOllama:
		return OllamaBaseURL
	default:
		return ""
	}
}

// RequiresAPIKey returns true if this provider requires an API key
func (p AIProvider) RequiresAPIKey() bool {
	switch p {
	case AIProviderOllama:
		return false // Self-hosted, no API key needed
	default:
		return true
	}
}

// IsValid returns true if this is a known provider
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOpenAI, AIProviderGemini, AIProviderOllama:
		return true
	default:
		return false
	}
}

// AISettings groups the backends used by the assistant.
// Secondary is optional; without it the gateway has no fallback.
type AISettings struct {
	Embedding BackendSettings  `json:"embedding"`
	Primary   BackendSettings  `json:"primary"`
	Secondary *BackendSettings `json:"secondary,omitempty"`
}

// Validate checks if AISettings are valid
func (s *AISettings) Validate() error {
	if s.Embedding.Provider != "" && !s.Embedding.Provider.IsValid() {
		return ErrInvalidProvider
	}
	if s.Primary.Provider != "" && !s.Primary.Provider.IsValid() {
		return ErrInvalidProvider
	}
	if s.Secondary != nil && s.Secondary.Provider != "" && !s.Secondary.Provider.IsValid() {
		return ErrInvalidProvider
	}
	return nil
}
