package ai

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/neoosi/neoosi-core/internal/core/domain"
)

const requestTimeout = 60 * time.Second

// newClient builds an OpenAI-compatible client for settings. Gemini and
// Ollama are reached through their OpenAI-compatible endpoints.
func newClient(settings *domain.BackendSettings) *openai.Client {
	apiKey := settings.APIKey
	if apiKey == "" {
		apiKey = string(settings.Provider) // Ollama ignores the key but the header must be set
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL := settings.EffectiveBaseURL(); baseURL != "" {
		config.BaseURL = baseURL
	}
	config.HTTPClient = &http.Client{Timeout: requestTimeout}

	return openai.NewClientWithConfig(config)
}

// transientStatus lists HTTP statuses that mean "try again later"
var transientStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// classifyError wraps overload responses with domain.ErrBackendOverloaded
func classifyError(op string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if transientStatus[apiErr.HTTPStatusCode] {
			return fmt.Errorf("%s: %w: %s", op, domain.ErrBackendOverloaded, apiErr.Message)
		}
		return fmt.Errorf("%s: status %d: %w", op, apiErr.HTTPStatusCode, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if transientStatus[reqErr.HTTPStatusCode] {
			return fmt.Errorf("%s: %w: status %d", op, domain.ErrBackendOverloaded, reqErr.HTTPStatusCode)
		}
		return fmt.Errorf("%s: status %d: %w", op, reqErr.HTTPStatusCode, err)
	}

	return fmt.Errorf("%s: %w", op, err)
}
