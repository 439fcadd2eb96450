package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the user lacks permission for this action
	ErrForbidden = errors.New("forbidden")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrInvalidProvider indicates an unknown AI provider was specified
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrServiceUnavailable indicates a backend could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrBackendOverloaded marks a transient generation failure that may be retried
	ErrBackendOverloaded = errors.New("backend overloaded")

	// ErrRebuildInProgress indicates another index rebuild holds the lock
	ErrRebuildInProgress = errors.New("index rebuild already in progress")

	// ErrIndexNotReady indicates no index snapshot has been published yet
	ErrIndexNotReady = errors.New("index not ready")
)

// IngestError reports an empty or unreadable corpus. Fatal at startup.
type IngestError struct {
	Source string
	Err    error
}

func (e *IngestError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("ingest %s: corpus is empty", e.Source)
	}
	return fmt.Sprintf("ingest %s: %v", e.Source, e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }

// IndexLoadError reports a persisted index that could not be restored.
// Callers rebuild from source when they see it.
type IndexLoadError struct {
	Path   string
	Reason string
	Err    error
}

func (e *IndexLoadError) Error() string {
	msg := fmt.Sprintf("load index %s: %s", e.Path, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *IndexLoadError) Unwrap() error { return e.Err }

// EmbeddingError wraps a failure of the external embedding function.
type EmbeddingError struct {
	Model string
	Err   error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding (%s): %v", e.Model, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// GenerationError is returned by the generation gateway once every backend
// has failed. Err is the last underlying error.
type GenerationError struct {
	Backend  string
	Attempts int
	Err      error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed after %d attempt(s), last backend %s: %v", e.Attempts, e.Backend, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ClassificationParseError describes classifier output outside the closed
// answer set. It is logged and resolved to a default, never returned to users.
type ClassificationParseError struct {
	Classifier string
	Output     string
}

func (e *ClassificationParseError) Error() string {
	return fmt.Sprintf("%s classifier: unparseable output %q", e.Classifier, e.Output)
}
