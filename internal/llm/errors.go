package llm

import (
	"fmt"
	"strings"
)

// APIError is any provider failure that is not a context overflow: non-2xx
// HTTP, network failure, malformed response body.
type APIError struct {
	Provider   string
	StatusCode int // 0 when the request never reached the server
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// ContextLengthError indicates the prompt exceeded the model's context
// window. Distinct from APIError so the orchestrator can retry once with a
// larger-window model.
type ContextLengthError struct {
	Provider string
	Model    string
	Message  string
}

func (e *ContextLengthError) Error() string {
	return fmt.Sprintf("%s: context length exceeded for model %s: %s", e.Provider, e.Model, e.Message)
}

// contextOverflowMarkers are the phrases providers embed in error bodies
// when the prompt is too large. Checked case-insensitively.
var contextOverflowMarkers = []string{
	"context length",
	"maximum context",
	"context_length_exceeded",
	"context window",
	"prompt is too long",
	"too many tokens",
}

// IsContextOverflowMessage checks whether an error body or message indicates
// context overflow. Works across providers; patterns collected from OpenAI,
// OpenAI-compatible servers, and proxy gateways.
func IsContextOverflowMessage(msg string) bool {
	if msg == "" {
		return false
	}
	lower := strings.ToLower(msg)
	for _, marker := range contextOverflowMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// normalizeError converts a raw provider failure into the typed taxonomy.
// statusCode may be 0 for transport-level failures. Any failure whose body
// carries an overflow marker becomes a ContextLengthError, whatever the
// status code; everything else is an APIError.
func normalizeError(provider, model string, statusCode int, message string) error {
	if IsContextOverflowMessage(message) {
		return &ContextLengthError{Provider: provider, Model: model, Message: message}
	}
	return &APIError{Provider: provider, StatusCode: statusCode, Message: message}
}
