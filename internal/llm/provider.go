// Package llm provides unified LLM provider interfaces and implementations.
package llm

import (
	"context"
)

// Message represents a conversation message (provider-agnostic).
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// Roles used in Message.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Response is the normalized completion result. Token counts are nil when
// the provider does not report usage.
type Response struct {
	Content          string
	PromptTokens     *int
	CompletionTokens *int
	TotalTokens      *int
	Model            string // model that actually served the request
}

// Provider is the unified interface for all remote backends.
// Implementations: ChatProvider (sherlock, openai, openwebui), BraveProvider.
type Provider interface {
	// Name returns the provider name as used in config ("sherlock", ...).
	Name() string

	// Call issues one completion for the given messages and returns the
	// normalized response. Errors are *APIError or *ContextLengthError.
	Call(ctx context.Context, model string, messages []Message) (*Response, error)
}
