package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	. "github.com/isjackalive/aifr/internal/logging"
)

// SherlockBaseURL is the CloudFerro Sherlock OpenAI-compatible endpoint.
const SherlockBaseURL = "https://api-sherlock.cloudferro.com/openai/v1"

// ChatProvider implements Provider for OpenAI-wire backends. One adapter
// serves Sherlock, OpenAI and OpenWebUI; only the base URL differs. Bearer
// authorization is handled by the client.
type ChatProvider struct {
	name   string
	client *openai.Client
}

// NewSherlockProvider returns the Sherlock adapter.
func NewSherlockProvider(apiKey string, timeout time.Duration) *ChatProvider {
	return newChatProvider("sherlock", apiKey, SherlockBaseURL, timeout)
}

// NewOpenAIProvider returns the OpenAI adapter (default api.openai.com).
func NewOpenAIProvider(apiKey string, timeout time.Duration) *ChatProvider {
	return newChatProvider("openai", apiKey, "", timeout)
}

// NewOpenWebUIProvider returns the OpenWebUI adapter. The caller must have
// validated that baseURL is non-empty; requests go to
// {baseURL}/api/chat/completions.
func NewOpenWebUIProvider(apiKey, baseURL string, timeout time.Duration) *ChatProvider {
	base := strings.TrimSuffix(baseURL, "/") + "/api"
	return newChatProvider("openwebui", apiKey, base, timeout)
}

func newChatProvider(name, apiKey, baseURL string, timeout time.Duration) *ChatProvider {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return &ChatProvider{
		name:   name,
		client: openai.NewClientWithConfig(cfg),
	}
}

// Name implements Provider.
func (p *ChatProvider) Name() string { return p.name }

// Call implements Provider. The request is a standard chat-completions POST;
// the response yields choices[0].message.content and the usage block.
func (p *ChatProvider) Call(ctx context.Context, model string, messages []Message) (*Response, error) {
	req := openai.ChatCompletionRequest{
		Model:    model,
		Messages: toWire(messages),
	}

	L_debug("llm: chat request", "provider", p.name, "model", model, "messages", len(messages))

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, p.normalize(model, err)
	}

	if len(resp.Choices) == 0 {
		return nil, &APIError{Provider: p.name, Message: "response contained no choices"}
	}

	out := &Response{
		Content: resp.Choices[0].Message.Content,
		Model:   model,
	}
	if resp.Model != "" {
		out.Model = resp.Model
	}
	// Usage of zero across the board means the backend didn't report it.
	if resp.Usage.TotalTokens > 0 || resp.Usage.PromptTokens > 0 {
		out.PromptTokens = intPtr(resp.Usage.PromptTokens)
		out.CompletionTokens = intPtr(resp.Usage.CompletionTokens)
		out.TotalTokens = intPtr(resp.Usage.TotalTokens)
	}

	return out, nil
}

func toWire(messages []Message) []openai.ChatCompletionMessage {
	wire := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		wire = append(wire, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}
	return wire
}

// normalize maps SDK errors onto the typed taxonomy.
func (p *ChatProvider) normalize(model string, err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return normalizeError(p.name, model, apiErr.HTTPStatusCode, apiErr.Message)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return normalizeError(p.name, model, reqErr.HTTPStatusCode, reqErr.Error())
	}

	// Transport-level failure (DNS, timeout, connection refused).
	return &APIError{Provider: p.name, Message: err.Error()}
}

func intPtr(v int) *int { return &v }
