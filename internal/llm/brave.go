package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/isjackalive/aifr/internal/envelope"
	. "github.com/isjackalive/aifr/internal/logging"
)

// BraveSummarizerURL is Brave's summarizer search endpoint.
const BraveSummarizerURL = "https://api.search.brave.com/res/v1/summarizer/search"

// BraveProvider implements Provider over Brave's summarizer API. Brave is
// stateless per call: the messages array collapses to the last user
// message's plain text, prior turns are never sent, and no usage block is
// returned (token counts stay nil).
type BraveProvider struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewBraveProvider returns the Brave summarizer adapter.
func NewBraveProvider(apiKey string, timeout time.Duration) *BraveProvider {
	return &BraveProvider{
		apiKey:   apiKey,
		endpoint: BraveSummarizerURL,
		client:   &http.Client{Timeout: timeout},
	}
}

// Name implements Provider.
func (p *BraveProvider) Name() string { return "brave" }

type braveSummaryResponse struct {
	Status  string `json:"status"`
	Title   string `json:"title"`
	Summary []struct {
		Type string `json:"type"`
		Data string `json:"data"`
	} `json:"summary"`
}

// Call implements Provider. The model argument is ignored; Brave has a
// single summarizer backend.
func (p *BraveProvider) Call(ctx context.Context, model string, messages []Message) (*Response, error) {
	query := lastUserQuery(messages)
	if query == "" {
		return nil, &APIError{Provider: p.Name(), Message: "no user message to summarize"}
	}

	reqURL := p.endpoint + "?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &APIError{Provider: p.Name(), Message: err.Error()}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", p.apiKey)

	L_debug("llm: summarizer request", "provider", p.Name(), "queryLen", len(query))

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &APIError{Provider: p.Name(), Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &APIError{Provider: p.Name(), Message: fmt.Sprintf("failed to read response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, normalizeError(p.Name(), model, resp.StatusCode, string(body))
	}

	var parsed braveSummaryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &APIError{Provider: p.Name(), StatusCode: resp.StatusCode,
			Message: fmt.Sprintf("malformed JSON response: %v", err)}
	}

	var parts []string
	for _, s := range parsed.Summary {
		if s.Data != "" {
			parts = append(parts, s.Data)
		}
	}
	if len(parts) == 0 {
		return nil, &APIError{Provider: p.Name(), StatusCode: resp.StatusCode,
			Message: "response contained no summary"}
	}

	return &Response{
		Content: strings.Join(parts, "\n\n"),
		Model:   "brave-summarizer",
	}, nil
}

// lastUserQuery extracts the last user message's plain text with envelope
// markers stripped.
func lastUserQuery(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return envelope.Strip(messages[i].Content)
		}
	}
	return ""
}
