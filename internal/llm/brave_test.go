package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/isjackalive/aifr/internal/envelope"
)

func braveServer(t *testing.T, handler http.HandlerFunc) *BraveProvider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := NewBraveProvider("brave-key", 5*time.Second)
	p.endpoint = srv.URL
	return p
}

func TestBraveCall(t *testing.T) {
	var gotQuery, gotToken string

	p := braveServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("q")
		gotToken = r.Header.Get("X-Subscription-Token")
		json.NewEncoder(w).Encode(map[string]any{
			"status": "complete",
			"title":  "Result",
			"summary": []map[string]any{
				{"type": "token", "data": "First part."},
				{"type": "token", "data": "Second part."},
			},
		})
	})

	msgs := []Message{
		{Role: RoleSystem, Content: "ignored"},
		{Role: RoleUser, Content: "old question"},
		{Role: RoleAssistant, Content: "old answer"},
		{Role: RoleUser, Content: envelope.Build("what is quantum computing?", nil, "", "line1\n")},
	}

	resp, err := p.Call(context.Background(), "summarizer", msgs)
	if err != nil {
		t.Fatalf("call failed: %v", err)
	}

	// Only the last user message's plain text becomes the query.
	if gotQuery != "what is quantum computing?" {
		t.Errorf("unexpected query %q", gotQuery)
	}
	if gotToken != "brave-key" {
		t.Errorf("unexpected subscription token %q", gotToken)
	}

	if resp.Content != "First part.\n\nSecond part." {
		t.Errorf("unexpected content %q", resp.Content)
	}
	// Brave reports no usage; token fields stay nil.
	if resp.PromptTokens != nil || resp.CompletionTokens != nil || resp.TotalTokens != nil {
		t.Error("brave responses must not carry token counts")
	}
}

func TestBraveHTTPError(t *testing.T) {
	p := braveServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"invalid subscription token"}`))
	})

	_, err := p.Call(context.Background(), "summarizer", []Message{{Role: RoleUser, Content: "hi"}})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusForbidden {
		t.Errorf("unexpected status %d", apiErr.StatusCode)
	}
}

func TestBraveEmptySummary(t *testing.T) {
	p := braveServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"status": "complete", "summary": []any{}})
	})

	_, err := p.Call(context.Background(), "summarizer", []Message{{Role: RoleUser, Content: "hi"}})
	if err == nil {
		t.Fatal("expected an error for an empty summary")
	}
}

func TestBraveNoUserMessage(t *testing.T) {
	p := NewBraveProvider("k", time.Second)
	if _, err := p.Call(context.Background(), "summarizer", []Message{{Role: RoleSystem, Content: "s"}}); err == nil {
		t.Fatal("expected an error with no user message")
	}
}
