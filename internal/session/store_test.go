package session

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/isjackalive/aifr/internal/llm"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	return New(filepath.Join(t.TempDir(), "session.json"))
}

func TestLoadMissing(t *testing.T) {
	s := tempStore(t)
	if msgs := s.Load(); len(msgs) != 0 {
		t.Errorf("expected empty state, got %d messages", len(msgs))
	}
}

func TestAppendRoundtrip(t *testing.T) {
	s := tempStore(t)

	user := llm.Message{Role: llm.RoleUser, Content: "what is 2+2?"}
	assistant := llm.Message{Role: llm.RoleAssistant, Content: "4"}

	if err := s.Append(nil, user, assistant); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	msgs := s.Load()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0] != user || msgs[1] != assistant {
		t.Errorf("messages not byte-identical after roundtrip: %+v", msgs)
	}
}

func TestAppendGrows(t *testing.T) {
	s := tempStore(t)

	state := s.Load()
	for i := 0; i < 3; i++ {
		u := llm.Message{Role: llm.RoleUser, Content: "q"}
		a := llm.Message{Role: llm.RoleAssistant, Content: "a"}
		if err := s.Append(state, u, a); err != nil {
			t.Fatalf("append %d failed: %v", i, err)
		}
		state = s.Load()
	}

	if len(state) != 6 {
		t.Fatalf("expected 6 messages, got %d", len(state))
	}
	// User and assistant turns stay balanced and strictly alternating.
	for i, m := range state {
		want := llm.RoleUser
		if i%2 == 1 {
			want = llm.RoleAssistant
		}
		if m.Role != want {
			t.Errorf("position %d: role %s, want %s", i, m.Role, want)
		}
	}
}

func TestMalformedFile(t *testing.T) {
	s := tempStore(t)
	if err := os.WriteFile(s.Path(), []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if msgs := s.Load(); len(msgs) != 0 {
		t.Errorf("malformed file should load as empty, got %d messages", len(msgs))
	}
}

func TestTTLExpiry(t *testing.T) {
	s := tempStore(t)
	if err := s.Append(nil,
		llm.Message{Role: llm.RoleUser, Content: "q"},
		llm.Message{Role: llm.RoleAssistant, Content: "a"}); err != nil {
		t.Fatal(err)
	}

	// Fresh session loads fine.
	if msgs := s.Load(); len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}

	// Shift the clock past the TTL.
	s.now = func() time.Time { return time.Now().Add(TTL + time.Minute) }
	if msgs := s.Load(); len(msgs) != 0 {
		t.Errorf("expired session should load as empty, got %d messages", len(msgs))
	}
}

func TestSanitize(t *testing.T) {
	s := tempStore(t)

	// A hand-edited file with a system message and a dangling user turn.
	f := fileFormat{
		Version:     Version,
		LastUpdated: time.Now(),
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: "should never be here"},
			{Role: llm.RoleUser, Content: "q1"},
			{Role: llm.RoleAssistant, Content: "a1"},
			{Role: llm.RoleUser, Content: "dangling"},
		},
	}
	data, _ := json.Marshal(f)
	if err := os.WriteFile(s.Path(), data, 0600); err != nil {
		t.Fatal(err)
	}

	msgs := s.Load()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages after sanitize, got %d", len(msgs))
	}
	if msgs[0].Content != "q1" || msgs[1].Content != "a1" {
		t.Errorf("unexpected surviving messages: %+v", msgs)
	}
}

func TestClearIdempotent(t *testing.T) {
	s := tempStore(t)
	if err := s.Clear(); err != nil {
		t.Fatalf("clear of missing file failed: %v", err)
	}

	if err := s.Append(nil,
		llm.Message{Role: llm.RoleUser, Content: "q"},
		llm.Message{Role: llm.RoleAssistant, Content: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	if _, err := os.Stat(s.Path()); !os.IsNotExist(err) {
		t.Error("session file should be gone after clear")
	}
	if err := s.Clear(); err != nil {
		t.Fatalf("second clear failed: %v", err)
	}
}

func TestNoTempFileLeftBehind(t *testing.T) {
	s := tempStore(t)
	if err := s.Append(nil,
		llm.Message{Role: llm.RoleUser, Content: "q"},
		llm.Message{Role: llm.RoleAssistant, Content: "a"}); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}
