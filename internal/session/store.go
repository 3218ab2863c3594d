// Package session persists conversation state across process invocations.
// The session file is the only durable link between turns: one JSON file,
// rewritten atomically after each successful completion.
package session

import (
	"encoding/json"
	"os"
	"time"

	"github.com/isjackalive/aifr/internal/config"
	"github.com/isjackalive/aifr/internal/llm"
	. "github.com/isjackalive/aifr/internal/logging"
	"github.com/isjackalive/aifr/internal/paths"
)

// Version is the session file format version.
const Version = 1

// TTL is the maximum age of a session before it is discarded on load.
const TTL = 4 * time.Hour

type fileFormat struct {
	Version     int           `json:"version"`
	LastUpdated time.Time     `json:"last_updated"`
	Messages    []llm.Message `json:"messages"`
}

// Store reads and writes one session file. Single-user, one process at a
// time; atomic rename guarantees a reader never sees a partial write.
type Store struct {
	path string
	now  func() time.Time
}

// Open resolves the session path for a name ("" = default session) and
// returns a store for it.
func Open(name string) (*Store, error) {
	path, err := paths.SessionFile(name)
	if err != nil {
		return nil, err
	}
	return New(path), nil
}

// New returns a store bound to an explicit file path.
func New(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// Path returns the session file path.
func (s *Store) Path() string { return s.path }

// Load returns the persisted messages. Missing file, malformed JSON, or age
// beyond the TTL all yield an empty state; only malformed JSON emits a
// notice.
func (s *Store) Load() []llm.Message {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			L_debug("session: unreadable, starting fresh", "path", s.path, "error", err)
		}
		return nil
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		L_warn("session: malformed session file, starting fresh", "path", s.path, "error", err)
		return nil
	}

	if s.now().Sub(f.LastUpdated) > TTL {
		L_debug("session: expired, starting fresh", "path", s.path, "lastUpdated", f.LastUpdated)
		return nil
	}

	return sanitize(f.Messages)
}

// sanitize enforces the state invariants on whatever was read back: no
// system messages, strict user/assistant alternation starting with user, no
// dangling user turn.
func sanitize(msgs []llm.Message) []llm.Message {
	var out []llm.Message
	for _, m := range msgs {
		switch m.Role {
		case llm.RoleUser:
			if len(out)%2 == 0 {
				out = append(out, m)
			}
		case llm.RoleAssistant:
			if len(out)%2 == 1 {
				out = append(out, m)
			}
		}
	}
	if len(out)%2 == 1 {
		out = out[:len(out)-1]
	}
	return out
}

// Append persists state plus the new (user, assistant) pair. The write is
// atomic: both messages become durable together or not at all.
func (s *Store) Append(state []llm.Message, user, assistant llm.Message) error {
	msgs := make([]llm.Message, 0, len(state)+2)
	msgs = append(msgs, state...)
	msgs = append(msgs,
		llm.Message{Role: llm.RoleUser, Content: user.Content},
		llm.Message{Role: llm.RoleAssistant, Content: assistant.Content},
	)

	f := fileFormat{
		Version:     Version,
		LastUpdated: s.now(),
		Messages:    msgs,
	}

	if err := config.AtomicWriteJSON(s.path, f, 0600); err != nil {
		return err
	}

	L_debug("session: saved", "path", s.path, "messages", len(msgs))
	return nil
}

// Clear deletes the session file. Idempotent.
func (s *Store) Clear() error {
	err := os.Remove(s.path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
