package history

import (
	"strings"
	"testing"

	"github.com/isjackalive/aifr/internal/llm"
)

func turns(n int) []llm.Message {
	var msgs []llm.Message
	for i := 0; i < n; i++ {
		msgs = append(msgs,
			llm.Message{Role: llm.RoleUser, Content: "question"},
			llm.Message{Role: llm.RoleAssistant, Content: "answer"},
		)
	}
	return msgs
}

func TestEmptyState(t *testing.T) {
	msgs, escalate := Build("sys", nil, "hello", DefaultMaxTurns, 6000)
	if escalate {
		t.Fatal("unexpected escalation")
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Role != llm.RoleSystem || msgs[0].Content != "sys" {
		t.Errorf("first message must be the system prompt, got %+v", msgs[0])
	}
	if msgs[1].Role != llm.RoleUser || msgs[1].Content != "hello" {
		t.Errorf("last message must be the new user turn, got %+v", msgs[1])
	}
}

func TestSlidingWindow(t *testing.T) {
	// 12 persisted turns with max_turns=5 yield 10 window messages plus
	// system plus the new user message.
	msgs, escalate := Build("sys", turns(12), "next", 5, 0)
	if escalate {
		t.Fatal("unexpected escalation")
	}
	if len(msgs) != 12 {
		t.Fatalf("expected 12 outgoing messages, got %d", len(msgs))
	}
	if msgs[1].Role != llm.RoleUser {
		t.Errorf("window must start with a user turn, got %s", msgs[1].Role)
	}
	if msgs[len(msgs)-2].Role != llm.RoleAssistant {
		t.Errorf("window must end with an assistant turn before the new user message")
	}
}

func TestSystemNeverDuplicated(t *testing.T) {
	msgs, _ := Build("sys", turns(3), "next", 5, 0)
	for i, m := range msgs[1:] {
		if m.Role == llm.RoleSystem {
			t.Errorf("system role at position %d", i+1)
		}
	}
}

func TestTokenBudgetDropsOldestPairs(t *testing.T) {
	// Each turn pair costs ~2*25 tokens; a budget of 120 fits the system
	// prompt, the new user message, and only the newest pair or two.
	state := []llm.Message{
		{Role: llm.RoleUser, Content: strings.Repeat("a", 100)},
		{Role: llm.RoleAssistant, Content: strings.Repeat("b", 100)},
		{Role: llm.RoleUser, Content: strings.Repeat("c", 100)},
		{Role: llm.RoleAssistant, Content: strings.Repeat("d", 100)},
		{Role: llm.RoleUser, Content: strings.Repeat("e", 100)},
		{Role: llm.RoleAssistant, Content: strings.Repeat("f", 100)},
	}

	msgs, escalate := Build("sys", state, "new question", 5, 120)
	if escalate {
		t.Fatal("unexpected escalation")
	}
	// Dropping is pairwise from the oldest side.
	if len(msgs)%2 != 0 {
		t.Errorf("window must shrink in pairs, got %d messages", len(msgs))
	}
	if len(msgs) >= 8 {
		t.Errorf("expected oldest pairs dropped, got %d messages", len(msgs))
	}
	// The newest pair survives longest.
	if len(msgs) > 2 {
		survivor := msgs[1]
		if !strings.HasPrefix(survivor.Content, "e") && !strings.HasPrefix(survivor.Content, "c") {
			t.Errorf("oldest pair should be dropped first, window starts with %q", survivor.Content[:1])
		}
	}
}

func TestEscalationSignal(t *testing.T) {
	// Even with the window empty the new user message exceeds the budget.
	msgs, escalate := Build("sys", turns(2), strings.Repeat("x", 4000), 5, 100)
	if !escalate {
		t.Fatal("expected escalation signal")
	}
	if len(msgs) != 2 {
		t.Fatalf("expected system + new user only, got %d messages", len(msgs))
	}
}

func TestPure(t *testing.T) {
	state := turns(8)
	before := make([]llm.Message, len(state))
	copy(before, state)

	Build("sys", state, "next", 3, 50)

	for i := range state {
		if state[i] != before[i] {
			t.Fatalf("persisted state mutated at index %d", i)
		}
	}
}
