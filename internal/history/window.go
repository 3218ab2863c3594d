// Package history assembles the outgoing message slice for one call: system
// prompt, a sliding window over the persisted conversation, and the new user
// message. Pure: no I/O, never mutates the persisted state.
package history

import (
	"github.com/isjackalive/aifr/internal/llm"
	"github.com/isjackalive/aifr/internal/tokens"
)

// DefaultMaxTurns is the sliding-window size in user+assistant pairs.
const DefaultMaxTurns = 5

// Build returns the messages for a call and whether context escalation is
// required. The window keeps at most maxTurns pairs from state; if the token
// estimate still exceeds contextLimit, the oldest surviving pairs are
// dropped. When only the system prompt and the new user message remain and
// the estimate is still over the limit, escalate is true and the messages
// are returned as-is.
func Build(systemPrompt string, state []llm.Message, newUser string, maxTurns, contextLimit int) ([]llm.Message, bool) {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}

	window := lastPairs(state, maxTurns)

	for {
		msgs := assemble(systemPrompt, window, newUser)
		if contextLimit <= 0 || estimate(msgs) <= contextLimit {
			return msgs, false
		}
		if len(window) == 0 {
			return msgs, true
		}
		// Drop the oldest surviving pair and retry.
		window = window[2:]
	}
}

// lastPairs returns up to maxTurns trailing user+assistant pairs. The
// persisted state alternates strictly starting with user, so pairs align on
// even offsets from the end.
func lastPairs(state []llm.Message, maxTurns int) []llm.Message {
	n := len(state) - len(state)%2
	keep := maxTurns * 2
	if n > keep {
		return state[len(state)-keep:]
	}
	return state[len(state)-n:]
}

func assemble(systemPrompt string, window []llm.Message, newUser string) []llm.Message {
	msgs := make([]llm.Message, 0, len(window)+2)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: systemPrompt})
	msgs = append(msgs, window...)
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: newUser})
	return msgs
}

func estimate(msgs []llm.Message) int {
	total := 0
	for _, m := range msgs {
		total += tokens.Estimate(m.Content)
	}
	return total
}
