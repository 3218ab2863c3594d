// Package agent classifies a request into an agent kind and supplies the
// matching system prompt. Classification is deterministic: plain ASCII
// lowercasing over the prompt, fixed keyword tables, strict priority.
package agent

import (
	"strings"

	"github.com/isjackalive/aifr/internal/config"
)

// Kind identifies the selected agent.
type Kind string

const (
	KindDebugger   Kind = "DEBUGGER"
	KindSummarizer Kind = "SUMMARIZER"
	KindCreative   Kind = "CREATIVE"
	KindCoder      Kind = "CODER"
	KindDefault    Kind = "DEFAULT"
	KindCustom     Kind = "CUSTOM"
)

// SummarizerFileThreshold is the attachment size (bytes) beyond which a
// request is routed to the summarizer even without a summary keyword.
const SummarizerFileThreshold = 64 * 1024

// Agent pairs a kind with its system prompt. Custom agents additionally
// carry a model override from the config.
type Agent struct {
	Kind         Kind
	Name         string // custom agent name, empty otherwise
	SystemPrompt string
	Model        string // custom agent model override, empty otherwise
}

// System prompts per agent kind.
const (
	debuggerPrompt = "You are a debugging assistant. Analyze the provided error output, " +
		"stack traces and code carefully. Name the most likely root cause first, " +
		"then propose the smallest concrete fix. Answer in the language the user used."

	coderPrompt = "You are a programming assistant. Ground every answer in the attached " +
		"file content, cite the relevant fragments, and prefer idiomatic patterns for " +
		"the language at hand. Answer in the language the user used."

	creativePrompt = "You are a creative writer. Respond in an expressive, narrative " +
		"register appropriate to the request. Answer in the language the user used."

	summarizerPrompt = "You are a summarization assistant. Produce a concise, " +
		"hierarchical summary using short bullet points, most important first. " +
		"Answer in the language the user used."

	defaultPrompt = "You are a helpful terminal assistant. Be accurate and concise. " +
		"Answer in the language the user used."
)

// Keyword tables, bilingual (Polish + English). Kept sorted for determinism.
var (
	debuggerKeywords = []string{
		"broken", "błąd", "debug", "error", "exception", "fail", "fix", "traceback",
	}
	coderKeywords = []string{
		"class", "code", "function", "implement", "klasa", "kod", "refactor",
	}
	creativeKeywords = []string{
		"create", "imagine", "napisz", "opowiadanie", "poem", "story", "wiersz",
	}
	summarizerKeywords = []string{
		"explain", "podsumuj", "streść", "summarize", "tldr", "wytłumacz",
	}
)

// Input captures everything classification depends on.
type Input struct {
	Prompt               string
	HasFile              bool
	FileBytes            int // total size of attached files
	HasConsole           bool
	StdinLooksLikeStderr bool
	Override             string // explicit --agent name, bypasses keywords
}

// Classify maps an input to an agent. The explicit override resolves against
// custom_agents from the config; otherwise keyword priority is strict:
// DEBUGGER > CODER > CREATIVE > SUMMARIZER > DEFAULT.
func Classify(in Input, customAgents map[string]config.CustomAgent) (Agent, bool) {
	if in.Override != "" {
		custom, ok := customAgents[in.Override]
		if !ok {
			return Agent{}, false
		}
		return Agent{
			Kind:         KindCustom,
			Name:         in.Override,
			SystemPrompt: custom.SystemPrompt,
			Model:        custom.Model,
		}, true
	}

	prompt := strings.ToLower(in.Prompt)

	if in.HasConsole || in.StdinLooksLikeStderr || containsAny(prompt, debuggerKeywords) {
		return Agent{Kind: KindDebugger, SystemPrompt: debuggerPrompt}, true
	}
	if in.HasFile && containsAny(prompt, coderKeywords) {
		return Agent{Kind: KindCoder, SystemPrompt: coderPrompt}, true
	}
	if containsAny(prompt, creativeKeywords) {
		return Agent{Kind: KindCreative, SystemPrompt: creativePrompt}, true
	}
	if containsAny(prompt, summarizerKeywords) || (in.HasFile && in.FileBytes >= SummarizerFileThreshold) {
		return Agent{Kind: KindSummarizer, SystemPrompt: summarizerPrompt}, true
	}
	return Agent{Kind: KindDefault, SystemPrompt: defaultPrompt}, true
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// String returns the kind label used in the --stats line. Custom agents show
// as CUSTOM(<name>).
func (a Agent) String() string {
	if a.Kind == KindCustom {
		return string(KindCustom) + "(" + a.Name + ")"
	}
	return string(a.Kind)
}
