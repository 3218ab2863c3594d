// Package model picks the concrete model id for a request: explicit override
// first, then custom-agent model, then keyword class, with context-size
// escalation on top.
package model

import (
	"strings"

	"github.com/isjackalive/aifr/internal/agent"
	"github.com/isjackalive/aifr/internal/config"
	. "github.com/isjackalive/aifr/internal/logging"
)

// Sherlock model table.
const (
	ModelDocument = "Bielik-11B-v2.6-Instruct"
	ModelCreative = "openai/gpt-oss-120b"
	ModelDialog   = "PLLuM-8x7B-chat"
	ModelAnalysis = "DeepSeek-R1-Distill-Llama-70B"
	ModelFallback = "Llama-3.1-8B-Instruct"

	// EscalationModel is the large-window model used when the estimated
	// token count exceeds the context limit.
	EscalationModel = "openai/gpt-oss-120b"
)

// Defaults for non-sherlock providers.
const (
	OpenAIDefaultModel = "gpt-4o-mini"
	BraveModel         = "summarizer" // placeholder; Brave ignores the model id
)

// Keyword classes, checked in order. Bilingual (Polish + English), sorted.
var (
	documentKeywords = []string{
		"document", "dokument", "podsumuj", "raport", "report", "streszczenie",
		"streść", "summarize", "summary", "tldr",
	}
	creativeKeywords = []string{
		"create", "imagine", "napisz", "opowiadanie", "poem", "story", "wiersz",
	}
	dialogKeywords = []string{
		"chat", "converse", "dialog", "pogadaj", "porozmawiaj", "rozmowa",
	}
	analysisKeywords = []string{
		"analiz", "analyze", "błąd", "debug", "error", "exception", "fail",
		"fix", "traceback",
	}
)

// Input carries everything selection depends on.
type Input struct {
	Prompt          string
	Agent           agent.Agent
	Explicit        string // -m value, empty if unset
	EstimatedTokens int    // sum of ceil(chars / 4) per outgoing message
	ContextLimit    int
	Provider        string
	Aliases         map[string]string
	ModelDefault    string
}

// Selection is the resolved model, possibly with a provider override from
// provider/id syntax.
type Selection struct {
	Model     string
	Provider  string // provider to use (input provider unless overridden)
	Explicit  bool   // true when the user pinned the model with -m
	Escalated bool   // true when context escalation replaced the model
}

var knownProviders = map[string]bool{
	config.ProviderSherlock:  true,
	config.ProviderOpenAI:    true,
	config.ProviderOpenWebUI: true,
	config.ProviderBrave:     true,
}

// Select resolves the model id for one request.
func Select(in Input) (Selection, error) {
	sel := Selection{Provider: in.Provider}

	switch {
	case in.Explicit != "":
		sel.Explicit = true
		sel.Provider, sel.Model = resolveExplicit(in.Explicit, in.Aliases, in.Provider)
	case in.Agent.Kind == agent.KindCustom && in.Agent.Model != "":
		sel.Model = in.Agent.Model
	default:
		m, err := defaultModel(in)
		if err != nil {
			return Selection{}, err
		}
		sel.Model = m
	}

	// Context escalation. An explicit -m wins over escalation; the user is
	// warned instead.
	if in.ContextLimit > 0 && in.EstimatedTokens > in.ContextLimit && sel.Provider == config.ProviderSherlock {
		if sel.Explicit {
			L_warn("estimated tokens exceed context limit; keeping explicit model",
				"estimated", in.EstimatedTokens, "limit", in.ContextLimit, "model", sel.Model)
		} else if sel.Model != EscalationModel {
			L_debug("context escalation", "from", sel.Model, "to", EscalationModel,
				"estimated", in.EstimatedTokens, "limit", in.ContextLimit)
			sel.Model = EscalationModel
			sel.Escalated = true
		}
	}

	return sel, nil
}

// resolveExplicit expands an alias and splits provider/id syntax. The prefix
// counts as a provider override only when it names a known provider: model
// ids like openai/gpt-oss-120b exist on sherlock itself.
func resolveExplicit(explicit string, aliases map[string]string, provider string) (string, string) {
	resolved := explicit
	if v, ok := aliases[explicit]; ok {
		resolved = v
	}

	if prefix, rest, found := strings.Cut(resolved, "/"); found {
		p := strings.ToLower(prefix)
		if knownProviders[p] && rest != "" {
			return p, rest
		}
	}
	return provider, resolved
}

// defaultModel picks a model when neither -m nor a custom agent decides.
// Keyword routing applies to sherlock; other providers get their fixed
// default.
func defaultModel(in Input) (string, error) {
	switch in.Provider {
	case config.ProviderSherlock:
		return keywordModel(in.Prompt), nil
	case config.ProviderOpenAI:
		return OpenAIDefaultModel, nil
	case config.ProviderOpenWebUI:
		if in.ModelDefault == "" {
			return "", &config.ConfigError{Msg: "openwebui provider requires model_default in config or an explicit -m"}
		}
		return in.ModelDefault, nil
	case config.ProviderBrave:
		return BraveModel, nil
	default:
		return "", &config.ConfigError{Msg: "unknown provider: " + in.Provider}
	}
}

func keywordModel(prompt string) string {
	p := strings.ToLower(prompt)
	switch {
	case containsAny(p, documentKeywords):
		return ModelDocument
	case containsAny(p, creativeKeywords):
		return ModelCreative
	case containsAny(p, dialogKeywords):
		return ModelDialog
	case containsAny(p, analysisKeywords):
		return ModelAnalysis
	default:
		return ModelFallback
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// Builtin returns the built-in sherlock model table for --list-models.
func Builtin() []struct{ Purpose, ID string } {
	return []struct{ Purpose, ID string }{
		{"documents / summaries", ModelDocument},
		{"creative writing", ModelCreative},
		{"dialog / chat", ModelDialog},
		{"analysis / debugging", ModelAnalysis},
		{"general fallback", ModelFallback},
		{"context escalation", EscalationModel},
	}
}
