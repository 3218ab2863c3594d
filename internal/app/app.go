// Package app wires the request pipeline for one invocation: attachments,
// classification, model selection, context assembly, the provider call, and
// session persistence.
package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/isjackalive/aifr/internal/agent"
	"github.com/isjackalive/aifr/internal/config"
	"github.com/isjackalive/aifr/internal/console"
	"github.com/isjackalive/aifr/internal/envelope"
	"github.com/isjackalive/aifr/internal/fileload"
	"github.com/isjackalive/aifr/internal/history"
	"github.com/isjackalive/aifr/internal/llm"
	. "github.com/isjackalive/aifr/internal/logging"
	"github.com/isjackalive/aifr/internal/model"
	"github.com/isjackalive/aifr/internal/render"
	"github.com/isjackalive/aifr/internal/session"
	"github.com/isjackalive/aifr/internal/tokens"
)

// Args is the per-invocation request, produced by the CLI layer.
type Args struct {
	Prompt       string
	Files        []string
	Console      string
	Model        string
	ContextLimit int
	Agent        string
	Stats        bool
	Raw          bool
	Stdin        string // piped stdin content, empty when stdin is a TTY
}

// App holds the wiring for request runs. The function fields default to the
// real collaborators and exist for test injection.
type App struct {
	Cfg   *config.Config
	Store *session.Store

	Stdout      io.Writer
	Stderr      io.Writer
	StdoutIsTTY bool

	NewProvider func(name string, cfg *config.Config) (llm.Provider, error)
	LoadFile    func(path string) (string, int, error)
	CaptureCmd  func(ctx context.Context, cmd string, timeout time.Duration) (string, int, error)
}

// New returns an App bound to the real collaborators.
func New(cfg *config.Config, store *session.Store, stdout, stderr io.Writer, stdoutIsTTY bool) *App {
	return &App{
		Cfg:         cfg,
		Store:       store,
		Stdout:      stdout,
		Stderr:      stderr,
		StdoutIsTTY: stdoutIsTTY,
		NewProvider: llm.New,
		LoadFile:    fileload.Load,
		CaptureCmd:  console.Run,
	}
}

// Run executes one request end to end. The returned error is user-facing;
// the caller maps it to an exit code.
func (a *App) Run(ctx context.Context, args Args) error {
	state := a.Store.Load()

	// Attachments, in fixed envelope order: files, console, stdin.
	var files []string
	fileBytes := 0
	for _, path := range args.Files {
		content, size, err := a.LoadFile(path)
		if err != nil {
			return err
		}
		files = append(files, content)
		fileBytes += size
	}

	var consoleOut string
	if args.Console != "" {
		out, status, err := a.CaptureCmd(ctx, args.Console, console.DefaultTimeout)
		if err != nil {
			return fmt.Errorf("failed to run command %q: %w", args.Console, err)
		}
		L_debug("console: captured", "cmd", args.Console, "exit", status, "bytes", len(out))
		consoleOut = out
	}

	userMsg := envelope.Build(args.Prompt, files, consoleOut, args.Stdin)

	ag, ok := agent.Classify(agent.Input{
		Prompt:               args.Prompt,
		HasFile:              len(files) > 0,
		FileBytes:            fileBytes,
		HasConsole:           args.Console != "",
		StdinLooksLikeStderr: envelope.LooksLikeStderr(args.Stdin),
		Override:             args.Agent,
	}, a.Cfg.CustomAgents)
	if !ok {
		return &config.ConfigError{Msg: fmt.Sprintf("unknown agent %q (not in custom_agents)", args.Agent)}
	}

	contextLimit := a.Cfg.ContextLimit
	if args.ContextLimit > 0 {
		contextLimit = args.ContextLimit
	}

	msgs, _ := history.Build(ag.SystemPrompt, state, userMsg, history.DefaultMaxTurns, contextLimit)

	est := 0
	for _, m := range msgs {
		est += tokens.Estimate(m.Content)
	}

	sel, err := model.Select(model.Input{
		Prompt:          args.Prompt,
		Agent:           ag,
		Explicit:        args.Model,
		EstimatedTokens: est,
		ContextLimit:    contextLimit,
		Provider:        a.Cfg.Provider,
		Aliases:         a.Cfg.ModelAliases,
		ModelDefault:    a.Cfg.ModelDefault,
	})
	if err != nil {
		return err
	}

	cfg, err := a.configFor(sel.Provider)
	if err != nil {
		return err
	}
	provider, err := a.NewProvider(sel.Provider, cfg)
	if err != nil {
		return err
	}

	if sel.Provider == config.ProviderBrave && len(state) > 0 {
		// Brave provider is stateless per call: only the latest user message
		// reaches the summarizer, prior turns are dropped.
		L_debug("brave: collapsing conversation to last user message", "droppedTurns", len(state)/2)
	}

	resp, err := provider.Call(ctx, sel.Model, msgs)
	if err != nil {
		resp, err = a.retryOnOverflow(ctx, provider, sel, msgs, err)
		if err != nil {
			return err
		}
	}

	userTurn := llm.Message{Role: llm.RoleUser, Content: userMsg}
	assistantTurn := llm.Message{Role: llm.RoleAssistant, Content: resp.Content}
	if err := a.Store.Append(state, userTurn, assistantTurn); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	if args.Stats {
		fmt.Fprintf(a.Stderr, "[Agent: %s | Model: %s | Tokens: %s/%s/%s]\n",
			ag.String(), resp.Model,
			tokenField(resp.PromptTokens), tokenField(resp.CompletionTokens), tokenField(resp.TotalTokens))
	}

	return render.Write(a.Stdout, resp.Content, a.StdoutIsTTY, args.Raw)
}

// retryOnOverflow handles the single context-overflow retry: auto-selected
// models are retried once on the escalation model; an explicit override
// surfaces the error unchanged.
func (a *App) retryOnOverflow(ctx context.Context, provider llm.Provider, sel model.Selection, msgs []llm.Message, callErr error) (*llm.Response, error) {
	overflow, ok := callErr.(*llm.ContextLengthError)
	if !ok {
		return nil, callErr
	}
	if sel.Explicit || sel.Model == model.EscalationModel {
		return nil, callErr
	}

	L_warn("context length exceeded, retrying with larger model",
		"from", overflow.Model, "to", model.EscalationModel)

	return provider.Call(ctx, model.EscalationModel, msgs)
}

// configFor returns the config to build a provider from. A provider/id
// override targets a provider other than the configured one, so its API key
// comes from the environment.
func (a *App) configFor(provider string) (*config.Config, error) {
	if provider == a.Cfg.Provider {
		if err := a.Cfg.Validate(); err != nil {
			return nil, err
		}
		return a.Cfg, nil
	}

	clone := *a.Cfg
	clone.Provider = provider
	clone.APIKey = config.KeyFor(provider)
	if err := clone.Validate(); err != nil {
		return nil, err
	}
	return &clone, nil
}

func tokenField(v *int) string {
	if v == nil {
		return "?"
	}
	return fmt.Sprintf("%d", *v)
}
