package app

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/isjackalive/aifr/internal/config"
	"github.com/isjackalive/aifr/internal/envelope"
	"github.com/isjackalive/aifr/internal/llm"
	"github.com/isjackalive/aifr/internal/model"
	"github.com/isjackalive/aifr/internal/session"
)

// fakeProvider records calls and replays queued results.
type fakeProvider struct {
	name   string
	models []string        // model per call, in order
	msgs   [][]llm.Message // messages per call
	errs   []error         // error queue; nil entries succeed
	reply  string
	usage  bool
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Call(ctx context.Context, m string, messages []llm.Message) (*llm.Response, error) {
	f.models = append(f.models, m)
	copied := make([]llm.Message, len(messages))
	copy(copied, messages)
	f.msgs = append(f.msgs, copied)

	call := len(f.models) - 1
	if call < len(f.errs) && f.errs[call] != nil {
		return nil, f.errs[call]
	}

	resp := &llm.Response{Content: f.reply, Model: m}
	if f.usage {
		p, c, tot := 12, 3, 15
		resp.PromptTokens, resp.CompletionTokens, resp.TotalTokens = &p, &c, &tot
	}
	return resp, nil
}

type harness struct {
	app      *App
	provider *fakeProvider
	store    *session.Store
	stdout   *bytes.Buffer
	stderr   *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := &config.Config{
		APIKey:       "test-key",
		Provider:     config.ProviderSherlock,
		ContextLimit: config.DefaultContextLimit,
	}
	store := session.New(filepath.Join(t.TempDir(), "session.json"))
	provider := &fakeProvider{name: config.ProviderSherlock, reply: "the answer"}

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	a := New(cfg, store, stdout, stderr, false)
	a.NewProvider = func(name string, cfg *config.Config) (llm.Provider, error) {
		return provider, nil
	}

	return &harness{app: a, provider: provider, store: store, stdout: stdout, stderr: stderr}
}

func TestFreshDefault(t *testing.T) {
	h := newHarness(t)
	h.provider.usage = true

	err := h.app.Run(context.Background(), Args{Prompt: "What is 2+2?", Stats: true})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(h.provider.models) != 1 {
		t.Fatalf("expected 1 call, got %d", len(h.provider.models))
	}
	if h.provider.models[0] != model.ModelFallback {
		t.Errorf("expected %s, got %s", model.ModelFallback, h.provider.models[0])
	}

	msgs := h.provider.msgs[0]
	if len(msgs) != 2 {
		t.Fatalf("expected [system, user], got %d messages", len(msgs))
	}
	if msgs[0].Role != llm.RoleSystem {
		t.Errorf("first message role %s", msgs[0].Role)
	}
	if msgs[1].Role != llm.RoleUser || msgs[1].Content != "What is 2+2?" {
		t.Errorf("unexpected user message %+v", msgs[1])
	}

	state := h.store.Load()
	if len(state) != 2 {
		t.Fatalf("expected [user, assistant] persisted, got %d", len(state))
	}
	if state[0].Content != "What is 2+2?" || state[1].Content != "the answer" {
		t.Errorf("unexpected persisted turns: %+v", state)
	}

	stats := h.stderr.String()
	if !strings.Contains(stats, "[Agent: DEFAULT | Model: "+model.ModelFallback+" | Tokens: 12/3/15]") {
		t.Errorf("unexpected stats line: %q", stats)
	}

	if h.stdout.String() != "the answer\n" {
		t.Errorf("unexpected stdout %q", h.stdout.String())
	}
}

func TestDebugWithConsole(t *testing.T) {
	h := newHarness(t)
	h.app.CaptureCmd = func(ctx context.Context, cmd string, timeout time.Duration) (string, int, error) {
		if cmd != "pytest" {
			t.Errorf("unexpected command %q", cmd)
		}
		return "FAILED test_x.py::test_a", 1, nil
	}

	err := h.app.Run(context.Background(), Args{Prompt: "Why does this fail?", Console: "pytest", Stats: true})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if h.provider.models[0] != model.ModelAnalysis {
		t.Errorf("expected %s, got %s", model.ModelAnalysis, h.provider.models[0])
	}

	user := h.provider.msgs[0][1].Content
	want := "===CONSOLE_START===\nFAILED test_x.py::test_a\n===CONSOLE_END==="
	if !strings.Contains(user, want) {
		t.Errorf("console envelope missing:\n%s", user)
	}

	if !strings.Contains(h.stderr.String(), "[Agent: DEBUGGER") {
		t.Errorf("expected DEBUGGER in stats: %q", h.stderr.String())
	}
}

func TestOversizeEscalation(t *testing.T) {
	h := newHarness(t)
	big := strings.Repeat("x", 300*1024)
	h.app.LoadFile = func(path string) (string, int, error) {
		return big, len(big), nil
	}

	err := h.app.Run(context.Background(), Args{Prompt: "Summarize", Files: []string{"big.md"}, Stats: true})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	// ~75k estimated tokens against a 6000 limit forces the large model.
	if h.provider.models[0] != model.EscalationModel {
		t.Errorf("expected %s, got %s", model.EscalationModel, h.provider.models[0])
	}
	if !strings.Contains(h.stderr.String(), "[Agent: SUMMARIZER") {
		t.Errorf("expected SUMMARIZER in stats: %q", h.stderr.String())
	}
}

func TestSensitiveBlocked(t *testing.T) {
	h := newHarness(t)

	err := h.app.Run(context.Background(), Args{Prompt: "Read", Files: []string{
		filepath.Join("home", "u", ".ssh", "id_rsa"),
	}})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(strings.ToLower(err.Error()), "sensitive") {
		t.Errorf("error should mention sensitivity: %v", err)
	}

	if len(h.provider.models) != 0 {
		t.Error("no provider call may be issued for a blocked file")
	}
	if len(h.store.Load()) != 0 {
		t.Error("session must stay unchanged")
	}
}

func TestPipedStdin(t *testing.T) {
	h := newHarness(t)

	err := h.app.Run(context.Background(), Args{Prompt: "Translate", Stdin: "line1\nline2\n"})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	user := h.provider.msgs[0][1].Content
	if !strings.HasSuffix(user, "===STDIN_START===\nline1\nline2\n===STDIN_END===") {
		t.Errorf("user message should end with the stdin envelope:\n%q", user)
	}

	// Non-TTY stdout: no ANSI escapes.
	if strings.ContainsRune(h.stdout.String(), 0x1b) {
		t.Errorf("piped output must be raw: %q", h.stdout.String())
	}
}

func TestHistoryWindowAcrossTurns(t *testing.T) {
	h := newHarness(t)

	for i := 0; i < 3; i++ {
		if err := h.app.Run(context.Background(), Args{Prompt: "again"}); err != nil {
			t.Fatalf("turn %d failed: %v", i, err)
		}
	}

	// Third call sees system + 2 persisted pairs + new user.
	last := h.provider.msgs[2]
	if len(last) != 6 {
		t.Fatalf("expected 6 outgoing messages on turn 3, got %d", len(last))
	}
	if last[0].Role != llm.RoleSystem {
		t.Errorf("first outgoing message must be system")
	}

	if got := len(h.store.Load()); got != 6 {
		t.Errorf("expected 6 persisted messages, got %d", got)
	}
}

func TestOverflowRetry(t *testing.T) {
	h := newHarness(t)
	h.provider.errs = []error{
		&llm.ContextLengthError{Provider: "sherlock", Model: model.ModelFallback, Message: "maximum context length"},
		nil,
	}

	err := h.app.Run(context.Background(), Args{Prompt: "hello"})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(h.provider.models) != 2 {
		t.Fatalf("expected retry, got %d calls", len(h.provider.models))
	}
	if h.provider.models[1] != model.EscalationModel {
		t.Errorf("retry should use %s, got %s", model.EscalationModel, h.provider.models[1])
	}

	// The successful retry is persisted normally.
	if got := len(h.store.Load()); got != 2 {
		t.Errorf("expected persisted turn after retry, got %d messages", got)
	}
}

func TestOverflowExplicitNoRetry(t *testing.T) {
	h := newHarness(t)
	overflow := &llm.ContextLengthError{Provider: "sherlock", Model: "m", Message: "maximum context length"}
	h.provider.errs = []error{overflow}

	err := h.app.Run(context.Background(), Args{Prompt: "hello", Model: "Bielik-11B-v2.6-Instruct"})
	if err == nil {
		t.Fatal("expected the overflow to surface")
	}
	var got *llm.ContextLengthError
	if !errors.As(err, &got) {
		t.Fatalf("expected ContextLengthError, got %T", err)
	}
	if len(h.provider.models) != 1 {
		t.Errorf("explicit override must not retry, got %d calls", len(h.provider.models))
	}
	if len(h.store.Load()) != 0 {
		t.Error("failed turn must not be persisted")
	}
}

func TestAPIErrorNotRetried(t *testing.T) {
	h := newHarness(t)
	h.provider.errs = []error{&llm.APIError{Provider: "sherlock", StatusCode: 500, Message: "boom"}}

	err := h.app.Run(context.Background(), Args{Prompt: "hello"})
	if err == nil {
		t.Fatal("expected the API error to surface")
	}
	if len(h.provider.models) != 1 {
		t.Errorf("API errors must not retry, got %d calls", len(h.provider.models))
	}
}

func TestStatsUnknownTokens(t *testing.T) {
	h := newHarness(t)
	h.provider.usage = false

	if err := h.app.Run(context.Background(), Args{Prompt: "hi", Stats: true}); err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if !strings.Contains(h.stderr.String(), "Tokens: ?/?/?]") {
		t.Errorf("nil token counts should print as ?: %q", h.stderr.String())
	}
}

func TestUnknownCustomAgent(t *testing.T) {
	h := newHarness(t)

	err := h.app.Run(context.Background(), Args{Prompt: "hi", Agent: "nope"})
	if err == nil {
		t.Fatal("expected an error for an unknown agent")
	}
	var cfgErr *config.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %T", err)
	}
}

func TestEnvelopeOrderInUserMessage(t *testing.T) {
	h := newHarness(t)
	h.app.LoadFile = func(path string) (string, int, error) { return "file-content", 12, nil }
	h.app.CaptureCmd = func(ctx context.Context, cmd string, timeout time.Duration) (string, int, error) {
		return "console-content", 0, nil
	}

	err := h.app.Run(context.Background(), Args{
		Prompt:  "look",
		Files:   []string{"a.txt"},
		Console: "make",
		Stdin:   "stdin-content",
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	user := h.provider.msgs[0][1].Content
	fileIdx := strings.Index(user, envelope.FileStart)
	consoleIdx := strings.Index(user, envelope.ConsoleStart)
	stdinIdx := strings.Index(user, envelope.StdinStart)
	if fileIdx < 0 || consoleIdx < 0 || stdinIdx < 0 {
		t.Fatalf("missing envelopes:\n%s", user)
	}
	if !(fileIdx < consoleIdx && consoleIdx < stdinIdx) {
		t.Errorf("envelope order wrong: file=%d console=%d stdin=%d", fileIdx, consoleIdx, stdinIdx)
	}
}
