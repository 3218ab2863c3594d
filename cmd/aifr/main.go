package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"

	"github.com/alecthomas/kong"
	"golang.org/x/term"

	"github.com/isjackalive/aifr/internal/app"
	"github.com/isjackalive/aifr/internal/config"
	. "github.com/isjackalive/aifr/internal/logging"
	"github.com/isjackalive/aifr/internal/model"
	"github.com/isjackalive/aifr/internal/render"
	"github.com/isjackalive/aifr/internal/session"
)

// version is set at build time via ldflags: -X main.version=...
var version = "dev"

// Exit codes per the CLI contract.
const (
	exitOK          = 0
	exitError       = 1
	exitUsage       = 2
	exitInterrupted = 130
)

// CLI defines the command-line interface
type CLI struct {
	Query        []string `arg:"" optional:"" help:"Prompt text."`
	PromptFlag   string   `name:"prompt" short:"p" help:"Prompt text (alternative to the positional)."`
	File         []string `short:"f" name:"file" help:"Attach a file as context (repeatable)." type:"path"`
	Console      string   `short:"c" name:"console" help:"Run a command and attach its combined output."`
	Model        string   `short:"m" help:"Model id, alias, or provider/id override."`
	ContextLimit int      `help:"Override the context token limit."`
	Agent        string   `help:"Use a custom agent from config."`
	Reset        bool     `help:"Clear the session and exit."`
	New          bool     `hidden:"" help:"Alias for --reset."`
	Stats        bool     `help:"Print an agent/model/token line to stderr."`
	Info         bool     `hidden:"" help:"Alias for --stats."`
	Raw          bool     `short:"r" help:"Print the raw response without markdown colorization."`
	ListModels   bool     `help:"List built-in models and configured aliases."`
	Version      bool     `help:"Show version."`
	Session      string   `help:"Use a named session instead of the default."`
	Debug        bool     `short:"d" help:"Enable debug logging."`
}

func main() {
	var cli CLI
	kong.Parse(&cli,
		kong.Name("aifr"),
		kong.Description("Terminal assistant bridging the shell to remote language models."),
		kong.UsageOnError(),
		kong.Exit(func(code int) {
			// kong exits 0 for --help and non-zero for parse errors; parse
			// errors map to the CLI-error exit code.
			if code != 0 {
				os.Exit(exitUsage)
			}
			os.Exit(exitOK)
		}),
	)

	logCfg := DefaultConfig()
	if cli.Debug {
		logCfg.Level = LevelDebug
	}
	Init(logCfg)

	os.Exit(run(&cli))
}

func run(cli *CLI) int {
	stdoutIsTTY := term.IsTerminal(int(os.Stdout.Fd()))
	stdinIsTTY := term.IsTerminal(int(os.Stdin.Fd()))

	if cli.Version {
		if stdoutIsTTY {
			fmt.Print(render.Banner(version))
		} else {
			fmt.Println("aifr " + version)
		}
		return exitOK
	}

	store, err := session.Open(cli.Session)
	if err != nil {
		L_error("failed to resolve session path", "error", err)
		return exitError
	}

	if cli.Reset || cli.New {
		if err := store.Clear(); err != nil {
			L_error("failed to clear session", "error", err)
			return exitError
		}
		return exitOK
	}

	cfg, err := config.Load()
	if err != nil {
		L_error("failed to load config", "error", err)
		return exitError
	}

	if cli.ListModels {
		listModels(os.Stdout, cfg)
		return exitOK
	}

	prompt := strings.TrimSpace(strings.Join(cli.Query, " "))
	if cli.PromptFlag != "" {
		prompt = cli.PromptFlag
	}

	var stdinContent string
	if !stdinIsTTY {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			L_error("failed to read stdin", "error", err)
			return exitError
		}
		// Invalid UTF-8 is replaced rather than rejected; piped data is
		// often not clean.
		stdinContent = strings.ToValidUTF8(string(data), "�")
	}

	a := app.New(cfg, store, os.Stdout, os.Stderr, stdoutIsTTY)

	args := app.Args{
		Prompt:       prompt,
		Files:        cli.File,
		Console:      cli.Console,
		Model:        cli.Model,
		ContextLimit: cli.ContextLimit,
		Agent:        cli.Agent,
		Stats:        cli.Stats || cli.Info,
		Raw:          cli.Raw,
		Stdin:        stdinContent,
	}

	if prompt == "" && stdinIsTTY && cli.Console == "" && len(cli.File) == 0 {
		return interactive(a, args)
	}

	if prompt == "" && stdinContent == "" && cli.Console == "" && len(cli.File) == 0 {
		L_error("no prompt given (see aifr --help)")
		return exitError
	}

	return runOnce(a, args)
}

// runOnce executes a single request with SIGINT cancelling the in-flight
// call.
func runOnce(a *app.App, args app.Args) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := a.Run(ctx, args)
	if ctx.Err() != nil {
		fmt.Fprintln(os.Stderr, "interrupted")
		return exitInterrupted
	}
	if err != nil {
		L_error(err.Error())
		return exitError
	}
	return exitOK
}

// interactive loops over stdin lines; each line is a fresh classification
// against the shared session. exit, quit, or EOF terminate.
func interactive(a *app.App, base app.Args) int {
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	// Ctrl-C at the prompt returns to the loop instead of killing the
	// process; during a call runOnce cancels the request and exits 130.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	defer signal.Stop(sigCh)

	for {
		fmt.Print("aifr> ")
		if !scanner.Scan() {
			fmt.Println()
			return exitOK
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return exitOK
		}

		args := base
		args.Prompt = line

		if code := runOnce(a, args); code == exitInterrupted {
			return code
		}
	}
}

func listModels(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "Built-in models (sherlock):")
	for _, m := range model.Builtin() {
		fmt.Fprintf(w, "  %-28s %s\n", m.ID, m.Purpose)
	}

	fmt.Fprintln(w, "\nProvider defaults:")
	fmt.Fprintf(w, "  %-28s %s\n", model.OpenAIDefaultModel, "openai")
	fmt.Fprintf(w, "  %-28s %s\n", "(model_default from config)", "openwebui")
	fmt.Fprintf(w, "  %-28s %s\n", "(model ignored)", "brave")

	if len(cfg.ModelAliases) > 0 {
		fmt.Fprintln(w, "\nAliases:")
		names := make([]string, 0, len(cfg.ModelAliases))
		for name := range cfg.ModelAliases {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "  %-28s %s\n", name, cfg.ModelAliases[name])
		}
	}
}
