// Package envelope builds and strips the context markers embedded in user
// messages. The marker strings are a wire contract with the models: they
// must stay byte-exact and in fixed order (files, console, stdin).
package envelope

import (
	"regexp"
	"strings"
)

// Marker lines. Verbatim ASCII; changing any of these breaks wire
// compatibility with deployed prompts.
const (
	FileStart    = "===FILE_START==="
	FileEnd      = "===FILE_END==="
	ConsoleStart = "===CONSOLE_START==="
	ConsoleEnd   = "===CONSOLE_END==="
	StdinStart   = "===STDIN_START==="
	StdinEnd     = "===STDIN_END==="
)

// stderr markers checked against the first 4 KiB of piped stdin.
var stderrMarkers = []string{"Traceback", "Error:", "Exception", "FAILED", "at line"}

const stderrSniffLimit = 4 * 1024

// wrap produces "<start>\n<content>\n<end>" with exactly one newline before
// the end marker, whether or not content already ends with one.
func wrap(start, content, end string) string {
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return start + "\n" + content + end
}

// File wraps attached file content.
func File(content string) string {
	return wrap(FileStart, content, FileEnd)
}

// Console wraps captured command output.
func Console(output string) string {
	return wrap(ConsoleStart, output, ConsoleEnd)
}

// Stdin wraps piped standard input.
func Stdin(content string) string {
	return wrap(StdinStart, content, StdinEnd)
}

// Build assembles the outgoing user message: the prompt followed by file
// envelopes in the order given, then the console envelope, then the stdin
// envelope. Empty pieces produce no envelope.
func Build(prompt string, files []string, console, stdin string) string {
	var sb strings.Builder
	sb.WriteString(prompt)

	for _, f := range files {
		sb.WriteString("\n\n")
		sb.WriteString(File(f))
	}
	if console != "" {
		sb.WriteString("\n\n")
		sb.WriteString(Console(console))
	}
	if stdin != "" {
		sb.WriteString("\n\n")
		sb.WriteString(Stdin(stdin))
	}

	return sb.String()
}

var envelopeRe = regexp.MustCompile(
	`(?s)\n*===(?:FILE|CONSOLE|STDIN)_START===\n.*?\n===(?:FILE|CONSOLE|STDIN)_END===\n*`)

// Strip removes all envelopes (and the blank lines joining them) from a user
// message, recovering the plain prompt text.
func Strip(message string) string {
	return strings.TrimSpace(envelopeRe.ReplaceAllString(message, "\n"))
}

// LooksLikeStderr reports whether piped stdin resembles captured error
// output. Only the first 4 KiB are inspected.
func LooksLikeStderr(stdin string) bool {
	if len(stdin) > stderrSniffLimit {
		stdin = stdin[:stderrSniffLimit]
	}
	for _, m := range stderrMarkers {
		if strings.Contains(stdin, m) {
			return true
		}
	}
	return false
}
