// Package console captures the output of an external command for use as
// prompt context.
package console

import (
	"context"
	"os/exec"
	"time"

	. "github.com/isjackalive/aifr/internal/logging"
)

// DefaultTimeout bounds a captured command run.
const DefaultTimeout = 30 * time.Second

// Run executes cmd through the shell and returns its interleaved
// stdout+stderr and exit status. A non-zero exit is not an error: failing
// output is exactly what the debugger agent wants to see. The error return
// covers spawn failures and timeouts only.
func Run(ctx context.Context, cmd string, timeout time.Duration) (string, int, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := exec.CommandContext(ctx, "/bin/sh", "-c", cmd)
	out, err := c.CombinedOutput()

	if ctx.Err() == context.DeadlineExceeded {
		return string(out), -1, ctx.Err()
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			L_debug("console: command exited non-zero", "cmd", cmd, "exit", exitErr.ExitCode())
			return string(out), exitErr.ExitCode(), nil
		}
		return "", -1, err
	}

	return string(out), 0, nil
}
