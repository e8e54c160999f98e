// Package runner runs external commands and captures their combined output.
// The deploy pipeline depends only on the Runner interface so it can be
// exercised with Fake instead of real git, npm, and ng binaries.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/jamesainslie/pagedeploy/pkg/pagedeploy/logging"
)

// DefaultTimeout bounds a single command. Installs and builds can be slow.
const DefaultTimeout = 30 * time.Minute

const waitDelay = 2 * time.Second

// Result is the outcome of a command that was started.
type Result struct {
	// Command is the command line, for messages.
	Command string

	// ExitCode is the process exit status.
	ExitCode int

	// Output is stdout and stderr interleaved.
	Output string
}

// Success reports whether the command exited with status zero.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Err returns an *ExitError for a non-zero exit and nil otherwise.
func (r Result) Err() error {
	if r.Success() {
		return nil
	}
	return &ExitError{Command: r.Command, ExitCode: r.ExitCode, Output: r.Output}
}

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Command  string
	ExitCode int
	Output   string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Command, e.ExitCode)
}

// Runner runs name with args in dir.
//
// A command that starts and exits non-zero is not an error: the status is in
// the Result. Errors are for commands that could not be started or were
// stopped by ctx.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) (Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Timeout applies to each command. Zero disables it.
	Timeout time.Duration

	// Env is appended to the current environment.
	Env []string
}

// NewExecRunner returns a runner with the given per-command timeout.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{Timeout: timeout}
}

// Run implements Runner.
func (r *ExecRunner) Run(ctx context.Context, dir, name string, args ...string) (Result, error) {
	logger := logging.Get("runner")
	line := CommandLine(name, args...)

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = &out
	cmd.Stderr = &out
	// Children that inherit the output pipe must not hold Run open after a kill.
	cmd.WaitDelay = waitDelay
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}

	logger.Debug("running command", "cmd", line, "dir", dir)
	start := time.Now()
	err := cmd.Run()
	res := Result{Command: line, Output: out.String()}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, fmt.Errorf("running %s: %w", line, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			logger.Debug("command failed", "cmd", line, "status", res.ExitCode, "elapsed", time.Since(start))
			return res, nil
		}
		return res, fmt.Errorf("running %s: %w", line, err)
	}

	logger.Debug("command finished", "cmd", line, "elapsed", time.Since(start))
	return res, nil
}

// CommandLine renders name and args as a shell-like string, quoting
// arguments that contain spaces or quotes.
func CommandLine(name string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, name)
	for _, a := range args {
		if a == "" || strings.ContainsAny(a, " \t\"'") {
			a = strconv.Quote(a)
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}

var _ Runner = (*ExecRunner)(nil)
