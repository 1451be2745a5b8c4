// Package proc runs external commands and reports their exit status and
// captured output without interpreting them.
package proc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

//go:generate mockgen -source=proc.go -destination=mockproc/mock_runner.go -package=mockproc Runner

// Runner executes external commands.
//
// A command that starts and exits non-zero is not an error: the exit code
// and both output streams are returned in Result so the caller can decide
// what the failure means. The error return is reserved for commands that
// could not be started or were cut short by ctx.
type Runner interface {
	Run(ctx context.Context, dir string, name string, args ...string) (Result, error)
}

// Result is the observable outcome of a finished command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Failed reports whether the command exited non-zero.
func (r Result) Failed() bool {
	return r.ExitCode != 0
}

// HasOutput reports whether either stream carried any text.
func (r Result) HasOutput() bool {
	return r.Stdout != "" || r.Stderr != ""
}

// Diagnostic returns the command's own explanation of a failure: stderr,
// falling back to stdout.
func (r Result) Diagnostic() string {
	if s := strings.TrimSpace(r.Stderr); s != "" {
		return s
	}
	return strings.TrimSpace(r.Stdout)
}

// Err returns an *ExitError describing the result when it failed, nil
// otherwise. command is the rendered command line used in the message.
func (r Result) Err(command string) error {
	if !r.Failed() {
		return nil
	}
	return &ExitError{Command: command, Result: r}
}

// ExitError is a non-zero exit kept together with its raw output.
type ExitError struct {
	Command string
	Result  Result
}

func (e *ExitError) Error() string {
	if d := e.Result.Diagnostic(); d != "" {
		return fmt.Sprintf("%s: exit status %d: %s", e.Command, e.Result.ExitCode, d)
	}
	return fmt.Sprintf("%s: exit status %d", e.Command, e.Result.ExitCode)
}

// CommandLine renders name and args the way they would be typed.
func CommandLine(name string, args ...string) string {
	return strings.TrimSpace(name + " " + strings.Join(args, " "))
}

// ExecRunner implements Runner using os/exec.
type ExecRunner struct {
	timeout time.Duration
}

// Option configures an ExecRunner.
type Option func(*ExecRunner)

// WithTimeout bounds every command run by the runner. Zero means no limit.
func WithTimeout(d time.Duration) Option {
	return func(r *ExecRunner) {
		r.timeout = d
	}
}

// NewExecRunner creates an ExecRunner.
func NewExecRunner(opts ...Option) *ExecRunner {
	r := &ExecRunner{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the command in dir (the current directory when empty) and
// waits for it to finish.
func (r *ExecRunner) Run(ctx context.Context, dir string, name string, args ...string) (Result, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Stdout: strings.TrimRight(stdout.String(), "\r\n"),
		Stderr: strings.TrimRight(stderr.String(), "\r\n"),
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return res, fmt.Errorf("%s: %w", CommandLine(name, args...), ctxErr)
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return res, fmt.Errorf("starting %s: %w", CommandLine(name, args...), err)
		}
		res.ExitCode = exitErr.ExitCode()
	}

	slog.Debug("command finished",
		"command", CommandLine(name, args...),
		"dir", dir,
		"exit_code", res.ExitCode,
		"duration", time.Since(start),
	)
	return res, nil
}

// Verify ExecRunner implements Runner at compile time.
var _ Runner = (*ExecRunner)(nil)
