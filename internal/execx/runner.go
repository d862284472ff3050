// Package execx wraps subprocess invocation behind a small interface so the
// probe and restart layers can be tested against deterministic fakes.
package execx

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// Result captures the observable outcome of one command invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Combined returns stdout and stderr joined, for callers that pattern-match
// tool output regardless of which stream it landed on.
func (r Result) Combined() string {
	if r.Stdout == "" {
		return r.Stderr
	}
	if r.Stderr == "" {
		return r.Stdout
	}
	return r.Stdout + "\n" + r.Stderr
}

// Runner executes an external command and captures its output. A non-zero
// exit status is reported as a non-nil error alongside the populated Result.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

type shellRunner struct{}

// NewRunner returns the os/exec backed Runner used in production.
func NewRunner() Runner {
	return shellRunner{}
}

func (shellRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
	} else if err != nil {
		res.ExitCode = -1
	}
	return res, err
}
