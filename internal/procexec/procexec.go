// Package procexec runs external processes as a single blocking call.
package procexec

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// Command describes one process invocation.
type Command struct {
	Name string
	Args []string
	Dir  string
}

// Outcome is what a finished process left behind.
type Outcome struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
	// StartErr is set when the process could not be started at all
	// (missing binary, permission denied) or was killed by ctx.
	StartErr error
}

// Succeeded reports a clean zero exit.
func (o Outcome) Succeeded() bool {
	return o.StartErr == nil && o.ExitCode == 0
}

// Runner runs commands to completion.
type Runner interface {
	Run(ctx context.Context, cmd Command) Outcome
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// NewExecRunner returns a Runner backed by os/exec.
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run spawns the command, buffers its output and waits for it to exit.
func (r *ExecRunner) Run(ctx context.Context, c Command) Outcome {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Dir = c.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	out := Outcome{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}
	if err == nil {
		return out
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		out.ExitCode = exitErr.ExitCode()
		return out
	}

	out.ExitCode = -1
	if ctx.Err() != nil {
		out.StartErr = ctx.Err()
	} else {
		out.StartErr = err
	}
	return out
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, cmd Command) Outcome

func (f RunnerFunc) Run(ctx context.Context, cmd Command) Outcome {
	return f(ctx, cmd)
}
