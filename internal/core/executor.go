package core

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
)

// Outcome is what the executor knows after a step's process has ended:
// the exit code plus any spawn/termination error and the captured output.
type Outcome struct {
	ExitCode int
	Output   string
	Err      error
}

// Executor spawns a step's command and waits for it. It is the single
// capability boundary around process creation so tests can substitute a
// fake that never forks.
type Executor interface {
	Run(ctx context.Context, step Step) Outcome
}

// ProcessExecutor runs steps as real child processes. Output is captured
// and also streamed to Stdout/Stderr so a failing tool stays visible to
// the operator as it runs.
type ProcessExecutor struct {
	Stdout io.Writer
	Stderr io.Writer
}

func NewProcessExecutor() *ProcessExecutor {
	return &ProcessExecutor{Stdout: os.Stdout, Stderr: os.Stderr}
}

func (e *ProcessExecutor) Run(ctx context.Context, step Step) Outcome {
	cmd := exec.CommandContext(ctx, step.Command, step.Args...)
	cmd.Dir = step.Dir

	var buf bytes.Buffer
	cmd.Stdout = e.tee(e.Stdout, &buf)
	cmd.Stderr = e.tee(e.Stderr, &buf)

	err := cmd.Run()
	code := 0
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok {
			// -1 when the process died from a signal
			code = ee.ExitCode()
		} else {
			// spawn failure: command not found, bad dir, ...
			code = 1
		}
	}
	return Outcome{ExitCode: code, Output: buf.String(), Err: err}
}

func (e *ProcessExecutor) tee(w io.Writer, buf *bytes.Buffer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(w, buf)
}
