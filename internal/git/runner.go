package git

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"
)

// Result holds the captured outcome of one external command invocation
type Result struct {
	Success bool
	Stdout  string
	Stderr  string
}

// Runner executes external commands in a fixed working directory with a
// bounded per-command timeout. It is a generic run-and-capture primitive;
// the caller decides what the outcome means.
type Runner struct {
	dir     string
	timeout time.Duration
}

// NewRunner creates a runner rooted at dir. A zero timeout disables the bound.
func NewRunner(dir string, timeout time.Duration) *Runner {
	return &Runner{dir: dir, timeout: timeout}
}

// Dir returns the working directory commands execute in
func (r *Runner) Dir() string {
	return r.dir
}

// Run executes the command and captures both output streams. On timeout the
// process is killed and the result carries "Timeout" as stderr. Execution
// faults (binary missing, permission denied) are reported the same way, with
// the fault description as stderr.
func (r *Runner) Run(ctx context.Context, name string, args ...string) Result {
	runCtx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, name, args...)
	cmd.Dir = r.dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err == nil {
		res.Success = true
		return res
	}

	// CommandContext has already killed the process at this point, so a
	// timed-out invocation leaves nothing behind.
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		res.Stderr = "Timeout"
		return res
	}

	if res.Stderr == "" {
		res.Stderr = err.Error()
	}
	return res
}
