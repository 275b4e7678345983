package git

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNothingToCommit is returned by Commit when the index matches HEAD. It
// is a benign outcome, not a failure.
var ErrNothingToCommit = errors.New("nothing to commit")

// Client provides the repository operations the sync engine needs
type Client interface {
	// IsWorkTree reports whether the runner's directory is inside a git work tree
	IsWorkTree(ctx context.Context) bool
	// CurrentBranch returns the name of the checked-out branch
	CurrentBranch(ctx context.Context) (string, error)
	// BranchExists reports whether a local branch with the given name exists
	BranchExists(ctx context.Context, name string) bool
	// CreateBranch creates the named branch and switches to it
	CreateBranch(ctx context.Context, name string) error
	// SwitchBranch switches to an existing branch
	SwitchBranch(ctx context.Context, name string) error
	// Status returns porcelain status output; empty output means a clean tree
	Status(ctx context.Context) (string, error)
	// StageAll stages every change in the work tree, including deletions
	StageAll(ctx context.Context) error
	// Commit records the staged changes with the given message
	Commit(ctx context.Context, message string) error
	// Push pushes the branch to the remote, setting the upstream
	Push(ctx context.Context, remote, branch string) error
}

// ShellClient implements Client by shelling out to the git command
type ShellClient struct {
	runner *Runner
}

// NewShellClient creates a new git client that uses the git command
func NewShellClient(runner *Runner) *ShellClient {
	return &ShellClient{runner: runner}
}

// IsWorkTree reports whether the runner's directory is inside a git work tree
func (c *ShellClient) IsWorkTree(ctx context.Context) bool {
	res := c.runner.Run(ctx, "git", "rev-parse", "--is-inside-work-tree")
	return res.Success && strings.TrimSpace(res.Stdout) == "true"
}

// CurrentBranch returns the name of the checked-out branch
func (c *ShellClient) CurrentBranch(ctx context.Context) (string, error) {
	res := c.runner.Run(ctx, "git", "branch", "--show-current")
	if !res.Success {
		return "", fmt.Errorf("git branch --show-current failed: %s", res.Stderr)
	}
	return strings.TrimSpace(res.Stdout), nil
}

// BranchExists reports whether a local branch with the given name exists
func (c *ShellClient) BranchExists(ctx context.Context, name string) bool {
	res := c.runner.Run(ctx, "git", "rev-parse", "--verify", "--quiet", "refs/heads/"+name)
	return res.Success
}

// CreateBranch creates the named branch and switches to it
func (c *ShellClient) CreateBranch(ctx context.Context, name string) error {
	res := c.runner.Run(ctx, "git", "checkout", "-b", name)
	if !res.Success {
		return fmt.Errorf("git checkout -b %s failed: %s", name, res.Stderr)
	}
	return nil
}

// SwitchBranch switches to an existing branch
func (c *ShellClient) SwitchBranch(ctx context.Context, name string) error {
	res := c.runner.Run(ctx, "git", "checkout", name)
	if !res.Success {
		return fmt.Errorf("git checkout %s failed: %s", name, res.Stderr)
	}
	return nil
}

// Status returns porcelain status output; empty output means a clean tree
func (c *ShellClient) Status(ctx context.Context) (string, error) {
	res := c.runner.Run(ctx, "git", "status", "--porcelain")
	if !res.Success {
		return "", fmt.Errorf("git status failed: %s", res.Stderr)
	}
	return res.Stdout, nil
}

// StageAll stages every change in the work tree, including deletions
func (c *ShellClient) StageAll(ctx context.Context) error {
	res := c.runner.Run(ctx, "git", "add", "-A")
	if !res.Success {
		return fmt.Errorf("git add -A failed: %s", res.Stderr)
	}
	return nil
}

// Commit records the staged changes with the given message. A clean index
// is reported as ErrNothingToCommit so callers can short-circuit.
func (c *ShellClient) Commit(ctx context.Context, message string) error {
	res := c.runner.Run(ctx, "git", "commit", "-m", message)
	if res.Success {
		return nil
	}
	// git reports a clean index on stdout with exit code 1
	if strings.Contains(res.Stdout, "nothing to commit") || strings.Contains(res.Stderr, "nothing to commit") {
		return ErrNothingToCommit
	}
	return fmt.Errorf("git commit failed: %s", strings.TrimSpace(res.Stderr+res.Stdout))
}

// Push pushes the branch to the remote, setting the upstream
func (c *ShellClient) Push(ctx context.Context, remote, branch string) error {
	res := c.runner.Run(ctx, "git", "push", "-u", remote, branch)
	if !res.Success {
		return fmt.Errorf("git push -u %s %s failed: %s", remote, branch, strings.TrimSpace(res.Stderr))
	}
	return nil
}
