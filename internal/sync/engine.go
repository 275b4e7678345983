package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	stdsync "sync"
	"time"

	"github.com/schaermu/autosyncd/internal/config"
	"github.com/schaermu/autosyncd/internal/git"
	"github.com/schaermu/autosyncd/internal/watch"
)

// pushRetryDelays is the fixed backoff schedule. One push attempt is made
// per entry, with the entry's delay slept after a failed attempt.
var pushRetryDelays = []time.Duration{
	2 * time.Second,
	4 * time.Second,
	8 * time.Second,
	16 * time.Second,
}

// Engine drives the status→stage→commit→push cycle against a repository.
// Cycles are strictly sequential: Run and Once are the only callers and
// both invoke Cycle from a single goroutine.
type Engine struct {
	cfg    *config.Config
	git    git.Client
	agg    *watch.Aggregator
	logger *slog.Logger

	// injectable for tests
	now   func() time.Time
	sleep func(time.Duration)

	mu         stdsync.Mutex // guards lastSync and lastResult
	lastSync   time.Time     // end of the last successful or no-op cycle
	lastResult *Result
}

// NewEngine creates a sync engine
func NewEngine(cfg *config.Config, gitClient git.Client, agg *watch.Aggregator, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:    cfg,
		git:    gitClient,
		agg:    agg,
		logger: logger,
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

// Bootstrap verifies the work tree and ensures the target branch is checked
// out, creating it if necessary. Run once before watching starts; any
// failure here is fatal, since syncing against the wrong branch is unsafe.
func (e *Engine) Bootstrap(ctx context.Context) error {
	if !e.git.IsWorkTree(ctx) {
		return fmt.Errorf("not a git repository: %s", e.cfg.Repo.Path)
	}

	target := e.cfg.Repo.Branch
	current, err := e.git.CurrentBranch(ctx)
	if err != nil {
		return fmt.Errorf("failed to determine current branch: %w", err)
	}
	if current == target {
		e.logger.Info("branch ready", "branch", target)
		return nil
	}

	e.logger.Info("switching branch", "from", current, "to", target)
	if !e.git.BranchExists(ctx, target) {
		if err := e.git.CreateBranch(ctx, target); err != nil {
			return fmt.Errorf("failed to create branch %s: %w", target, err)
		}
		e.logger.Info("created branch", "branch", target)
		return nil
	}
	if err := e.git.SwitchBranch(ctx, target); err != nil {
		return fmt.Errorf("failed to switch to branch %s: %w", target, err)
	}
	return nil
}

// Run is the control loop: sleep for the debounce window, then sync if a
// pending change exists and the window since the last successful cycle has
// elapsed. Returns nil when the context is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	interval := e.cfg.DebounceWindow()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("sync loop started",
		"path", e.cfg.Repo.Path,
		"branch", e.cfg.Repo.Branch,
		"debounce", interval)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("sync loop stopped")
			return nil
		case <-ticker.C:
			if !e.agg.HasPending() {
				continue
			}
			if !e.eligible(e.now()) {
				continue
			}
			e.Cycle(ctx)
		}
	}
}

// Once runs a single cycle regardless of the pending flag and debounce
// window. Used by the oneshot sync command.
func (e *Engine) Once(ctx context.Context) error {
	res := e.Cycle(ctx)
	if res.Phase == PhaseFailed {
		return fmt.Errorf("sync failed in %s phase: %s", res.FailedIn, res.Error)
	}
	return nil
}

// eligible reports whether the debounce window since the last successful or
// no-op cycle has elapsed. Failed cycles never stamp the window, so they
// are retried on the next tick.
func (e *Engine) eligible(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return now.Sub(e.lastSync) >= e.cfg.DebounceWindow()
}

// Cycle performs one status→stage→commit→push pass. The pending flag is
// cleared only when the cycle ends in done; a failed cycle leaves it set so
// the next tick retries the whole sequence from scratch.
func (e *Engine) Cycle(ctx context.Context) *Result {
	res := &Result{Phase: PhaseFailed, Started: e.now()}
	defer e.record(res)

	// CHECKING
	e.logger.Info("sync cycle started")
	status, err := e.git.Status(ctx)
	if err != nil {
		return e.fail(res, PhaseChecking, err)
	}
	if strings.TrimSpace(status) == "" {
		e.logger.Info("no changes to sync")
		res.NoChanges = true
		return e.done(res)
	}
	e.logger.Info("changes found", "status", strings.TrimSpace(status))

	// STAGING
	if err := e.git.StageAll(ctx); err != nil {
		return e.fail(res, PhaseStaging, err)
	}

	// COMMITTING
	message := fmt.Sprintf("%s: %s", e.cfg.Sync.CommitPrefix, res.Started.Format("2006-01-02 15:04:05"))
	e.logger.Info("committing", "message", message)
	if err := e.git.Commit(ctx, message); err != nil {
		if errors.Is(err, git.ErrNothingToCommit) {
			e.logger.Info("nothing to commit")
			res.NoChanges = true
			return e.done(res)
		}
		return e.fail(res, PhaseCommitting, err)
	}
	res.Committed = true

	// PUSHING
	remote, branch := e.cfg.Repo.Remote, e.cfg.Repo.Branch
	e.logger.Info("pushing", "remote", remote, "branch", branch)
	var pushErr error
	for i, delay := range pushRetryDelays {
		pushErr = e.git.Push(ctx, remote, branch)
		res.PushAttempts = i + 1
		if pushErr == nil {
			res.Pushed = true
			e.logger.Info("push succeeded", "remote", remote, "branch", branch, "attempts", res.PushAttempts)
			return e.done(res)
		}
		e.logger.Warn("push failed",
			"attempt", res.PushAttempts,
			"of", len(pushRetryDelays),
			"backoff", delay,
			"error", pushErr)
		e.sleep(delay)
	}
	e.logger.Error("push failed after all attempts", "attempts", res.PushAttempts, "error", pushErr)
	return e.fail(res, PhasePushing, pushErr)
}

// done ends a cycle successfully: the pending flag is cleared and the
// debounce window is stamped, whether work was pushed or nothing differed.
func (e *Engine) done(res *Result) *Result {
	res.Phase = PhaseDone
	e.agg.Clear()

	e.mu.Lock()
	e.lastSync = e.now()
	e.mu.Unlock()
	return res
}

// fail ends a cycle in the failed state, leaving the pending flag set
func (e *Engine) fail(res *Result, in Phase, err error) *Result {
	res.Phase = PhaseFailed
	res.FailedIn = in
	res.Error = err.Error()
	e.logger.Error("sync cycle aborted", "phase", string(in), "error", err)
	return res
}

func (e *Engine) record(res *Result) {
	e.mu.Lock()
	e.lastResult = res
	e.mu.Unlock()
}

// LastResult returns the outcome of the most recent cycle, or nil
func (e *Engine) LastResult() *Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastResult
}

// LastSync returns the end time of the last successful or no-op cycle
func (e *Engine) LastSync() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSync
}
