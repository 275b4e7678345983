//go:build integration

package tier1

import (
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/schaermu/autosyncd/internal/config"
	"github.com/schaermu/autosyncd/internal/git"
	"github.com/schaermu/autosyncd/internal/gittest"
	autosync "github.com/schaermu/autosyncd/internal/sync"
	"github.com/schaermu/autosyncd/internal/watch"
)

// Harness wires a real work-tree repository, a local bare remote and a
// fully constructed engine the way the watch command does.
type Harness struct {
	t *testing.T

	RepoDir   string
	RemoteDir string
	Cfg       *config.Config
	Agg       *watch.Aggregator
	Engine    *autosync.Engine
	Watcher   *watch.Watcher
}

// NewHarness initializes the repositories and engine for one test
func NewHarness(t *testing.T, branch string, debounceSeconds int) *Harness {
	t.Helper()

	repoDir := gittest.InitRepo(t, "main")
	remoteDir := gittest.AddBareRemote(t, repoDir, "origin")

	cfg := &config.Config{
		Repo: config.RepoConfig{
			Path:   repoDir,
			Remote: "origin",
			Branch: branch,
		},
		Watch: config.WatchConfig{
			DebounceSeconds: debounceSeconds,
			IgnorePatterns:  append([]string(nil), config.DefaultIgnorePatterns...),
		},
		Sync: config.SyncConfig{
			CommandTimeoutSeconds: 30,
			CommitPrefix:          "Auto-sync",
		},
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	runner := git.NewRunner(repoDir, cfg.CommandTimeout())
	client := git.NewShellClient(runner)
	classifier := watch.NewClassifier(cfg.Watch.IgnorePatterns)
	agg := watch.NewAggregator(classifier, logger)
	engine := autosync.NewEngine(cfg, client, agg, logger)
	watcher := watch.NewWatcher(repoDir, classifier, agg, logger)

	return &Harness{
		t:         t,
		RepoDir:   repoDir,
		RemoteDir: remoteDir,
		Cfg:       cfg,
		Agg:       agg,
		Engine:    engine,
		Watcher:   watcher,
	}
}

// StartWatcher starts the filesystem watcher and registers its shutdown
func (h *Harness) StartWatcher() {
	h.t.Helper()
	if err := h.Watcher.Start(); err != nil {
		h.t.Fatalf("failed to start watcher: %v", err)
	}
	h.t.Cleanup(h.Watcher.Stop)
}

// RemoteSubjects returns the commit subjects present on the bare remote.
// An unborn remote (nothing pushed yet) reads as empty.
func (h *Harness) RemoteSubjects() []string {
	h.t.Helper()
	out, err := exec.Command("git", "-C", h.RemoteDir, "log", "--pretty=format:%s", "--all").Output()
	if err != nil || len(out) == 0 {
		return nil
	}
	return strings.Split(strings.TrimSpace(string(out)), "\n")
}

// WaitRemoteCommits polls the remote until it holds at least n commits
func (h *Harness) WaitRemoteCommits(n int, timeout time.Duration) bool {
	h.t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if len(h.RemoteSubjects()) >= n {
			return true
		}
		time.Sleep(100 * time.Millisecond)
	}
	return len(h.RemoteSubjects()) >= n
}
