package git

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/schaermu/autosyncd/internal/gittest"
)

func newTestClient(t *testing.T, dir string) *ShellClient {
	t.Helper()
	return NewShellClient(NewRunner(dir, 30*time.Second))
}

func TestIsWorkTree(t *testing.T) {
	ctx := context.Background()

	repo := gittest.InitRepo(t, "main")
	if !newTestClient(t, repo).IsWorkTree(ctx) {
		t.Error("expected a work tree inside an initialized repository")
	}

	if newTestClient(t, t.TempDir()).IsWorkTree(ctx) {
		t.Error("plain directory must not be reported as a work tree")
	}
}

func TestCurrentBranch(t *testing.T) {
	ctx := context.Background()
	repo := gittest.InitRepo(t, "main")

	branch, err := newTestClient(t, repo).CurrentBranch(ctx)
	if err != nil {
		t.Fatalf("CurrentBranch: %v", err)
	}
	if branch != "main" {
		t.Errorf("expected branch %q, got %q", "main", branch)
	}
}

func TestBranchLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := gittest.InitRepo(t, "main")
	client := newTestClient(t, repo)

	if client.BranchExists(ctx, "autosync") {
		t.Fatal("branch should not exist yet")
	}

	if err := client.CreateBranch(ctx, "autosync"); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	if !client.BranchExists(ctx, "autosync") {
		t.Error("branch should exist after create")
	}
	if branch, _ := client.CurrentBranch(ctx); branch != "autosync" {
		t.Errorf("create should switch to the new branch, got %q", branch)
	}

	if err := client.SwitchBranch(ctx, "main"); err != nil {
		t.Fatalf("SwitchBranch: %v", err)
	}
	if branch, _ := client.CurrentBranch(ctx); branch != "main" {
		t.Errorf("expected branch %q after switch, got %q", "main", branch)
	}
}

func TestSwitchBranchMissing(t *testing.T) {
	ctx := context.Background()
	repo := gittest.InitRepo(t, "main")

	if err := newTestClient(t, repo).SwitchBranch(ctx, "does-not-exist"); err == nil {
		t.Error("expected error when switching to a missing branch")
	}
}

func TestStatusStageCommit(t *testing.T) {
	ctx := context.Background()
	repo := gittest.InitRepo(t, "main")
	client := newTestClient(t, repo)

	status, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if strings.TrimSpace(status) != "" {
		t.Fatalf("expected clean tree, got %q", status)
	}

	gittest.WriteFile(t, repo, "notes.txt", "change\n")

	status, err = client.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !strings.Contains(status, "notes.txt") {
		t.Errorf("expected status to mention the new file, got %q", status)
	}

	if err := client.StageAll(ctx); err != nil {
		t.Fatalf("StageAll: %v", err)
	}
	if err := client.Commit(ctx, "Auto-sync: test"); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	subjects := gittest.LogSubjects(t, repo)
	if len(subjects) == 0 || subjects[0] != "Auto-sync: test" {
		t.Errorf("unexpected log subjects: %v", subjects)
	}
}

func TestCommitNothingToCommit(t *testing.T) {
	ctx := context.Background()
	repo := gittest.InitRepo(t, "main")
	client := newTestClient(t, repo)

	err := client.Commit(ctx, "Auto-sync: empty")
	if !errors.Is(err, ErrNothingToCommit) {
		t.Errorf("expected ErrNothingToCommit for a clean index, got %v", err)
	}
}

func TestPush(t *testing.T) {
	ctx := context.Background()
	repo := gittest.InitRepo(t, "main")
	remote := gittest.AddBareRemote(t, repo, "origin")
	client := newTestClient(t, repo)

	if err := client.Push(ctx, "origin", "main"); err != nil {
		t.Fatalf("Push: %v", err)
	}

	subjects := gittest.LogSubjects(t, remote)
	if len(subjects) == 0 || subjects[0] != "initial commit" {
		t.Errorf("remote did not receive the commit: %v", subjects)
	}
}

func TestPushMissingRemote(t *testing.T) {
	ctx := context.Background()
	repo := gittest.InitRepo(t, "main")

	err := newTestClient(t, repo).Push(ctx, "origin", "main")
	if err == nil {
		t.Fatal("expected error when pushing without a remote")
	}
	if !strings.Contains(err.Error(), "origin") {
		t.Errorf("expected the error to name the remote, got %v", err)
	}
}
