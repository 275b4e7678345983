// Package gittest provides real-git repository fixtures shared by tests.
package gittest

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// Git runs a git command in dir and returns trimmed stdout, failing the
// test on error.
func Git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v: %v: %s", args, err, out)
	}
	return strings.TrimSpace(string(out))
}

// InitRepo creates a work-tree repository with a local identity and an
// initial commit on the given branch, and returns its path.
func InitRepo(t *testing.T, branch string) string {
	t.Helper()
	dir := t.TempDir()
	for _, args := range [][]string{
		{"init", "-b", branch},
		{"config", "user.email", "test@test.com"},
		{"config", "user.name", "Test"},
	} {
		Git(t, dir, args...)
	}
	WriteFile(t, dir, "README.md", "fixture\n")
	Git(t, dir, "add", "README.md")
	Git(t, dir, "commit", "-m", "initial commit")
	return dir
}

// AddBareRemote creates a bare repository, registers it as a remote of
// repoDir and returns its path.
func AddBareRemote(t *testing.T, repoDir, name string) string {
	t.Helper()
	bare := filepath.Join(t.TempDir(), "remote.git")
	cmd := exec.Command("git", "init", "--bare", bare)
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git init --bare: %v: %s", err, out)
	}
	// Point the bare repository's HEAD at the source repository's current
	// branch so it does not depend on git's init.defaultBranch setting.
	head := Git(t, repoDir, "symbolic-ref", "--short", "HEAD")
	Git(t, bare, "symbolic-ref", "HEAD", "refs/heads/"+head)
	Git(t, repoDir, "remote", "add", name, bare)
	return bare
}

// WriteFile creates or overwrites a file under dir
func WriteFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// LogSubjects returns the commit subjects of a repository, newest first
func LogSubjects(t *testing.T, dir string) []string {
	t.Helper()
	out := Git(t, dir, "log", "--pretty=format:%s")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}
