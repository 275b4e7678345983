package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `repo:
  path: "/srv/notes"
  remote: "backup"
  branch: "autosync"
watch:
  debounce_seconds: 10
  ignore_patterns: [".git", "chat_history"]
sync:
  command_timeout_seconds: 60
  commit_prefix: "Notes sync"
serve:
  enabled: true
  listen_addr: "127.0.0.1:8317"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Repo.Path != "/srv/notes" || cfg.Repo.Remote != "backup" || cfg.Repo.Branch != "autosync" {
		t.Errorf("unexpected repo config: %+v", cfg.Repo)
	}
	if cfg.DebounceWindow() != 10*time.Second {
		t.Errorf("DebounceWindow = %v, want 10s", cfg.DebounceWindow())
	}
	if cfg.CommandTimeout() != 60*time.Second {
		t.Errorf("CommandTimeout = %v, want 60s", cfg.CommandTimeout())
	}
	if want := []string{".git", "chat_history"}; !reflect.DeepEqual(cfg.Watch.IgnorePatterns, want) {
		t.Errorf("ignore patterns = %v, want %v", cfg.Watch.IgnorePatterns, want)
	}
	if cfg.Sync.CommitPrefix != "Notes sync" {
		t.Errorf("commit prefix = %q", cfg.Sync.CommitPrefix)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `repo:
  branch: "autosync"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Repo.Remote != "origin" {
		t.Errorf("default remote = %q, want origin", cfg.Repo.Remote)
	}
	wd, _ := os.Getwd()
	if cfg.Repo.Path != wd {
		t.Errorf("default path = %q, want current directory %q", cfg.Repo.Path, wd)
	}
	if cfg.Watch.DebounceSeconds != 5 {
		t.Errorf("default debounce = %d, want 5", cfg.Watch.DebounceSeconds)
	}
	if cfg.Sync.CommandTimeoutSeconds != 30 {
		t.Errorf("default timeout = %d, want 30", cfg.Sync.CommandTimeoutSeconds)
	}
	if cfg.Sync.CommitPrefix != "Auto-sync" {
		t.Errorf("default commit prefix = %q", cfg.Sync.CommitPrefix)
	}
	if !reflect.DeepEqual(cfg.Watch.IgnorePatterns, DefaultIgnorePatterns) {
		t.Errorf("default ignore patterns = %v", cfg.Watch.IgnorePatterns)
	}
}

func TestLoadExplicitEmptyIgnoreListKept(t *testing.T) {
	path := writeConfig(t, `repo:
  branch: "autosync"
watch:
  ignore_patterns: []
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if len(cfg.Watch.IgnorePatterns) != 0 {
		t.Errorf("explicit empty ignore list must not be replaced, got %v", cfg.Watch.IgnorePatterns)
	}
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("AUTOSYNCD_TEST_BRANCH", "env-branch")

	path := writeConfig(t, `repo:
  branch: "$AUTOSYNCD_TEST_BRANCH"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Repo.Branch != "env-branch" {
		t.Errorf("branch = %q, want env-branch", cfg.Repo.Branch)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "repo: [not a mapping\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid yaml")
	}
}

func TestValidateErrors(t *testing.T) {
	for _, tc := range []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing branch",
			content: "repo:\n  path: \"/tmp\"\n",
			wantErr: "repo.branch is required",
		},
		{
			name:    "negative debounce",
			content: "repo:\n  branch: \"b\"\nwatch:\n  debounce_seconds: -1\n",
			wantErr: "watch.debounce_seconds",
		},
		{
			name:    "negative timeout",
			content: "repo:\n  branch: \"b\"\nsync:\n  command_timeout_seconds: -5\n",
			wantErr: "sync.command_timeout_seconds",
		},
		{
			name:    "serve without listen addr",
			content: "repo:\n  branch: \"b\"\nserve:\n  enabled: true\n",
			wantErr: "serve.listen_addr is required",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			path := writeConfig(t, tc.content)
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}
