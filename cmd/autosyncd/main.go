package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/schaermu/autosyncd/internal/api"
	"github.com/schaermu/autosyncd/internal/config"
	"github.com/schaermu/autosyncd/internal/git"
	autosync "github.com/schaermu/autosyncd/internal/sync"
	"github.com/schaermu/autosyncd/internal/watch"
	"github.com/spf13/cobra"
)

var (
	// Set by goreleaser
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string
	repoPath  string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "autosyncd",
	Short: "Automatically commit and push filesystem changes to a Git remote",
	Long: `autosyncd watches a repository working tree for filesystem changes and
replicates them to a remote branch, coalescing bursts of activity into a
single commit-and-push and retrying transient push failures with backoff.

It can run as a long-running watcher or perform a single sync pass (via
cron or a systemd timer).`,
	SilenceUsage: true,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the repository and sync on changes until interrupted",
	Long: `Watch verifies the target branch, starts a filesystem watcher on the
repository root, and runs the sync loop: whenever a relevant change is
pending and the debounce window has elapsed, changes are staged, committed
and pushed to the configured remote.

Stops cleanly on SIGINT or SIGTERM.`,
	RunE: runWatch,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Perform a single sync pass and exit",
	Long: `Sync verifies the target branch and runs exactly one cycle: check the
working tree, stage, commit and push if anything differs. Exits non-zero
when the cycle fails.`,
	RunE: runSync,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("autosyncd %s\n", version)
		fmt.Printf("  commit: %s\n", commit)
		fmt.Printf("  built:  %s\n", date)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/autosyncd/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&repoPath, "repo", "", "repository path (overrides repo.path from the config file)")

	// Add commands
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(versionCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()

	cfg, err := loadConfig(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	engine, agg, classifier := buildEngine(cfg, logger)

	if err := engine.Bootstrap(ctx); err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}

	watcher := watch.NewWatcher(cfg.Repo.Path, classifier, agg, logger)
	if err := watcher.Start(); err != nil {
		logger.Error("failed to start watcher", "error", err)
		return err
	}
	defer watcher.Stop()

	if cfg.Serve.Enabled {
		server, err := api.NewServer(cfg, agg, engine, logger)
		if err != nil {
			return fmt.Errorf("failed to create api server: %w", err)
		}
		go func() {
			if err := server.Start(ctx); err != nil {
				logger.Error("api server failed", "error", err)
			}
		}()
	}

	logger.Info("watching for changes",
		"path", cfg.Repo.Path,
		"remote", cfg.Repo.Remote,
		"branch", cfg.Repo.Branch,
		"debounce", cfg.DebounceWindow())

	return engine.Run(ctx)
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, cancel := setupSignalHandler()
	defer cancel()

	logger := setupLogger()

	cfg, err := loadConfig(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	engine, _, _ := buildEngine(cfg, logger)

	if err := engine.Bootstrap(ctx); err != nil {
		logger.Error("startup failed", "error", err)
		return err
	}

	return engine.Once(ctx)
}

// buildEngine wires the runner, git client, classifier and aggregator into
// a sync engine.
func buildEngine(cfg *config.Config, logger *slog.Logger) (*autosync.Engine, *watch.Aggregator, *watch.Classifier) {
	runner := git.NewRunner(cfg.Repo.Path, cfg.CommandTimeout())
	gitClient := git.NewShellClient(runner)
	classifier := watch.NewClassifier(cfg.Watch.IgnorePatterns)
	agg := watch.NewAggregator(classifier, logger)
	engine := autosync.NewEngine(cfg, gitClient, agg, logger)
	return engine, agg, classifier
}

func setupLogger() *slog.Logger {
	// Parse log level
	var level slog.Level
	switch logLevel {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	// Create handler based on format
	var handler slog.Handler
	opts := &slog.HandlerOptions{Level: level}

	if logFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}

func loadConfig(logger *slog.Logger) (*config.Config, error) {
	// Determine config file path
	configPath := cfgFile
	if configPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		configPath = fmt.Sprintf("%s/.config/autosyncd/config.yaml", home)
	}

	logger.Info("loading configuration", "path", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if repoPath != "" {
		cfg.Repo.Path = repoPath
	}

	logger.Debug("configuration loaded",
		"path", cfg.Repo.Path,
		"remote", cfg.Repo.Remote,
		"branch", cfg.Repo.Branch,
		"debounce_seconds", cfg.Watch.DebounceSeconds)

	return cfg, nil
}

func setupSignalHandler() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	return ctx, cancel
}
