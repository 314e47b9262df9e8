package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jeffrosenberg/random-notion-infra/internal/config"
	"github.com/jeffrosenberg/random-notion-infra/internal/linter"
	"github.com/jeffrosenberg/random-notion-infra/internal/template"
)

// newWatchCmd creates the "watch" subcommand for re-synthesizing on changes.
func newWatchCmd(a *app) *cobra.Command {
	opts := watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-synthesize on source or config changes",
		Long: `Watch monitors the function's module and the config file and
re-synthesizes the stack whenever they change.

The watch command:
- Monitors .go, go.mod and go.sum files under the function's module
- Reloads the config file when it changes
- Lints the stack and writes the template if lint passes
- Debounces rapid changes to avoid excessive rebuilds

Examples:
    random-notion-infra watch -o template.json
    random-notion-infra watch --lint-only
    random-notion-infra watch --bundle --debounce 1s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runWatch(ctx, a, cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.lintOnly, "lint-only", false, "Only run lint, skip writing the template")
	cmd.Flags().BoolVar(&opts.bundle, "bundle", false, "Build the function binary on each change")
	cmd.Flags().DurationVar(&opts.debounce, "debounce", 500*time.Millisecond, "Debounce duration for rapid changes")
	cmd.Flags().StringVarP(&opts.outputFormat, "format", "f", "json", "Output format: json or yaml")
	cmd.Flags().StringVarP(&opts.outputFile, "output", "o", "", "Output file (default: summary only)")

	return cmd
}

type watchOptions struct {
	lintOnly     bool
	bundle       bool
	debounce     time.Duration
	outputFormat string
	outputFile   string
}

// runWatch re-synthesizes on every debounced change until ctx is done.
func runWatch(ctx context.Context, a *app, out io.Writer, opts watchOptions) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	for _, dir := range watchDirs(cfg) {
		if err := addDirRecursive(watcher, dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		log.WithField("dir", dir).Info("watching")
	}
	configFile := cfg.Path()
	if configFile != "" {
		if abs, err := filepath.Abs(configFile); err == nil {
			configFile = abs
		}
		if err := watcher.Add(filepath.Dir(configFile)); err != nil {
			return fmt.Errorf("failed to watch %s: %w", configFile, err)
		}
	}

	fmt.Fprintln(out, "Running initial synth...")
	runSynthAndLint(ctx, a, out, opts)

	var debounceTimer *time.Timer
	rebuildChan := make(chan struct{}, 1)

	fmt.Fprintln(out, "\nWatching for changes... (Ctrl+C to stop)")

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event, configFile) {
				continue
			}
			if event.Name == configFile {
				a.reload()
			}

			// Debounce: reset timer on each change
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(opts.debounce, func() {
				select {
				case rebuildChan <- struct{}{}:
				default:
				}
			})

		case <-rebuildChan:
			fmt.Fprintf(out, "\n[%s] Change detected, re-synthesizing...\n", time.Now().Format("15:04:05"))
			runSynthAndLint(ctx, a, out, opts)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.WithError(err).Warn("watch error")

		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			fmt.Fprintln(out, "\nStopping watch...")
			return nil
		}
	}
}

// watchDirs returns the function's module directory, or its entry
// directory when no module file is configured.
func watchDirs(cfg *config.Config) []string {
	dir := cfg.Function.Entry
	if cfg.Function.ModFile != "" {
		dir = filepath.Dir(cfg.Function.ModFile)
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return []string{dir}
}

// relevant reports whether an event should trigger a rebuild.
func relevant(event fsnotify.Event, configFile string) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
		return false
	}
	if configFile != "" && event.Name == configFile {
		return true
	}
	base := filepath.Base(event.Name)
	if strings.HasSuffix(base, "_test.go") {
		return false
	}
	return strings.HasSuffix(base, ".go") || base == "go.mod" || base == "go.sum"
}

// addDirRecursive adds a directory and all subdirectories to the watcher.
func addDirRecursive(watcher *fsnotify.Watcher, dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			// Skip hidden directories
			if strings.HasPrefix(filepath.Base(path), ".") && path != dir {
				return filepath.SkipDir
			}
			// Skip vendor directory
			if filepath.Base(path) == "vendor" {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
}

// runSynthAndLint synthesizes, lints, and writes the template when lint
// passes. Failures are reported and watching continues.
func runSynthAndLint(ctx context.Context, a *app, out io.Writer, opts watchOptions) {
	s, err := a.synthesize(ctx, opts.bundle)
	if err != nil {
		log.WithError(err).Error("synth failed")
		return
	}

	result := linter.Lint(s.Template, linter.Options{})
	for _, issue := range result.Issues {
		fmt.Fprintf(out, "%s: %s: %s [%s]\n", issue.Severity, issue.Resource, issue.Message, issue.Rule)
	}
	if !result.Success {
		fmt.Fprintln(out, "Lint failed, skipping output")
		return
	}
	fmt.Fprintln(out, "Lint passed")

	if opts.lintOnly {
		return
	}

	var data []byte
	switch opts.outputFormat {
	case "json":
		data, err = template.ToJSON(s.Template)
	case "yaml":
		data, err = template.ToYAML(s.Template)
	default:
		err = fmt.Errorf("unknown format: %s", opts.outputFormat)
	}
	if err != nil {
		log.WithError(err).Error("output failed")
		return
	}

	if opts.outputFile == "" {
		fmt.Fprintf(out, "Synth successful: %d resources\n", len(s.Template.Resources))
		return
	}
	if err := os.WriteFile(opts.outputFile, data, 0644); err != nil {
		log.WithError(err).Error("failed to write output")
		return
	}
	fmt.Fprintf(out, "Synth successful, wrote %s\n", opts.outputFile)
}
