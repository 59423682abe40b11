// Package cmd provides the CLI commands for Lumen.
package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lumenlauncher/lumen/internal/catalog"
	"github.com/lumenlauncher/lumen/internal/config"
	"github.com/lumenlauncher/lumen/internal/errors"
	"github.com/lumenlauncher/lumen/internal/logging"
	"github.com/lumenlauncher/lumen/internal/match"
	"github.com/lumenlauncher/lumen/internal/normalize"
	"github.com/lumenlauncher/lumen/internal/provider"
	"github.com/lumenlauncher/lumen/internal/query"
	"github.com/lumenlauncher/lumen/internal/telemetry"
	"github.com/lumenlauncher/lumen/pkg/version"
)

var (
	configPath     string
	debugMode      bool
	loggingCleanup func()
)

// NewRootCmd creates the root command for the lumen CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lumen",
		Short: "Keystroke-latency fuzzy matching over a launchable catalog",
		Long: `Lumen is the matching engine of a desktop launcher: it scans
configured directories for launchable entries and ranks them against
interactively typed queries with per-keystroke latency.

Run 'lumen interactive' for a live prompt, or 'lumen query <text>' for a
one-shot ranked list.`,
		Version:       version.Short(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("lumen version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.lumen/config.yaml)")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.lumen/logs/")

	cmd.PersistentPreRunE = setupLogging
	cmd.PersistentPostRun = func(*cobra.Command, []string) {
		if loggingCleanup != nil {
			loggingCleanup()
		}
	}

	cmd.AddCommand(NewQueryCmd())
	cmd.AddCommand(NewInteractiveCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		_, _ = os.Stderr.WriteString("Error: " + err.Error() + "\n")
		return err
	}
	return nil
}

func setupLogging(*cobra.Command, []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if debugMode {
		cfg.Logging.Level = "debug"
	}
	cleanup, err := logging.SetupDefault(cfg.Logging, false)
	if err != nil {
		return err
	}
	loggingCleanup = cleanup
	return nil
}

// engine bundles the assembled core for the CLI commands.
type engine struct {
	cfg        config.Config
	store      *catalog.Store
	dispatcher *query.Dispatcher
	metrics    *telemetry.QueryMetrics
	apps       *provider.Apps
}

func (e *engine) close() {
	e.dispatcher.Close()
	e.store.Close()
}

// buildEngine loads configuration, assembles the store and dispatcher,
// and runs the initial catalog scan.
func buildEngine(ctx context.Context, extraPaths []string) (*engine, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	cfg.Provider.Paths = append(cfg.Provider.Paths, extraPaths...)

	var normOpts []normalize.Option
	if cfg.Engine.CaseSensitive {
		normOpts = append(normOpts, normalize.WithCaseSensitive())
	}
	normalizer := normalize.New(normOpts...)

	registry := match.NewRegistry()
	if _, err := registry.Resolve(cfg.Engine.Matcher); err != nil {
		return nil, errors.ConfigError(err.Error(), err)
	}
	store := catalog.NewStore(normalizer, registry)

	metrics, err := telemetry.NewQueryMetrics(128, 512)
	if err != nil {
		return nil, err
	}

	dispatcher, err := query.NewDispatcher(store, normalizer, cfg.Engine,
		query.WithLogger(slog.Default()),
		query.WithMetrics(metrics))
	if err != nil {
		return nil, err
	}

	apps := provider.NewApps(store, cfg.Provider,
		provider.WithMatcher(cfg.Engine.Matcher))
	if len(cfg.Provider.Paths) > 0 {
		if err := apps.Scan(ctx); err != nil {
			dispatcher.Close()
			return nil, err
		}
	}

	return &engine{
		cfg:        cfg,
		store:      store,
		dispatcher: dispatcher,
		metrics:    metrics,
		apps:       apps,
	}, nil
}
