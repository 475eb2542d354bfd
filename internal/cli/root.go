// Package cli wires the unicorns commands.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/paveg/unicorns"
	"github.com/paveg/unicorns/internal/config"
	"github.com/paveg/unicorns/internal/logging"
	"github.com/paveg/unicorns/internal/monitoring"
	"github.com/paveg/unicorns/internal/table"
	"github.com/paveg/unicorns/internal/view"
)

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

// app is the state shared by the subcommands of one invocation.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg       config.Config
	logger    *slog.Logger
	collector *monitoring.Collector
	theme     view.Theme
	cleanup   func() error
}

func newRootCmd() *cobra.Command {
	a := &app{theme: view.DefaultTheme()}

	cmd := &cobra.Command{
		Use:          "unicorns",
		Short:        "Clean, aggregate and project unicorn company data",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(_ *cobra.Command, _ []string) error {
			if a.cleanup != nil {
				return a.cleanup()
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "configuration file (YAML or JSON)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug|info|warn|error")
	cmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format: text|json")

	cmd.AddCommand(
		cleanCmd(a),
		topCmd(a),
		countriesCmd(a),
		industriesCmd(a),
		trendCmd(a),
		projectCmd(a),
		reportCmd(a),
		menuCmd(a),
		versionCmd(),
	)
	return cmd
}

// setup loads the configuration, applies the global flags and builds the
// logger and collector.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = a.logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Logging.Format = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, cleanup, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		File:   cfg.Logging.File,
		Writer: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	a.cleanup = cleanup
	a.collector = monitoring.NewCollector(cfg.Logging.Metrics)
	return nil
}

// pipeline returns a Pipeline reading input with the loaded configuration.
func (a *app) pipeline(input string) *unicorns.Pipeline {
	cfg := a.cfg
	cfg.Input.Path = input
	return unicorns.New(cfg,
		unicorns.WithLogger(a.logger),
		unicorns.WithCollector(a.collector),
	)
}

// loadClean loads and cleans input; the caller releases the result.
func (a *app) loadClean(cmd *cobra.Command, input string) (*table.Table, *unicorns.Pipeline, error) {
	p := a.pipeline(input)
	raw, err := p.Load(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	defer raw.Release()

	cleaned, _, err := p.Clean(raw)
	if err != nil {
		return nil, nil, err
	}
	return cleaned, p, nil
}

func (a *app) print(cmd *cobra.Command, title, body string) {
	fmt.Fprintln(cmd.OutOrStdout(), a.theme.Section(title, body))
}
