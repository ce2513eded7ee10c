package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aqua777/indexquery/internal/app"
	"github.com/aqua777/indexquery/internal/config"
	"github.com/aqua777/indexquery/internal/metrics"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "indexquery",
		Short:         "Query document collections through custom LLM indexes",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (default indexquery.yaml in . or ./config)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")

	root.AddCommand(
		newServeCmd(opts),
		newBuildCmd(opts),
		newQueryCmd(opts),
		newConfigCmd(opts),
	)
	return root
}

func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		if _, err := config.ParseLevel(o.logLevel); err != nil {
			return nil, err
		}
		cfg.Log.Level = o.logLevel
	}
	return cfg, nil
}

// newApp loads the configuration, runs the command's checks on it and wires
// the application. Logs go to stderr so command output stays clean.
func (o *rootOptions) newApp(cmd *cobra.Command, m *metrics.Metrics, checks ...func(*config.Config) error) (*app.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	for _, check := range checks {
		if err := check(cfg); err != nil {
			return nil, err
		}
	}
	logger, err := config.NewLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)
	return app.New(cmd.Context(), cfg, app.WithLogger(logger), app.WithMetrics(m))
}
