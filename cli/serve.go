package main

import (
	"github.com/spf13/cobra"

	"github.com/aqua777/indexquery/internal/config"
	"github.com/aqua777/indexquery/internal/metrics"
	"github.com/aqua777/indexquery/internal/server"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Build or load every index, then serve the query UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m := metrics.New()
			// auth problems surface before any index is embedded
			a, err := opts.newApp(cmd, m, func(cfg *config.Config) error {
				return cfg.Server.Auth.Validate()
			})
			if err != nil {
				return err
			}

			h, err := a.Chat(cmd.Context())
			if err != nil {
				return err
			}
			srv, err := server.New(a.Config.Server, h,
				server.WithMetrics(m),
				server.WithLogger(a.Logger),
				server.WithDescriptions(a.Catalog.Descriptions),
			)
			if err != nil {
				return err
			}
			return srv.Start(cmd.Context())
		},
	}
}
