package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	srv "github.com/mohammad-safakhou/remedy/internal/server"
)

func serveCMD(cfgPath *string) *cobra.Command {
	var serveAddr string
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the research HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := loadApp(ctx, *cfgPath, true)
			if err != nil {
				return err
			}
			defer a.logger.Sync() //nolint:errcheck

			addr := a.cfg.Server.Address
			if serveAddr != "" {
				addr = serveAddr
			}
			deps := srv.Deps{
				Researcher:       a.orchestrator,
				Cache:            a.cache,
				CacheTTL:         a.cfg.Cache.TTL,
				APIKeyConfigured: !a.cfg.MissingAPIKey(),
				RequestTimeout:   a.cfg.Server.RequestTimeout,
				AllowOrigins:     a.cfg.Server.AllowOrigins,
				MetricsPath:      a.cfg.Telemetry.MetricsPath,
				Telemetry:        a.telemetry,
				Logger:           a.logger,
			}
			if a.feeds != nil {
				deps.Feeds = a.feeds
			}
			if a.cfg.Telemetry.Metrics {
				deps.Metrics = a.registry
			}
			return srv.Run(ctx, srv.New(deps), addr, a.logger)
		},
	}
	serve.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.address)")
	return serve
}
