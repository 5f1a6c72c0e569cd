package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"mealcal/internal/inbox"
	appLog "mealcal/internal/log"
	"mealcal/internal/web"
)

func newServeCmd(a *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the inbox sweeper",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen != "" {
				a.cfg.Listen = listen
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			appLog.Info("mealcal starting",
				"version", version,
				"listen", a.cfg.Listen,
				"inbox_dir", a.cfg.InboxDir,
				"inbox_cron", a.cfg.InboxCron,
			)

			sweeper := &inbox.Sweeper{
				Dir:       a.cfg.InboxDir,
				Extractor: a.cfg.Extractor(),
				Emitter:   a.cfg.Emitter(),
				Store:     a.store,
			}
			if a.cfg.InboxCron != "" {
				if _, err := sweeper.SweepOnce(ctx); err != nil {
					appLog.Error("initial inbox sweep failed", err, "dir", a.cfg.InboxDir)
				}
			}
			if err := sweeper.Start(ctx, a.cfg.InboxCron); err != nil {
				return err
			}
			defer sweeper.Stop()

			err := web.StartServer(ctx, a.cfg, a.store)
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			appLog.Info("mealcal exiting")
			return nil
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}
