package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"airlift/internal/browser"
	"airlift/internal/daemon"
	"airlift/internal/logging"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the distribution daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			var driver browser.Driver
			if !cfg.DemoMode() {
				driver = browser.NewChromeDriver()
			}

			d, err := daemon.New(cfg, logger, driver)
			if err != nil {
				return err
			}
			defer d.Close()

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if err := d.Start(signalCtx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "airlift daemon listening on %s\n", d.APIAddr())

			<-signalCtx.Done()
			d.Stop()
			return nil
		},
	}
}
