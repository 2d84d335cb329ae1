package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"airlift/internal/auditlog"
	"airlift/internal/browser"
	"airlift/internal/catalog"
	"airlift/internal/dispatch"
	"airlift/internal/logging"
	"airlift/internal/secrets"
	"airlift/internal/sessions"
)

func newDispatchCommand(ctx *commandContext) *cobra.Command {
	var (
		assetID     string
		filePath    string
		title       string
		description string
		tags        []string
		genre       string
		accountID   int64
		platform    string
	)

	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Distribute a media asset to the configured platforms",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if strings.TrimSpace(assetID) == "" {
				return fmt.Errorf("--asset is required")
			}
			if strings.TrimSpace(filePath) == "" {
				return fmt.Errorf("--file is required")
			}

			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			store, err := catalog.Open(cfg)
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer store.Close()

			var driver browser.Driver
			if !cfg.DemoMode() {
				driver = browser.NewChromeDriver()
			}

			dispatcher := dispatch.New(cfg, dispatch.Deps{
				Secrets:  secrets.NewStore(cfg),
				Sessions: sessions.NewStore(cfg.Paths.SessionsDir),
				Driver:   driver,
				Audit:    auditlog.New(cfg.Paths.LogDir),
				Catalog:  store,
				Logger:   logger,
			})

			req := dispatch.Request{
				AssetID:   assetID,
				FilePath:  filePath,
				AccountID: accountID,
				Metadata: dispatch.Metadata{
					Title:       title,
					Description: description,
					Tags:        tags,
					Genre:       genre,
				},
			}

			var outcomes []dispatch.Outcome
			if platform != "" {
				outcomes = []dispatch.Outcome{dispatcher.Dispatch(cmd.Context(), platform, req)}
			} else {
				outcomes = dispatcher.DispatchAll(cmd.Context(), req)
			}

			rows := make([][]string, 0, len(outcomes))
			for _, outcome := range outcomes {
				rows = append(rows, []string{
					platformDisplayName(outcome.Platform),
					outcome.Status,
					outcome.TrackID,
					outcome.Error,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Platform", "Status", "Track", "Error"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&assetID, "asset", "", "Asset identifier")
	cmd.Flags().StringVar(&filePath, "file", "", "Path to the media file")
	cmd.Flags().StringVar(&title, "title", "", "Track title")
	cmd.Flags().StringVar(&description, "description", "", "Track description")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Track tag (repeatable)")
	cmd.Flags().StringVar(&genre, "genre", "", "Track genre")
	cmd.Flags().Int64Var(&accountID, "account", 1, "Account identifier")
	cmd.Flags().StringVar(&platform, "platform", "", "Dispatch to a single platform only")

	return cmd
}
