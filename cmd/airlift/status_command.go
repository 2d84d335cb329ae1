package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"airlift/internal/auditlog"
	"airlift/internal/catalog"
	"airlift/internal/config"
	"airlift/internal/status"
)

var titleCaser = cases.Title(language.English)

func platformDisplayName(name string) string {
	if name == "soundcloud" {
		return "SoundCloud"
	}
	return titleCaser.String(name)
}

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the aggregated per-platform distribution status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			store, err := catalog.Open(cfg)
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer store.Close()

			agg := status.NewAggregator(cfg, auditlog.New(cfg.Paths.LogDir), store, nil)
			snapshot := agg.Snapshot(cmd.Context())

			if jsonOutput {
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(snapshot)
			}

			rows := make([][]string, 0, len(config.KnownPlatforms))
			for _, name := range config.KnownPlatforms {
				entry := snapshot.Platforms[name]
				rows = append(rows, []string{
					platformDisplayName(name),
					entry.Status,
					entry.AssetID,
					entry.Timestamp,
					entry.Error,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Platform", "Status", "Asset", "When", "Error"}, rows))

			if snapshot.Counts != nil {
				fmt.Fprintf(out, "catalog: %d assets, %d dispatches\n",
					snapshot.Counts.Assets, snapshot.Counts.Dispatches)
			}
			if snapshot.External != nil {
				fmt.Fprintf(out, "external: %s (%s) at %s\n",
					snapshot.External.Status, snapshot.External.Details, snapshot.External.Timestamp)
			}
			fmt.Fprintf(out, "as of %s\n", snapshot.LastUpdated)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the raw snapshot as JSON")
	return cmd
}
