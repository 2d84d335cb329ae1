package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"airlift/internal/auditlog"
	"airlift/internal/catalog"
	"airlift/internal/reconcile"
	"airlift/internal/status"
)

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	var (
		expectations []string
		maxAttempts  int
		interval     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Poll the aggregated status until it matches an expected state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			expected := make(map[string]string, len(expectations))
			for _, pair := range expectations {
				platform, want, ok := strings.Cut(pair, "=")
				if !ok || platform == "" || want == "" {
					return fmt.Errorf("invalid expectation %q, use platform=status", pair)
				}
				expected[strings.TrimSpace(platform)] = strings.TrimSpace(want)
			}

			store, err := catalog.Open(cfg)
			if err != nil {
				return fmt.Errorf("open catalog: %w", err)
			}
			defer store.Close()

			agg := status.NewAggregator(cfg, auditlog.New(cfg.Paths.LogDir), store, nil)
			snapshot := func(ctx context.Context) (map[string]string, error) {
				return agg.Snapshot(ctx).Statuses(), nil
			}

			result, err := reconcile.Run(cmd.Context(), snapshot, expected, maxAttempts, interval)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if result.Converged {
				fmt.Fprintf(out, "converged after %d attempt(s)\n", result.Attempts)
				return nil
			}

			rows := make([][]string, 0, len(result.Mismatches))
			for _, mismatch := range result.Mismatches {
				rows = append(rows, []string{
					platformDisplayName(mismatch.Platform),
					mismatch.Expected,
					mismatch.Actual,
				})
			}
			fmt.Fprintf(out, "did not converge after %d attempt(s)\n", result.Attempts)
			fmt.Fprintln(out, renderTable([]string{"Platform", "Expected", "Actual"}, rows))
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&expectations, "expect", nil, "Expected state as platform=status (repeatable)")
	cmd.Flags().IntVar(&maxAttempts, "attempts", 3, "Maximum reconciliation attempts")
	cmd.Flags().DurationVar(&interval, "interval", 2*time.Second, "Delay between attempts")

	return cmd
}
