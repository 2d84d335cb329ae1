package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"airlift/internal/secrets"
)

func newSecretsCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Inspect and manage platform credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <scope> <key>",
		Short: "Read one credential value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store := secrets.NewStore(cfg)
			value, found, err := store.Get(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("secret %s/%s not found", args[0], args[1])
			}
			fmt.Fprintln(cmd.OutOrStdout(), value)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <scope> <key> <value>",
		Short: "Store one credential value",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store := secrets.NewStore(cfg)
			if err := store.Set(cmd.Context(), args[0], args[1], args[2]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %s/%s\n", args[0], args[1])
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "keys <scope>",
		Short: "List credential keys in a scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store := secrets.NewStore(cfg)
			keys, err := store.Keys(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, key := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), key)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "health",
		Short: "Report secret backend reachability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store := secrets.NewStore(cfg)
			health := store.Health(cmd.Context())
			state := "unreachable"
			if health.Reachable {
				state = "reachable"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s backend %s", health.Backend, state)
			if health.Detail != "" {
				fmt.Fprintf(cmd.OutOrStdout(), " (%s)", health.Detail)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	})

	return cmd
}
