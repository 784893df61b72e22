package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newWhitelistCommand(ctx *commandContext) *cobra.Command {
	whitelistCmd := &cobra.Command{
		Use:   "whitelist",
		Short: "Manage category whitelists",
	}

	whitelistCmd.AddCommand(newWhitelistListCommand(ctx))
	whitelistCmd.AddCommand(newWhitelistShowCommand(ctx))
	whitelistCmd.AddCommand(newWhitelistSetCommand(ctx))
	whitelistCmd.AddCommand(newWhitelistDeleteCommand(ctx))

	return whitelistCmd
}

func newWhitelistListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored whitelists",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.whitelistStore()
			if err != nil {
				return err
			}
			names, err := store.Names()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(names) == 0 {
				fmt.Fprintln(out, "No whitelists stored")
				return nil
			}
			for _, name := range names {
				fmt.Fprintln(out, name)
			}
			return nil
		},
	}
}

func newWhitelistShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show the categories of a whitelist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.whitelistStore()
			if err != nil {
				return err
			}
			categories, err := store.Load(args[0])
			if err != nil {
				return err
			}
			for _, category := range categories {
				fmt.Fprintln(cmd.OutOrStdout(), category)
			}
			return nil
		},
	}
}

func newWhitelistSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <name> <category>...",
		Short: "Create or replace a whitelist",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.whitelistStore()
			if err != nil {
				return err
			}
			name := args[0]
			categories := args[1:]
			if err := store.Save(name, categories); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Whitelist %q saved with %d categories: %s\n",
				name, len(categories), strings.Join(categories, ", "))
			return nil
		},
	}
}

func newWhitelistDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a whitelist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.whitelistStore()
			if err != nil {
				return err
			}
			if err := store.Delete(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Whitelist %q deleted\n", args[0])
			return nil
		},
	}
}
