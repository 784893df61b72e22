package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the categorization cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	cacheCmd.AddCommand(newCachePruneCommand(ctx))
	cacheCmd.AddCommand(newCacheOptimizeCommand(ctx))

	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show cache contents and size",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			store, err := ctx.openCatalog(logger)
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Entries:    %d (%d files, %d directories)\n",
				stats.TotalEntries, stats.FileEntries, stats.DirectoryEntries)
			fmt.Fprintf(out, "Categories: %d\n", stats.TaxonomyEntries)
			fmt.Fprintf(out, "Database:   %s at %s\n", humanBytes(stats.DatabaseBytes), store.Path())
			if stats.OldestEntry != "" {
				fmt.Fprintf(out, "Oldest:     %s\n", stats.OldestEntry)
			}
			if stats.NewestEntry != "" {
				fmt.Fprintf(out, "Newest:     %s\n", stats.NewestEntry)
			}
			return nil
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached categorization and the taxonomy",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("cache clear is destructive; pass --yes to confirm")
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			store, err := ctx.openCatalog(logger)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.ClearAll(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cache cleared")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")
	return cmd
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove entries not updated recently",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			store, err := ctx.openCatalog(logger)
			if err != nil {
				return err
			}
			defer store.Close()

			pruned, err := store.ClearOlderThan(cmd.Context(), days)
			if err != nil {
				return err
			}
			if pruned == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No entries pruned")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d entries older than %d days\n", pruned, days)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 90, "Prune entries not updated within this many days")
	return cmd
}

func newCacheOptimizeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "optimize",
		Short: "Compact the cache database",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			store, err := ctx.openCatalog(logger)
			if err != nil {
				return err
			}
			defer store.Close()

			before, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if err := store.Optimize(cmd.Context()); err != nil {
				return err
			}
			after, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if freed := before.DatabaseBytes - after.DatabaseBytes; freed > 0 {
				fmt.Fprintf(out, "Optimized; reclaimed %s (now %s)\n",
					humanBytes(freed), humanBytes(after.DatabaseBytes))
			} else {
				fmt.Fprintf(out, "Optimized; database is %s\n", humanBytes(after.DatabaseBytes))
			}
			return nil
		},
	}
}
