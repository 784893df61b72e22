package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"sortd/internal/consistency"
	"sortd/internal/services"
)

func newConsistencyCommand(ctx *commandContext) *cobra.Command {
	var (
		dirPath   string
		chunkSize int
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "consistency",
		Short: "Harmonize category labels across the cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}

			release, err := ctx.acquireRunLock()
			if err != nil {
				return err
			}
			defer release()

			store, err := ctx.openCatalog(logger)
			if err != nil {
				return err
			}
			defer store.Close()

			backend, err := ctx.newBackend(logger)
			if err != nil {
				return err
			}

			opts := consistency.Options{ChunkSize: chunkSize, DryRun: dryRun}
			if dirPath != "" {
				abs, err := filepath.Abs(dirPath)
				if err != nil {
					return err
				}
				opts.DirPath = abs
			}

			runCtx, cancel := signalContext()
			defer cancel()

			svc := consistency.New(cfg, store, backend, logger)
			report, runErr := svc.Run(runCtx, opts)

			out := cmd.OutOrStdout()
			if len(report.Changes) > 0 {
				rows := make([][]string, 0, len(report.Changes))
				for _, change := range report.Changes {
					rows = append(rows, []string{
						change.Name,
						change.OldCategory + " : " + change.OldSubcategory,
						change.NewCategory + " : " + change.NewSubcategory,
					})
				}
				fmt.Fprintln(out, renderTable([]string{"Name", "Old label", "New label"}, rows))
			}

			verb := "relabeled"
			if dryRun {
				verb = "would relabel"
			}
			fmt.Fprintf(out, "Examined %d entries in %d chunks, %s %d.\n",
				report.Examined, report.Chunks, verb, report.Updated)
			if report.SkippedChunks > 0 {
				fmt.Fprintf(out, "Skipped %d chunks whose backend call failed.\n", report.SkippedChunks)
			}

			if runErr != nil {
				if services.Cancelled(runErr) {
					fmt.Fprintln(out, "Interrupted; completed chunks were kept.")
				}
				return runErr
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dirPath, "dir", "", "Limit the pass to one directory")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "Entries per backend request (default from config)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report proposed relabels without applying them")
	return cmd
}
