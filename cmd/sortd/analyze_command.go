package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"sortd/internal/analysis"
	"sortd/internal/catalog"
	"sortd/internal/consistency"
	"sortd/internal/scanner"
	"sortd/internal/services"
)

func newAnalyzeCommand(ctx *commandContext) *cobra.Command {
	var (
		includeDirs    bool
		includeHidden  bool
		batchSize      int
		useHints       bool
		noHints        bool
		whitelistName  string
		runConsistency bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <directory>",
		Short: "Categorize the contents of a directory",
		Args:  cobra.ExactArgs(1),
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

			opts := analysis.Options{
				DirPath:            args[0],
				IncludeFiles:       true,
				IncludeDirectories: includeDirs || cfg.Analysis.IncludeDirectories,
				IncludeHidden:      includeHidden || cfg.Analysis.IncludeHidden,
				BatchSize:          batchSize,
				UseHints:           (useHints || cfg.Analysis.UseConsistencyHints) && !noHints,
			}

			listName := strings.TrimSpace(whitelistName)
			if listName == "" {
				listName = strings.TrimSpace(cfg.Analysis.Whitelist)
			}
			if listName != "" {
				wl, err := ctx.whitelistStore()
				if err != nil {
					return err
				}
				allowed, err := wl.Load(listName)
				if err != nil {
					return err
				}
				opts.AllowedCategories = allowed
			}

			runCtx, cancel := signalContext()
			defer cancel()

			out := cmd.OutOrStdout()
			orch := analysis.New(cfg, store, scanner.NewOS(), backend, logger)
			report, runErr := orch.Run(runCtx, opts, progressCallbacks(out))

			if runErr == nil && runConsistency {
				svc := consistency.New(cfg, store, backend, logger)
				conReport, conErr := svc.Run(runCtx, consistency.Options{DirPath: report.DirPath})
				mergeRelabels(report.Items, conReport.Changes)
				printAnalysisReport(out, report)
				fmt.Fprintf(out, "Consistency pass relabeled %d of %d entries.\n",
					conReport.Updated, conReport.Examined)
				return conErr
			}

			printAnalysisReport(out, report)
			if runErr != nil {
				if services.Cancelled(runErr) {
					fmt.Fprintf(out, "Interrupted; %d categorized items were saved.\n", report.Progress.Categorized)
				}
				return runErr
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&includeDirs, "dirs", "d", false, "Categorize subdirectories as well as files")
	cmd.Flags().BoolVar(&includeHidden, "hidden", false, "Include hidden entries")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Items per backend batch (default from config)")
	cmd.Flags().BoolVar(&useHints, "hints", false, "Offer existing labels to the backend for consistency")
	cmd.Flags().BoolVar(&noHints, "no-hints", false, "Disable consistency hints even if enabled in config")
	cmd.Flags().StringVar(&whitelistName, "whitelist", "", "Name of a category whitelist to enforce")
	cmd.Flags().BoolVar(&runConsistency, "consistency", false, "Harmonize the directory's labels after the run")
	return cmd
}

// mergeRelabels folds harmonized labels back into the run's result rows so
// the rendered table shows the labels that ended up in the cache. It returns
// how many rows changed.
func mergeRelabels(items []analysis.Item, changes []consistency.Change) int {
	if len(items) == 0 || len(changes) == 0 {
		return 0
	}
	byKey := make(map[string]consistency.Change, len(changes))
	for _, change := range changes {
		byKey[string(change.Type)+"\x00"+change.Name] = change
	}
	updated := 0
	for i := range items {
		change, ok := byKey[string(items[i].Type)+"\x00"+items[i].Name]
		if !ok {
			continue
		}
		items[i].Category = change.NewCategory
		items[i].Subcategory = change.NewSubcategory
		updated++
	}
	return updated
}

// progressCallbacks renders a single updating status line on terminals and
// stays quiet when output is piped.
func progressCallbacks(out io.Writer) analysis.Callbacks {
	file, isFile := out.(*os.File)
	interactive := isFile && isatty.IsTerminal(file.Fd())
	if !interactive {
		return analysis.Callbacks{}
	}
	return analysis.Callbacks{
		OnStatus: func(message string) {
			fmt.Fprintf(out, "\r\033[K%s", message)
		},
		OnProgress: func(p analysis.Progress) {
			fmt.Fprintf(out, "\r\033[Kcategorizing %d/%d (cached %d, failed %d, skipped %d)",
				p.Done(), p.Total, p.Cached, p.Failed, p.Skipped)
		},
	}
}

func printAnalysisReport(out io.Writer, report analysis.Report) {
	fmt.Fprint(out, "\r\033[K")

	if len(report.Items) > 0 {
		rows := make([][]string, 0, len(report.Items))
		for _, item := range report.Items {
			kind := "file"
			if item.Type == catalog.FileTypeDirectory {
				kind = "dir"
			}
			source := "backend"
			if item.FromCache {
				source = "cache"
			}
			rows = append(rows, []string{item.Name, kind, item.Category, item.Subcategory, source})
		}
		fmt.Fprintln(out, renderTable(
			[]string{"Name", "Type", "Category", "Subcategory", "Source"},
			rows,
		))
	}

	p := report.Progress
	fmt.Fprintf(out, "%d entries: %d cached, %d categorized, %d failed, %d skipped\n",
		p.Total, p.Cached, p.Categorized, p.Failed, p.Skipped)
	if report.Requeued > 0 {
		fmt.Fprintf(out, "Requeued %d entries with blank categories.\n", report.Requeued)
	}
	fmt.Fprintf(out, "Run %s finished in %s.\n", report.RunID, report.Duration.Round(timeRounding))
}
