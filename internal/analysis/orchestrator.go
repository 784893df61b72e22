package analysis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"sortd/internal/catalog"
	"sortd/internal/config"
	"sortd/internal/logging"
	"sortd/internal/scanner"
	"sortd/internal/services"
	"sortd/internal/textgen"
	"sortd/internal/whitelist"
)

// Orchestrator drives a categorization run: scan, diff against the cache,
// send the remainder to the backend in batches, persist each batch
// atomically.
type Orchestrator struct {
	cfg     *config.Config
	store   *catalog.Store
	scan    scanner.Scanner
	backend textgen.Service
	logger  *slog.Logger
}

// New wires an orchestrator from its collaborators.
func New(cfg *config.Config, store *catalog.Store, scan scanner.Scanner, backend textgen.Service, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		store:   store,
		scan:    scan,
		backend: backend,
		logger:  logging.WithComponent(logger, "analysis"),
	}
}

// Run categorizes the directory named in opts. Cancelling ctx stops the run
// at the next item boundary; batches already committed stay in the cache and
// the returned report is marked interrupted. The report is valid even when
// an error is returned alongside it.
func (o *Orchestrator) Run(ctx context.Context, opts Options, cb Callbacks) (Report, error) {
	ctx = ensureContext(ctx)
	start := time.Now()

	report := Report{RunID: uuid.NewString()}
	opts, err := o.normalizeOptions(opts)
	if err != nil {
		return report, err
	}
	report.DirPath = opts.DirPath

	logger := o.logger.With(
		logging.String(logging.FieldRunID, report.RunID),
		logging.String(logging.FieldDirectory, opts.DirPath),
	)
	logger.Info("starting analysis run", logging.String(logging.FieldBackend, o.backend.Name()))

	status(cb, "checking backend")
	if err := o.backend.CheckReady(ctx); err != nil {
		return report, err
	}

	// Rows left blank by an interrupted writer get requeued, not trusted.
	requeued, err := o.store.RemoveEmptyCategorizations(ctx)
	if err != nil {
		return report, err
	}
	report.Requeued = len(requeued)

	status(cb, "scanning directory")
	entries, err := o.scan.List(opts.DirPath, scanner.Options{
		Files:         opts.IncludeFiles,
		Directories:   opts.IncludeDirectories,
		IncludeHidden: opts.IncludeHidden,
	})
	if err != nil {
		return report, err
	}

	cached, pending, err := o.splitCached(ctx, opts.DirPath, entries)
	if err != nil {
		return report, err
	}

	report.Progress.Total = len(entries)
	for _, item := range cached {
		report.Items = append(report.Items, item)
		report.Progress.Cached++
		progress(cb, report.Progress)
	}
	logger.Info("scan complete",
		logging.Int("entries", len(entries)),
		logging.Int("cached", len(cached)),
		logging.Int("pending", len(pending)))

	if len(pending) == 0 {
		report.Duration = time.Since(start)
		return report, nil
	}

	status(cb, fmt.Sprintf("categorizing %d items", len(pending)))
	runErr := o.categorizePending(ctx, opts, pending, &report, cb, logger)

	report.Duration = time.Since(start)
	logger.Info("analysis run finished",
		logging.Int("categorized", report.Progress.Categorized),
		logging.Int("failed", report.Progress.Failed),
		logging.Int("skipped", report.Progress.Skipped),
		logging.Bool("interrupted", report.Interrupted),
		logging.Duration("duration", report.Duration))
	return report, runErr
}

func (o *Orchestrator) normalizeOptions(opts Options) (Options, error) {
	if strings.TrimSpace(opts.DirPath) == "" {
		return opts, services.Wrap(services.ErrValidation, "analysis", "run", "directory is required", nil)
	}
	absPath, err := filepath.Abs(opts.DirPath)
	if err != nil {
		return opts, services.Wrap(services.ErrValidation, "analysis", "run", "resolve directory", err)
	}
	opts.DirPath = absPath

	if !opts.IncludeFiles && !opts.IncludeDirectories {
		opts.IncludeFiles = true
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = o.cfg.Analysis.BatchSize
	}
	if opts.MaxHints <= 0 {
		opts.MaxHints = o.cfg.Analysis.MaxHints
	}

	exists, err := o.scan.Exists(opts.DirPath)
	if err != nil {
		return opts, err
	}
	if !exists {
		return opts, services.Wrap(services.ErrFileSystem, "analysis", "run",
			fmt.Sprintf("directory %s does not exist", opts.DirPath), nil)
	}
	return opts, nil
}

// splitCached partitions scanned entries into already-categorized items and
// items that still need a backend call. The diff is by (name, type) so a file
// and directory sharing a name stay distinct.
func (o *Orchestrator) splitCached(ctx context.Context, dirPath string, entries []scanner.Entry) ([]Item, []scanner.Entry, error) {
	existing, err := o.store.FindByDirectory(ctx, dirPath)
	if err != nil {
		return nil, nil, err
	}

	known := make(map[string]catalog.Entry, len(existing))
	for _, entry := range existing {
		known[string(entry.Type)+"\x00"+entry.Name] = entry
	}

	var (
		cached  []Item
		pending []scanner.Entry
	)
	for _, entry := range entries {
		ft := catalog.FileTypeFile
		if entry.IsDirectory {
			ft = catalog.FileTypeDirectory
		}
		if hit, ok := known[string(ft)+"\x00"+entry.Name]; ok {
			cached = append(cached, Item{
				Name:        hit.Name,
				Type:        hit.Type,
				Category:    hit.Category,
				Subcategory: hit.Subcategory,
				FromCache:   true,
			})
			continue
		}
		pending = append(pending, entry)
	}
	return cached, pending, nil
}

func (o *Orchestrator) categorizePending(ctx context.Context, opts Options, pending []scanner.Entry, report *Report, cb Callbacks, logger *slog.Logger) error {
	for offset := 0; offset < len(pending); offset += opts.BatchSize {
		if err := ctx.Err(); err != nil {
			report.Interrupted = true
			return services.Wrap(services.ErrCancelled, "analysis", "run", "run cancelled between batches", err)
		}

		end := offset + opts.BatchSize
		if end > len(pending) {
			end = len(pending)
		}
		if err := o.categorizeBatch(ctx, opts, pending[offset:end], report, cb, logger); err != nil {
			if services.Cancelled(err) {
				report.Interrupted = true
			}
			return err
		}
	}
	return nil
}

// categorizeBatch runs one batch inside a catalog transaction. A cancelled
// context rolls the whole batch back; an auth failure commits the items
// saved so far before aborting, and per-item failures are recorded and the
// batch continues. Failure and skip events are pushed as they happen;
// categorized items are pushed only once the batch is durable.
func (o *Orchestrator) categorizeBatch(ctx context.Context, opts Options, batch []scanner.Entry, report *Report, cb Callbacks, logger *slog.Logger) error {
	tx, err := o.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Close()

	committed := make([]Item, 0, len(batch))
	var abort error

	for _, entry := range batch {
		if err := ctx.Err(); err != nil {
			return services.Wrap(services.ErrCancelled, "analysis", "run", "run cancelled mid-batch", err)
		}

		item := Item{Name: entry.Name, Type: catalog.FileTypeFile}
		if entry.IsDirectory {
			item.Type = catalog.FileTypeDirectory
		}

		req := textgen.Request{Name: entry.Name, Path: entry.Path, IsDirectory: entry.IsDirectory}
		if opts.UseHints {
			hints, hintErr := o.hintsFor(ctx, entry, opts.MaxHints)
			if hintErr != nil {
				return hintErr
			}
			req.Hints = hints
		}

		result, err := o.backend.Categorize(ctx, req)
		switch {
		case err == nil:
		case errors.Is(err, services.ErrUncertain):
			report.Progress.Skipped++
			progress(cb, report.Progress)
			logger.Debug("backend uncertain, skipping",
				logging.String(logging.FieldItem, entry.Name))
			continue
		case services.Cancelled(err):
			return err
		case errors.Is(err, services.ErrAuthFailed):
			abort = err
		default:
			report.Progress.Failed++
			failed(cb, item, err)
			progress(cb, report.Progress)
			logger.Warn("categorization failed",
				logging.String(logging.FieldItem, entry.Name),
				logging.Error(err))
			continue
		}
		if abort != nil {
			break
		}

		category, subcategory := whitelist.Apply(opts.AllowedCategories, result.Category, result.Subcategory)
		saved, err := o.store.Save(ctx, catalog.Entry{
			DirPath:     opts.DirPath,
			Name:        entry.Name,
			Type:        item.Type,
			Category:    category,
			Subcategory: subcategory,
			UsedHints:   opts.UseHints,
		})
		if err != nil {
			return err
		}

		item.Category = saved.Category
		item.Subcategory = saved.Subcategory
		committed = append(committed, item)
		logger.Debug("categorized",
			logging.String(logging.FieldItem, entry.Name),
			logging.String("category", saved.Category),
			logging.String("subcategory", saved.Subcategory),
			logging.Duration("backend_time", result.Duration))
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	for _, item := range committed {
		report.Items = append(report.Items, item)
		report.Progress.Categorized++
		categorized(cb, item)
		progress(cb, report.Progress)
	}
	return abort
}

// hintsFor collects label suggestions for an item: labels already used for
// the same extension first, padded with the globally most frequent pairs.
func (o *Orchestrator) hintsFor(ctx context.Context, entry scanner.Entry, maxHints int) ([]textgen.Hint, error) {
	var pairs []catalog.CategoryPair
	if !entry.IsDirectory {
		if ext := filepath.Ext(entry.Name); ext != "" {
			byExt, err := o.store.CategoriesForExtension(ctx, ext, maxHints)
			if err != nil {
				return nil, err
			}
			pairs = byExt
		}
	}
	if len(pairs) < maxHints {
		top, err := o.store.TopCategories(ctx, maxHints-len(pairs))
		if err != nil {
			return nil, err
		}
		for _, pair := range top {
			if !containsPair(pairs, pair) {
				pairs = append(pairs, pair)
			}
		}
	}

	hints := make([]textgen.Hint, 0, len(pairs))
	for _, pair := range pairs {
		hints = append(hints, textgen.Hint{Category: pair.Category, Subcategory: pair.Subcategory})
	}
	return hints, nil
}

func containsPair(pairs []catalog.CategoryPair, pair catalog.CategoryPair) bool {
	for _, p := range pairs {
		if p == pair {
			return true
		}
	}
	return false
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func status(cb Callbacks, message string) {
	if cb.OnStatus != nil {
		cb.OnStatus(message)
	}
}

func progress(cb Callbacks, p Progress) {
	if cb.OnProgress != nil {
		cb.OnProgress(p)
	}
}

func categorized(cb Callbacks, item Item) {
	if cb.OnCategorized != nil {
		cb.OnCategorized(item)
	}
}

func failed(cb Callbacks, item Item, err error) {
	if cb.OnFailed != nil {
		cb.OnFailed(item, err)
	}
}
