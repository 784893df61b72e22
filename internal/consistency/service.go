package consistency

import (
	"context"
	"log/slog"
	"path"
	"strings"
	"time"

	"sortd/internal/catalog"
	"sortd/internal/config"
	"sortd/internal/logging"
	"sortd/internal/services"
	"sortd/internal/textgen"
)

// Options configures one harmonization pass.
type Options struct {
	// DirPath limits the pass to one directory; empty means the whole
	// catalog.
	DirPath      string
	ChunkSize    int
	SnapshotSize int
	MaxTokens    int
	// DryRun reports the changes without persisting them.
	DryRun bool
}

// Change is one relabeled entry, reported only when the label actually moved.
type Change struct {
	DirPath        string
	Name           string
	Type           catalog.FileType
	OldCategory    string
	OldSubcategory string
	NewCategory    string
	NewSubcategory string
}

// Report summarizes a harmonization pass.
type Report struct {
	Examined      int
	Chunks        int
	SkippedChunks int
	Updated       int
	Changes       []Change
	Duration      time.Duration
	Interrupted   bool
}

// chunkItem pairs a catalog entry with the id used on the wire. The id is
// the slash-joined directory and name, which the model must echo back.
type chunkItem struct {
	id    string
	entry catalog.Entry
}

// Service runs the label harmonization pass: it snapshots the most frequent
// label pairs, shows the backend the catalog in chunks, and applies the
// relabels it proposes.
type Service struct {
	cfg     *config.Config
	store   *catalog.Store
	backend textgen.Service
	logger  *slog.Logger
}

// New wires a harmonization service.
func New(cfg *config.Config, store *catalog.Store, backend textgen.Service, logger *slog.Logger) *Service {
	return &Service{
		cfg:     cfg,
		store:   store,
		backend: backend,
		logger:  logging.WithComponent(logger, "consistency"),
	}
}

// Run executes the pass. Cancelling ctx stops at the next chunk boundary;
// chunks already committed keep their new labels.
func (s *Service) Run(ctx context.Context, opts Options) (Report, error) {
	ctx = ensureContext(ctx)
	start := time.Now()
	opts = s.normalizeOptions(opts)

	var report Report
	if err := s.backend.CheckReady(ctx); err != nil {
		return report, err
	}

	entries, err := s.store.Find(ctx, catalog.Query{DirPath: opts.DirPath})
	if err != nil {
		return report, err
	}
	report.Examined = len(entries)
	if len(entries) == 0 {
		report.Duration = time.Since(start)
		return report, nil
	}

	// The snapshot is taken once so every chunk harmonizes against the same
	// vocabulary, not one that drifts as chunks commit.
	snapshot, err := s.store.TopCategories(ctx, opts.SnapshotSize)
	if err != nil {
		return report, err
	}
	if len(snapshot) == 0 {
		report.Duration = time.Since(start)
		return report, nil
	}

	items := make([]chunkItem, 0, len(entries))
	for _, entry := range entries {
		items = append(items, chunkItem{id: path.Join(entry.DirPath, entry.Name), entry: entry})
	}

	for offset := 0; offset < len(items); offset += opts.ChunkSize {
		if err := ctx.Err(); err != nil {
			report.Interrupted = true
			report.Duration = time.Since(start)
			return report, services.Wrap(services.ErrCancelled, "consistency", "run", "pass cancelled between chunks", err)
		}

		end := offset + opts.ChunkSize
		if end > len(items) {
			end = len(items)
		}
		chunk := items[offset:end]
		report.Chunks++

		changes, err := s.harmonizeChunk(ctx, snapshot, chunk, opts)
		if err != nil {
			if services.Cancelled(err) {
				report.Interrupted = true
				report.Duration = time.Since(start)
				return report, err
			}
			// Harmonization is best-effort: a failed chunk means fewer
			// items relabeled, never a failed pass.
			report.SkippedChunks++
			s.logger.Warn("chunk harmonization failed, skipping",
				logging.Int("chunk_size", len(chunk)),
				logging.Error(err))
			continue
		}
		report.Changes = append(report.Changes, changes...)
		report.Updated += len(changes)
	}

	report.Duration = time.Since(start)
	s.logger.Info("harmonization pass finished",
		logging.Int("examined", report.Examined),
		logging.Int("chunks", report.Chunks),
		logging.Int("updated", report.Updated),
		logging.Bool("dry_run", opts.DryRun),
		logging.Duration("duration", report.Duration))
	return report, nil
}

func (s *Service) normalizeOptions(opts Options) Options {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = s.cfg.Consistency.ChunkSize
	}
	if opts.SnapshotSize <= 0 {
		opts.SnapshotSize = s.cfg.Consistency.SnapshotSize
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = s.cfg.Consistency.MaxTokens
	}
	return opts
}

// harmonizeChunk asks the backend to relabel one chunk and applies the
// proposals that actually change something, all inside one transaction.
func (s *Service) harmonizeChunk(ctx context.Context, snapshot []catalog.CategoryPair, chunk []chunkItem, opts Options) ([]Change, error) {
	prompt := buildHarmonizationPrompt(snapshot, chunk)
	raw, err := s.backend.Complete(ctx, HarmonizationSystemPrompt, prompt, opts.MaxTokens)
	if err != nil {
		return nil, err
	}

	relabels := parseResponse(raw, chunk)
	if len(relabels) == 0 {
		s.logger.Warn("unparseable harmonization response, chunk skipped",
			logging.Int("chunk_size", len(chunk)))
		return nil, nil
	}

	byID := make(map[string]catalog.Entry, len(chunk))
	for _, item := range chunk {
		byID[item.id] = item.entry
	}

	var changes []Change
	for _, rl := range relabels {
		entry, ok := byID[rl.id]
		if !ok {
			continue
		}
		if sameLabel(entry.Category, rl.category) && sameLabel(entry.Subcategory, rl.subcategory) {
			continue
		}
		changes = append(changes, Change{
			DirPath:        entry.DirPath,
			Name:           entry.Name,
			Type:           entry.Type,
			OldCategory:    entry.Category,
			OldSubcategory: entry.Subcategory,
			NewCategory:    rl.category,
			NewSubcategory: rl.subcategory,
		})
	}
	if len(changes) == 0 || opts.DryRun {
		return changes, nil
	}

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Close()

	applied := make([]Change, 0, len(changes))
	for i, change := range changes {
		entry := byID[path.Join(change.DirPath, change.Name)]
		saved, err := s.store.Save(ctx, catalog.Entry{
			DirPath:     entry.DirPath,
			Name:        entry.Name,
			Type:        entry.Type,
			Category:    change.NewCategory,
			Subcategory: change.NewSubcategory,
			UsedHints:   entry.UsedHints,
		})
		if err != nil {
			return nil, err
		}
		// Taxonomy resolution may canonicalize the proposed label; report
		// what was actually stored. A fuzzy merge can collapse the change
		// back onto the old label, in which case it is dropped.
		changes[i].NewCategory = saved.Category
		changes[i].NewSubcategory = saved.Subcategory
		if sameLabel(saved.Category, entry.Category) && sameLabel(saved.Subcategory, entry.Subcategory) {
			continue
		}
		applied = append(applied, changes[i])
		s.logger.Debug("relabeled entry",
			logging.String(logging.FieldItem, entry.Name),
			logging.String("old", entry.Category+" : "+entry.Subcategory),
			logging.String("new", saved.Category+" : "+saved.Subcategory))
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return applied, nil
}

func sameLabel(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
