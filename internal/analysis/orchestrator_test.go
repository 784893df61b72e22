package analysis_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"sortd/internal/analysis"
	"sortd/internal/catalog"
	"sortd/internal/scanner"
	"sortd/internal/services"
	"sortd/internal/testsupport"
	"sortd/internal/textgen"
)

// fakeBackend answers categorization requests from a fixed table and records
// every call.
type fakeBackend struct {
	answers map[string]string
	errs    map[string]error
	calls   []string
	onCall  func(name string)
}

func (f *fakeBackend) Categorize(ctx context.Context, req textgen.Request) (textgen.Result, error) {
	f.calls = append(f.calls, req.Name)
	if f.onCall != nil {
		f.onCall(req.Name)
	}
	if err := ctx.Err(); err != nil {
		return textgen.Result{}, services.Wrap(services.ErrCancelled, "textgen", "complete", "request cancelled", err)
	}
	if err, ok := f.errs[req.Name]; ok {
		return textgen.Result{}, err
	}
	raw, ok := f.answers[req.Name]
	if !ok {
		raw = "Uncategorized : General"
	}
	category, sub, fromFallback, err := textgen.ParseCategorization(raw)
	if err != nil {
		return textgen.Result{Raw: raw}, err
	}
	return textgen.Result{Category: category, Subcategory: sub, Raw: raw, FromFallback: fromFallback}, nil
}

func (f *fakeBackend) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeBackend) CheckReady(ctx context.Context) error { return nil }
func (f *fakeBackend) Local() bool                          { return true }
func (f *fakeBackend) Name() string                         { return "fake" }

func seedFiles(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func newOrchestrator(t *testing.T, backend textgen.Service) (*analysis.Orchestrator, *catalog.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	orch := analysis.New(cfg, store, scanner.NewOS(), backend, testsupport.Logger())
	return orch, store
}

func TestRunCategorizesDirectory(t *testing.T) {
	dir := seedFiles(t, "invoice.pdf", "song.mp3", "notes.txt")
	backend := &fakeBackend{answers: map[string]string{
		"invoice.pdf": "Documents : Invoices",
		"song.mp3":    "Music : Albums",
		"notes.txt":   "Documents : Notes",
	}}
	orch, store := newOrchestrator(t, backend)

	report, err := orch.Run(context.Background(), analysis.Options{DirPath: dir}, analysis.Callbacks{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.RunID == "" {
		t.Fatal("expected a run id")
	}
	if report.Progress.Total != 3 || report.Progress.Categorized != 3 {
		t.Fatalf("unexpected progress: %+v", report.Progress)
	}
	if len(report.Items) != 3 {
		t.Fatalf("expected 3 items in report, got %d", len(report.Items))
	}

	entry, err := store.FindOne(context.Background(), dir, "invoice.pdf", catalog.FileTypeFile)
	if err != nil {
		t.Fatalf("find persisted entry: %v", err)
	}
	if entry.Category != "Documents" || entry.Subcategory != "Invoices" {
		t.Fatalf("unexpected persisted labels: %+v", entry)
	}
}

func TestRunUsesCacheOnSecondPass(t *testing.T) {
	dir := seedFiles(t, "a.txt", "b.txt")
	backend := &fakeBackend{answers: map[string]string{
		"a.txt": "Text : Notes",
		"b.txt": "Text : Notes",
	}}
	orch, _ := newOrchestrator(t, backend)
	opts := analysis.Options{DirPath: dir}

	if _, err := orch.Run(context.Background(), opts, analysis.Callbacks{}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	firstCalls := len(backend.calls)

	report, err := orch.Run(context.Background(), opts, analysis.Callbacks{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if len(backend.calls) != firstCalls {
		t.Fatalf("second run should not call the backend, got %d extra calls",
			len(backend.calls)-firstCalls)
	}
	if report.Progress.Cached != 2 || report.Progress.Categorized != 0 {
		t.Fatalf("unexpected progress: %+v", report.Progress)
	}
	for _, item := range report.Items {
		if !item.FromCache {
			t.Fatalf("expected cached item, got %+v", item)
		}
	}
}

func TestRunOnlySendsUncachedItems(t *testing.T) {
	dir := seedFiles(t, "old.txt", "new.txt")
	backend := &fakeBackend{answers: map[string]string{"new.txt": "Text : Notes"}}
	orch, store := newOrchestrator(t, backend)

	if _, err := store.Save(context.Background(), catalog.Entry{
		DirPath: dir, Name: "old.txt", Type: catalog.FileTypeFile,
		Category: "Text", Subcategory: "Notes",
	}); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	report, err := orch.Run(context.Background(), analysis.Options{DirPath: dir}, analysis.Callbacks{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(backend.calls) != 1 || backend.calls[0] != "new.txt" {
		t.Fatalf("expected a single call for new.txt, got %v", backend.calls)
	}
	if report.Progress.Cached != 1 || report.Progress.Categorized != 1 {
		t.Fatalf("unexpected progress: %+v", report.Progress)
	}
}

func TestRunCancellationKeepsCommittedBatches(t *testing.T) {
	dir := seedFiles(t, "a.txt", "b.txt", "c.txt")
	ctx, cancel := context.WithCancel(context.Background())
	backend := &fakeBackend{
		answers: map[string]string{
			"a.txt": "Text : Notes",
			"b.txt": "Text : Notes",
			"c.txt": "Text : Notes",
		},
	}
	backend.onCall = func(name string) {
		// Cancel once the first batch is in flight; with batch size 1 the
		// first item commits and everything after stops.
		if name == "b.txt" {
			cancel()
		}
	}
	orch, store := newOrchestrator(t, backend)

	report, err := orch.Run(ctx, analysis.Options{DirPath: dir, BatchSize: 1}, analysis.Callbacks{})
	if !services.Cancelled(err) {
		t.Fatalf("expected cancellation error, got %v", err)
	}
	if !report.Interrupted {
		t.Fatal("report should be marked interrupted")
	}

	exists, err := store.Exists(context.Background(), dir, "a.txt", catalog.FileTypeFile)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !exists {
		t.Fatal("first committed batch should survive cancellation")
	}
	exists, err = store.Exists(context.Background(), dir, "b.txt", catalog.FileTypeFile)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if exists {
		t.Fatal("in-flight batch should have rolled back")
	}
}

func TestRunSkipsUncertainAndRecordsFailures(t *testing.T) {
	dir := seedFiles(t, "good.txt", "unsure.bin", "broken.dat")
	backend := &fakeBackend{
		answers: map[string]string{
			"good.txt":   "Text : Notes",
			"unsure.bin": "UNCERTAIN",
		},
		errs: map[string]error{
			"broken.dat": services.Wrap(services.ErrAPI, "textgen", "complete", "server error", nil),
		},
	}
	orch, store := newOrchestrator(t, backend)

	var failures []string
	report, err := orch.Run(context.Background(), analysis.Options{DirPath: dir}, analysis.Callbacks{
		OnFailed: func(item analysis.Item, err error) { failures = append(failures, item.Name) },
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Progress.Categorized != 1 || report.Progress.Skipped != 1 || report.Progress.Failed != 1 {
		t.Fatalf("unexpected progress: %+v", report.Progress)
	}
	if len(failures) != 1 || failures[0] != "broken.dat" {
		t.Fatalf("unexpected failure callbacks: %v", failures)
	}

	for name, want := range map[string]bool{"good.txt": true, "unsure.bin": false, "broken.dat": false} {
		exists, err := store.Exists(context.Background(), dir, name, catalog.FileTypeFile)
		if err != nil {
			t.Fatalf("exists %s: %v", name, err)
		}
		if exists != want {
			t.Fatalf("%s cached = %v, want %v", name, exists, want)
		}
	}
}

func TestRunAbortsOnAuthFailure(t *testing.T) {
	dir := seedFiles(t, "a.txt", "b.txt")
	backend := &fakeBackend{
		errs: map[string]error{
			"a.txt": services.Wrap(services.ErrAuthFailed, "textgen", "complete", "bad key", nil),
		},
	}
	orch, _ := newOrchestrator(t, backend)

	_, err := orch.Run(context.Background(), analysis.Options{DirPath: dir}, analysis.Callbacks{})
	if !errors.Is(err, services.ErrAuthFailed) {
		t.Fatalf("expected auth failure to abort the run, got %v", err)
	}
	if len(backend.calls) != 1 {
		t.Fatalf("run should stop at the first auth failure, got %d calls", len(backend.calls))
	}
}

func TestRunAuthFailureKeepsEarlierItemsInBatch(t *testing.T) {
	dir := seedFiles(t, "a.txt", "b.txt", "c.txt")
	backend := &fakeBackend{
		answers: map[string]string{"a.txt": "Text : Notes"},
		errs: map[string]error{
			"b.txt": services.Wrap(services.ErrAuthFailed, "textgen", "complete", "bad key", nil),
		},
	}
	orch, store := newOrchestrator(t, backend)

	_, err := orch.Run(context.Background(), analysis.Options{DirPath: dir}, analysis.Callbacks{})
	if !errors.Is(err, services.ErrAuthFailed) {
		t.Fatalf("expected auth failure, got %v", err)
	}
	if len(backend.calls) != 2 {
		t.Fatalf("c.txt should never be attempted, got calls %v", backend.calls)
	}

	// The item categorized before the auth failure stays committed.
	exists, err := store.Exists(context.Background(), dir, "a.txt", catalog.FileTypeFile)
	if err != nil {
		t.Fatalf("exists: %v", err)
	}
	if !exists {
		t.Fatal("items saved before the auth failure should be committed")
	}
}

func TestRunEmitsOneProgressPerItemEvent(t *testing.T) {
	dir := seedFiles(t, "a.txt", "b.txt", "c.txt")
	backend := &fakeBackend{answers: map[string]string{
		"a.txt": "Text : Notes",
		"b.txt": "UNCERTAIN",
	}, errs: map[string]error{
		"c.txt": services.Wrap(services.ErrAPI, "textgen", "complete", "server error", nil),
	}}
	orch, _ := newOrchestrator(t, backend)

	var snapshots []int
	_, err := orch.Run(context.Background(), analysis.Options{DirPath: dir}, analysis.Callbacks{
		OnProgress: func(p analysis.Progress) { snapshots = append(snapshots, p.Done()) },
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(snapshots) != 3 {
		t.Fatalf("expected one progress callback per item event, got %d: %v", len(snapshots), snapshots)
	}
	for i, done := range snapshots {
		if done != i+1 {
			t.Fatalf("snapshots should advance one event at a time, got %v", snapshots)
		}
	}
}

func TestRunAppliesWhitelist(t *testing.T) {
	dir := seedFiles(t, "weird.xyz")
	backend := &fakeBackend{answers: map[string]string{"weird.xyz": "Gibberish : Stuff"}}
	orch, store := newOrchestrator(t, backend)

	_, err := orch.Run(context.Background(), analysis.Options{
		DirPath:           dir,
		AllowedCategories: []string{"Documents", "Media"},
	}, analysis.Callbacks{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	entry, err := store.FindOne(context.Background(), dir, "weird.xyz", catalog.FileTypeFile)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if entry.Category != "Documents" {
		t.Fatalf("whitelist should rewrite the category, got %q", entry.Category)
	}
}

func TestRunRejectsMissingDirectory(t *testing.T) {
	orch, _ := newOrchestrator(t, &fakeBackend{})

	_, err := orch.Run(context.Background(), analysis.Options{
		DirPath: filepath.Join(t.TempDir(), "missing"),
	}, analysis.Callbacks{})
	if !errors.Is(err, services.ErrFileSystem) {
		t.Fatalf("expected filesystem error, got %v", err)
	}
}
