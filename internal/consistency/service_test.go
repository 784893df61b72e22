package consistency_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"sortd/internal/catalog"
	"sortd/internal/consistency"
	"sortd/internal/services"
	"sortd/internal/testsupport"
	"sortd/internal/textgen"
)

// scriptedBackend answers Complete calls from a queue and records prompts.
// A non-nil entry in errs fails the call at the same position instead.
type scriptedBackend struct {
	responses []string
	errs      []error
	prompts   []string
}

func (s *scriptedBackend) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	s.prompts = append(s.prompts, userPrompt)
	if err := ctx.Err(); err != nil {
		return "", services.Wrap(services.ErrCancelled, "textgen", "complete", "request cancelled", err)
	}
	if len(s.errs) > 0 {
		next := s.errs[0]
		s.errs = s.errs[1:]
		if next != nil {
			return "", next
		}
	}
	if len(s.responses) == 0 {
		return "END", nil
	}
	next := s.responses[0]
	s.responses = s.responses[1:]
	return next, nil
}

func (s *scriptedBackend) Categorize(ctx context.Context, req textgen.Request) (textgen.Result, error) {
	return textgen.Result{}, fmt.Errorf("not implemented")
}

func (s *scriptedBackend) CheckReady(ctx context.Context) error { return nil }
func (s *scriptedBackend) Local() bool                          { return true }
func (s *scriptedBackend) Name() string                         { return "scripted" }

func seedCatalog(t *testing.T, store *catalog.Store) {
	t.Helper()
	entries := []struct{ name, category, sub string }{
		{"a.zip", "Zip files", "Misc"},
		{"b.zip", "Archives", "Compressed"},
		{"c.txt", "Documents", "Notes"},
	}
	for _, e := range entries {
		if _, err := store.Save(context.Background(), catalog.Entry{
			DirPath: "/data", Name: e.name, Type: catalog.FileTypeFile,
			Category: e.category, Subcategory: e.sub,
		}); err != nil {
			t.Fatalf("seed %s: %v", e.name, err)
		}
	}
}

func TestRunAppliesChangedLabelsOnly(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	seedCatalog(t, store)

	backend := &scriptedBackend{responses: []string{
		`/data/a.zip => Archives : Compressed
/data/b.zip => Archives : Compressed
/data/c.txt => Documents : Notes
END`,
	}}
	svc := consistency.New(cfg, store, backend, testsupport.Logger())

	report, err := svc.Run(context.Background(), consistency.Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Examined != 3 || report.Chunks != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	// Only a.zip actually moved; b.zip and c.txt kept their labels.
	if report.Updated != 1 || len(report.Changes) != 1 {
		t.Fatalf("expected exactly one change, got %+v", report.Changes)
	}
	change := report.Changes[0]
	if change.Name != "a.zip" || change.NewCategory != "Archives" {
		t.Fatalf("unexpected change: %+v", change)
	}

	entry, err := store.FindOne(context.Background(), "/data", "a.zip", catalog.FileTypeFile)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if entry.Category != "Archives" || entry.Subcategory != "Compressed" {
		t.Fatalf("relabel not persisted: %+v", entry)
	}

	if len(backend.prompts) != 1 {
		t.Fatalf("expected one chunk prompt, got %d", len(backend.prompts))
	}
	prompt := backend.prompts[0]
	if !strings.Contains(prompt, "/data/a.zip => Zip files : Misc") {
		t.Fatalf("prompt missing wire-format item line:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Preferred labels:") {
		t.Fatalf("prompt missing vocabulary section:\n%s", prompt)
	}
}

func TestRunChunksCatalog(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	seedCatalog(t, store)

	backend := &scriptedBackend{responses: []string{"END", "END"}}
	svc := consistency.New(cfg, store, backend, testsupport.Logger())

	report, err := svc.Run(context.Background(), consistency.Options{ChunkSize: 2})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Chunks != 2 {
		t.Fatalf("3 entries at chunk size 2 should make 2 chunks, got %d", report.Chunks)
	}
	if report.Updated != 0 {
		t.Fatalf("sentinel-only answers should change nothing, got %d updates", report.Updated)
	}
}

func TestRunContinuesPastFailedChunk(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	seedCatalog(t, store)

	// The first chunk's call fails; the pass must still harmonize the rest.
	backend := &scriptedBackend{
		errs: []error{services.Wrap(services.ErrAPI, "textgen", "complete", "backend request failed", nil)},
		responses: []string{
			"/data/c.txt => Documents : Manuals\nEND",
		},
	}
	svc := consistency.New(cfg, store, backend, testsupport.Logger())

	report, err := svc.Run(context.Background(), consistency.Options{ChunkSize: 2})
	if err != nil {
		t.Fatalf("a failed chunk must not fail the pass: %v", err)
	}
	if report.Chunks != 2 || report.SkippedChunks != 1 {
		t.Fatalf("expected both chunks attempted with one skipped, got %+v", report)
	}
	if report.Updated != 1 {
		t.Fatalf("second chunk's relabel should apply, got %+v", report)
	}

	entry, err := store.FindOne(context.Background(), "/data", "c.txt", catalog.FileTypeFile)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if entry.Subcategory != "Manuals" {
		t.Fatalf("relabel from the surviving chunk not persisted: %+v", entry)
	}
}

func TestRunAppliesStructuredContainerResponse(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	seedCatalog(t, store)

	backend := &scriptedBackend{responses: []string{
		`{"harmonized": [
			{"id": "/data/a.zip", "category": "Archives", "subcategory": "Compressed"}
		]}`,
	}}
	svc := consistency.New(cfg, store, backend, testsupport.Logger())

	report, err := svc.Run(context.Background(), consistency.Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Updated != 1 || len(report.Changes) != 1 {
		t.Fatalf("structured answer should relabel exactly a.zip, got %+v", report)
	}
	if report.Changes[0].Name != "a.zip" || report.Changes[0].NewCategory != "Archives" {
		t.Fatalf("unexpected change: %+v", report.Changes[0])
	}

	for name, wantCategory := range map[string]string{
		"a.zip": "Archives",
		"b.zip": "Archives",
		"c.txt": "Documents",
	} {
		entry, err := store.FindOne(context.Background(), "/data", name, catalog.FileTypeFile)
		if err != nil {
			t.Fatalf("find %s: %v", name, err)
		}
		if entry.Category != wantCategory {
			t.Fatalf("%s: got category %q, want %q", name, entry.Category, wantCategory)
		}
	}
}

func TestRunDryRunDoesNotPersist(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	seedCatalog(t, store)

	backend := &scriptedBackend{responses: []string{
		"/data/a.zip => Archives : Compressed\nEND",
	}}
	svc := consistency.New(cfg, store, backend, testsupport.Logger())

	report, err := svc.Run(context.Background(), consistency.Options{DryRun: true})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Updated != 1 {
		t.Fatalf("dry run should still report the change, got %+v", report)
	}

	entry, err := store.FindOne(context.Background(), "/data", "a.zip", catalog.FileTypeFile)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if entry.Category != "Zip files" {
		t.Fatalf("dry run must not persist, got %+v", entry)
	}
}

func TestRunEmptyCatalog(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)

	backend := &scriptedBackend{}
	svc := consistency.New(cfg, store, backend, testsupport.Logger())

	report, err := svc.Run(context.Background(), consistency.Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if report.Examined != 0 || report.Chunks != 0 {
		t.Fatalf("empty catalog should be a no-op, got %+v", report)
	}
	if len(backend.prompts) != 0 {
		t.Fatal("no prompts should be sent for an empty catalog")
	}
}

func TestRunCancelledBetweenChunks(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	seedCatalog(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := consistency.New(cfg, store, &scriptedBackend{}, testsupport.Logger())
	report, err := svc.Run(ctx, consistency.Options{})
	if !services.Cancelled(err) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if !report.Interrupted {
		t.Fatal("report should be marked interrupted")
	}
}
