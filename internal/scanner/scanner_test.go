package scanner_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"sortd/internal/scanner"
	"sortd/internal/services"
)

func seedDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	for _, name := range []string{"beta.txt", "alpha.txt", ".hidden.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	for _, name := range []string{"subdir", ".hiddendir"} {
		if err := os.Mkdir(filepath.Join(dir, name), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", name, err)
		}
	}
	return dir
}

func TestListFilesOnly(t *testing.T) {
	dir := seedDir(t)
	s := scanner.NewOS()

	entries, err := s.List(dir, scanner.Options{Files: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 visible files, got %d", len(entries))
	}
	if entries[0].Name != "alpha.txt" || entries[1].Name != "beta.txt" {
		t.Fatalf("expected sorted names, got %+v", entries)
	}
	for _, e := range entries {
		if e.IsDirectory {
			t.Fatalf("files-only listing returned a directory: %+v", e)
		}
		if !filepath.IsAbs(e.Path) {
			t.Fatalf("expected absolute path, got %q", e.Path)
		}
	}
}

func TestListDirectoriesOnly(t *testing.T) {
	dir := seedDir(t)
	s := scanner.NewOS()

	entries, err := s.List(dir, scanner.Options{Directories: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 1 || entries[0].Name != "subdir" || !entries[0].IsDirectory {
		t.Fatalf("expected only subdir, got %+v", entries)
	}
}

func TestListIncludeHidden(t *testing.T) {
	dir := seedDir(t)
	s := scanner.NewOS()

	entries, err := s.List(dir, scanner.Options{Files: true, Directories: true, IncludeHidden: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("expected all 5 entries, got %d", len(entries))
	}
}

func TestListRejectsEmptySelection(t *testing.T) {
	s := scanner.NewOS()
	if _, err := s.List(t.TempDir(), scanner.Options{}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListMissingDirectory(t *testing.T) {
	s := scanner.NewOS()
	_, err := s.List(filepath.Join(t.TempDir(), "nope"), scanner.Options{Files: true})
	if !errors.Is(err, services.ErrFileSystem) {
		t.Fatalf("expected filesystem error, got %v", err)
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	s := scanner.NewOS()

	ok, err := s.Exists(dir)
	if err != nil || !ok {
		t.Fatalf("expected directory to exist, got %v %v", ok, err)
	}

	ok, err = s.Exists(filepath.Join(dir, "missing"))
	if err != nil || ok {
		t.Fatalf("expected missing path to report false, got %v %v", ok, err)
	}

	file := filepath.Join(dir, "f.txt")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ok, err = s.Exists(file)
	if err != nil || ok {
		t.Fatalf("a plain file is not a directory, got %v %v", ok, err)
	}
}
