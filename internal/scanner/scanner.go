// Package scanner lists directory contents for categorization.
package scanner

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sortd/internal/services"
)

// Options controls which entry kinds a listing includes.
type Options struct {
	Files         bool
	Directories   bool
	IncludeHidden bool
}

// Entry is one scanned item. Name is the base name; Path is absolute.
type Entry struct {
	Name        string
	Path        string
	IsDirectory bool
	Size        int64
}

// Scanner lists directory entries. Implementations must return entries in a
// stable order so diffing against the cache is deterministic.
type Scanner interface {
	List(dirPath string, opts Options) ([]Entry, error)
	Exists(path string) (bool, error)
}

// OS is the filesystem-backed Scanner.
type OS struct{}

// NewOS returns a Scanner reading from the local filesystem.
func NewOS() *OS {
	return &OS{}
}

// List returns the immediate children of dirPath matching opts, sorted by
// name. Hidden entries (dot-prefixed) are skipped unless IncludeHidden is
// set. Symlinks are reported as whatever they point at; broken links are
// skipped.
func (o *OS) List(dirPath string, opts Options) ([]Entry, error) {
	if !opts.Files && !opts.Directories {
		return nil, services.Wrap(services.ErrValidation, "scanner", "list", "nothing selected to scan", nil)
	}

	absPath, err := filepath.Abs(dirPath)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "scanner", "list", "resolve directory", err)
	}

	dirEntries, err := os.ReadDir(absPath)
	if err != nil {
		return nil, services.Wrap(services.ErrFileSystem, "scanner", "list", "read directory", err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		name := de.Name()
		if !opts.IncludeHidden && strings.HasPrefix(name, ".") {
			continue
		}

		info, err := os.Stat(filepath.Join(absPath, name))
		if err != nil {
			// Broken symlink or a concurrently removed entry.
			continue
		}

		isDir := info.IsDir()
		if isDir && !opts.Directories {
			continue
		}
		if !isDir && !opts.Files {
			continue
		}

		entry := Entry{
			Name:        name,
			Path:        filepath.Join(absPath, name),
			IsDirectory: isDir,
		}
		if !isDir {
			entry.Size = info.Size()
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Exists reports whether path names an existing directory.
func (o *OS) Exists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, services.Wrap(services.ErrFileSystem, "scanner", "exists", "stat path", err)
	}
	return info.IsDir(), nil
}
