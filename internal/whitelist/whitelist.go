// Package whitelist manages named lists of allowed categories.
//
// A whitelist constrains what the backend may answer: categories outside the
// list are replaced with the first allowed one. Lists are stored as TOML
// files, one per name, under the configured whitelist directory.
package whitelist

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"sortd/internal/services"
)

// Apply enforces a whitelist on a categorization result. An empty list allows
// everything. A category outside the list is replaced with the first allowed
// category; the match is case-insensitive and the subcategory passes through
// untouched either way.
func Apply(allowed []string, category, subcategory string) (string, string) {
	if len(allowed) == 0 {
		return category, subcategory
	}
	for _, candidate := range allowed {
		if strings.EqualFold(strings.TrimSpace(candidate), strings.TrimSpace(category)) {
			return candidate, subcategory
		}
	}
	return allowed[0], subcategory
}

type listFile struct {
	Categories []string `toml:"categories"`
}

// Store reads and writes named whitelists under a directory.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, services.Wrap(services.ErrValidation, "whitelist", "new", "directory is required", nil)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, services.Wrap(services.ErrFileSystem, "whitelist", "new", "create whitelist directory", err)
	}
	return &Store{dir: dir}, nil
}

// Load returns the categories of a named whitelist.
func (s *Store) Load(name string) ([]string, error) {
	path, err := s.pathFor(name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "whitelist", "load",
				fmt.Sprintf("no whitelist named %q", name), nil)
		}
		return nil, services.Wrap(services.ErrFileSystem, "whitelist", "load", "read whitelist", err)
	}

	var file listFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, services.Wrap(services.ErrValidation, "whitelist", "load", "parse whitelist", err)
	}

	categories := make([]string, 0, len(file.Categories))
	for _, category := range file.Categories {
		if category = strings.TrimSpace(category); category != "" {
			categories = append(categories, category)
		}
	}
	return categories, nil
}

// Save writes a named whitelist, replacing any existing one.
func (s *Store) Save(name string, categories []string) error {
	path, err := s.pathFor(name)
	if err != nil {
		return err
	}

	cleaned := make([]string, 0, len(categories))
	for _, category := range categories {
		if category = strings.TrimSpace(category); category != "" {
			cleaned = append(cleaned, category)
		}
	}
	if len(cleaned) == 0 {
		return services.Wrap(services.ErrValidation, "whitelist", "save", "whitelist needs at least one category", nil)
	}

	data, err := toml.Marshal(listFile{Categories: cleaned})
	if err != nil {
		return services.Wrap(services.ErrValidation, "whitelist", "save", "encode whitelist", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return services.Wrap(services.ErrFileSystem, "whitelist", "save", "write whitelist", err)
	}
	return nil
}

// Delete removes a named whitelist. Deleting a missing list is an error so
// typos surface.
func (s *Store) Delete(name string) error {
	path, err := s.pathFor(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, "whitelist", "delete",
				fmt.Sprintf("no whitelist named %q", name), nil)
		}
		return services.Wrap(services.ErrFileSystem, "whitelist", "delete", "remove whitelist", err)
	}
	return nil
}

// Names lists the stored whitelists, sorted.
func (s *Store) Names() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, services.Wrap(services.ErrFileSystem, "whitelist", "names", "read whitelist directory", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if name, ok := strings.CutSuffix(entry.Name(), ".toml"); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) pathFor(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", services.Wrap(services.ErrValidation, "whitelist", "path", "whitelist name is required", nil)
	}
	if strings.ContainsAny(name, `/\`) || name != filepath.Base(name) {
		return "", services.Wrap(services.ErrValidation, "whitelist", "path",
			fmt.Sprintf("invalid whitelist name %q", name), nil)
	}
	return filepath.Join(s.dir, name+".toml"), nil
}
