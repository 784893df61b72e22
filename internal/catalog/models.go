package catalog

import "time"

// FileType distinguishes files from directories in the cache.
type FileType string

const (
	FileTypeFile      FileType = "F"
	FileTypeDirectory FileType = "D"
)

// Entry is one cached categorization. Identity is the
// (DirPath, Name, Type) triple, unique per catalog.
type Entry struct {
	ID          int64
	DirPath     string
	Name        string
	Type        FileType
	Category    string
	Subcategory string
	TaxonomyID  int64
	UsedHints   bool
	FromCache   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Query filters Find results. Zero values mean "no constraint".
type Query struct {
	DirPath     string
	Type        *FileType
	Category    string
	UsedHints   *bool
	FromCache   *bool
	Limit       int
	Offset      int
}

// ResolvedCategory is the canonical form of a (category, subcategory) pair
// after fuzzy taxonomy resolution.
type ResolvedCategory struct {
	TaxonomyID  int64
	Category    string
	Subcategory string
}

// CategoryPair is a (category, subcategory) label used for hint context.
type CategoryPair struct {
	Category    string
	Subcategory string
}

// Stats summarizes catalog contents for maintenance commands.
type Stats struct {
	TotalEntries     int64
	FileEntries      int64
	DirectoryEntries int64
	TaxonomyEntries  int64
	DatabaseBytes    int64
	OldestEntry      string
	NewestEntry      string
}

type taxonomyEntry struct {
	id              int64
	category        string
	subcategory     string
	normCategory    string
	normSubcategory string
}
