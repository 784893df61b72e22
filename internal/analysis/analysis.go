package analysis

import (
	"time"

	"sortd/internal/catalog"
)

// Options configures a single categorization run over one directory.
type Options struct {
	DirPath            string
	IncludeFiles       bool
	IncludeDirectories bool
	IncludeHidden      bool
	BatchSize          int
	UseHints           bool
	MaxHints           int
	// AllowedCategories restricts results to a whitelist. Empty means any
	// category is acceptable.
	AllowedCategories []string
}

// Item is one file or directory as it moves through a run.
type Item struct {
	Name        string
	Type        catalog.FileType
	Category    string
	Subcategory string
	FromCache   bool
}

// Progress is a snapshot of run counters, delivered after every item.
type Progress struct {
	Total       int
	Cached      int
	Categorized int
	Failed      int
	Skipped     int
}

// Done reports how many items have been accounted for so far.
func (p Progress) Done() int {
	return p.Cached + p.Categorized + p.Failed + p.Skipped
}

// Callbacks let the CLI observe a run without the orchestrator knowing about
// terminals. All callbacks are optional and invoked from the run goroutine.
type Callbacks struct {
	OnStatus      func(message string)
	OnProgress    func(progress Progress)
	OnCategorized func(item Item)
	OnFailed      func(item Item, err error)
}

// Report summarizes a finished (or cancelled) run.
type Report struct {
	RunID       string
	DirPath     string
	Progress    Progress
	Items       []Item
	Requeued    int
	Duration    time.Duration
	Interrupted bool
}
