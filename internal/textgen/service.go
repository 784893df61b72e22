package textgen

import (
	"context"
	"log/slog"
	"time"

	"sortd/internal/config"
	"sortd/internal/services"
)

// Hint is an existing label pair offered to the backend for consistency.
type Hint struct {
	Category    string
	Subcategory string
}

// Request describes one item to categorize.
type Request struct {
	Name        string
	Path        string
	IsDirectory bool
	Hints       []Hint
}

// Result is a parsed categorization answer. FromFallback marks answers that
// carried no recognizable delimiter, where the whole response line became the
// category.
type Result struct {
	Category     string
	Subcategory  string
	Raw          string
	Duration     time.Duration
	FromFallback bool
}

// Service is a text-generation backend. Categorize asks for a single label
// pair; Complete runs a free-form prompt for the harmonization pass.
type Service interface {
	Categorize(ctx context.Context, req Request) (Result, error)
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
	CheckReady(ctx context.Context) error
	Local() bool
	Name() string
}

// New builds the backend selected by cfg.Backend.Kind.
func New(cfg *config.Config, logger *slog.Logger) (Service, error) {
	switch cfg.Backend.Kind {
	case config.BackendOpenAI:
		return newRemoteService(cfg, logger)
	case config.BackendCompat:
		return newRemoteService(cfg, logger)
	case config.BackendOllama:
		return newOllamaService(cfg, logger)
	default:
		return nil, services.Wrap(services.ErrValidation, "textgen", "new",
			"unknown backend kind "+cfg.Backend.Kind, nil)
	}
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}
