package textgen

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	ollama "github.com/JexSrs/go-ollama"

	"sortd/internal/config"
	"sortd/internal/logging"
	"sortd/internal/services"
)

// ollamaService runs categorization against a local Ollama server.
type ollamaService struct {
	client        *ollama.Ollama
	host          string
	model         string
	timeout       time.Duration
	promptLogging bool
	logger        *slog.Logger
}

func newOllamaService(cfg *config.Config, logger *slog.Logger) (*ollamaService, error) {
	hostURL, err := url.Parse(cfg.Backend.OllamaHost)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "textgen", "new", "invalid ollama host", err)
	}

	return &ollamaService{
		client:        ollama.New(*hostURL),
		host:          cfg.Backend.OllamaHost,
		model:         cfg.Backend.OllamaModel,
		timeout:       time.Duration(cfg.Backend.TimeoutSeconds) * time.Second,
		promptLogging: cfg.Backend.PromptLogging,
		logger:        logging.WithComponent(logger, "textgen"),
	}, nil
}

func (s *ollamaService) Name() string { return config.BackendOllama }
func (s *ollamaService) Local() bool  { return true }

func (s *ollamaService) Categorize(ctx context.Context, req Request) (Result, error) {
	prompt := buildCategorizationPrompt(req)
	start := time.Now()

	raw, err := s.Complete(ctx, CategorizationSystemPrompt, prompt, categorizeMaxTokens)
	if err != nil {
		return Result{}, err
	}

	category, subcategory, fromFallback, err := ParseCategorization(raw)
	if err != nil {
		return Result{Raw: raw}, err
	}
	return Result{
		Category:     category,
		Subcategory:  subcategory,
		Raw:          raw,
		Duration:     time.Since(start),
		FromFallback: fromFallback,
	}, nil
}

// Complete sends a single non-streaming generate request. The Ollama client
// blocks for the whole call, so cancellation is checked up front and the
// response is discarded if the context expired while waiting.
func (s *ollamaService) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	ctx = ensureContext(ctx)
	if err := ctx.Err(); err != nil {
		return "", services.Wrap(services.ErrCancelled, "textgen", "complete", "request cancelled", err)
	}

	if s.promptLogging {
		s.logger.Debug("sending prompt",
			logging.String(logging.FieldBackend, config.BackendOllama),
			logging.String("prompt", userPrompt))
	}

	res, err := s.client.Generate(
		s.client.Generate.WithModel(s.model),
		s.client.Generate.WithSystem(systemPrompt),
		s.client.Generate.WithPrompt(userPrompt),
	)
	if err != nil {
		return "", classifyError("textgen", "complete", err)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", services.Wrap(services.ErrCancelled, "textgen", "complete", "request cancelled", ctxErr)
	}
	if !res.Done {
		return "", services.Wrap(services.ErrBackend, "textgen", "complete", "incomplete generate response", nil)
	}
	answer := strings.TrimSpace(res.Response)
	if answer == "" {
		return "", services.Wrap(services.ErrBackend, "textgen", "complete", "empty generate response", nil)
	}
	return answer, nil
}

// CheckReady validates the host URL and model name without contacting the
// server; an unreachable daemon surfaces on the first generate call instead.
func (s *ollamaService) CheckReady(ctx context.Context) error {
	hostURL, err := url.Parse(s.host)
	if err != nil || hostURL.Scheme == "" || hostURL.Host == "" {
		return services.Wrap(services.ErrValidation, "textgen", "check ready",
			"backend.ollama_host must be a full URL like http://127.0.0.1:11434", err)
	}
	if strings.TrimSpace(s.model) == "" {
		return services.Wrap(services.ErrValidation, "textgen", "check ready",
			"backend.ollama_model is required", nil)
	}
	return nil
}
