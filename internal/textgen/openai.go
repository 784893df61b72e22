package textgen

import (
	"context"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"sortd/internal/config"
	"sortd/internal/logging"
	"sortd/internal/services"
)

const categorizeMaxTokens = 64

// remoteService talks to the OpenAI API or any chat-completion-compatible
// endpoint selected via backend.base_url.
type remoteService struct {
	client        *openai.Client
	apiKey        string
	model         string
	name          string
	timeout       time.Duration
	promptLogging bool
	logger        *slog.Logger
}

func newRemoteService(cfg *config.Config, logger *slog.Logger) (*remoteService, error) {
	apiKey := strings.TrimSpace(cfg.Backend.APIKey)
	name := cfg.Backend.Kind

	var client *openai.Client
	if name == config.BackendCompat {
		clientConfig := openai.DefaultConfig(apiKey)
		clientConfig.BaseURL = strings.TrimRight(cfg.Backend.BaseURL, "/")
		client = openai.NewClientWithConfig(clientConfig)
	} else {
		if apiKey == "" {
			return nil, services.Wrap(services.ErrValidation, "textgen", "new",
				"backend.api_key is required for the openai backend", nil)
		}
		client = openai.NewClient(apiKey)
	}

	return &remoteService{
		client:        client,
		apiKey:        apiKey,
		model:         cfg.Backend.Model,
		name:          name,
		timeout:       time.Duration(cfg.Backend.TimeoutSeconds) * time.Second,
		promptLogging: cfg.Backend.PromptLogging,
		logger:        logging.WithComponent(logger, "textgen"),
	}, nil
}

func (s *remoteService) Name() string { return s.name }
func (s *remoteService) Local() bool  { return false }

func (s *remoteService) Categorize(ctx context.Context, req Request) (Result, error) {
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

func (s *remoteService) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if s.promptLogging {
		s.logger.Debug("sending prompt",
			logging.String(logging.FieldBackend, s.name),
			logging.String("prompt", userPrompt))
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       s.model,
		Temperature: 0,
		MaxTokens:   maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	}
	resp, err := s.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", classifyError("textgen", "complete", err)
	}
	if len(resp.Choices) == 0 {
		return "", services.Wrap(services.ErrAPI, "textgen", "complete", "response had no choices", nil)
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// CheckReady validates the configured credentials without sending a request;
// a bad key still surfaces on the first real call as ErrAuthFailed.
func (s *remoteService) CheckReady(ctx context.Context) error {
	if s.name == config.BackendOpenAI && strings.TrimSpace(s.apiKey) == "" {
		return services.Wrap(services.ErrValidation, "textgen", "check ready",
			"backend.api_key is required for the openai backend", nil)
	}
	if strings.TrimSpace(s.model) == "" {
		return services.Wrap(services.ErrValidation, "textgen", "check ready",
			"backend.model is required", nil)
	}
	return nil
}

func (s *remoteService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = ensureContext(ctx)
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}
