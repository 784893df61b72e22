package textgen

import (
	"context"
	"errors"
	"net"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"sortd/internal/services"
)

// classifyError maps a raw backend failure onto the sentinel taxonomy so the
// pipeline can distinguish retryable trouble from configuration mistakes.
func classifyError(component, operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return services.Wrap(services.ErrCancelled, component, operation, "request cancelled", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, component, operation, "request deadline exceeded", err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 401, 403:
			return services.Wrap(services.ErrAuthFailed, component, operation, "api rejected credentials", err)
		case 429:
			return services.Wrap(services.ErrRateLimited, component, operation, "rate limit exceeded", err)
		case 408:
			return services.Wrap(services.ErrTimeout, component, operation, "request timed out", err)
		}
		if apiErr.HTTPStatusCode >= 500 {
			return services.Wrap(services.ErrAPI, component, operation, "api server error", err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return services.Wrap(services.ErrTimeout, component, operation, "network timeout", err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "timeout", "timed out", "deadline"):
		return services.Wrap(services.ErrTimeout, component, operation, "request timed out", err)
	case containsAny(msg, "rate limit", "too many requests", "429"):
		return services.Wrap(services.ErrRateLimited, component, operation, "rate limit exceeded", err)
	case containsAny(msg, "authentication", "unauthorized", "invalid api key", "incorrect api key", "401"):
		return services.Wrap(services.ErrAuthFailed, component, operation, "authentication failed", err)
	case containsAny(msg, "out of memory", "oom"):
		return services.Wrap(services.ErrOutOfMemory, component, operation, "backend out of memory", err)
	case containsAny(msg, "connection refused", "no such host", "connection reset", "network"):
		return services.Wrap(services.ErrNetwork, component, operation, "backend unreachable", err)
	default:
		return services.Wrap(services.ErrAPI, component, operation, "backend request failed", err)
	}
}

func containsAny(haystack string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
