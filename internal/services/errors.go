package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers tagged onto errors at the point of failure. Callers
// classify with errors.Is rather than string matching.
var (
	ErrValidation   = errors.New("validation error")
	ErrFileSystem   = errors.New("filesystem error")
	ErrNetwork      = errors.New("network error")
	ErrAPI          = errors.New("api error")
	ErrAuthFailed   = errors.New("authentication failed")
	ErrRateLimited  = errors.New("rate limited")
	ErrDatabase     = errors.New("database error")
	ErrBackend      = errors.New("backend error")
	ErrTimeout      = errors.New("timeout")
	ErrOutOfMemory  = errors.New("out of memory")
	ErrCancelled    = errors.New("cancelled")
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrUncertain    = errors.New("backend uncertain")
)

// Kind is the broad failure class the presentation collaborator renders.
type Kind string

const (
	KindValidation Kind = "validation"
	KindFileSystem Kind = "filesystem"
	KindNetwork    Kind = "network"
	KindAPI        Kind = "api"
	KindDatabase   Kind = "database"
	KindBackend    Kind = "backend"
	KindInternal   Kind = "internal"
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrBackend
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// KindOf maps an error to its failure class.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrFileSystem):
		return KindFileSystem
	case errors.Is(err, ErrAuthFailed), errors.Is(err, ErrRateLimited), errors.Is(err, ErrAPI):
		return KindAPI
	case errors.Is(err, ErrNetwork):
		return KindNetwork
	case errors.Is(err, ErrDatabase):
		return KindDatabase
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrOutOfMemory),
		errors.Is(err, ErrUncertain), errors.Is(err, ErrBackend):
		return KindBackend
	default:
		return KindInternal
	}
}

// Retryable reports whether the operation that produced err is worth
// retrying without operator intervention.
func Retryable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrRateLimited), errors.Is(err, ErrNetwork):
		return true
	default:
		return false
	}
}

// Cancelled reports whether err stems from cooperative cancellation.
func Cancelled(err error) bool {
	return errors.Is(err, ErrCancelled) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
