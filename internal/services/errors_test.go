package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"sortd/internal/services"
)

func TestWrapTagsMarker(t *testing.T) {
	base := errors.New("disk full")
	err := services.Wrap(services.ErrDatabase, "catalog", "save", "upsert failed", base)

	if !errors.Is(err, services.ErrDatabase) {
		t.Fatalf("expected database marker, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatal("expected wrapped cause to survive")
	}
	if !strings.Contains(err.Error(), "catalog: save: upsert failed") {
		t.Fatalf("unexpected detail: %v", err)
	}
}

func TestKindOf(t *testing.T) {
	cases := []struct {
		marker error
		want   services.Kind
	}{
		{services.ErrValidation, services.KindValidation},
		{services.ErrFileSystem, services.KindFileSystem},
		{services.ErrAuthFailed, services.KindAPI},
		{services.ErrRateLimited, services.KindAPI},
		{services.ErrNetwork, services.KindNetwork},
		{services.ErrDatabase, services.KindDatabase},
		{services.ErrTimeout, services.KindBackend},
		{services.ErrOutOfMemory, services.KindBackend},
		{services.ErrInvalidState, services.KindInternal},
	}
	for _, tc := range cases {
		err := services.Wrap(tc.marker, "x", "y", "", nil)
		if got := services.KindOf(err); got != tc.want {
			t.Fatalf("%v: expected kind %s, got %s", tc.marker, tc.want, got)
		}
	}
}

func TestRetryable(t *testing.T) {
	if !services.Retryable(services.Wrap(services.ErrRateLimited, "b", "call", "", nil)) {
		t.Fatal("rate-limited should be retryable")
	}
	if services.Retryable(services.Wrap(services.ErrAuthFailed, "b", "call", "", nil)) {
		t.Fatal("auth failure should not be retryable")
	}
}

func TestCancelled(t *testing.T) {
	if !services.Cancelled(fmt.Errorf("run aborted: %w", context.Canceled)) {
		t.Fatal("context.Canceled should classify as cancelled")
	}
	if !services.Cancelled(services.Wrap(services.ErrCancelled, "a", "run", "", nil)) {
		t.Fatal("ErrCancelled should classify as cancelled")
	}
	if services.Cancelled(errors.New("boom")) {
		t.Fatal("plain error should not classify as cancelled")
	}
}
