// Package services defines the error taxonomy shared across the pipeline.
//
// Failures are tagged with sentinel markers at the point of origin via Wrap,
// classified with KindOf for presentation, and checked with Retryable /
// Cancelled so callers can decide whether to retry, prompt, or abort without
// inspecting message text.
package services
