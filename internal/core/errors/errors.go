// Package errors provides centralized error definitions for the engine.
//
// Naming conventions:
//   - Exported errors (Err*): Use for errors that callers need to check with errors.Is
//   - All sentinel errors should be defined as variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// Context assembly errors.
var (
	// ErrContextUnavailable indicates the subject itself could not be resolved.
	// All other missing context degrades instead of failing.
	ErrContextUnavailable = errors.New("context unavailable")

	// ErrSubjectNotFound indicates a subject record does not exist.
	ErrSubjectNotFound = errors.New("subject not found")
)

// Completion service errors. These form the closed CompletionError set; the
// completion client maps every provider failure onto exactly one of them.
var (
	// ErrRateLimited indicates the provider rejected the call for rate reasons.
	// Never retried locally.
	ErrRateLimited = errors.New("rate limited")

	// ErrQuotaExceeded indicates billing/quota exhaustion. Never retried locally.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrTransient indicates a network failure, timeout, or 5xx. Retried with
	// backoff up to a small fixed cap.
	ErrTransient = errors.New("transient completion error")

	// ErrMalformed indicates an empty or non-text response.
	ErrMalformed = errors.New("malformed completion response")
)

// Provider registry errors.
var (
	// ErrNoProvidersAvailable indicates no completion provider is configured.
	ErrNoProvidersAvailable = errors.New("no completion providers available")

	// ErrEmbeddingsUnsupported indicates the active provider cannot embed.
	ErrEmbeddingsUnsupported = errors.New("embeddings unsupported by provider")
)

// Persistence errors.
var (
	// ErrNotFound is a generic not found error for storage lookups.
	ErrNotFound = errors.New("not found")

	// ErrPersistence indicates a storage write failed after a model call
	// already succeeded. Always propagated, never swallowed.
	ErrPersistence = errors.New("persistence error")

	// ErrDuplicateArtifact indicates the per-bucket content index rejected an
	// insert because the same fingerprint was already published in the window.
	// Treated as a candidate drop, not a persistence failure.
	ErrDuplicateArtifact = errors.New("duplicate artifact in publish window")
)

// Configuration errors.
var (
	// ErrUnknownCategory indicates a configured category has no playbook entry.
	ErrUnknownCategory = errors.New("unknown playbook category")
)
