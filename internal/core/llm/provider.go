package llm

import "context"

// ProviderName identifies a completion provider.
type ProviderName string

const (
	ProviderOpenAI ProviderName = "openai"
	ProviderGoogle ProviderName = "google"
	ProviderMock   ProviderName = "mock"
)

// Priority constants for provider ordering.
const (
	PriorityPrimary  = 100
	PriorityFallback = 50
	PriorityMock     = 0
)

const apiKeyMock = "mock"

// Provider defines the interface for completion providers. Complete must
// classify every failure into one of the core/errors completion sentinels
// (ErrRateLimited, ErrQuotaExceeded, ErrTransient, ErrMalformed).
type Provider interface {
	// Name returns the provider identifier.
	Name() ProviderName

	// IsAvailable returns true if the provider is configured and usable.
	IsAvailable() bool

	// Priority returns the provider priority (higher = preferred).
	Priority() int

	// Complete issues one completion call.
	Complete(ctx context.Context, prompt string, params Params) (Result, error)

	// SupportsEmbeddings reports whether Embed is implemented.
	SupportsEmbeddings() bool

	// Embed returns a vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)
}
