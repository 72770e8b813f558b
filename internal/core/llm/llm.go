// Package llm wraps hosted completion services behind a stable client
// interface. It owns provider selection, rate limiting, retry of transient
// failures, and classification of provider errors into the closed error set
// defined in core/errors.
package llm

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/vistaceo/insight-engine/internal/platform/config"
)

// Params are the per-call model parameters.
type Params struct {
	Model       string
	MaxTokens   int
	Temperature float32
}

// Result is a successful completion.
type Result struct {
	Text             string
	Provider         ProviderName
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Client is the stable interface the generation pipeline depends on.
type Client interface {
	Complete(ctx context.Context, prompt string, params Params) (Result, error)
	Embed(ctx context.Context, text string) ([]float32, error)
	SupportsEmbeddings() bool
}

// New creates a completion client with provider fallback. Providers are
// registered in priority order: OpenAI (primary), Google (fallback). With no
// keys configured the mock provider is used.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) Client {
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}

	registry := NewRegistry(logger)

	if cfg.OpenAIAPIKey != "" && cfg.OpenAIAPIKey != apiKeyMock {
		registry.Register(NewOpenAIProvider(cfg, logger))
	}

	if cfg.GoogleAPIKey != "" {
		googleProvider, err := NewGoogleProvider(ctx, cfg, logger)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to create Google provider")
		} else {
			registry.Register(googleProvider)
		}
	}

	if registry.ProviderCount() == 0 {
		registry.Register(NewMockProvider())
	}

	return registry
}
