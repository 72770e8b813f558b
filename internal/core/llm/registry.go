package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	coreerrors "github.com/vistaceo/insight-engine/internal/core/errors"
	"github.com/vistaceo/insight-engine/internal/platform/observability"
)

const (
	cooldownThreshold = 5
	cooldownDuration  = time.Minute
)

// Registry manages completion providers with priority fallback. A provider
// that keeps failing is put on a short cooldown so the fallback takes over.
type Registry struct {
	mu        sync.RWMutex
	providers map[ProviderName]Provider
	order     []ProviderName
	failures  map[ProviderName]int
	coolUntil map[ProviderName]time.Time
	retryCfg  RetryConfig
	logger    *zerolog.Logger
}

// NewRegistry creates an empty provider registry.
func NewRegistry(logger *zerolog.Logger) *Registry {
	return &Registry{
		providers: make(map[ProviderName]Provider),
		order:     make([]ProviderName, 0),
		failures:  make(map[ProviderName]int),
		coolUntil: make(map[ProviderName]time.Time),
		retryCfg:  DefaultRetryConfig(),
		logger:    logger,
	}
}

// Register adds a provider and re-sorts by priority.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	r.providers[name] = p
	r.order = append(r.order, name)

	sort.SliceStable(r.order, func(i, j int) bool {
		return r.providers[r.order[i]].Priority() > r.providers[r.order[j]].Priority()
	})

	available := 0.0
	if p.IsAvailable() {
		available = 1.0
	}

	observability.ProviderAvailable.WithLabelValues(string(name)).Set(available)

	r.logger.Info().
		Str("provider", string(name)).
		Int("priority", p.Priority()).
		Msg("registered completion provider")
}

// ProviderCount returns the number of registered providers.
func (r *Registry) ProviderCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.providers)
}

// Complete tries providers in priority order. Transient failures are retried
// per provider with backoff, then the next provider is tried. Rate-limit,
// quota and malformed errors propagate immediately without fallback so the
// caller sees a distinguishable outcome.
func (r *Registry) Complete(ctx context.Context, prompt string, params Params) (Result, error) {
	candidates := r.availableProviders()
	if len(candidates) == 0 {
		return Result{}, coreerrors.ErrNoProvidersAvailable
	}

	var lastErr error

	for _, p := range candidates {
		start := time.Now()

		result, err := retryTransient(ctx, r.retryCfg, func() (Result, error) {
			return p.Complete(ctx, prompt, params)
		})

		observability.CompletionRequestDuration.
			WithLabelValues(string(p.Name()), params.Model).
			Observe(time.Since(start).Seconds())

		if err == nil {
			r.recordSuccess(p.Name())
			return result, nil
		}

		r.recordFailure(p.Name())
		observability.CompletionErrors.WithLabelValues(string(p.Name()), errorKind(err)).Inc()

		if errors.Is(err, coreerrors.ErrRateLimited) || errors.Is(err, coreerrors.ErrQuotaExceeded) || errors.Is(err, coreerrors.ErrMalformed) {
			return Result{}, err
		}

		r.logger.Warn().
			Err(err).
			Str("provider", string(p.Name())).
			Msg("provider exhausted transient retries, trying fallback")

		lastErr = err
	}

	return Result{}, fmt.Errorf("all providers failed: %w", lastErr)
}

// Embed uses the highest-priority provider that supports embeddings.
func (r *Registry) Embed(ctx context.Context, text string) ([]float32, error) {
	for _, p := range r.availableProviders() {
		if p.SupportsEmbeddings() {
			return p.Embed(ctx, text)
		}
	}

	return nil, coreerrors.ErrEmbeddingsUnsupported
}

// SupportsEmbeddings reports whether any available provider can embed.
func (r *Registry) SupportsEmbeddings() bool {
	for _, p := range r.availableProviders() {
		if p.SupportsEmbeddings() {
			return true
		}
	}

	return false
}

func (r *Registry) availableProviders() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	out := make([]Provider, 0, len(r.order))

	for _, name := range r.order {
		p := r.providers[name]
		if !p.IsAvailable() {
			continue
		}

		if until, ok := r.coolUntil[name]; ok && now.Before(until) {
			continue
		}

		out = append(out, p)
	}

	return out
}

func (r *Registry) recordSuccess(name ProviderName) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.failures[name] = 0
}

func (r *Registry) recordFailure(name ProviderName) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.failures[name]++
	if r.failures[name] >= cooldownThreshold {
		r.coolUntil[name] = time.Now().Add(cooldownDuration)
		r.failures[name] = 0

		r.logger.Warn().
			Str("provider", string(name)).
			Dur("cooldown", cooldownDuration).
			Msg("provider placed on cooldown")
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, coreerrors.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, coreerrors.ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, coreerrors.ErrMalformed):
		return "malformed"
	case errors.Is(err, coreerrors.ErrTransient):
		return "transient"
	default:
		return "other"
	}
}

// Ensure Registry implements Client.
var _ Client = (*Registry)(nil)
