package llm

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/vistaceo/insight-engine/internal/core/errors"
)

type stubProvider struct {
	name       ProviderName
	priority   int
	available  bool
	embeddings bool
	calls      atomic.Int32
	respond    func() (Result, error)
}

func (s *stubProvider) Name() ProviderName    { return s.name }
func (s *stubProvider) IsAvailable() bool     { return s.available }
func (s *stubProvider) Priority() int         { return s.priority }
func (s *stubProvider) SupportsEmbeddings() bool { return s.embeddings }

func (s *stubProvider) Complete(_ context.Context, _ string, _ Params) (Result, error) {
	s.calls.Add(1)
	return s.respond()
}

func (s *stubProvider) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1}, nil
}

func newTestRegistry() *Registry {
	nop := zerolog.Nop()
	r := NewRegistry(&nop)
	r.retryCfg = RetryConfig{MaxRetries: 1, InitialDelay: time.Millisecond}

	return r
}

func succeed(name ProviderName) func() (Result, error) {
	return func() (Result, error) {
		return Result{Text: "ok", Provider: name}, nil
	}
}

func failWith(err error) func() (Result, error) {
	return func() (Result, error) {
		return Result{}, err
	}
}

func TestCompleteUsesHighestPriorityProvider(t *testing.T) {
	primary := &stubProvider{name: ProviderOpenAI, priority: PriorityPrimary, available: true, respond: succeed(ProviderOpenAI)}
	fallback := &stubProvider{name: ProviderGoogle, priority: PriorityFallback, available: true, respond: succeed(ProviderGoogle)}

	r := newTestRegistry()
	r.Register(fallback)
	r.Register(primary)

	result, err := r.Complete(context.Background(), "p", Params{})
	require.NoError(t, err)
	assert.Equal(t, ProviderOpenAI, result.Provider)
	assert.Equal(t, int32(0), fallback.calls.Load())
}

func TestCompleteFallsBackOnTransientExhaustion(t *testing.T) {
	primary := &stubProvider{
		name: ProviderOpenAI, priority: PriorityPrimary, available: true,
		respond: failWith(fmt.Errorf("%w: upstream 503", coreerrors.ErrTransient)),
	}
	fallback := &stubProvider{name: ProviderGoogle, priority: PriorityFallback, available: true, respond: succeed(ProviderGoogle)}

	r := newTestRegistry()
	r.Register(primary)
	r.Register(fallback)

	result, err := r.Complete(context.Background(), "p", Params{})
	require.NoError(t, err)
	assert.Equal(t, ProviderGoogle, result.Provider)
	// Initial attempt plus one retry before falling back.
	assert.Equal(t, int32(2), primary.calls.Load())
}

func TestCompleteNoFallbackOnRateLimit(t *testing.T) {
	rateLimited := fmt.Errorf("%w: 429", coreerrors.ErrRateLimited)
	primary := &stubProvider{name: ProviderOpenAI, priority: PriorityPrimary, available: true, respond: failWith(rateLimited)}
	fallback := &stubProvider{name: ProviderGoogle, priority: PriorityFallback, available: true, respond: succeed(ProviderGoogle)}

	r := newTestRegistry()
	r.Register(primary)
	r.Register(fallback)

	_, err := r.Complete(context.Background(), "p", Params{})
	require.Error(t, err)
	assert.ErrorIs(t, err, coreerrors.ErrRateLimited)

	// No retry on the failing provider and no fallback attempt.
	assert.Equal(t, int32(1), primary.calls.Load())
	assert.Equal(t, int32(0), fallback.calls.Load())
}

func TestCompleteNoFallbackOnQuotaOrMalformed(t *testing.T) {
	for _, sentinel := range []error{coreerrors.ErrQuotaExceeded, coreerrors.ErrMalformed} {
		primary := &stubProvider{name: ProviderOpenAI, priority: PriorityPrimary, available: true, respond: failWith(fmt.Errorf("%w: x", sentinel))}
		fallback := &stubProvider{name: ProviderGoogle, priority: PriorityFallback, available: true, respond: succeed(ProviderGoogle)}

		r := newTestRegistry()
		r.Register(primary)
		r.Register(fallback)

		_, err := r.Complete(context.Background(), "p", Params{})
		assert.ErrorIs(t, err, sentinel)
		assert.Equal(t, int32(0), fallback.calls.Load())
	}
}

func TestCompleteNoProviders(t *testing.T) {
	r := newTestRegistry()

	_, err := r.Complete(context.Background(), "p", Params{})
	assert.ErrorIs(t, err, coreerrors.ErrNoProvidersAvailable)

	r.Register(&stubProvider{name: ProviderOpenAI, priority: PriorityPrimary, available: false, respond: succeed(ProviderOpenAI)})

	_, err = r.Complete(context.Background(), "p", Params{})
	assert.ErrorIs(t, err, coreerrors.ErrNoProvidersAvailable)
}

func TestCooldownAfterRepeatedFailures(t *testing.T) {
	primary := &stubProvider{
		name: ProviderOpenAI, priority: PriorityPrimary, available: true,
		respond: failWith(fmt.Errorf("%w: down", coreerrors.ErrTransient)),
	}
	fallback := &stubProvider{name: ProviderGoogle, priority: PriorityFallback, available: true, respond: succeed(ProviderGoogle)}

	r := newTestRegistry()
	r.Register(primary)
	r.Register(fallback)

	for i := 0; i < cooldownThreshold; i++ {
		_, err := r.Complete(context.Background(), "p", Params{})
		require.NoError(t, err)
	}

	before := primary.calls.Load()

	// Primary is now cooling down; it must not be consulted.
	_, err := r.Complete(context.Background(), "p", Params{})
	require.NoError(t, err)
	assert.Equal(t, before, primary.calls.Load())
}

func TestEmbedPicksEmbeddingCapableProvider(t *testing.T) {
	noEmbed := &stubProvider{name: ProviderGoogle, priority: PriorityPrimary, available: true}
	embedder := &stubProvider{name: ProviderOpenAI, priority: PriorityFallback, available: true, embeddings: true}

	r := newTestRegistry()
	r.Register(noEmbed)
	r.Register(embedder)

	assert.True(t, r.SupportsEmbeddings())

	vec, err := r.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, vec)
}

func TestEmbedUnsupported(t *testing.T) {
	r := newTestRegistry()
	r.Register(&stubProvider{name: ProviderGoogle, priority: PriorityPrimary, available: true})

	assert.False(t, r.SupportsEmbeddings())

	_, err := r.Embed(context.Background(), "text")
	assert.ErrorIs(t, err, coreerrors.ErrEmbeddingsUnsupported)
}
