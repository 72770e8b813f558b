package llm

import (
	"context"
	"hash/fnv"
)

// mockProvider returns canned output for local development and tests.
type mockProvider struct {
	// Respond overrides the default canned response when set.
	Respond func(prompt string, params Params) (Result, error)
}

// NewMockProvider creates a mock completion provider.
func NewMockProvider() *mockProvider {
	return &mockProvider{}
}

func (p *mockProvider) Name() ProviderName {
	return ProviderMock
}

func (p *mockProvider) IsAvailable() bool {
	return true
}

func (p *mockProvider) Priority() int {
	return PriorityMock
}

func (p *mockProvider) Complete(_ context.Context, prompt string, params Params) (Result, error) {
	if p.Respond != nil {
		return p.Respond(prompt, params)
	}

	return Result{
		Text:     `{"title":"Mock insight","summary":"Mock summary of the subject.","category":"operations","horizon":"short","confidence":0.8,"probability":0.6,"evidence":0.7,"body":"Mock body."}`,
		Provider: ProviderMock,
		Model:    "mock",
	}, nil
}

func (p *mockProvider) SupportsEmbeddings() bool {
	return true
}

// Embed returns a small deterministic vector derived from the text so that
// identical inputs collide and different inputs mostly do not.
func (p *mockProvider) Embed(_ context.Context, text string) ([]float32, error) {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))

	seed := h.Sum32()
	vec := make([]float32, 8)

	for i := range vec {
		seed = seed*1664525 + 1013904223
		vec[i] = float32(seed%1000)/500.0 - 1.0
	}

	return vec, nil
}

var _ Provider = (*mockProvider)(nil)
