package promptgen

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vistaceo/insight-engine/internal/core/domain"
)

func testBundle() domain.ContextBundle {
	return domain.ContextBundle{
		SubjectID: "subject-1",
		Profile: domain.Profile{
			SubjectID: "subject-1",
			Name:      "Cafe Lumen",
			Category:  "restaurant",
			Locale:    "de-DE",
			Currency:  "EUR",
			Scale:     map[string]string{"seats": "40", "staff": "6"},
			Facts:     map[string]string{"signature_dish": "flammkuchen", "rating": "4.6"},
		},
		History: []domain.HistoryEntry{
			{ArtifactID: "h1", Kind: domain.KindPrediction, Title: "Terrace season push", Summary: "outdoor seating demand", CreatedAt: time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC)},
			{ArtifactID: "h2", Kind: domain.KindBlogPost, Title: "Lunch menu revamp", Summary: "midday traffic", CreatedAt: time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)},
		},
		Playbook: domain.Playbook{
			Category: "restaurant",
			Drivers:  []string{"foot traffic", "delivery visibility"},
			Risks:    []string{"ingredient costs"},
			Voice:    "practical",
		},
		QualityHints: domain.QualityHints{Completeness: 100},
	}
}

func TestRenderIsDeterministic(t *testing.T) {
	r := New(48000, 50)
	req := Request{
		Bundle: testBundle(),
		Kind:   domain.KindPrediction,
		Facets: domain.Facets{Horizons: []domain.Horizon{domain.HorizonShort}},
	}

	first, err := r.Render(req)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := r.Render(req)
		require.NoError(t, err)
		assert.Equal(t, first.Text, again.Text)
		assert.Equal(t, first.Digest, again.Digest)
	}
}

func TestRenderIncludesContext(t *testing.T) {
	r := New(48000, 50)

	prompt, err := r.Render(Request{Bundle: testBundle(), Kind: domain.KindPrediction})
	require.NoError(t, err)

	assert.Contains(t, prompt.Text, "Cafe Lumen")
	assert.Contains(t, prompt.Text, "Terrace season push")
	assert.Contains(t, prompt.Text, "Sector playbook (restaurant)")
	// Scale map keys render in sorted order.
	assert.Less(t, strings.Index(prompt.Text, "seats: 40"), strings.Index(prompt.Text, "staff: 6"))
}

func TestRenderDegradedBundle(t *testing.T) {
	r := New(48000, 50)

	bundle := domain.ContextBundle{
		SubjectID:    "bare",
		Profile:      domain.Profile{SubjectID: "bare", Name: "Bare Subject"},
		QualityHints: domain.QualityHints{Completeness: 40},
	}

	prompt, err := r.Render(Request{Bundle: bundle, Kind: domain.KindMissionPlan})
	require.NoError(t, err)

	assert.Contains(t, prompt.Text, "Category: unknown")
	assert.Contains(t, prompt.Text, "Sector playbook: unknown")
	assert.Contains(t, prompt.Text, "Prior artifacts: none")
	assert.Contains(t, prompt.Text, "CAUTION")
}

func TestRenderCautionOnlyBelowThreshold(t *testing.T) {
	r := New(48000, 50)
	bundle := testBundle()

	prompt, err := r.Render(Request{Bundle: bundle, Kind: domain.KindPrediction})
	require.NoError(t, err)
	assert.NotContains(t, prompt.Text, "CAUTION")

	bundle.QualityHints.Completeness = 40
	prompt, err = r.Render(Request{Bundle: bundle, Kind: domain.KindPrediction})
	require.NoError(t, err)
	assert.Contains(t, prompt.Text, "CAUTION")
}

func TestRenderPriorIssuesVerbatim(t *testing.T) {
	r := New(48000, 50)
	issues := []string{"tabular markup forbidden", "too few references: 1, need 2"}

	prompt, err := r.Render(Request{Bundle: testBundle(), Kind: domain.KindBlogPost, PriorIssues: issues})
	require.NoError(t, err)

	assert.Contains(t, prompt.Text, "FIX THESE SPECIFIC PROBLEMS")
	for _, issue := range issues {
		assert.Contains(t, prompt.Text, "- "+issue)
	}

	// A retry prompt differs from the first attempt's prompt.
	base, err := r.Render(Request{Bundle: testBundle(), Kind: domain.KindBlogPost})
	require.NoError(t, err)
	assert.NotEqual(t, base.Digest, prompt.Digest)
}

func TestRenderTrimsOldestHistoryFirst(t *testing.T) {
	bundle := testBundle()

	bare, err := New(0, 0).Render(Request{Bundle: bundle, Kind: domain.KindPrediction})
	require.NoError(t, err)

	// Budget forces dropping at least the oldest entry but leaves room for
	// the newest one.
	budget := len(bare.Text) - 10

	prompt, err := New(budget, 0).Render(Request{Bundle: bundle, Kind: domain.KindPrediction})
	require.NoError(t, err)

	assert.Contains(t, prompt.Text, "Terrace season push")
	assert.NotContains(t, prompt.Text, "Lunch menu revamp")
}

func TestRenderUnknownKind(t *testing.T) {
	_, err := New(48000, 50).Render(Request{Bundle: testBundle(), Kind: domain.ArtifactKind("poem")})
	assert.Error(t, err)
}

func TestRenderFacets(t *testing.T) {
	tests := []struct {
		name     string
		facets   domain.Facets
		expected string
	}{
		{
			name:     "empty facets",
			facets:   domain.Facets{},
			expected: "all horizons and categories",
		},
		{
			name:     "horizons only",
			facets:   domain.Facets{Horizons: []domain.Horizon{domain.HorizonShort, domain.HorizonLong}},
			expected: "horizons: short, long",
		},
		{
			name:     "horizons and categories",
			facets:   domain.Facets{Horizons: []domain.Horizon{domain.HorizonMedium}, Categories: []string{"growth"}},
			expected: "horizons: medium; categories: growth",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, renderFacets(tt.facets))
		})
	}
}
